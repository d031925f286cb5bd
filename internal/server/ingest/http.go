package ingest

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

const (
	electionsPath  = "/CommonCodeService/getCommonSgCodeInfoInqire"
	candidatesPath = "/PofelcddInfoInqireService/getPoelpcddRegistSttusInfoInqire"
	pledgesPath    = "/ElecPrmsInfoInqireService/getCnddtElecPrmsInfoInqire"

	pageSize          = 100
	maxPages          = 10
	maxResponseBytes  = 1 << 20
	maxPledgesPerCand = 10

	resultOK     = "INFO-00"
	resultNoData = "INFO-03"

	// election pledges were not collected before this year
	firstPledgeYear = 2008
)

var ErrAPI = errors.New("open-data api error")

// HTTPSource talks to the data.go.kr election services.
type HTTPSource struct {
	baseURL string
	key     string
	client  *http.Client

	// TypeCodes limits which election kinds are imported. Empty imports all.
	TypeCodes []int
}

func NewHTTPSource(baseURL, key string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		key:       key,
		client:    &http.Client{Timeout: timeout},
		TypeCodes: []int{1},
	}
}

func (s *HTTPSource) Elections(ctx context.Context) ([]models.Election, error) {
	items, err := s.fetchAll(ctx, electionsPath, nil)
	if err != nil {
		return nil, err
	}

	var out []models.Election
	for _, it := range items {
		id := it.get("sgId")
		if id == "" {
			continue
		}
		if year, _ := strconv.Atoi(id[:min(4, len(id))]); year < firstPledgeYear {
			continue
		}
		code, _ := strconv.Atoi(it.get("sgTypecode"))
		if !s.wantType(code) {
			continue
		}
		out = append(out, models.Election{
			ID:       id,
			Name:     it.get("sgName"),
			Date:     formatDate(it.get("sgVotedate")),
			Type:     electionType(code),
			TypeCode: code,
		})
	}
	return out, nil
}

func (s *HTTPSource) Candidates(ctx context.Context, e models.Election) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("sgId", e.ID)
	q.Set("sgTypecode", strconv.Itoa(typeCodeOrDefault(e.TypeCode)))

	items, err := s.fetchAll(ctx, candidatesPath, q)
	if err != nil {
		return nil, err
	}

	var out []models.Candidate
	for _, it := range items {
		id := it.first("huboid", "cnddtId")
		if id == "" {
			continue
		}
		num, _ := strconv.Atoi(it.first("giho", "num"))
		out = append(out, models.Candidate{
			ID:         id,
			Name:       it.first("name", "krName"),
			Party:      it.get("jdName"),
			Number:     num,
			ElectionID: e.ID,
		})
	}
	return out, nil
}

func (s *HTTPSource) Pledges(ctx context.Context, e models.Election, candidateID string) ([]models.Pledge, error) {
	q := url.Values{}
	q.Set("sgId", e.ID)
	q.Set("sgTypecode", strconv.Itoa(typeCodeOrDefault(e.TypeCode)))
	q.Set("cnddtId", candidateID)

	items, _, err := s.fetchPage(ctx, pledgesPath, q, 1)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []models.Pledge
	for _, it := range items {
		n, _ := strconv.Atoi(it.get("prmsCnt"))
		for i := 1; i <= n && i <= maxPledgesPerCand; i++ {
			title := it.get("prmsTitle" + strconv.Itoa(i))
			if title == "" {
				continue
			}
			out = append(out, models.Pledge{
				ID:          candidateID + "_" + strconv.Itoa(i),
				CandidateID: candidateID,
				Title:       title,
				Content:     it.get("prmmCont" + strconv.Itoa(i)),
				Category:    it.get("prmsRealmName" + strconv.Itoa(i)),
				CreatedAt:   now,
			})
		}
	}
	return out, nil
}

func (s *HTTPSource) fetchAll(ctx context.Context, path string, q url.Values) ([]item, error) {
	var all []item
	for page := 1; page <= maxPages; page++ {
		items, total, err := s.fetchPage(ctx, path, q, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < pageSize || len(all) >= total {
			break
		}
	}
	return all, nil
}

func (s *HTTPSource) fetchPage(ctx context.Context, path string, q url.Values, page int) ([]item, int, error) {
	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	params.Set("serviceKey", s.key)
	params.Set("pageNo", strconv.Itoa(page))
	params.Set("numOfRows", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%s: http status %d: %w", path, resp.StatusCode, ErrAPI)
	}

	var r response
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("%s: decode: %w", path, err)
	}

	switch r.Header.ResultCode {
	case resultOK:
		return r.Body.Items, r.Body.TotalCount, nil
	case resultNoData:
		return nil, 0, nil
	default:
		return nil, 0, fmt.Errorf("%s: %s %s: %w", path, r.Header.ResultCode, r.Header.ResultMsg, ErrAPI)
	}
}

func (s *HTTPSource) wantType(code int) bool {
	if len(s.TypeCodes) == 0 {
		return true
	}
	for _, c := range s.TypeCodes {
		if c == code {
			return true
		}
	}
	return false
}

type response struct {
	Header struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items      []item `xml:"items>item"`
		TotalCount int    `xml:"totalCount"`
	} `xml:"body"`
}

// item keeps every child element by name, the pledge service numbers its
// tags (prmsTitle1, prmsTitle2, ...).
type item struct {
	Fields []field `xml:",any"`
}

type field struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (it item) get(name string) string {
	for _, f := range it.Fields {
		if f.XMLName.Local == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

func (it item) first(names ...string) string {
	for _, n := range names {
		if v := it.get(n); v != "" {
			return v
		}
	}
	return ""
}

// formatDate turns YYYYMMDD into YYYY-MM-DD and leaves anything else alone.
func formatDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:]
}

var electionTypes = map[int]string{
	0:  "combined",
	1:  "presidential",
	2:  "national assembly",
	3:  "governor",
	4:  "mayor",
	5:  "provincial council",
	6:  "municipal council",
	11: "education superintendent",
}

func electionType(code int) string {
	if t, ok := electionTypes[code]; ok {
		return t
	}
	return "election"
}

func typeCodeOrDefault(code int) int {
	if code > 0 {
		return code
	}
	return 1
}

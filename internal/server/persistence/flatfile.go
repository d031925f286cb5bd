package persistence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/filex"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

const (
	ElectionsFile   = "elections.txt"
	CandidatesFile  = "candidates.txt"
	PledgesFile     = "pledges.txt"
	EvaluationsFile = "evaluations.txt"
	UsersFile       = "users.txt"
	LastUpdateFile  = "last_update.txt"

	maxLineSize = 1 << 20
)

// FlatFile stores each collection as a pipe-delimited text file inside one
// directory. Files are rewritten in place, there is no temp file and rename.
type FlatFile struct {
	dir string
}

func NewFlatFile(dir string) (*FlatFile, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return &FlatFile{dir: abs}, nil
}

func (f *FlatFile) Dir() string { return f.dir }

func (f *FlatFile) Close() error { return nil }

func (f *FlatFile) SaveElections(items []models.Election) error {
	var b bytes.Buffer
	writeHeader(&b, "elections", "id|name|date|type|isActive", len(items))
	for _, e := range items {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%d\n", clean(e.ID), clean(e.Name), clean(e.Date), clean(e.Type), e.TypeCode)
	}
	return f.write(ElectionsFile, b.Bytes())
}

func (f *FlatFile) SaveCandidates(items []models.Candidate) error {
	var b bytes.Buffer
	writeHeader(&b, "candidates", "id|name|party|number|electionId|pledgeCount", len(items))
	for _, c := range items {
		fmt.Fprintf(&b, "%s|%s|%s|%d|%s|%d\n", clean(c.ID), clean(c.Name), clean(c.Party), c.Number, clean(c.ElectionID), c.PledgeCount)
	}
	return f.write(CandidatesFile, b.Bytes())
}

func (f *FlatFile) SavePledges(items []models.Pledge) error {
	var b bytes.Buffer
	writeHeader(&b, "pledges", "id|candidateId|title|content|category|likeCount|dislikeCount|createdEpoch", len(items))
	for _, p := range items {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%d|%d|%d\n",
			clean(p.ID), clean(p.CandidateID), clean(p.Title), clean(p.Content), clean(p.Category),
			p.LikeCount, p.DislikeCount, epoch(p.CreatedAt))
	}
	return f.write(PledgesFile, b.Bytes())
}

func (f *FlatFile) SaveEvaluations(items []models.Evaluation) error {
	var b bytes.Buffer
	writeHeader(&b, "evaluations", "userId|pledgeId|type|epoch (type: 1=like, -1=dislike)", len(items))
	for _, e := range items {
		fmt.Fprintf(&b, "%s|%s|%d|%d\n", clean(e.UserID), clean(e.PledgeID), int(e.Type), epoch(e.Time))
	}
	return f.write(EvaluationsFile, b.Bytes())
}

// SaveUsers writes "id:hash:attempts:locked:lastLoginEpoch". Lines holding
// only "id:hash" are accepted on load.
func (f *FlatFile) SaveUsers(items []models.User) error {
	var b bytes.Buffer
	for _, u := range items {
		locked := 0
		if u.Locked {
			locked = 1
		}
		fmt.Fprintf(&b, "%s:%s:%d:%d:%d\n", u.ID, u.PasswordHash, u.LoginAttempts, locked, epoch(u.LastLogin))
	}
	return f.write(UsersFile, b.Bytes())
}

func (f *FlatFile) SaveLastUpdate(t time.Time) error {
	data := fmt.Sprintf("%d\n%s\n", t.Unix(), t.Format(time.RFC1123))
	return f.write(LastUpdateFile, []byte(data))
}

// Load reads every file. A missing file is an empty collection, a malformed
// line is skipped.
func (f *FlatFile) Load() (*Snapshot, error) {
	s := &Snapshot{}

	err := f.scan(ElectionsFile, func(line string) {
		p := strings.Split(line, "|")
		if len(p) != 5 || p[0] == "" {
			return
		}
		s.Elections = append(s.Elections, models.Election{
			ID: p[0], Name: p[1], Date: p[2], Type: p[3], TypeCode: atoi(p[4]),
		})
	})
	if err != nil {
		return nil, err
	}

	err = f.scan(CandidatesFile, func(line string) {
		p := strings.Split(line, "|")
		if len(p) != 6 || p[0] == "" {
			return
		}
		s.Candidates = append(s.Candidates, models.Candidate{
			ID: p[0], Name: p[1], Party: p[2], Number: atoi(p[3]), ElectionID: p[4], PledgeCount: atoi(p[5]),
		})
	})
	if err != nil {
		return nil, err
	}

	err = f.scan(PledgesFile, func(line string) {
		p := strings.Split(line, "|")
		if len(p) != 8 || p[0] == "" {
			return
		}
		s.Pledges = append(s.Pledges, models.Pledge{
			ID: p[0], CandidateID: p[1], Title: p[2], Content: p[3], Category: p[4],
			LikeCount: atoi(p[5]), DislikeCount: atoi(p[6]), CreatedAt: fromEpoch(p[7]),
		})
	})
	if err != nil {
		return nil, err
	}

	err = f.scan(EvaluationsFile, func(line string) {
		p := strings.Split(line, "|")
		if len(p) != 4 || p[0] == "" || p[1] == "" {
			return
		}
		t := models.EvaluationType(atoi(p[2]))
		if !t.Valid() {
			return
		}
		s.Evaluations = append(s.Evaluations, models.Evaluation{
			UserID: p[0], PledgeID: p[1], Type: t, Time: fromEpoch(p[3]),
		})
	})
	if err != nil {
		return nil, err
	}

	err = f.scan(UsersFile, func(line string) {
		p := strings.Split(line, ":")
		if (len(p) != 2 && len(p) != 5) || p[0] == "" || p[1] == "" {
			return
		}
		u := models.User{ID: p[0], PasswordHash: p[1]}
		if len(p) == 5 {
			u.LoginAttempts = atoi(p[2])
			u.Locked = p[3] == "1"
			u.LastLogin = fromEpoch(p[4])
		}
		s.Users = append(s.Users, u)
	})
	if err != nil {
		return nil, err
	}

	err = f.scan(LastUpdateFile, func(line string) {
		if s.LastUpdate.IsZero() {
			s.LastUpdate = fromEpoch(line)
		}
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (f *FlatFile) write(name string, data []byte) error {
	return filex.WriteFile(filepath.Join(f.dir, name), data)
}

func (f *FlatFile) scan(name string, fn func(line string)) error {
	file, err := os.Open(filepath.Join(f.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	return scanLines(file, fn)
}

func scanLines(r io.Reader, fn func(line string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "COUNT=") {
			continue
		}
		fn(line)
	}
	return sc.Err()
}

func writeHeader(b *bytes.Buffer, what, format string, count int) {
	fmt.Fprintf(b, "# %s\n# format: %s\nCOUNT=%d\n", what, format, count)
}

// cleaner keeps a value on one line and out of the field separator.
var cleaner = strings.NewReplacer("|", "/", "\n", " ", "\r", " ")

func clean(s string) string {
	return cleaner.Replace(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromEpoch(s string) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

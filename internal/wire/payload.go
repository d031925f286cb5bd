package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPayload is returned when the data field does not match the format
// expected for the message type.
var ErrBadPayload = errors.New("bad payload")

// RequestTypeRegister marks a LoginRequest as a registration.
const RequestTypeRegister = "register"

// LoginPayload is carried by LoginRequest:
//
//	{"user_id":"alice","password":"pw1234"}
//	{"user_id":"alice","password":"pw1234","type":"register"}
type LoginPayload struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
	Type     string `json:"type,omitempty"`
}

func (p LoginPayload) IsRegister() bool {
	return p.Type == RequestTypeRegister
}

func ParseLogin(data []byte) (LoginPayload, error) {
	var p LoginPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return LoginPayload{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if p.UserID == "" || p.Password == "" {
		return LoginPayload{}, fmt.Errorf("%w: user_id and password are required", ErrBadPayload)
	}
	if len(p.UserID) >= TextFieldSize || len(p.Password) >= TextFieldSize {
		return LoginPayload{}, fmt.Errorf("%w: credentials too long", ErrBadPayload)
	}
	return p, nil
}

func MarshalLogin(p LoginPayload) []byte {
	b, _ := json.Marshal(p)
	return b
}

// EvaluatePayload is carried by EvaluatePledge as "<pledge_id>|<+1|-1>".
type EvaluatePayload struct {
	PledgeID string
	Value    int
}

func ParseEvaluate(data []byte) (EvaluatePayload, error) {
	id, value, ok := strings.Cut(strings.TrimSpace(string(data)), "|")
	if !ok || id == "" {
		return EvaluatePayload{}, fmt.Errorf("%w: want pledge_id|value", ErrBadPayload)
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return EvaluatePayload{}, fmt.Errorf("%w: value %q is not a number", ErrBadPayload, value)
	}
	return EvaluatePayload{PledgeID: id, Value: v}, nil
}

func MarshalEvaluate(p EvaluatePayload) []byte {
	return []byte(fmt.Sprintf("%s|%+d", p.PledgeID, p.Value))
}

// ParsePledgeRef reads the raw pledge id used by CancelEvaluation,
// GetUserEvaluation and GetStatistics. Only the first whitespace separated
// token is taken.
func ParsePledgeRef(data []byte) (string, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: pledge id is required", ErrBadPayload)
	}
	return fields[0], nil
}

// Rate is a percentage rendered with one decimal place.
type Rate float64

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(r), 'f', 1, 64)), nil
}

// Statistics is the GetStatistics response payload.
type Statistics struct {
	PledgeID     string `json:"pledge_id"`
	Title        string `json:"title"`
	LikeCount    int    `json:"like_count"`
	DislikeCount int    `json:"dislike_count"`
	TotalVotes   int    `json:"total_votes"`
	ApprovalRate Rate   `json:"approval_rate"`
}

// MarshalStatistics encodes s, shortening the title if the result would not
// fit the data field.
func MarshalStatistics(s Statistics) ([]byte, error) {
	for {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		if len(b) < DataFieldSize || s.Title == "" {
			return b, nil
		}
		r := []rune(s.Title)
		s.Title = string(r[:len(r)/2])
	}
}

func ParseStatistics(data []byte) (Statistics, error) {
	var s Statistics
	if err := json.Unmarshal(data, &s); err != nil {
		return Statistics{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return s, nil
}

// ParseUserEvaluation reads the GetUserEvaluation response: "1", "-1" or "0".
func ParseUserEvaluation(data []byte) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return v, nil
}

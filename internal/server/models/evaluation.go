package models

import (
	"fmt"
	"time"
)

// EvaluationType is the state of one user's vote on one pledge.
type EvaluationType int

const (
	Dislike EvaluationType = -1
	None    EvaluationType = 0
	Like    EvaluationType = 1
)

func (t EvaluationType) Valid() bool {
	return t == Like || t == Dislike
}

func (t EvaluationType) String() string {
	switch t {
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	case None:
		return "none"
	default:
		return fmt.Sprintf("invalid(%d)", int(t))
	}
}

// Evaluation is keyed by (UserID, PledgeID). Rows with type None are never
// stored.
type Evaluation struct {
	UserID   string
	PledgeID string
	Type     EvaluationType
	Time     time.Time
}

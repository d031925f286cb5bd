package client

import (
	"context"

	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

// Counts are the record counts reported by the list requests.
type Counts struct {
	Elections  string
	Candidates string
	Pledges    string
}

// RefreshTarget selects what a refresh request reloads.
type RefreshTarget string

const (
	RefreshElections  RefreshTarget = "elections"
	RefreshCandidates RefreshTarget = "candidates"
	RefreshPledges    RefreshTarget = "pledges"
	RefreshAll        RefreshTarget = "all"
)

type Client interface {
	Close() error
	Register(ctx context.Context, userID, password string) error
	Login(ctx context.Context, userID, password string) error
	Logout(ctx context.Context) error
	UserID() string
	Vote(ctx context.Context, pledgeID string, value int) error
	Cancel(ctx context.Context, pledgeID string) error
	MyEvaluation(ctx context.Context, pledgeID string) (int, error)
	Statistics(ctx context.Context, pledgeID string) (*wire.Statistics, error)
	Counts(ctx context.Context) (*Counts, error)
	Refresh(ctx context.Context, target RefreshTarget) (string, error)
}

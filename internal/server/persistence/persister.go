// Package persistence saves and restores the domain collections. Every Save
// call receives the full collection and replaces what was stored before.
package persistence

import (
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

// Snapshot is everything a Persister holds.
type Snapshot struct {
	Elections   []models.Election
	Candidates  []models.Candidate
	Pledges     []models.Pledge
	Evaluations []models.Evaluation
	Users       []models.User
	LastUpdate  time.Time
}

// Persister must not retain the slices passed to Save methods after they
// return.
type Persister interface {
	SaveElections([]models.Election) error
	SaveCandidates([]models.Candidate) error
	SavePledges([]models.Pledge) error
	SaveEvaluations([]models.Evaluation) error
	SaveUsers([]models.User) error
	SaveLastUpdate(time.Time) error
	Load() (*Snapshot, error)
	Close() error
}

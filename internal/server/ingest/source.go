// Package ingest pulls elections, candidates and pledges from the
// government open-data API and swaps them into the store.
package ingest

import (
	"context"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

// Source is the bulk data provider behind refresh requests.
type Source interface {
	Elections(ctx context.Context) ([]models.Election, error)
	Candidates(ctx context.Context, election models.Election) ([]models.Candidate, error)
	Pledges(ctx context.Context, election models.Election, candidateID string) ([]models.Pledge, error)
}

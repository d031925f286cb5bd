package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/evaluations"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/persistence"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
)

// Scope selects what a refresh replaces.
type Scope int

const (
	ScopeElections Scope = iota + 1
	ScopeCandidates
	ScopePledges
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeElections:
		return "elections"
	case ScopeCandidates:
		return "candidates"
	case ScopePledges:
		return "pledges"
	case ScopeAll:
		return "all"
	default:
		return "unknown"
	}
}

// Result counts the records that a refresh stored.
type Result struct {
	Elections  int
	Candidates int
	Pledges    int
}

// Refresher downloads from a Source outside the store lock and swaps the
// result in with one Update. Concurrent calls for the same scope share one
// download.
type Refresher struct {
	source    Source
	store     *store.Store
	persister persistence.Persister
	logger    logging.Logger
	group     singleflight.Group
	now       func() time.Time
}

func NewRefresher(src Source, s *store.Store, p persistence.Persister, l logging.Logger) *Refresher {
	return &Refresher{
		source:    src,
		store:     s,
		persister: p,
		logger:    l.With("module", "refresher"),
		now:       time.Now,
	}
}

func (r *Refresher) Refresh(ctx context.Context, scope Scope) (Result, error) {
	v, err, shared := r.group.Do(scope.String(), func() (any, error) {
		return r.refresh(ctx, scope)
	})
	if err != nil {
		r.logger.Error(ctx, "refresh failed", "scope", scope.String(), "error", err)
		return Result{}, err
	}
	if shared {
		r.logger.Debug(ctx, "joined running refresh", "scope", scope.String())
	}
	return v.(Result), nil
}

func (r *Refresher) refresh(ctx context.Context, scope Scope) (Result, error) {
	var (
		res        Result
		elections  []models.Election
		candidates []models.Candidate
		pledges    []models.Pledge
		err        error
	)

	switch scope {
	case ScopeElections, ScopeAll:
		if elections, err = r.source.Elections(ctx); err != nil {
			return res, fmt.Errorf("elections: %w", err)
		}
	case ScopeCandidates, ScopePledges:
		elections = r.currentElections()
	default:
		return res, fmt.Errorf("unknown refresh scope %d", scope)
	}

	switch scope {
	case ScopeCandidates, ScopeAll:
		if candidates, err = r.fetchCandidates(ctx, elections); err != nil {
			return res, err
		}
	case ScopePledges:
		candidates = r.currentCandidates()
	}

	if scope == ScopePledges || scope == ScopeAll {
		if pledges, err = r.fetchPledges(ctx, elections, candidates); err != nil {
			return res, err
		}
		countPledges(candidates, pledges)
	}

	err = r.store.Update(func(tx *store.Tx) error {
		if scope == ScopeElections || scope == ScopeAll {
			if err := tx.ReplaceElections(elections); err != nil {
				return err
			}
			tx.Mark(store.Elections)
			res.Elections = len(elections)
		}
		if scope != ScopeElections {
			if err := tx.ReplaceCandidates(candidates); err != nil {
				return err
			}
			tx.Mark(store.Candidates)
			res.Candidates = len(candidates)
		}
		if scope == ScopePledges || scope == ScopeAll {
			if err := tx.ReplacePledges(pledges); err != nil {
				return err
			}
			if err := evaluations.RecomputeAllTx(tx); err != nil {
				return err
			}
			tx.Mark(store.Pledges)
			res.Pledges = len(pledges)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if err := r.persister.SaveLastUpdate(r.now()); err != nil {
		r.logger.Error(ctx, "save last update time", "error", err)
	}

	r.logger.Info(ctx, "refresh done", "scope", scope.String(),
		"elections", res.Elections, "candidates", res.Candidates, "pledges", res.Pledges)
	return res, nil
}

func (r *Refresher) fetchCandidates(ctx context.Context, elections []models.Election) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, e := range elections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cs, err := r.source.Candidates(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("candidates of %s: %w", e.ID, err)
		}
		out = append(out, cs...)
	}
	return out, nil
}

func (r *Refresher) fetchPledges(ctx context.Context, elections []models.Election, candidates []models.Candidate) ([]models.Pledge, error) {
	byID := make(map[string]models.Election, len(elections))
	for _, e := range elections {
		byID[e.ID] = e
	}

	var out []models.Pledge
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, ok := byID[c.ElectionID]
		if !ok {
			e = models.Election{ID: c.ElectionID}
		}
		ps, err := r.source.Pledges(ctx, e, c.ID)
		if err != nil {
			return nil, fmt.Errorf("pledges of %s: %w", c.ID, err)
		}
		out = append(out, ps...)
	}
	return out, nil
}

func (r *Refresher) currentElections() []models.Election {
	var out []models.Election
	_ = r.store.View(func(tx *store.Tx) error {
		out = tx.Elections()
		return nil
	})
	return out
}

func (r *Refresher) currentCandidates() []models.Candidate {
	var out []models.Candidate
	_ = r.store.View(func(tx *store.Tx) error {
		out = tx.Candidates()
		return nil
	})
	return out
}

func countPledges(candidates []models.Candidate, pledges []models.Pledge) {
	n := make(map[string]int, len(candidates))
	for _, p := range pledges {
		n[p.CandidateID]++
	}
	for i := range candidates {
		candidates[i].PledgeCount = n[candidates[i].ID]
	}
}

// Package evaluations enforces one vote per user and pledge and keeps the
// pledge like and dislike counters equal to the stored votes.
package evaluations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

var (
	ErrDuplicateVote   = errors.New("pledge already has this evaluation")
	ErrNothingToCancel = errors.New("nothing to cancel")
	ErrInvalidType     = errors.New("evaluation type must be 1 or -1")
)

type Engine struct {
	store  *store.Store
	logger logging.Logger
	now    func() time.Time
}

func NewEngine(s *store.Store, l logging.Logger) *Engine {
	return &Engine{store: s, logger: l.With("module", "evaluations"), now: time.Now}
}

// Vote sets the user's evaluation of the pledge and returns the previous
// one. Voting the current state again is ErrDuplicateVote.
func (e *Engine) Vote(ctx context.Context, userID, pledgeID string, t models.EvaluationType) (models.EvaluationType, error) {
	if !t.Valid() {
		return models.None, ErrInvalidType
	}

	prev := models.None
	err := e.store.Update(func(tx *store.Tx) error {
		if _, ok := tx.Pledge(pledgeID); !ok {
			return fmt.Errorf("pledge %q: %w", pledgeID, common.ErrorNotFound)
		}
		if cur, ok := tx.Evaluation(userID, pledgeID); ok {
			prev = cur.Type
		}
		if prev == t {
			return ErrDuplicateVote
		}

		err := tx.PutEvaluation(models.Evaluation{UserID: userID, PledgeID: pledgeID, Type: t, Time: e.now()})
		if err != nil {
			return err
		}
		tx.Mark(store.Evaluations)

		if err := recompute(tx, pledgeID); err != nil {
			return err
		}
		tx.Mark(store.Pledges)
		return nil
	})
	if err != nil {
		return models.None, err
	}

	e.logger.Info(ctx, "evaluation set", "user_id", userID, "pledge_id", pledgeID, "type", t.String(), "previous", prev.String())
	return prev, nil
}

// Cancel removes the user's evaluation of the pledge and returns it.
func (e *Engine) Cancel(ctx context.Context, userID, pledgeID string) (models.EvaluationType, error) {
	prev := models.None
	err := e.store.Update(func(tx *store.Tx) error {
		cur, ok := tx.Evaluation(userID, pledgeID)
		if !ok {
			return ErrNothingToCancel
		}
		prev = cur.Type

		if _, err := tx.DeleteEvaluation(userID, pledgeID); err != nil {
			return err
		}
		tx.Mark(store.Evaluations)

		// votes on pledges dropped by a refresh can still be cancelled
		if _, ok := tx.Pledge(pledgeID); ok {
			if err := recompute(tx, pledgeID); err != nil {
				return err
			}
			tx.Mark(store.Pledges)
		}
		return nil
	})
	if err != nil {
		return models.None, err
	}

	e.logger.Info(ctx, "evaluation cancelled", "user_id", userID, "pledge_id", pledgeID, "previous", prev.String())
	return prev, nil
}

// Query returns the user's current evaluation, None when there is none.
func (e *Engine) Query(ctx context.Context, userID, pledgeID string) models.EvaluationType {
	t := models.None
	_ = e.store.View(func(tx *store.Tx) error {
		tx.ForEachEvaluation(func(ev models.Evaluation) bool {
			if ev.UserID == userID && ev.PledgeID == pledgeID {
				t = ev.Type
				return false
			}
			return true
		})
		return nil
	})
	return t
}

func (e *Engine) Statistics(ctx context.Context, pledgeID string) (*wire.Statistics, error) {
	var st *wire.Statistics
	err := e.store.View(func(tx *store.Tx) error {
		p, ok := tx.Pledge(pledgeID)
		if !ok {
			return fmt.Errorf("pledge %q: %w", pledgeID, common.ErrorNotFound)
		}
		st = &wire.Statistics{
			PledgeID:     p.ID,
			Title:        p.Title,
			LikeCount:    p.LikeCount,
			DislikeCount: p.DislikeCount,
			TotalVotes:   p.TotalVotes(),
			ApprovalRate: wire.Rate(roundRate(p.ApprovalRate())),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// RecomputeAll rebuilds every pledge's counters from the stored votes and
// persists the pledges.
func (e *Engine) RecomputeAll(ctx context.Context) error {
	err := e.store.Update(func(tx *store.Tx) error {
		if err := RecomputeAllTx(tx); err != nil {
			return err
		}
		tx.Mark(store.Pledges)
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info(ctx, "pledge statistics recomputed")
	return nil
}

// RecomputeAllTx is RecomputeAll for callers already inside an Update.
func RecomputeAllTx(tx *store.Tx) error {
	type counts struct{ likes, dislikes int }
	agg := make(map[string]counts)
	tx.ForEachEvaluation(func(ev models.Evaluation) bool {
		c := agg[ev.PledgeID]
		switch ev.Type {
		case models.Like:
			c.likes++
		case models.Dislike:
			c.dislikes++
		}
		agg[ev.PledgeID] = c
		return true
	})

	for _, p := range tx.Pledges() {
		c := agg[p.ID]
		if err := tx.SetPledgeCounts(p.ID, c.likes, c.dislikes); err != nil {
			return err
		}
	}
	return nil
}

func recompute(tx *store.Tx, pledgeID string) error {
	likes, dislikes := 0, 0
	tx.ForEachEvaluation(func(ev models.Evaluation) bool {
		if ev.PledgeID != pledgeID {
			return true
		}
		switch ev.Type {
		case models.Like:
			likes++
		case models.Dislike:
			dislikes++
		}
		return true
	})
	return tx.SetPledgeCounts(pledgeID, likes, dislikes)
}

func roundRate(r float64) float64 {
	return math.Round(r*10) / 10
}

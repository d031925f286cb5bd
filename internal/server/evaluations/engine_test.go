package evaluations

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/persistence"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
)

func newEngine(t *testing.T) (*Engine, *store.Store, *persistence.Memory) {
	t.Helper()
	mem := persistence.NewMemory()
	st := store.New(mem)
	st.Load(&persistence.Snapshot{
		Pledges: []models.Pledge{
			{ID: "p1", Title: "Free transit"},
			{ID: "p2", Title: "Parks"},
		},
	})
	return NewEngine(st, logging.Nop{}), st, mem
}

// assertInvariants checks that there is at most one row per pair and that
// every pledge's counters match its rows.
func assertInvariants(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.View(func(tx *store.Tx) error {
		type key struct{ u, p string }
		seen := map[key]bool{}
		likes := map[string]int{}
		dislikes := map[string]int{}
		for _, ev := range tx.Evaluations() {
			k := key{ev.UserID, ev.PledgeID}
			assert.False(t, seen[k], "duplicate row %v", k)
			seen[k] = true
			assert.True(t, ev.Type.Valid())
			if ev.Type == models.Like {
				likes[ev.PledgeID]++
			} else {
				dislikes[ev.PledgeID]++
			}
		}
		for _, p := range tx.Pledges() {
			assert.Equal(t, likes[p.ID], p.LikeCount, p.ID)
			assert.Equal(t, dislikes[p.ID], p.DislikeCount, p.ID)
		}
		return nil
	}))
}

func TestEngine_VoteLifecycle(t *testing.T) {
	e, st, mem := newEngine(t)
	ctx := context.Background()

	prev, err := e.Vote(ctx, "alice", "p1", models.Like)
	require.NoError(t, err)
	assert.Equal(t, models.None, prev)
	assert.Equal(t, models.Like, e.Query(ctx, "alice", "p1"))
	assertInvariants(t, st)

	s, err := e.Statistics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.LikeCount)
	assert.Equal(t, 1, s.TotalVotes)
	assert.Equal(t, 100.0, float64(s.ApprovalRate))
	assert.Equal(t, "Free transit", s.Title)

	_, err = e.Vote(ctx, "alice", "p1", models.Like)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	prev, err = e.Vote(ctx, "alice", "p1", models.Dislike)
	require.NoError(t, err)
	assert.Equal(t, models.Like, prev)
	s, _ = e.Statistics(ctx, "p1")
	assert.Equal(t, 0, s.LikeCount)
	assert.Equal(t, 1, s.DislikeCount)
	assert.Equal(t, 0.0, float64(s.ApprovalRate))
	assertInvariants(t, st)

	prev, err = e.Cancel(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.Dislike, prev)
	s, _ = e.Statistics(ctx, "p1")
	assert.Equal(t, 0, s.DislikeCount)
	assert.Equal(t, models.None, e.Query(ctx, "alice", "p1"))
	assertInvariants(t, st)

	_, err = e.Cancel(ctx, "alice", "p1")
	assert.ErrorIs(t, err, ErrNothingToCancel)

	assert.Equal(t, 3, mem.Saves("evaluations"))
	assert.Equal(t, 3, mem.Saves("pledges"))
}

func TestEngine_RejectedOperationsDoNotChangeState(t *testing.T) {
	e, st, mem := newEngine(t)
	ctx := context.Background()

	_, err := e.Vote(ctx, "alice", "p1", models.Like)
	require.NoError(t, err)
	before := st.Counts()

	_, err = e.Vote(ctx, "alice", "p1", models.Like)
	assert.ErrorIs(t, err, ErrDuplicateVote)
	_, err = e.Cancel(ctx, "alice", "p2")
	assert.ErrorIs(t, err, ErrNothingToCancel)

	assert.Equal(t, before, st.Counts())
	assert.Equal(t, 1, mem.Saves("evaluations"))
	assertInvariants(t, st)
}

func TestEngine_VoteValidation(t *testing.T) {
	e, st, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.Vote(ctx, "alice", "p1", models.EvaluationType(5))
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = e.Vote(ctx, "alice", "p1", models.None)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = e.Vote(ctx, "alice", "missing", models.Like)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 0, st.Counts().Evaluations)
}

func TestEngine_StatisticsUnknownPledge(t *testing.T) {
	e, _, _ := newEngine(t)
	_, err := e.Statistics(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestEngine_ApprovalRateRounding(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		_, err := e.Vote(ctx, u, "p2", models.Like)
		require.NoError(t, err)
	}
	_, err := e.Vote(ctx, "c", "p2", models.Dislike)
	require.NoError(t, err)

	s, err := e.Statistics(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 66.7, float64(s.ApprovalRate))
	assert.Equal(t, 3, s.TotalVotes)
}

func TestEngine_ConcurrentDistinctUsers(t *testing.T) {
	e, st, _ := newEngine(t)
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := models.Like
			if i%4 == 0 {
				typ = models.Dislike
			}
			_, err := e.Vote(ctx, fmt.Sprintf("user%d", i), "p1", typ)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, st.Counts().Evaluations)
	s, err := e.Statistics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 75, s.LikeCount)
	assert.Equal(t, 25, s.DislikeCount)
	assertInvariants(t, st)
}

func TestEngine_ConcurrentSameUser(t *testing.T) {
	e, st, _ := newEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = e.Vote(ctx, "alice", "p1", models.Like)
			} else {
				_, _ = e.Vote(ctx, "alice", "p1", models.Dislike)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, st.Counts().Evaluations)
	assertInvariants(t, st)
}

func TestEngine_RecomputeAll(t *testing.T) {
	mem := persistence.NewMemory()
	st := store.New(mem)
	st.Load(&persistence.Snapshot{
		Pledges: []models.Pledge{
			{ID: "p1", LikeCount: 40, DislikeCount: 2},
			{ID: "p2", LikeCount: 7},
		},
		Evaluations: []models.Evaluation{
			{UserID: "a", PledgeID: "p1", Type: models.Like},
			{UserID: "b", PledgeID: "p1", Type: models.Dislike},
			{UserID: "c", PledgeID: "gone", Type: models.Like},
		},
	})
	e := NewEngine(st, logging.Nop{})

	require.NoError(t, e.RecomputeAll(context.Background()))
	assertInvariants(t, st)
	assert.Equal(t, 1, mem.Saves("pledges"))

	_, err := e.Cancel(context.Background(), "c", "gone")
	assert.NoError(t, err)
}

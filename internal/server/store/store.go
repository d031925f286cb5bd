// Package store owns the in-memory domain collections. All access goes
// through View and Update, which run under one mutex; collections marked
// dirty during Update are written to the Persister before the lock is
// released.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/persistence"
)

// Collection is a bit set of domain collections.
type Collection uint8

const (
	Elections Collection = 1 << iota
	Candidates
	Pledges
	Evaluations
	Users
)

func (c Collection) String() string {
	switch c {
	case Elections:
		return "elections"
	case Candidates:
		return "candidates"
	case Pledges:
		return "pledges"
	case Evaluations:
		return "evaluations"
	case Users:
		return "users"
	default:
		return fmt.Sprintf("collections(%#x)", uint8(c))
	}
}

// Limits caps the size of each collection. Zero means unlimited.
type Limits struct {
	Elections   int
	Candidates  int
	Pledges     int
	Evaluations int
	Users       int
}

type Counts struct {
	Elections   int
	Candidates  int
	Pledges     int
	Evaluations int
	Users       int
}

type evalKey struct {
	userID   string
	pledgeID string
}

type Store struct {
	mu        sync.Mutex
	persister persistence.Persister
	logger    logging.Logger
	limits    Limits

	elections   []models.Election
	electionIdx map[string]int

	candidates   []models.Candidate
	candidateIdx map[string]int

	pledges   []models.Pledge
	pledgeIdx map[string]int

	evaluations []models.Evaluation
	evalIdx     map[evalKey]int

	users   []models.User
	userIdx map[string]int
}

type Option func(*Store)

func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l.With("module", "store") }
}

func New(p persistence.Persister, opts ...Option) *Store {
	s := &Store{
		persister:    p,
		logger:       logging.Nop{},
		electionIdx:  make(map[string]int),
		candidateIdx: make(map[string]int),
		pledgeIdx:    make(map[string]int),
		evalIdx:      make(map[evalKey]int),
		userIdx:      make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// View runs fn with a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&Tx{s: s})
}

// Update runs fn with a writable transaction. There is no rollback: changes
// made before fn returns an error stay in memory, and marked collections are
// still flushed. Persistence failures are logged and not returned.
func (s *Store) Update(fn func(*Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, writable: true}
	err := fn(tx)
	s.flush(tx.dirty)
	return err
}

// Load replaces every collection with the snapshot contents without
// writing anything back. Duplicate keys keep the last record.
func (s *Store) Load(snap *persistence.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elections, s.electionIdx = index(snap.Elections, func(e models.Election) string { return e.ID })
	s.candidates, s.candidateIdx = index(snap.Candidates, func(c models.Candidate) string { return c.ID })
	s.pledges, s.pledgeIdx = index(snap.Pledges, func(p models.Pledge) string { return p.ID })
	s.users, s.userIdx = index(snap.Users, func(u models.User) string { return u.ID })

	s.evaluations, s.evalIdx = index(snap.Evaluations, func(e models.Evaluation) evalKey {
		return evalKey{e.UserID, e.PledgeID}
	})
}

func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Counts{
		Elections:   len(s.elections),
		Candidates:  len(s.candidates),
		Pledges:     len(s.pledges),
		Evaluations: len(s.evaluations),
		Users:       len(s.users),
	}
}

func (s *Store) flush(dirty Collection) {
	if dirty == 0 || s.persister == nil {
		return
	}

	var err error
	for c := Elections; c <= Users; c <<= 1 {
		if dirty&c == 0 {
			continue
		}
		switch c {
		case Elections:
			err = s.persister.SaveElections(s.elections)
		case Candidates:
			err = s.persister.SaveCandidates(s.candidates)
		case Pledges:
			err = s.persister.SavePledges(s.pledges)
		case Evaluations:
			err = s.persister.SaveEvaluations(s.evaluations)
		case Users:
			err = s.persister.SaveUsers(s.users)
		}
		if err != nil {
			s.logger.Error(context.Background(), "persist failed", "collection", c.String(), "error", err)
		}
	}
}

func index[T any, K comparable](items []T, key func(T) K) ([]T, map[K]int) {
	out := make([]T, 0, len(items))
	idx := make(map[K]int, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := idx[k]; ok {
			out[i] = item
			continue
		}
		idx[k] = len(out)
		out = append(out, item)
	}
	return out, idx
}

func checkLimit(c Collection, limit, size int) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%s: %d records exceed the limit of %d: %w", c, size, limit, common.ErrorStorageExhausted)
	}
	return nil
}

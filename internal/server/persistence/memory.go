package persistence

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

// Memory keeps copies of the last saved collections. It backs tests and
// servers started without a data directory.
type Memory struct {
	mu    sync.Mutex
	snap  Snapshot
	saves map[string]int
}

func NewMemory() *Memory {
	return &Memory{saves: make(map[string]int)}
}

// Saves reports how many times the named collection was saved.
func (m *Memory) Saves(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[collection]
}

func (m *Memory) SaveElections(items []models.Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Elections = append([]models.Election(nil), items...)
	m.saves["elections"]++
	return nil
}

func (m *Memory) SaveCandidates(items []models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Candidates = append([]models.Candidate(nil), items...)
	m.saves["candidates"]++
	return nil
}

func (m *Memory) SavePledges(items []models.Pledge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Pledges = append([]models.Pledge(nil), items...)
	m.saves["pledges"]++
	return nil
}

func (m *Memory) SaveEvaluations(items []models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Evaluations = append([]models.Evaluation(nil), items...)
	m.saves["evaluations"]++
	return nil
}

func (m *Memory) SaveUsers(items []models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Users = append([]models.User(nil), items...)
	m.saves["users"]++
	return nil
}

func (m *Memory) SaveLastUpdate(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.LastUpdate = t
	m.saves["last_update"]++
	return nil
}

func (m *Memory) Load() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Snapshot{
		Elections:   append([]models.Election(nil), m.snap.Elections...),
		Candidates:  append([]models.Candidate(nil), m.snap.Candidates...),
		Pledges:     append([]models.Pledge(nil), m.snap.Pledges...),
		Evaluations: append([]models.Evaluation(nil), m.snap.Evaluations...),
		Users:       append([]models.User(nil), m.snap.Users...),
		LastUpdate:  m.snap.LastUpdate,
	}, nil
}

func (m *Memory) Close() error { return nil }

// Package sessions tracks which user is logged in on which connection.
package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
)

const tokenBytes = 32

type Session struct {
	ConnID       string
	UserID       string
	Token        string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Registry is safe for concurrent use. It has its own lock and never calls
// into the domain store.
type Registry struct {
	mu      sync.RWMutex
	byConn  map[string]*Session
	tokens  map[string]string
	newRand func() (string, error)
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:  make(map[string]*Session),
		tokens:  make(map[string]string),
		newRand: func() (string, error) { return common.MakeRandHexString(tokenBytes) },
		now:     time.Now,
	}
}

// Create opens a session for userID on connID, replacing any session the
// connection already had, and returns the new token.
func (r *Registry) Create(connID, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, err := r.uniqueToken()
	if err != nil {
		return "", err
	}

	r.removeLocked(connID)

	now := r.now()
	r.byConn[connID] = &Session{
		ConnID:       connID,
		UserID:       userID,
		Token:        token,
		CreatedAt:    now,
		LastActivity: now,
	}
	r.tokens[token] = connID
	return token, nil
}

func (r *Registry) Lookup(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Remove drops the connection's session and returns it.
func (r *Registry) Remove(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(connID)
}

// Validate checks that connID holds a session for userID with the given
// token.
func (r *Registry) Validate(connID, userID, token string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok {
		return common.ErrNoSession
	}
	if token == "" || s.Token != token || s.UserID != userID {
		return common.ErrInvalidToken
	}
	return nil
}

// Touch records activity on the connection's session.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byConn[connID]; ok {
		s.LastActivity = r.now()
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byConn)
}

// ActiveUser reports whether any connection has a session for userID.
func (r *Registry) ActiveUser(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byConn {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Registry) removeLocked(connID string) (Session, bool) {
	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.byConn, connID)
	delete(r.tokens, s.Token)
	return *s, true
}

func (r *Registry) uniqueToken() (string, error) {
	for i := 0; i < 8; i++ {
		raw, err := r.newRand()
		if err != nil {
			return "", fmt.Errorf("token: %w", err)
		}
		token := common.SessionTokenPrefix + raw
		if _, taken := r.tokens[token]; !taken {
			return token, nil
		}
	}
	return "", fmt.Errorf("token: no unique value after retries: %w", common.ErrorInternal)
}

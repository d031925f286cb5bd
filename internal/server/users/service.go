// Package users implements registration, login and logout. Password checks
// run outside the domain lock; session tokens come from the session
// registry, which is never locked together with the store.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/cryptox"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/config"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/sessions"
)

// ErrLocked is returned for accounts locked after too many failed logins.
// It wraps common.ErrorUnauthorized.
var ErrLocked = fmt.Errorf("account locked: %w", common.ErrorUnauthorized)

type Service struct {
	repo             Repository
	sessions         *sessions.Registry
	logger           logging.Logger
	maxLoginAttempts int
	params           cryptox.Params
	now              func() time.Time
}

type Option func(*Service)

// WithHashParams overrides the argon2id cost used for new hashes.
func WithHashParams(p cryptox.Params) Option {
	return func(s *Service) { s.params = p }
}

func NewService(repo Repository, reg *sessions.Registry, l logging.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		sessions:         reg,
		logger:           l.With("module", "users"),
		maxLoginAttempts: cfg.MaxLoginAttempts,
		params:           cryptox.DefaultParams,
		now:              time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bootstrap creates the default admin account when there are no users at
// all. It reports whether the account was created.
func (s *Service) Bootstrap(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	admin := &models.User{
		ID:           common.DefaultAdminUserID,
		PasswordHash: cryptox.HashPasswordWith(common.DefaultAdminPassword, s.params),
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create default admin: %w", err)
	}
	s.logger.Warn(ctx, "no users found, created default admin account", "user_id", admin.ID)
	return true, nil
}

// Register adds a user. Duplicate ids yield common.ErrorAlreadyExists,
// invalid ids or passwords common.ErrorValidation.
func (s *Service) Register(ctx context.Context, userID, password string) error {
	if err := common.ValidateUserID(userID); err != nil {
		return err
	}
	if err := common.ValidatePassword(password); err != nil {
		return err
	}

	user := &models.User{
		ID:           userID,
		PasswordHash: cryptox.HashPasswordWith(password, s.params),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	s.logger.Info(ctx, "registered", "user_id", userID)
	return nil
}

// Login verifies the password and opens a session for connID. Every
// failure the caller may see is common.ErrorUnauthorized.
func (s *Service) Login(ctx context.Context, connID, userID, password string) (*sessions.Session, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if user.Locked {
		return nil, ErrLocked
	}

	ok, needsRehash, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn(ctx, "stored password hash unreadable", "user_id", userID, "error", err)
	}
	if !ok {
		s.recordFailure(ctx, userID)
		return nil, common.ErrorUnauthorized
	}

	var upgraded string
	if needsRehash {
		upgraded = cryptox.HashPasswordWith(password, s.params)
	}

	// the connection's current session stays valid until the new one exists
	prev, hadPrev := s.sessions.Lookup(connID)
	token, err := s.sessions.Create(connID, userID)
	if err != nil {
		return nil, err
	}
	if hadPrev {
		s.release(ctx, prev)
	}

	oldHash := user.PasswordHash
	err = s.repo.Update(ctx, userID, func(u *models.User) error {
		if u.Locked {
			return ErrLocked
		}
		u.LoginAttempts = 0
		u.LastLogin = s.now()
		u.Online = true
		u.SessionToken = token
		if upgraded != "" && u.PasswordHash == oldHash {
			u.PasswordHash = upgraded
		}
		return nil
	})
	if err != nil {
		s.sessions.Remove(connID)
		return nil, err
	}

	if upgraded != "" {
		s.logger.Info(ctx, "upgraded legacy password hash", "user_id", userID)
	}

	sess, ok := s.sessions.Lookup(connID)
	if !ok {
		return nil, common.ErrNoSession
	}
	return &sess, nil
}

// Logout ends the session on connID. The user is marked offline unless a
// newer login replaced the token meanwhile.
func (s *Service) Logout(ctx context.Context, connID string) error {
	sess, ok := s.sessions.Remove(connID)
	if !ok {
		return common.ErrNoSession
	}

	if err := s.markOffline(ctx, sess); err != nil {
		return err
	}

	s.logger.Info(ctx, "logged out", "user_id", sess.UserID)
	return nil
}

// release marks the owner of a replaced session offline.
func (s *Service) release(ctx context.Context, sess sessions.Session) {
	if err := s.markOffline(ctx, sess); err != nil {
		s.logger.Warn(ctx, "release replaced session", "user_id", sess.UserID, "error", err)
		return
	}
	s.logger.Info(ctx, "session replaced", "user_id", sess.UserID, "conn_id", sess.ConnID)
}

func (s *Service) markOffline(ctx context.Context, sess sessions.Session) error {
	return s.repo.Update(ctx, sess.UserID, func(u *models.User) error {
		if u.SessionToken == sess.Token {
			u.Online = false
			u.SessionToken = ""
		}
		return nil
	})
}

func (s *Service) recordFailure(ctx context.Context, userID string) {
	err := s.repo.Update(ctx, userID, func(u *models.User) error {
		u.LoginAttempts++
		if s.maxLoginAttempts > 0 && u.LoginAttempts >= s.maxLoginAttempts {
			u.Locked = true
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "record failed login", "user_id", userID, "error", err)
		return
	}
	s.logger.Info(ctx, "failed login", "user_id", userID)
}

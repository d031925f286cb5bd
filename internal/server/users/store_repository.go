package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
)

type StoreRepository struct {
	store *store.Store
}

func NewStoreRepository(s *store.Store) *StoreRepository {
	return &StoreRepository{store: s}
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.store.View(func(tx *store.Tx) error {
		u, ok := tx.User(id)
		if !ok {
			return common.ErrorNotFound
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *StoreRepository) Create(ctx context.Context, user *models.User) error {
	return r.store.Update(func(tx *store.Tx) error {
		if _, ok := tx.User(user.ID); ok {
			return fmt.Errorf("user %q: %w", user.ID, common.ErrorAlreadyExists)
		}
		if err := tx.PutUser(*user); err != nil {
			return err
		}
		tx.Mark(store.Users)
		return nil
	})
}

func (r *StoreRepository) Update(ctx context.Context, id string, fn func(*models.User) error) error {
	return r.store.Update(func(tx *store.Tx) error {
		u, ok := tx.User(id)
		if !ok {
			return common.ErrorNotFound
		}
		if err := fn(&u); err != nil {
			return err
		}
		if err := tx.PutUser(u); err != nil {
			return err
		}
		tx.Mark(store.Users)
		return nil
	})
}

func (r *StoreRepository) Count(ctx context.Context) (int, error) {
	return r.store.Counts().Users, nil
}

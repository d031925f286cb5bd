package users

import (
	"context"

	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
)

// Repository is the user table. Update applies fn atomically to one user
// and persists the table when fn succeeds.
type Repository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, fn func(*models.User) error) error
	Count(ctx context.Context) (int, error)
}

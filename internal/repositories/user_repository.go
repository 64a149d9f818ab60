package repositories

import (
	"context"

	"github.com/friendly/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts and the
// relation sets stored on them.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsername(ctx context.Context, query string) ([]models.User, error)
	Mutate(ctx context.Context, ids []string, fn MutateFunc) error
}

// MutateFunc receives the locked records for a Mutate call keyed by id. Ids that
// do not resolve to a user are absent from the map. Returning an error discards
// every change made to the records.
type MutateFunc func(records map[string]*models.User) error

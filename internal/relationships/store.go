package relationships

import (
	"context"

	"github.com/friendly/backend/internal/models"
	"github.com/friendly/backend/internal/repositories"
)

// Store is the identity and relation storage the Service operates on.
//
// Mutate must run fn with exclusive access to the records named by ids and
// persist all of them atomically when fn returns nil. Readers must never observe
// a state where only some records of one Mutate call were written.
type Store interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsername(ctx context.Context, query string) ([]models.User, error)
	Mutate(ctx context.Context, ids []string, fn repositories.MutateFunc) error
}

var (
	_ Store = (*repositories.MemoryUserRepository)(nil)
	_ Store = (*repositories.PostgresUserRepository)(nil)
)

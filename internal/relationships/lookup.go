package relationships

import (
	"context"
	"fmt"
	"sort"

	"github.com/friendly/backend/internal/logging"
	"github.com/friendly/backend/internal/models"
)

// UsernameCache remembers id to username mappings so listing endpoints can skip
// the user table for accounts they have already resolved. Usernames never
// change once registered, which makes stale entries harmless.
type UsernameCache interface {
	GetMany(ctx context.Context, ids []string) (map[string]string, error)
	SetMany(ctx context.Context, names map[string]string) error
}

// Summaries resolves ids to id/username pairs sorted by username. Ids that no
// longer resolve to a user are skipped.
func (s *Service) Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cached := s.cachedNames(ctx, ids)

	var missing []string
	for _, id := range ids {
		if name, ok := cached[id]; ok {
			out = append(out, models.UserSummary{ID: id, Username: name})
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		users, err := s.store.FindByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve usernames: %w", err)
		}
		s.remember(ctx, users)
		for _, user := range users {
			out = append(out, user.Summary())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Service) cachedNames(ctx context.Context, ids []string) map[string]string {
	if s.names == nil {
		return nil
	}
	names, err := s.names.GetMany(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Warn("username cache lookup failed", "error", err)
		return nil
	}
	return names
}

func (s *Service) remember(ctx context.Context, users []models.User) {
	if s.names == nil || len(users) == 0 {
		return
	}
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Username
	}
	if err := s.names.SetMany(ctx, names); err != nil {
		logging.FromContext(ctx).Warn("username cache update failed", "error", err)
	}
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID < users[j].ID
	})
}

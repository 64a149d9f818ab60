package repositories

import (
	"context"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/friendly/backend/internal/models"
)

const memoryStripes = 64

// MemoryUserRepository keeps users in process memory. It backs local
// development (FRIENDLY_STORE=memory) and tests.
//
// Writers lock a fixed set of mutex stripes chosen by hashing the user ids and
// always acquire them in ascending stripe order. Changes are published under a
// single write lock so readers observe both sides of a pair or neither.
type MemoryUserRepository struct {
	stripes [memoryStripes]sync.Mutex

	mu     sync.RWMutex
	users  map[string]models.User
	byName map[string]string
	now    func() time.Time
}

// NewMemoryUserRepository returns an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]models.User),
		byName: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new user. Usernames are unique and compared case-sensitively.
func (r *MemoryUserRepository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return ErrConflict
	}
	if _, exists := r.byName[user.Username]; exists {
		return ErrConflict
	}

	stored := user.Clone()
	stored.Friends = normalize(stored.Friends)
	stored.RequestsSent = normalize(stored.RequestsSent)
	stored.RequestsInbox = normalize(stored.RequestsInbox)
	r.users[user.ID] = stored
	r.byName[user.Username] = user.ID
	return nil
}

// FindByUsername returns the user with exactly the provided username.
func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[username]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return r.users[id].Clone(), nil
}

// FindByID returns the user with the provided identifier.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user.Clone(), nil
}

// FindByIDs returns the users that exist among ids.
func (r *MemoryUserRepository) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := r.users[id]; ok {
			out = append(out, user.Clone())
		}
	}
	return out, nil
}

// SearchUsername returns users whose username contains query, ignoring case.
func (r *MemoryUserRepository) SearchUsername(_ context.Context, query string) ([]models.User, error) {
	needle := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.User
	for _, user := range r.users {
		if strings.Contains(strings.ToLower(user.Username), needle) {
			out = append(out, user.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Mutate runs fn with exclusive access to the records named by ids and commits
// the relation sets of every record left in the map when fn succeeds.
func (r *MemoryUserRepository) Mutate(ctx context.Context, ids []string, fn MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ids = normalize(ids)
	stripes := r.stripesFor(ids)
	for _, idx := range stripes {
		r.stripes[idx].Lock()
	}
	defer func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			r.stripes[stripes[i]].Unlock()
		}
	}()

	records := make(map[string]*models.User, len(ids))
	r.mu.RLock()
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			clone := user.Clone()
			records[id] = &clone
		}
	}
	r.mu.RUnlock()

	if err := fn(records); err != nil {
		return err
	}

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		updated, ok := records[id]
		if !ok {
			continue
		}
		stored, ok := r.users[id]
		if !ok {
			continue
		}
		stored.Friends = normalize(updated.Friends)
		stored.RequestsSent = normalize(updated.RequestsSent)
		stored.RequestsInbox = normalize(updated.RequestsInbox)
		stored.UpdatedAt = now
		r.users[id] = stored
	}
	return nil
}

func (r *MemoryUserRepository) stripesFor(ids []string) []int {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		set[int(h.Sum32()%memoryStripes)] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// normalize returns a sorted copy of ids without duplicates or empty entries.
func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ UserRepository = (*MemoryUserRepository)(nil)

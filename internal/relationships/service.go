package relationships

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/friendly/backend/internal/logging"
	"github.com/friendly/backend/internal/models"
	"github.com/friendly/backend/internal/repositories"
)

// Service owns the friends, requestsSent and requestsInbox sets of every user.
// It is the only writer of those sets, so the cross-user invariants hold as long
// as callers go through it:
//
//   - friendship is symmetric,
//   - a pending request appears in the sender's outbox iff it appears in the
//     recipient's inbox,
//   - a pair is never friends and pending at the same time,
//   - nobody relates to themselves,
//   - at most one request is pending per pair.
type Service struct {
	store Store
	names UsernameCache
}

// NewService constructs a Service. cache may be nil.
func NewService(store Store, cache UsernameCache) *Service {
	if store == nil {
		panic("relationships: store must not be nil")
	}
	return &Service{store: store, names: cache}
}

// SendRequest records a pending friend request from requester to target.
func (s *Service) SendRequest(ctx context.Context, requesterID, targetID string) error {
	requester, target, err := canonicalPair(requesterID, targetID)
	if err != nil {
		return err
	}
	if requester == target {
		return ErrSelfRequest
	}

	ctx, span := logging.StartSpan(ctx, "relationships.SendRequest")
	defer span.End()

	err = s.store.Mutate(ctx, []string{requester, target}, func(records map[string]*models.User) error {
		from, ok := records[requester]
		if !ok {
			return ErrCallerNotFound
		}
		to, ok := records[target]
		if !ok {
			return ErrTargetNotFound
		}
		normalizeSets(from)
		normalizeSets(to)

		if contains(from.Friends, target) || contains(to.Friends, requester) {
			return ErrAlreadyFriends
		}
		if contains(from.RequestsSent, target) || contains(to.RequestsInbox, requester) ||
			contains(from.RequestsInbox, target) || contains(to.RequestsSent, requester) {
			return ErrRequestPending
		}

		from.RequestsSent = add(from.RequestsSent, target)
		to.RequestsInbox = add(to.RequestsInbox, requester)
		return nil
	})
	if err != nil {
		span.Fail(err)
		return s.fail(ctx, "send friend request", err)
	}

	logging.FromContext(ctx).Info("friend request sent", "requester", requester, "target", target)
	return nil
}

// AcceptRequest turns the pending request from requester to accepter into a
// friendship. Accepting twice fails with ErrNoPendingRequest.
func (s *Service) AcceptRequest(ctx context.Context, accepterID, requesterID string) error {
	accepter, requester, err := canonicalPair(accepterID, requesterID)
	if err != nil {
		return err
	}
	if accepter == requester {
		return ErrNoPendingRequest
	}

	ctx, span := logging.StartSpan(ctx, "relationships.AcceptRequest")
	defer span.End()

	err = s.store.Mutate(ctx, []string{accepter, requester}, func(records map[string]*models.User) error {
		me, ok := records[accepter]
		if !ok {
			return ErrCallerNotFound
		}
		them, ok := records[requester]
		if !ok {
			return ErrRequesterNotFound
		}
		normalizeSets(me)
		normalizeSets(them)

		if !contains(me.RequestsInbox, requester) {
			return ErrNoPendingRequest
		}

		me.RequestsInbox = remove(me.RequestsInbox, requester)
		me.RequestsSent = remove(me.RequestsSent, requester)
		them.RequestsSent = remove(them.RequestsSent, accepter)
		them.RequestsInbox = remove(them.RequestsInbox, accepter)
		me.Friends = add(me.Friends, requester)
		them.Friends = add(them.Friends, accepter)
		return nil
	})
	if err != nil {
		span.Fail(err)
		return s.fail(ctx, "accept friend request", err)
	}

	logging.FromContext(ctx).Info("friend request accepted", "accepter", accepter, "requester", requester)
	return nil
}

// DeclineRequest drops the pending request from requester to decliner. The
// inbox entry is always removed; the requester's outbox entry is cleaned up only
// when the requester still exists.
func (s *Service) DeclineRequest(ctx context.Context, declinerID, requesterID string) error {
	decliner, requester, err := canonicalPair(declinerID, requesterID)
	if err != nil {
		return err
	}
	if decliner == requester {
		return ErrNoPendingRequest
	}

	ctx, span := logging.StartSpan(ctx, "relationships.DeclineRequest")
	defer span.End()

	orphaned := false
	err = s.store.Mutate(ctx, []string{decliner, requester}, func(records map[string]*models.User) error {
		me, ok := records[decliner]
		if !ok {
			return ErrCallerNotFound
		}
		normalizeSets(me)

		if !contains(me.RequestsInbox, requester) {
			return ErrNoPendingRequest
		}
		me.RequestsInbox = remove(me.RequestsInbox, requester)

		them, ok := records[requester]
		orphaned = !ok
		if ok {
			normalizeSets(them)
			them.RequestsSent = remove(them.RequestsSent, decliner)
		}
		return nil
	})
	if err != nil {
		span.Fail(err)
		return s.fail(ctx, "decline friend request", err)
	}

	logger := logging.FromContext(ctx)
	if orphaned {
		logger.Warn("declined request from missing user", "decliner", decliner, "requester", requester)
	}
	logger.Info("friend request declined", "decliner", decliner, "requester", requester)
	return nil
}

// Search returns every user whose username contains query, ignoring case,
// sorted by username. The caller's own record is included when it matches.
func (s *Service) Search(ctx context.Context, callerID, query string) ([]models.SearchResult, error) {
	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	users, err := s.store.SearchUsername(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	sortUsers(users)
	s.remember(ctx, users)

	results := make([]models.SearchResult, 0, len(users))
	for _, user := range users {
		results = append(results, models.SearchResult{
			UserSummary:     user.Summary(),
			IsFriend:        contains(caller.Friends, user.ID),
			RequestSent:     contains(caller.RequestsSent, user.ID),
			RequestReceived: contains(caller.RequestsInbox, user.ID),
		})
	}
	return results, nil
}

// ListInbox returns the users with a pending request to the caller.
func (s *Service) ListInbox(ctx context.Context, callerID string) ([]models.UserSummary, error) {
	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.Summaries(ctx, caller.RequestsInbox)
}

// ListFriends returns the caller's confirmed friends.
func (s *Service) ListFriends(ctx context.Context, callerID string) ([]models.UserSummary, error) {
	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.Summaries(ctx, caller.Friends)
}

// Profile returns the caller's account with friends resolved to summaries.
func (s *Service) Profile(ctx context.Context, callerID string) (models.Profile, error) {
	caller, err := s.caller(ctx, callerID)
	if err != nil {
		return models.Profile{}, err
	}

	friends, err := s.Summaries(ctx, caller.Friends)
	if err != nil {
		return models.Profile{}, err
	}

	return models.Profile{
		ID:            caller.ID,
		Username:      caller.Username,
		Friends:       friends,
		RequestsSent:  nonNil(caller.RequestsSent),
		RequestsInbox: nonNil(caller.RequestsInbox),
	}, nil
}

func (s *Service) caller(ctx context.Context, callerID string) (models.User, error) {
	id, err := CanonicalID(callerID)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrCallerNotFound
		}
		return models.User{}, fmt.Errorf("load caller: %w", err)
	}
	normalizeSets(&user)
	return user, nil
}

// fail logs unexpected storage errors and passes expected outcomes through.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	logging.FromContext(ctx).Error("relationship mutation failed", "operation", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func canonicalPair(a, b string) (string, string, error) {
	first, err := CanonicalID(a)
	if err != nil {
		return "", "", err
	}
	second, err := CanonicalID(b)
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

// normalizeSets sorts and de-duplicates the relation sets in place so the
// binary-search helpers can be used on records loaded from any store.
func normalizeSets(user *models.User) {
	for _, set := range []*[]string{&user.Friends, &user.RequestsSent, &user.RequestsInbox} {
		slices.Sort(*set)
		*set = slices.Compact(*set)
	}
}

func nonNil(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

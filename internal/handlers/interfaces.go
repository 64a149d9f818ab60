package handlers

import (
	"context"

	"github.com/friendly/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// SessionManager issues, refreshes and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// TokenVerifier resolves bearer access tokens to user identifiers.
type TokenVerifier interface {
	Verify(accessToken string) (string, error)
}

// RelationshipService captures the friend-request lifecycle and the lookups
// used by the user endpoints. All identifiers are the caller's view; the
// service canonicalises them.
type RelationshipService interface {
	SendRequest(ctx context.Context, requesterID, targetID string) error
	AcceptRequest(ctx context.Context, accepterID, requesterID string) error
	DeclineRequest(ctx context.Context, declinerID, requesterID string) error
	Search(ctx context.Context, callerID, query string) ([]models.SearchResult, error)
	ListInbox(ctx context.Context, callerID string) ([]models.UserSummary, error)
	ListFriends(ctx context.Context, callerID string) ([]models.UserSummary, error)
	Profile(ctx context.Context, callerID string) (models.Profile, error)
}

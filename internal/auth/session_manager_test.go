package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func TestManagerIssueAndRefresh(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}
	if !store.Has(refreshed.RefreshToken) {
		t.Fatal("new token should have been stored")
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerVerify(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestManagerVerifyFailures(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager([]byte("other-secret"), time.Minute, time.Hour, NewInMemorySessionStore())
	forged, err := other.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	expired := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	expired.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	cases := []struct {
		name    string
		manager *Manager
		token   string
	}{
		{"empty", manager, ""},
		{"garbage", manager, "not-a-jwt"},
		{"wrongSecret", manager, forged.AccessToken},
		{"noneAlgorithm", manager, noneToken},
		{"expired", expired, tokens.AccessToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.manager.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected invalid token got %v", err)
			}
		})
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Millisecond, NewInMemorySessionStore())

	if _, err := manager.Refresh(context.Background(), ""); err != ErrSessionNotFound {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrRefreshTokenExpired {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrSessionNotFound {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
	if err := manager.Revoke(context.Background(), "unknown"); err != nil {
		t.Fatalf("expected revoking unknown token to succeed got %v", err)
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user on empty context")
	}
	ctx := WithUserID(context.Background(), "user-1")
	if userID, ok := UserIDFromContext(ctx); !ok || userID != "user-1" {
		t.Fatalf("unexpected user %q (%v)", userID, ok)
	}
}

func TestInMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySessionStore()
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Save(ctx, Session{RefreshToken: "stale", UserID: "u", ExpiresAt: now.Add(-time.Second)}); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	if err := store.Save(ctx, Session{RefreshToken: "fresh", UserID: "u", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	if store.Has("stale") {
		t.Fatal("expected expired session to be pruned on save")
	}
	session, err := store.Find(ctx, "fresh")
	if err != nil || session.UserID != "u" {
		t.Fatalf("unexpected session %+v (%v)", session, err)
	}

	if err := store.Delete(ctx, "fresh"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "fresh"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}

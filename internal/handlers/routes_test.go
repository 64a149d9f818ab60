package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendly/backend/internal/auth"
	"github.com/friendly/backend/internal/cache"
	"github.com/friendly/backend/internal/models"
	"github.com/friendly/backend/internal/relationships"
	"github.com/friendly/backend/internal/repositories"
)

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

type routerHarness struct {
	t       *testing.T
	handler http.Handler
}

func newRouterHarness(t *testing.T) routerHarness {
	t.Helper()
	store := repositories.NewMemoryUserRepository()
	manager := auth.NewManager([]byte("router-secret"), time.Minute, time.Hour, auth.NewInMemorySessionStore())
	service := relationships.NewService(store, cache.NewMemoryCache(time.Minute))

	router := NewRouter(Dependencies{
		Users:         store,
		Sessions:      manager,
		Tokens:        manager,
		Relationships: service,
	})
	return routerHarness{t: t, handler: router}
}

func (h routerHarness) do(method, path, token string, payload any) *httptest.ResponseRecorder {
	h.t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			h.t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h routerHarness) register(username string) authResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/register", "", credentialsRequest{Username: username, Password: "password123"})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("register %s: expected 201 got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		h.t.Fatalf("decode register response: %v", err)
	}
	return resp
}

func TestRouterFriendRequestLifecycle(t *testing.T) {
	h := newRouterHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	carol := h.register("carol")

	rec := h.do(http.MethodGet, "/api/users/search?username=BO", alice.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200 got %d", rec.Code)
	}
	var results []models.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(results) != 1 || results[0].ID != bob.User.ID || results[0].RequestSent {
		t.Fatalf("unexpected search results %+v", results)
	}

	rec = h.do(http.MethodPost, "/api/users/friend-request", alice.Token, sendRequestBody{RecipientID: bob.User.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("send: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodPost, "/api/users/friend-request", bob.Token, sendRequestBody{RecipientID: alice.User.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reverse send: expected 400 got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/users/friend-request", carol.Token, sendRequestBody{RecipientID: bob.User.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("carol send: expected 200 got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/users/requests", bob.Token, nil)
	var inbox []inboxEntry
	if err := json.NewDecoder(rec.Body).Decode(&inbox); err != nil {
		t.Fatalf("decode inbox: %v", err)
	}
	if len(inbox) != 2 || inbox[0].SenderUsername != "alice" || inbox[1].SenderUsername != "carol" {
		t.Fatalf("unexpected inbox %+v", inbox)
	}

	rec = h.do(http.MethodPost, "/api/users/accept-request", bob.Token, respondRequestBody{SenderID: alice.User.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	rec = h.do(http.MethodPost, "/api/users/decline-request", bob.Token, respondRequestBody{SenderID: carol.User.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("decline: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	rec = h.do(http.MethodPost, "/api/users/accept-request", bob.Token, respondRequestBody{SenderID: carol.User.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("accept after decline: expected 400 got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/users/friends", alice.Token, nil)
	var friends []models.UserSummary
	if err := json.NewDecoder(rec.Body).Decode(&friends); err != nil {
		t.Fatalf("decode friends: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != bob.User.ID {
		t.Fatalf("unexpected friends %+v", friends)
	}

	rec = h.do(http.MethodGet, "/api/users/me", bob.Token, nil)
	var profile models.Profile
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if len(profile.Friends) != 1 || len(profile.RequestsInbox) != 0 || len(profile.RequestsSent) != 0 {
		t.Fatalf("unexpected profile %+v", profile)
	}

	rec = h.do(http.MethodPost, "/api/users/friend-request", alice.Token, sendRequestBody{RecipientID: bob.User.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("send to friend: expected 400 got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/users/friend-request", alice.Token, sendRequestBody{RecipientID: "7f0c1b8e-4a51-4c55-9a43-5b2b8f4d9a11"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("send to unknown user: expected 404 got %d", rec.Code)
	}
}

func TestRouterRejectsUnauthenticated(t *testing.T) {
	h := newRouterHarness(t)

	cases := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "No token provided"},
		{"invalid", "not-a-jwt", "Invalid token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/api/users/friends", tc.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", rec.Code)
			}
			if got := decodeMessage(t, rec)["message"]; got != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, got)
			}
		})
	}
}

func TestRouterFallbacks(t *testing.T) {
	h := newRouterHarness(t)

	if rec := h.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200 got %d", rec.Code)
	}
	if rec := h.do(http.MethodPost, "/healthz", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("healthz post: expected 405 got %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: expected 404 got %d", rec.Code)
	}
}

func TestRouterRateLimitsRegistration(t *testing.T) {
	store := repositories.NewMemoryUserRepository()
	manager := auth.NewManager([]byte("router-secret"), time.Minute, time.Hour, auth.NewInMemorySessionStore())
	router := NewRouter(Dependencies{Users: store, Sessions: manager, Tokens: manager, RateLimiter: denyLimiter{}})

	body, _ := json.Marshal(credentialsRequest{Username: "alice", Password: "password123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if _, err := store.FindByUsername(context.Background(), "alice"); err == nil {
		t.Fatal("expected rate limited registration not to create a user")
	}
}

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/friendly/backend/internal/auth"
	"github.com/friendly/backend/internal/logging"
)

// UserHandler serves the authenticated /api/users endpoints.
type UserHandler struct {
	Relationships RelationshipService
}

// Me handles GET /api/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	profile, err := h.Relationships.Profile(ctx, callerID)
	if err != nil {
		respondRelationshipError(ctx, w, "load profile", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profile)
}

// Search handles GET /api/users/search?username=.
func (h UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("username"))
	if query == "" {
		respondMessage(ctx, w, http.StatusBadRequest, "username query parameter is required")
		return
	}

	results, err := h.Relationships.Search(ctx, callerID, query)
	if err != nil {
		respondRelationshipError(ctx, w, "search users", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, results)
}

// Friends handles GET /api/users/friends.
func (h UserHandler) Friends(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	friends, err := h.Relationships.ListFriends(ctx, callerID)
	if err != nil {
		respondRelationshipError(ctx, w, "list friends", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, friends)
}

// Requests handles GET /api/users/requests, the caller's pending inbox.
func (h UserHandler) Requests(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	senders, err := h.Relationships.ListInbox(ctx, callerID)
	if err != nil {
		respondRelationshipError(ctx, w, "list friend requests", err)
		return
	}

	out := make([]inboxEntry, 0, len(senders))
	for _, sender := range senders {
		out = append(out, inboxEntry{SenderID: sender.ID, SenderUsername: sender.Username})
	}
	respondJSON(ctx, w, http.StatusOK, out)
}

// SendRequest handles POST /api/users/friend-request.
func (h UserHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req sendRequestBody
	if !decodeTarget(ctx, w, r, &req, func() string { return req.RecipientID }, "recipientId") {
		return
	}

	if err := h.Relationships.SendRequest(ctx, callerID, req.RecipientID); err != nil {
		respondRelationshipError(ctx, w, "send friend request", err)
		return
	}
	respondMessage(ctx, w, http.StatusOK, "Friend request sent")
}

// AcceptRequest handles POST /api/users/accept-request.
func (h UserHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req respondRequestBody
	if !decodeTarget(ctx, w, r, &req, func() string { return req.SenderID }, "senderId") {
		return
	}

	if err := h.Relationships.AcceptRequest(ctx, callerID, req.SenderID); err != nil {
		respondRelationshipError(ctx, w, "accept friend request", err)
		return
	}
	respondMessage(ctx, w, http.StatusOK, "Friend request accepted")
}

// DeclineRequest handles POST /api/users/decline-request.
func (h UserHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	ctx, callerID, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req respondRequestBody
	if !decodeTarget(ctx, w, r, &req, func() string { return req.SenderID }, "senderId") {
		return
	}

	if err := h.Relationships.DeclineRequest(ctx, callerID, req.SenderID); err != nil {
		respondRelationshipError(ctx, w, "decline friend request", err)
		return
	}
	respondMessage(ctx, w, http.StatusOK, "Friend request declined")
}

// begin resolves the authenticated caller and checks the handler is wired.
func (h UserHandler) begin(w http.ResponseWriter, r *http.Request) (context.Context, string, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Relationships == nil {
		logger.Error("relationship service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
		return ctx, "", false
	}

	callerID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondMessage(ctx, w, http.StatusUnauthorized, "No token provided")
		return ctx, "", false
	}
	return ctx, callerID, true
}

func decodeTarget(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any, target func() string, field string) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		logging.FromContext(ctx).Warn("invalid friend request payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if strings.TrimSpace(target()) == "" {
		respondMessage(ctx, w, http.StatusBadRequest, field+" is required")
		return false
	}
	return true
}

type sendRequestBody struct {
	RecipientID string `json:"recipientId"`
}

type respondRequestBody struct {
	SenderID string `json:"senderId"`
}

type inboxEntry struct {
	SenderID       string `json:"senderId"`
	SenderUsername string `json:"senderUsername"`
}

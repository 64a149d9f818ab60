package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendly/backend/internal/logging"
	"github.com/friendly/backend/internal/relationships"
)

const genericErrorMessage = "something went wrong, try again later"

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encode response body", "status", status, "error", err)
		return
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"message": message})
}

// respondInternal hides err from the client; the detail only reaches the logs.
func respondInternal(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	logging.FromContext(ctx).Error(msg, "error", err)
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
}

// respondRelationshipError maps relationship failures onto status codes:
// not-found outcomes become 404, state conflicts 400 and everything else 500.
func respondRelationshipError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, relationships.ErrNotFound):
		respondMessage(ctx, w, http.StatusNotFound, relationships.Message(err))
	case errors.Is(err, relationships.ErrConflict):
		respondMessage(ctx, w, http.StatusBadRequest, relationships.Message(err))
	default:
		respondInternal(ctx, w, op+" failed", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}

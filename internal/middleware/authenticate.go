package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/friendly/backend/internal/auth"
	"github.com/friendly/backend/internal/logging"
)

// TokenVerifier resolves a bearer access token to the user it was issued to.
type TokenVerifier interface {
	Verify(accessToken string) (string, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified caller on the request context for downstream handlers.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.FromContext(r.Context())

			if verifier == nil {
				logger.Error("token verifier unavailable")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong, try again later"})
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("request without bearer token")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "No token provided"})
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = logging.WithLogger(ctx, logger.With("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

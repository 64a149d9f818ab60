package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/friendly/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Tokens        TokenVerifier
	Relationships RelationshipService
	RateLimiter   middleware.RateLimiter
	StaticDir     string
}

// NewRouter wires every endpoint into a gorilla/mux router.
func NewRouter(deps Dependencies) *mux.Router {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions}
	users := UserHandler{Relationships: deps.Relationships}
	limit := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(deps.RateLimiter, scope)(h)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(routeNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Handle("/register", limit("register", auth.Register)).Methods(http.MethodPost)
	authRoutes.Handle("/login", limit("login", auth.Login)).Methods(http.MethodPost)
	authRoutes.HandleFunc("/refresh", auth.Refresh).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", auth.Logout).Methods(http.MethodPost)

	userRoutes := r.PathPrefix("/api/users").Subrouter()
	userRoutes.Use(middleware.Authenticate(deps.Tokens))
	userRoutes.HandleFunc("/me", users.Me).Methods(http.MethodGet)
	userRoutes.HandleFunc("/search", users.Search).Methods(http.MethodGet)
	userRoutes.HandleFunc("/friends", users.Friends).Methods(http.MethodGet)
	userRoutes.HandleFunc("/requests", users.Requests).Methods(http.MethodGet)
	userRoutes.Handle("/friend-request", limit("friend-request", users.SendRequest)).Methods(http.MethodPost)
	userRoutes.HandleFunc("/accept-request", users.AcceptRequest).Methods(http.MethodPost)
	userRoutes.HandleFunc("/decline-request", users.DeclineRequest).Methods(http.MethodPost)

	if deps.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(deps.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	respondMessage(r.Context(), w, http.StatusNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondMessage(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
}

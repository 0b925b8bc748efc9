// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pr-review-service/internal/connection"
	"pr-review-service/internal/database"
	"pr-review-service/internal/engine"
	"pr-review-service/internal/model"
)

// RepoLister lists a user's repositories from the provider.
type RepoLister interface {
	ListRepositories(ctx context.Context, token string, page, perPage int) ([]model.RepoSummary, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db            database.Querier
	manager       *connection.Manager
	repos         RepoLister
	reviewer      engine.Reviewer
	logger        *slog.Logger
	reviewTimeout time.Duration
	billingSecret string
}

// Options bundles the Handler configuration.
type Options struct {
	DB            database.Querier
	Manager       *connection.Manager
	Repos         RepoLister
	Reviewer      engine.Reviewer
	Logger        *slog.Logger
	ReviewTimeout time.Duration
	BillingSecret string
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(opts Options) http.Handler {
	h := &Handler{
		db:            opts.DB,
		manager:       opts.Manager,
		repos:         opts.Repos,
		reviewer:      opts.Reviewer,
		logger:        opts.Logger,
		reviewTimeout: opts.ReviewTimeout,
		billingSecret: opts.BillingSecret,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider-facing webhooks, no session required.
	r.Post("/webhooks/github", h.githubWebhook)
	r.Post("/webhooks/billing", h.billingWebhook)

	// Authenticated API.
	r.Route("/v1", func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get("/repositories", h.listRepositories)
		r.Get("/repositories/connected", h.listConnectedRepositories)
		r.Post("/repositories", h.connectRepository)
		r.Delete("/repositories/{id}", h.disconnectRepository)
		r.Delete("/repositories", h.disconnectAllRepositories)
		r.Get("/profile", h.getProfile)
		r.Patch("/profile", h.updateProfile)
		r.Get("/review-failures", h.listReviewFailures)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// internal/api/repositories.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	apperrors "pr-review-service/internal/errors"
)

// listRepositories returns one page of the user's provider repositories,
// annotated with whether each one is already connected.
// GET /v1/repositories?page=N&per_page=N
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)
	if page < 1 || perPage < 1 || perPage > 100 {
		respondWithError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	account, err := h.db.GetAccount(r.Context(), user.ID, "github")
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && account.AccessToken == "") {
		respondWithError(w, http.StatusBadRequest, "No GitHub account linked")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load account", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	repos, err := h.repos.ListRepositories(r.Context(), account.AccessToken, page, perPage)
	if err != nil {
		h.logger.Error("Failed to list provider repositories", "error", err)
		respondWithError(w, http.StatusBadGateway, "Failed to list repositories")
		return
	}

	connectedIDs, err := h.db.ListConnectedGithubIDs(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list connected ids", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	connected := make(map[int64]struct{}, len(connectedIDs))
	for _, id := range connectedIDs {
		connected[id] = struct{}{}
	}
	for i := range repos {
		_, repos[i].IsConnected = connected[repos[i].GithubID]
	}

	respondWithJSON(w, http.StatusOK, repos)
}

// listConnectedRepositories returns the user's connected repositories.
// GET /v1/repositories/connected
func (h *Handler) listConnectedRepositories(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)

	repos, err := h.db.ListRepositoriesByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	type connectedRepo struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FullName  string `json:"full_name"`
		URL       string `json:"url"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]connectedRepo, 0, len(repos))
	for _, repo := range repos {
		out = append(out, connectedRepo{
			ID:        repo.ID,
			Name:      repo.Name,
			FullName:  repo.FullName,
			URL:       repo.URL,
			CreatedAt: repo.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type connectRequest struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	GithubID int64  `json:"github_id"`
}

// connectRepository registers a webhook and persists the connection.
// POST /v1/repositories
func (h *Handler) connectRepository(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Owner == "" || req.Name == "" || req.GithubID == 0 {
		respondWithError(w, http.StatusBadRequest, "owner, name and github_id are required")
		return
	}

	result, err := h.manager.Connect(r.Context(), user.ID, req.Owner, req.Name, req.GithubID)
	switch {
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		respondWithError(w, http.StatusForbidden, apperrors.ErrQuotaExceeded.Error())
		return
	case errors.Is(err, apperrors.ErrNoAccessToken):
		respondWithError(w, http.StatusBadRequest, apperrors.ErrNoAccessToken.Error())
		return
	case errors.Is(err, apperrors.ErrAlreadyConnected):
		respondWithError(w, http.StatusConflict, apperrors.ErrAlreadyConnected.Error())
		return
	case err != nil:
		h.logger.Error("Failed to connect repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if result.Hook == nil {
		// Soft failure: the provider refused the webhook.
		respondWithJSON(w, http.StatusOK, map[string]any{
			"connected": false,
			"message":   "could not connect repository",
		})
		return
	}

	resp := map[string]any{
		"connected": true,
		"hook_id":   result.Hook.ID,
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// disconnectRepository removes one connected repository.
// DELETE /v1/repositories/{id}
func (h *Handler) disconnectRepository(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)
	id := chi.URLParam(r, "id")

	err := h.manager.Disconnect(r.Context(), user.ID, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to disconnect repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// disconnectAllRepositories removes every connected repository for the user.
// DELETE /v1/repositories
func (h *Handler) disconnectAllRepositories(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)

	count, err := h.manager.DisconnectAll(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to disconnect repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

// listReviewFailures exposes reviews that were dropped after acknowledgment.
// GET /v1/review-failures?limit=N
func (h *Handler) listReviewFailures(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 500.")
		return
	}

	failures, err := h.db.ListReviewFailures(r.Context(), int32(limit))
	if err != nil {
		h.logger.Error("Failed to list review failures", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, failures)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

// internal/api/profile.go
package api

import (
	"encoding/json"
	"net/http"

	"pr-review-service/internal/database"
)

type profileResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image,omitempty"`
	Tier  string  `json:"subscription_tier"`
}

// getProfile returns the caller's profile.
// GET /v1/profile
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)
	respondWithJSON(w, http.StatusOK, profileResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Image: user.Image,
		Tier:  user.SubscriptionTier,
	})
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// updateProfile updates the caller's name and/or email.
// PATCH /v1/profile
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user := sessionUser(r)

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil && req.Email == nil {
		respondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := h.db.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		UserID: user.ID,
		Name:   req.Name,
		Email:  req.Email,
	})
	if err != nil {
		h.logger.Error("Failed to update profile", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profileResponse{
		ID:    updated.ID,
		Name:  updated.Name,
		Email: updated.Email,
		Image: updated.Image,
		Tier:  updated.SubscriptionTier,
	})
}

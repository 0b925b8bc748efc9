// internal/api/webhooks.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"pr-review-service/internal/database"
	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/model"
)

// pullRequestPayload is the subset of the provider's pull_request event body
// this service classifies on.
type pullRequestPayload struct {
	Action     string `json:"action"`
	Number     int    `json:"number"`
	Repository *struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// githubWebhook classifies inbound provider events. Review failures are
// logged and recorded but never propagated: the provider disables webhooks
// after repeated delivery failures, so the acknowledgment must not depend on
// the review outcome. Only a payload that cannot be classified at all yields
// an error status.
func (h *Handler) githubWebhook(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("x-github-event")
	webhookEventsReceived.WithLabelValues(event).Inc()

	if event == "ping" {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Pong"})
		return
	}

	if event != "pull_request" {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event processed"})
		return
	}

	var payload pullRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("Failed to decode webhook payload", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if payload.Repository == nil || payload.Number <= 0 {
		h.logger.Error("Malformed pull_request payload", "action", payload.Action)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	owner, repo, err := splitFullName(payload.Repository.FullName)
	if err != nil {
		h.logger.Error("Malformed pull_request payload", "action", payload.Action, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if payload.Action == "opened" || payload.Action == "synchronize" {
		h.reviewPullRequest(r.Context(), owner, repo, payload.Number)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event processed"})
}

// reviewPullRequest invokes the review engine with a bounded wait so a slow
// review cannot exhaust the provider's delivery timeout. Failures are
// persisted for later inspection and retry.
func (h *Handler) reviewPullRequest(ctx context.Context, owner, repo string, prNumber int) {
	logger := h.logger.With("owner", owner, "repo", repo, "pr", prNumber)

	rctx, cancel := context.WithTimeout(ctx, h.reviewTimeout)
	defer cancel()

	if err := h.reviewer.ReviewPullRequest(rctx, owner, repo, prNumber); err != nil {
		reviewsFailed.Inc()
		logger.Error("Review failed", "error", err)
		_, ferr := h.db.CreateReviewFailure(ctx, database.CreateReviewFailureParams{
			Owner:    owner,
			Repo:     repo,
			PRNumber: prNumber,
			Reason:   err.Error(),
		})
		if ferr != nil {
			logger.Error("Failed to record review failure", "error", ferr)
		}
		return
	}

	reviewsCompleted.Inc()
	logger.Info("Review completed")
}

func splitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found || owner == "" || repo == "" {
		return "", "", &apperrors.ErrInvalidRepoFormat{Repo: fullName}
	}
	return owner, repo, nil
}

// billingPayload is a subscription lifecycle event from the billing provider.
type billingPayload struct {
	Type string `json:"type"`
	Data struct {
		ID         string `json:"id"`
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
	} `json:"data"`
}

// billingWebhook applies subscription lifecycle events to the user record.
// The shared-secret header stands in for the provider's signature scheme.
func (h *Handler) billingWebhook(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("x-billing-secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.billingSecret)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var payload billingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := r.Context()
	var err error
	switch payload.Type {
	case "subscription.active":
		err = h.applyTierChange(ctx, payload.Data.CustomerID, model.TierPro, model.StatusActive)
	case "subscription.canceled":
		// The user keeps their tier until the period ends.
		err = h.applyStatusChange(ctx, payload.Data.CustomerID, model.StatusCancelled)
	case "subscription.revoked":
		err = h.applyTierChange(ctx, payload.Data.CustomerID, model.TierFree, model.StatusExpired)
	case "customer.created":
		err = h.attachCustomer(ctx, payload.Data.Email, payload.Data.ID)
	default:
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unknown customer; nothing to update.
			respondWithJSON(w, http.StatusOK, map[string]string{"message": "No matching user"})
			return
		}
		h.logger.Error("Failed to apply billing event", "type", payload.Type, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Event processed"})
}

func (h *Handler) applyTierChange(ctx context.Context, customerID, tier, status string) error {
	user, err := h.db.GetUserByPolarCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	return h.db.UpdateUserSubscription(ctx, database.UpdateUserSubscriptionParams{
		UserID: user.ID,
		Tier:   tier,
		Status: status,
	})
}

func (h *Handler) applyStatusChange(ctx context.Context, customerID, status string) error {
	user, err := h.db.GetUserByPolarCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	return h.db.UpdateUserSubscription(ctx, database.UpdateUserSubscriptionParams{
		UserID: user.ID,
		Tier:   user.SubscriptionTier,
		Status: status,
	})
}

func (h *Handler) attachCustomer(ctx context.Context, email, customerID string) error {
	user, err := h.db.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	return h.db.SetPolarCustomerID(ctx, user.ID, customerID)
}

// internal/api/handler_test.go
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pr-review-service/internal/connection"
	"pr-review-service/internal/database"
	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/jobs"
	"pr-review-service/internal/model"
)

// stubReviewer records review invocations.
type stubReviewer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *stubReviewer) ReviewPullRequest(ctx context.Context, owner, repo string, prNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("%s/%s#%d", owner, repo, prNumber))
	return s.err
}

func (s *stubReviewer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubLister struct {
	repos []model.RepoSummary
	err   error
}

func (s *stubLister) ListRepositories(ctx context.Context, token string, page, perPage int) ([]model.RepoSummary, error) {
	return s.repos, s.err
}

type stubHooks struct{}

func (stubHooks) CreateWebhook(ctx context.Context, token, owner, repo string) (*model.WebhookHandle, error) {
	return &model.WebhookHandle{ID: 1}, nil
}
func (stubHooks) DeleteWebhook(ctx context.Context, token, owner, repo string) error { return nil }

type stubGate struct{ allow bool }

func (g stubGate) CanConnectRepository(ctx context.Context, userID string) (bool, error) {
	return g.allow, nil
}

type stubDispatcher struct{}

func (stubDispatcher) Enqueue(ev jobs.Event) error { return nil }

type routerDeps struct {
	db       *database.MockQuerier
	reviewer *stubReviewer
	lister   *stubLister
	gate     stubGate
}

func newTestRouter(deps routerDeps) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := connection.NewManager(deps.db, stubHooks{}, deps.gate, stubDispatcher{}, logger, 5)
	return NewRouter(Options{
		DB:            deps.db,
		Manager:       manager,
		Repos:         deps.lister,
		Reviewer:      deps.reviewer,
		Logger:        logger,
		ReviewTimeout: time.Second,
		BillingSecret: "billing-secret",
	})
}

func githubEvent(t *testing.T, router http.Handler, event, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("x-github-event", event)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGithubWebhook_Classification(t *testing.T) {
	t.Run("ping responds pong with no side effects", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "ping", `{}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Pong"}`, rec.Body.String())
		assert.Zero(t, reviewer.callCount())
	})

	t.Run("opened pull request triggers exactly one review", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request",
			`{"action":"opened","number":7,"repository":{"full_name":"alice/widgets"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, reviewer.callCount())
		assert.Equal(t, "alice/widgets#7", reviewer.calls[0])
	})

	t.Run("synchronize triggers a review", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request",
			`{"action":"synchronize","number":3,"repository":{"full_name":"alice/widgets"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, reviewer.callCount())
	})

	t.Run("closed action is acknowledged without a review", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request",
			`{"action":"closed","number":7,"repository":{"full_name":"alice/widgets"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, reviewer.callCount())
	})

	t.Run("missing repository is a server error", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request", `{"action":"opened","number":7}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Zero(t, reviewer.callCount())
	})

	t.Run("repository name without an owner is a server error", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request",
			`{"action":"opened","number":7,"repository":{"full_name":"widgets"}}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Zero(t, reviewer.callCount())
	})

	t.Run("unrelated events are acknowledged", func(t *testing.T) {
		reviewer := &stubReviewer{}
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: reviewer})

		rec := githubEvent(t, router, "push", `{"ref":"refs/heads/main"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, reviewer.callCount())
	})

	t.Run("review failure is recorded and still acknowledged", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("CreateReviewFailure", mock.Anything, database.CreateReviewFailureParams{
			Owner:    "alice",
			Repo:     "widgets",
			PRNumber: 7,
			Reason:   "engine down",
		}).Return(model.ReviewFailure{ID: "f1"}, nil).Once()

		reviewer := &stubReviewer{err: errors.New("engine down")}
		router := newTestRouter(routerDeps{db: mockQ, reviewer: reviewer})

		rec := githubEvent(t, router, "pull_request",
			`{"action":"opened","number":7,"repository":{"full_name":"alice/widgets"}}`)

		assert.Equal(t, http.StatusOK, rec.Code, "the provider must always see success")
		mockQ.AssertExpectations(t)
	})
}

func billingEvent(t *testing.T, router http.Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(body))
	req.Header.Set("x-billing-secret", secret)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBillingWebhook(t *testing.T) {
	t.Run("rejects a bad secret", func(t *testing.T) {
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: &stubReviewer{}})
		rec := billingEvent(t, router, "wrong", `{"type":"subscription.active","data":{"customer_id":"cus-1"}}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("subscription.active upgrades the user", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserByPolarCustomerID", mock.Anything, "cus-1").
			Return(model.User{ID: "user-1", SubscriptionTier: model.TierFree}, nil).Once()
		mockQ.On("UpdateUserSubscription", mock.Anything, database.UpdateUserSubscriptionParams{
			UserID: "user-1",
			Tier:   model.TierPro,
			Status: model.StatusActive,
		}).Return(nil).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})
		rec := billingEvent(t, router, "billing-secret",
			`{"type":"subscription.active","data":{"id":"sub-1","customer_id":"cus-1"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockQ.AssertExpectations(t)
	})

	t.Run("subscription.revoked downgrades to free", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserByPolarCustomerID", mock.Anything, "cus-1").
			Return(model.User{ID: "user-1", SubscriptionTier: model.TierPro}, nil).Once()
		mockQ.On("UpdateUserSubscription", mock.Anything, database.UpdateUserSubscriptionParams{
			UserID: "user-1",
			Tier:   model.TierFree,
			Status: model.StatusExpired,
		}).Return(nil).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})
		rec := billingEvent(t, router, "billing-secret",
			`{"type":"subscription.revoked","data":{"customer_id":"cus-1"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockQ.AssertExpectations(t)
	})

	t.Run("customer.created attaches the customer id", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserByEmail", mock.Anything, "a@example.com").
			Return(model.User{ID: "user-1"}, nil).Once()
		mockQ.On("SetPolarCustomerID", mock.Anything, "user-1", "cus-9").Return(nil).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})
		rec := billingEvent(t, router, "billing-secret",
			`{"type":"customer.created","data":{"id":"cus-9","email":"a@example.com"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockQ.AssertExpectations(t)
	})

	t.Run("unknown customer is acknowledged without changes", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserByPolarCustomerID", mock.Anything, "cus-x").
			Return(model.User{}, pgx.ErrNoRows).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})
		rec := billingEvent(t, router, "billing-secret",
			`{"type":"subscription.active","data":{"customer_id":"cus-x"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockQ.AssertNotCalled(t, "UpdateUserSubscription")
	})
}

func TestSplitFullName(t *testing.T) {
	owner, repo, err := splitFullName("alice/widgets")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
	assert.Equal(t, "widgets", repo)

	for _, name := range []string{"widgets", "/widgets", "alice/", ""} {
		_, _, err := splitFullName(name)
		var invalid *apperrors.ErrInvalidRepoFormat
		require.ErrorAs(t, err, &invalid, "full name %q", name)
		assert.Equal(t, name, invalid.Repo)
	}
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("missing token is unauthorized", func(t *testing.T) {
		router := newTestRouter(routerDeps{db: new(database.MockQuerier), reviewer: &stubReviewer{}})

		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), apperrors.ErrUnauthenticated.Error())
	})

	t.Run("valid session reaches the handler", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserBySessionToken", mock.Anything, "tok-1").
			Return(model.User{ID: "user-1", Name: "Alice", Email: "a@example.com", SubscriptionTier: model.TierFree}, nil).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})

		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"Alice"`)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		mockQ.On("GetUserBySessionToken", mock.Anything, "tok-x").
			Return(model.User{}, pgx.ErrNoRows).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})

		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer tok-x")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConnectRepositoryEndpoint(t *testing.T) {
	session := func(mockQ *database.MockQuerier) {
		mockQ.On("GetUserBySessionToken", mock.Anything, "tok-1").
			Return(model.User{ID: "user-1", SubscriptionTier: model.TierFree}, nil).Once()
	}

	t.Run("quota exceeded maps to forbidden", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		session(mockQ)

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}, gate: stubGate{allow: false}})

		req := httptest.NewRequest(http.MethodPost, "/v1/repositories",
			strings.NewReader(`{"owner":"alice","name":"sixth","github_id":6}`))
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "upgrade to Pro")
	})

	t.Run("successful connect returns the hook", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		session(mockQ)
		mockQ.On("GetAccount", mock.Anything, "user-1", "github").
			Return(model.Account{AccessToken: "tok"}, nil).Once()
		mockQ.On("ConnectRepository", mock.Anything, mock.Anything).
			Return(model.Repository{ID: "r1"}, nil).Once()

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}, gate: stubGate{allow: true}})

		req := httptest.NewRequest(http.MethodPost, "/v1/repositories",
			strings.NewReader(`{"owner":"alice","name":"widgets","github_id":42}`))
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"connected":true`)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		mockQ := new(database.MockQuerier)
		session(mockQ)

		router := newTestRouter(routerDeps{db: mockQ, reviewer: &stubReviewer{}})

		req := httptest.NewRequest(http.MethodPost, "/v1/repositories", strings.NewReader(`{"owner":"alice"}`))
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// internal/connection/manager.go
package connection

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"pr-review-service/internal/database"
	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/jobs"
	"pr-review-service/internal/model"
)

const (
	// Provider id under which the OAuth token is stored.
	githubProvider = "github"

	// Number of remote webhook deletions to run in parallel during a
	// disconnect-all.
	disconnectConcurrency = 5
)

// WebhookAPI is the provider surface the manager needs: registering and
// removing remote webhooks.
type WebhookAPI interface {
	CreateWebhook(ctx context.Context, token, owner, repo string) (*model.WebhookHandle, error)
	DeleteWebhook(ctx context.Context, token, owner, repo string) error
}

// Gate adjudicates whether a user may connect another repository.
type Gate interface {
	CanConnectRepository(ctx context.Context, userID string) (bool, error)
}

// ConnectResult is the outcome of a successful-or-soft connect. A nil Hook
// means the provider refused the webhook: nothing was persisted and the caller
// should present "could not connect" rather than an error page. Warning is set
// when the connection is durable but the indexing event could not be enqueued.
type ConnectResult struct {
	Hook    *model.WebhookHandle
	Warning string
}

// Manager orchestrates the repository-connection lifecycle: the remote
// webhook, the persisted record, and the quota counter.
type Manager struct {
	db         database.Querier
	hooks      WebhookAPI
	gate       Gate
	dispatcher jobs.Dispatcher
	logger     *slog.Logger
	freeLimit  int
}

// NewManager creates a Manager.
func NewManager(db database.Querier, hooks WebhookAPI, gate Gate, dispatcher jobs.Dispatcher, logger *slog.Logger, freeLimit int) *Manager {
	return &Manager{
		db:         db,
		hooks:      hooks,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
		freeLimit:  freeLimit,
	}
}

// Connect registers a remote webhook for (owner, name) and persists the
// repository for userID. The order is fixed: quota pre-check, remote create,
// then one transaction inserting the row and reserving the quota slot. A
// local record is never created without a prior successful remote
// registration. If the transactional insert fails for any reason the
// just-created hook is removed again.
func (m *Manager) Connect(ctx context.Context, userID, owner, name string, githubID int64) (ConnectResult, error) {
	logger := m.logger.With("user_id", userID, "owner", owner, "repo", name)

	ok, err := m.gate.CanConnectRepository(ctx, userID)
	if err != nil {
		return ConnectResult{}, err
	}
	if !ok {
		return ConnectResult{}, apperrors.ErrQuotaExceeded
	}

	account, err := m.db.GetAccount(ctx, userID, githubProvider)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConnectResult{}, apperrors.ErrNoAccessToken
	}
	if err != nil {
		return ConnectResult{}, err
	}
	if account.AccessToken == "" {
		return ConnectResult{}, apperrors.ErrNoAccessToken
	}

	hook, err := m.hooks.CreateWebhook(ctx, account.AccessToken, owner, name)
	if err != nil {
		return ConnectResult{}, err
	}
	if hook == nil {
		// Provider denied the hook; nothing to persist.
		logger.Info("Webhook creation refused by provider")
		return ConnectResult{}, nil
	}

	_, err = m.db.ConnectRepository(ctx, database.ConnectRepositoryParams{
		GithubID:      githubID,
		Owner:         owner,
		Name:          name,
		FullName:      owner + "/" + name,
		URL:           "https://github.com/" + owner + "/" + name,
		UserID:        userID,
		FreeTierLimit: m.freeLimit,
	})
	if err != nil {
		// The hook was created but the row was not persisted (lost quota
		// race, duplicate, or a failing database); remove the hook again so
		// remote and local state stay aligned.
		if derr := m.hooks.DeleteWebhook(ctx, account.AccessToken, owner, name); derr != nil {
			logger.Error("Failed to remove webhook after failed persist",
				"error", derr, "persist_error", err)
		}
		return ConnectResult{}, err
	}

	result := ConnectResult{Hook: hook}
	ev := jobs.NewEvent(jobs.EventRepositoryConnected, jobs.RepositoryConnected{
		Owner:  owner,
		Repo:   name,
		UserID: userID,
	})
	if err := m.dispatcher.Enqueue(ev); err != nil {
		// The connection is already durable; indexing is an enhancement.
		logger.Warn("Failed to enqueue indexing job", "error", err)
		result.Warning = "repository connected, indexing could not be scheduled"
	}

	logger.Info("Repository connected", "hook_id", hook.ID)
	return result, nil
}

// Disconnect removes the remote webhook and then the local record. Remote
// deletion goes first: a crash in between leaves a local row whose events
// simply stop arriving, and a retried disconnect succeeds because webhook
// deletion treats an already-removed hook as success.
func (m *Manager) Disconnect(ctx context.Context, userID, repositoryID string) error {
	repo, err := m.db.GetRepositoryForUser(ctx, repositoryID, userID)
	if err != nil {
		return err
	}

	token := m.accessToken(ctx, userID)
	if token == "" {
		// Without a token the remote hook cannot be removed; it becomes
		// inert once the local record is gone.
		m.logger.Warn("No provider token, skipping remote webhook deletion",
			"user_id", userID, "repo", repo.FullName)
	} else if err := m.hooks.DeleteWebhook(ctx, token, repo.Owner, repo.Name); err != nil {
		return err
	}

	return m.db.DeleteRepository(ctx, repositoryID, userID)
}

// DisconnectAll removes every repository owned by the user. Remote deletions
// fan out concurrently and individual failures do not block the others; the
// bulk local delete proceeds regardless, trading strict consistency for
// availability.
func (m *Manager) DisconnectAll(ctx context.Context, userID string) (int64, error) {
	repos, err := m.db.ListRepositoriesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	token := m.accessToken(ctx, userID)
	if token != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(disconnectConcurrency)
		for _, repo := range repos {
			repo := repo
			g.Go(func() error {
				if err := m.hooks.DeleteWebhook(gctx, token, repo.Owner, repo.Name); err != nil {
					m.logger.Error("Failed to delete webhook",
						"owner", repo.Owner, "repo", repo.Name, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return m.db.DeleteAllRepositories(ctx, userID)
}

func (m *Manager) accessToken(ctx context.Context, userID string) string {
	account, err := m.db.GetAccount(ctx, userID, githubProvider)
	if err != nil {
		return ""
	}
	return account.AccessToken
}

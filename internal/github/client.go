// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"pr-review-service/internal/model"
)

// Client is a wrapper around the go-github client. Tokens are per-user, so
// each call receives the token to act as; the wrapper builds an authenticated
// client on demand and translates responses to internal model types.
type Client struct {
	logger      *slog.Logger
	callbackURL string
	baseURL     string // non-empty only in tests
}

// NewClient creates a Client. callbackURL is the public URL the provider will
// deliver webhook events to; it is also how our own hooks are recognized when
// deleting them.
func NewClient(callbackURL string, logger *slog.Logger) *Client {
	return &Client{
		logger:      logger,
		callbackURL: callbackURL,
	}
}

// api builds a go-github client authenticated with token.
func (c *Client) api(ctx context.Context, token string) *github.Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	gh := github.NewClient(hc)
	if c.baseURL != "" {
		gh, _ = gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
	}
	return gh
}

// ListRepositories lists one page of the token owner's repositories.
func (c *Client) ListRepositories(ctx context.Context, token string, page, perPage int) ([]model.RepoSummary, error) {
	repos, _, err := c.api(ctx, token).Repositories.ListByAuthenticatedUser(ctx,
		&github.RepositoryListByAuthenticatedUserOptions{
			Sort: "updated",
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: perPage,
			},
		})
	if err != nil {
		return nil, err
	}

	summaries := make([]model.RepoSummary, 0, len(repos))
	for _, r := range repos {
		summaries = append(summaries, model.RepoSummary{
			GithubID:    r.GetID(),
			Owner:       r.GetOwner().GetLogin(),
			Name:        r.GetName(),
			FullName:    r.GetFullName(),
			URL:         r.GetHTMLURL(),
			Description: r.GetDescription(),
			Private:     r.GetPrivate(),
		})
	}
	return summaries, nil
}

// GetRepoFileContents fetches every blob in the repository's default branch.
// It walks the git tree recursively and downloads each blob's raw content.
func (c *Client) GetRepoFileContents(ctx context.Context, token, owner, repo string) ([]model.RepoFile, error) {
	gh := c.api(ctx, token)

	r, _, err := gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	tree, _, err := gh.Git.GetTree(ctx, owner, repo, r.GetDefaultBranch(), true)
	if err != nil {
		return nil, err
	}
	if tree.GetTruncated() {
		// The provider caps recursive tree listings; anything past the cap
		// is missing from the index until the repository shrinks.
		c.logger.Warn("Repository tree truncated, indexing a partial file set",
			"owner", owner, "repo", repo, "entries", len(tree.Entries))
	}

	var files []model.RepoFile
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		content, _, err := gh.Git.GetBlobRaw(ctx, owner, repo, entry.GetSHA())
		if err != nil {
			return nil, err
		}
		files = append(files, model.RepoFile{
			Path:    entry.GetPath(),
			Content: string(content),
		})
	}

	c.logger.Debug("Fetched repository contents", "owner", owner, "repo", repo, "files", len(files))
	return files, nil
}

// CreateWebhook registers a push/pull_request webhook for (owner, repo)
// pointing at the configured callback URL. A provider denial (missing scope,
// unknown repo, rejected config) is a soft failure: the handle is nil and the
// error is nil, so callers can present "could not connect" without treating it
// as an outage.
func (c *Client) CreateWebhook(ctx context.Context, token, owner, repo string) (*model.WebhookHandle, error) {
	hook, _, err := c.api(ctx, token).Repositories.CreateHook(ctx, owner, repo, &github.Hook{
		Active: github.Bool(true),
		Events: []string{"push", "pull_request"},
		Config: &github.HookConfig{
			URL:         github.String(c.callbackURL),
			ContentType: github.String("json"),
		},
	})
	if err != nil {
		if isDenial(err) {
			c.logger.Warn("Provider refused webhook creation", "owner", owner, "repo", repo, "error", err)
			return nil, nil
		}
		return nil, err
	}

	return &model.WebhookHandle{
		ID:  hook.GetID(),
		URL: hook.GetConfig().GetURL(),
	}, nil
}

// DeleteWebhook removes the webhook previously registered for (owner, repo).
// It is idempotent: a hook that no longer exists, or a repository we can no
// longer see, counts as success.
func (c *Client) DeleteWebhook(ctx context.Context, token, owner, repo string) error {
	gh := c.api(ctx, token)

	hooks, _, err := gh.Repositories.ListHooks(ctx, owner, repo, nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	for _, hook := range hooks {
		if !strings.EqualFold(hook.GetConfig().GetURL(), c.callbackURL) {
			continue
		}
		if _, err := gh.Repositories.DeleteHook(ctx, owner, repo, hook.GetID()); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	}

	// No matching hook; already removed.
	return nil
}

// isDenial reports whether err is a provider refusal rather than a transport
// or server problem.
func isDenial(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	switch ghErr.Response.StatusCode {
	case http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusNotFound
}

// internal/engine/client.go
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"pr-review-service/internal/model"
)

// Reviewer runs an AI review of a pull request. Latency is unbounded from the
// caller's perspective; callers bound it with a context deadline.
type Reviewer interface {
	ReviewPullRequest(ctx context.Context, owner, repo string, prNumber int) error
}

// Indexer replaces the stored index for a repository with the given files.
type Indexer interface {
	IndexCodebase(ctx context.Context, repoKey string, files []model.RepoFile) error
}

// Client talks to the review/index engine over HTTP. Transient failures are
// retried by the underlying retryable client; anything that survives the
// retries is returned to the caller.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

var (
	_ Reviewer = (*Client)(nil)
	_ Indexer  = (*Client)(nil)
)

// NewClient creates an engine client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		http:    rc,
		logger:  logger,
	}
}

// ReviewPullRequest asks the engine to review one pull request.
func (c *Client) ReviewPullRequest(ctx context.Context, owner, repo string, prNumber int) error {
	return c.post(ctx, "/v1/reviews", map[string]any{
		"owner":     owner,
		"repo":      repo,
		"pr_number": prNumber,
	})
}

// IndexCodebase submits the full file set for a repository. The engine's index
// has full-replace semantics, so resubmitting the same files is harmless.
func (c *Client) IndexCodebase(ctx context.Context, repoKey string, files []model.RepoFile) error {
	return c.post(ctx, "/v1/index", map[string]any{
		"repo":  repoKey,
		"files": files,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Engine request failed after retries", "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Engine rejected request", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("engine %s returned %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}

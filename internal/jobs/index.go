// internal/jobs/index.go
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pr-review-service/internal/database"
	"pr-review-service/internal/engine"
	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/model"
)

// FileFetcher fetches the full file listing of a repository using a stored
// provider token.
type FileFetcher interface {
	GetRepoFileContents(ctx context.Context, token, owner, repo string) ([]model.RepoFile, error)
}

// IndexResult is what a completed index run reports.
type IndexResult struct {
	Success      bool `json:"success"`
	IndexedFiles int  `json:"indexed_files"`
}

// IndexJob indexes a freshly connected repository: fetch every file with the
// user's stored token, then hand the set to the indexing engine.
type IndexJob struct {
	db      database.Querier
	fetcher FileFetcher
	indexer engine.Indexer
}

// NewIndexJob creates an IndexJob.
func NewIndexJob(db database.Querier, fetcher FileFetcher, indexer engine.Indexer) *IndexJob {
	return &IndexJob{db: db, fetcher: fetcher, indexer: indexer}
}

// Handle runs the two job steps against the given run. A missing or empty
// provider token is fatal: no number of retries will produce one.
func (j *IndexJob) Handle(ctx context.Context, run *Run, ev Event) (IndexResult, error) {
	files, err := Step(run, "fetch-files", func() ([]model.RepoFile, error) {
		account, err := j.db.GetAccount(ctx, ev.Data.UserID, "github")
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, Fatal(apperrors.ErrNoAccessToken)
		}
		if err != nil {
			return nil, err
		}
		if account.AccessToken == "" {
			return nil, Fatal(apperrors.ErrNoAccessToken)
		}
		return j.fetcher.GetRepoFileContents(ctx, account.AccessToken, ev.Data.Owner, ev.Data.Repo)
	})
	if err != nil {
		return IndexResult{}, err
	}

	_, err = Step(run, "index-codebase", func() (struct{}, error) {
		repoKey := fmt.Sprintf("%s/%s", ev.Data.Owner, ev.Data.Repo)
		return struct{}{}, j.indexer.IndexCodebase(ctx, repoKey, files)
	})
	if err != nil {
		return IndexResult{}, err
	}

	return IndexResult{Success: true, IndexedFiles: len(files)}, nil
}

// internal/database/reviews.go
package database

import (
	"context"

	"github.com/google/uuid"

	"pr-review-service/internal/model"
)

// CreateReviewFailureParams records a review that failed after the webhook was
// acknowledged.
type CreateReviewFailureParams struct {
	Owner    string
	Repo     string
	PRNumber int
	Reason   string
}

func (s *Store) CreateReviewFailure(ctx context.Context, arg CreateReviewFailureParams) (model.ReviewFailure, error) {
	var f model.ReviewFailure
	err := s.pool.QueryRow(ctx, `
		INSERT INTO review_failures (id, owner, repo, pr_number, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner, repo, pr_number, reason, created_at`,
		uuid.NewString(), arg.Owner, arg.Repo, arg.PRNumber, arg.Reason).
		Scan(&f.ID, &f.Owner, &f.Repo, &f.PRNumber, &f.Reason, &f.CreatedAt)
	return f, err
}

func (s *Store) ListReviewFailures(ctx context.Context, limit int32) ([]model.ReviewFailure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, repo, pr_number, reason, created_at
		FROM review_failures ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []model.ReviewFailure
	for rows.Next() {
		var f model.ReviewFailure
		if err := rows.Scan(&f.ID, &f.Owner, &f.Repo, &f.PRNumber, &f.Reason, &f.CreatedAt); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

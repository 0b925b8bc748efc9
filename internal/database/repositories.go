// internal/database/repositories.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "pr-review-service/internal/errors"
	"pr-review-service/internal/model"
)

const repoColumns = `id, github_id, owner, name, full_name, url, user_id, created_at`

func scanRepository(row interface{ Scan(dest ...any) error }) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(&r.ID, &r.GithubID, &r.Owner, &r.Name, &r.FullName, &r.URL,
		&r.UserID, &r.CreatedAt)
	return r, err
}

// ConnectRepositoryParams describes a repository to persist after its remote
// webhook has been registered. FreeTierLimit is the repository cap applied to
// FREE-tier users.
type ConnectRepositoryParams struct {
	GithubID      int64
	Owner         string
	Name          string
	FullName      string
	URL           string
	UserID        string
	FreeTierLimit int
}

// ConnectRepository inserts the repository row and reserves a quota slot in a
// single transaction. The counter increment is conditional on the tier limit,
// so two concurrent connects at the boundary cannot both be admitted: the
// loser sees zero rows updated and gets ErrQuotaExceeded.
func (s *Store) ConnectRepository(ctx context.Context, arg ConnectRepositoryParams) (model.Repository, error) {
	var repo model.Repository
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET repository_count = repository_count + 1, updated_at = now()
			WHERE id = $1 AND (subscription_tier = $2 OR repository_count < $3)`,
			arg.UserID, model.TierPro, arg.FreeTierLimit)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, arg.UserID).
				Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return apperrors.ErrNotFound
			}
			return apperrors.ErrQuotaExceeded
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO repositories (id, github_id, owner, name, full_name, url, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+repoColumns,
			uuid.NewString(), arg.GithubID, arg.Owner, arg.Name, arg.FullName,
			arg.URL, arg.UserID)
		repo, err = scanRepository(row)
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyConnected
		}
		return err
	})
	if err != nil {
		return model.Repository{}, err
	}
	return repo, nil
}

// GetRepositoryForUser looks up a repository scoped to its owner. A row owned
// by another user is indistinguishable from a missing one.
func (s *Store) GetRepositoryForUser(ctx context.Context, id, userID string) (model.Repository, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+repoColumns+` FROM repositories WHERE id = $1 AND user_id = $2`,
		id, userID)
	repo, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperrors.ErrNotFound
	}
	return repo, err
}

func (s *Store) ListRepositoriesByUser(ctx context.Context, userID string) ([]model.Repository, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+repoColumns+` FROM repositories
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// ListConnectedGithubIDs returns the provider ids of the user's connected
// repositories, for merging into provider listings.
func (s *Store) ListConnectedGithubIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT github_id FROM repositories WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRepository removes the row and releases its quota slot. Deleting a
// repository that is already gone returns ErrNotFound.
func (s *Store) DeleteRepository(ctx context.Context, id, userID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM repositories WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET repository_count = GREATEST(repository_count - 1, 0), updated_at = now()
			WHERE id = $1`, userID)
		return err
	})
}

// DeleteAllRepositories bulk-deletes the user's rows and recomputes the
// counter to zero, returning how many rows were removed.
func (s *Store) DeleteAllRepositories(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM repositories WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		count = tag.RowsAffected()
		_, err = tx.Exec(ctx, `
			UPDATE users SET repository_count = 0, updated_at = now() WHERE id = $1`,
			userID)
		return err
	})
	return count, err
}

// internal/database/store.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pr-review-service/internal/model"
)

// Querier is the set of store operations the rest of the application depends
// on. Handlers and managers take this interface so tests can substitute a mock.
type Querier interface {
	GetUserBySessionToken(ctx context.Context, token string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByPolarCustomerID(ctx context.Context, customerID string) (model.User, error)
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.User, error)
	UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error
	SetPolarCustomerID(ctx context.Context, userID, customerID string) error

	GetAccount(ctx context.Context, userID, providerID string) (model.Account, error)

	ConnectRepository(ctx context.Context, arg ConnectRepositoryParams) (model.Repository, error)
	GetRepositoryForUser(ctx context.Context, id, userID string) (model.Repository, error)
	ListRepositoriesByUser(ctx context.Context, userID string) ([]model.Repository, error)
	ListConnectedGithubIDs(ctx context.Context, userID string) ([]int64, error)
	DeleteRepository(ctx context.Context, id, userID string) error
	DeleteAllRepositories(ctx context.Context, userID string) (int64, error)

	CreateReviewFailure(ctx context.Context, arg CreateReviewFailureParams) (model.ReviewFailure, error)
	ListReviewFailures(ctx context.Context, limit int32) ([]model.ReviewFailure, error)
}

// Store implements Querier against a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ Querier = (*Store)(nil)

// New creates a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// inTx runs fn inside a transaction. Rollback is a no-op once committed.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

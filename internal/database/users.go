// internal/database/users.go
package database

import (
	"context"

	"pr-review-service/internal/model"
)

const userColumns = `id, name, email, image, subscription_tier, subscription_status,
	polar_customer_id, repository_count, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.SubscriptionTier,
		&u.SubscriptionStatus, &u.PolarCustomerID, &u.RepositoryCount,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserBySessionToken resolves a session token to its user. Expired sessions
// do not resolve.
func (s *Store) GetUserBySessionToken(ctx context.Context, token string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		JOIN sessions ON sessions.user_id = users.id
		WHERE sessions.token = $1 AND sessions.expires_at > now()`, token)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Store) GetUserByPolarCustomerID(ctx context.Context, customerID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE polar_customer_id = $1`, customerID)
	return scanUser(row)
}

// UpdateUserProfileParams carries the mutable profile fields. Nil fields are
// left unchanged.
type UpdateUserProfileParams struct {
	UserID string
	Name   *string
	Email  *string
}

func (s *Store) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, arg.UserID, arg.Name, arg.Email)
	return scanUser(row)
}

// UpdateUserSubscriptionParams sets a user's tier and billing status.
type UpdateUserSubscriptionParams struct {
	UserID string
	Tier   string
	Status string
}

func (s *Store) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users
		SET subscription_tier = $2, subscription_status = $3, updated_at = now()
		WHERE id = $1`, arg.UserID, arg.Tier, arg.Status)
	return err
}

func (s *Store) SetPolarCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET polar_customer_id = $2, updated_at = now() WHERE id = $1`,
		userID, customerID)
	return err
}

// GetAccount returns the stored OAuth account for (userID, providerID).
func (s *Store) GetAccount(ctx context.Context, userID, providerID string) (model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, provider_id, access_token, created_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2`, userID, providerID).
		Scan(&a.ID, &a.UserID, &a.ProviderID, &a.AccessToken, &a.CreatedAt)
	return a, err
}

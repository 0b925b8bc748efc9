// internal/database/mock.go
package database

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pr-review-service/internal/model"
)

// MockQuerier is a testify mock of the Querier interface, shared by the
// package tests that depend on the store.
type MockQuerier struct {
	mock.Mock
}

var _ Querier = (*MockQuerier)(nil)

func (m *MockQuerier) GetUserBySessionToken(ctx context.Context, token string) (model.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) GetUserByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) GetUserByPolarCustomerID(ctx context.Context, customerID string) (model.User, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockQuerier) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *MockQuerier) SetPolarCustomerID(ctx context.Context, userID, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

func (m *MockQuerier) GetAccount(ctx context.Context, userID, providerID string) (model.Account, error) {
	args := m.Called(ctx, userID, providerID)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockQuerier) ConnectRepository(ctx context.Context, arg ConnectRepositoryParams) (model.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *MockQuerier) GetRepositoryForUser(ctx context.Context, id, userID string) (model.Repository, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *MockQuerier) ListRepositoriesByUser(ctx context.Context, userID string) ([]model.Repository, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Repository), args.Error(1)
}

func (m *MockQuerier) ListConnectedGithubIDs(ctx context.Context, userID string) ([]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockQuerier) DeleteRepository(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockQuerier) DeleteAllRepositories(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CreateReviewFailure(ctx context.Context, arg CreateReviewFailureParams) (model.ReviewFailure, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.ReviewFailure), args.Error(1)
}

func (m *MockQuerier) ListReviewFailures(ctx context.Context, limit int32) ([]model.ReviewFailure, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.ReviewFailure), args.Error(1)
}

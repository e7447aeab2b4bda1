// Package mocks provides hand-written testify mocks for the repository and
// store contracts.
package mocks

import (
	"context"

	"github.com/retroloop/retroloop/internal/domain/review"
	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/store"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for store.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Write(ctx context.Context, path string, value any) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

func (m *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

func (m *Store) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *Store) Read(ctx context.Context, path string) (any, bool, error) {
	args := m.Called(ctx, path)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *Store) Watch(ctx context.Context, path string, fn store.WatchFunc) (store.CancelFunc, error) {
	args := m.Called(ctx, path, fn)
	if cancel, ok := args.Get(0).(store.CancelFunc); ok {
		return cancel, args.Error(1)
	}
	return func() {}, args.Error(1)
}

// ReviewRepository is a mock for review.Repository.
type ReviewRepository struct {
	mock.Mock
}

func (m *ReviewRepository) AddItem(ctx context.Context, principalID string, year int, item review.Item) error {
	args := m.Called(ctx, principalID, year, item)
	return args.Error(0)
}

func (m *ReviewRepository) DeleteItem(ctx context.Context, principalID string, year int, itemID string) error {
	args := m.Called(ctx, principalID, year, itemID)
	return args.Error(0)
}

func (m *ReviewRepository) ListYear(ctx context.Context, principalID string, year int) ([]review.Item, error) {
	args := m.Called(ctx, principalID, year)
	if items, ok := args.Get(0).([]review.Item); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

// IdentityRepository is a mock for identity.Repository.
type IdentityRepository struct {
	mock.Mock
}

func (m *IdentityRepository) Create(ctx context.Context, p identity.Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *IdentityRepository) Get(ctx context.Context, id string) (*identity.Principal, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*identity.Principal); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/travelnudge/authcore/internal/auth"
)

// MockSessionRepository is a mock implementation of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, session
func (_m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ret := _m.Called(ctx, session)
	return ret.Error(0)
}

// GetByTokenHash provides a mock function with given fields: ctx, tokenHash
func (_m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := _m.Called(ctx, tokenHash)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

// Deactivate provides a mock function with given fields: ctx, tokenHash
func (_m *MockSessionRepository) Deactivate(ctx context.Context, tokenHash string) (bool, error) {
	ret := _m.Called(ctx, tokenHash)
	return ret.Bool(0), ret.Error(1)
}

// DeactivateByAccount provides a mock function with given fields: ctx, accountID
func (_m *MockSessionRepository) DeactivateByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	ret := _m.Called(ctx, accountID)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// DeleteExpiredBefore provides a mock function with given fields: ctx, cutoff
func (_m *MockSessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ret := _m.Called(ctx, cutoff)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// NewMockSessionRepository creates a new instance of MockSessionRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

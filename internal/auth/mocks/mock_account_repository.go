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

// MockAccountRepository is a mock implementation of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, account
func (_m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	ret := _m.Called(ctx, account)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := _m.Called(ctx, id)
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) (*auth.Account, error)); ok {
		return rf(ctx, id)
	}
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// GetByEmail provides a mock function with given fields: ctx, email
func (_m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ret := _m.Called(ctx, email)
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Account, error)); ok {
		return rf(ctx, email)
	}
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// GetByPhone provides a mock function with given fields: ctx, phone
func (_m *MockAccountRepository) GetByPhone(ctx context.Context, phone string) (*auth.Account, error) {
	ret := _m.Called(ctx, phone)
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Account, error)); ok {
		return rf(ctx, phone)
	}
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// UpdatePasswordHash provides a mock function with given fields: ctx, id, passwordHash, now
func (_m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string, now time.Time) error {
	ret := _m.Called(ctx, id, passwordHash, now)
	return ret.Error(0)
}

// ReplacePasswordHash provides a mock function with given fields: ctx, id, oldHash, newHash, now
func (_m *MockAccountRepository) ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, now time.Time) (bool, error) {
	ret := _m.Called(ctx, id, oldHash, newHash, now)
	return ret.Bool(0), ret.Error(1)
}

// RecordLoginFailure provides a mock function with given fields: ctx, id, threshold, lockUntil, now
func (_m *MockAccountRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID, threshold int, lockUntil, now time.Time) (int, *time.Time, error) {
	ret := _m.Called(ctx, id, threshold, lockUntil, now)
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, int, time.Time, time.Time) (int, *time.Time, error)); ok {
		return rf(ctx, id, threshold, lockUntil, now)
	}
	lockedUntil, _ := ret.Get(1).(*time.Time)
	return ret.Int(0), lockedUntil, ret.Error(2)
}

// ResetLoginFailures provides a mock function with given fields: ctx, id, now
func (_m *MockAccountRepository) ResetLoginFailures(ctx context.Context, id ulid.ULID, now time.Time) error {
	ret := _m.Called(ctx, id, now)
	return ret.Error(0)
}

// SetActive provides a mock function with given fields: ctx, id, active, now
func (_m *MockAccountRepository) SetActive(ctx context.Context, id ulid.ULID, active bool, now time.Time) error {
	ret := _m.Called(ctx, id, active, now)
	return ret.Error(0)
}

// SetVerified provides a mock function with given fields: ctx, id, now
func (_m *MockAccountRepository) SetVerified(ctx context.Context, id ulid.ULID, now time.Time) error {
	ret := _m.Called(ctx, id, now)
	return ret.Error(0)
}

// SetResetCredential provides a mock function with given fields: ctx, id, tokenHash, expiresAt, now
func (_m *MockAccountRepository) SetResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt, now time.Time) error {
	ret := _m.Called(ctx, id, tokenHash, expiresAt, now)
	return ret.Error(0)
}

// GetByResetTokenHash provides a mock function with given fields: ctx, tokenHash
func (_m *MockAccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	ret := _m.Called(ctx, tokenHash)
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Account, error)); ok {
		return rf(ctx, tokenHash)
	}
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

// ClearResetCredential provides a mock function with given fields: ctx, id, tokenHash, now
func (_m *MockAccountRepository) ClearResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, now time.Time) (bool, error) {
	ret := _m.Called(ctx, id, tokenHash, now)
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, string, time.Time) (bool, error)); ok {
		return rf(ctx, id, tokenHash, now)
	}
	return ret.Bool(0), ret.Error(1)
}

// ConsumeResetCredential provides a mock function with given fields: ctx, id, tokenHash, passwordHash, now
func (_m *MockAccountRepository) ConsumeResetCredential(ctx context.Context, id ulid.ULID, tokenHash, passwordHash string, now time.Time) (bool, error) {
	ret := _m.Called(ctx, id, tokenHash, passwordHash, now)
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID, string, string, time.Time) (bool, error)); ok {
		return rf(ctx, id, tokenHash, passwordHash, now)
	}
	return ret.Bool(0), ret.Error(1)
}

// NewMockAccountRepository creates a new instance of MockAccountRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

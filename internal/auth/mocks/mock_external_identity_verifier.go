// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/travelnudge/authcore/internal/auth"
)

// MockExternalIdentityVerifier is a mock implementation of auth.ExternalIdentityVerifier.
type MockExternalIdentityVerifier struct {
	mock.Mock
}

// Verify provides a mock function with given fields: ctx, credential
func (_m *MockExternalIdentityVerifier) Verify(ctx context.Context, credential string) (auth.ExternalIdentity, error) {
	ret := _m.Called(ctx, credential)
	identity, _ := ret.Get(0).(auth.ExternalIdentity)
	return identity, ret.Error(1)
}

// NewMockExternalIdentityVerifier creates a new instance of MockExternalIdentityVerifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockExternalIdentityVerifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockExternalIdentityVerifier {
	m := &MockExternalIdentityVerifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

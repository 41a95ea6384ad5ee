// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package gatewaytest provides test doubles for the remote gateway.
package gatewaytest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/renegan/campusauth/internal/gateway"
)

// MockGateway is a testify mock implementing gateway.Gateway.
type MockGateway struct {
	mock.Mock
}

var _ gateway.Gateway = (*MockGateway)(nil)

// VerifyEmailDomain records the call and returns the configured college.
func (m *MockGateway) VerifyEmailDomain(ctx context.Context, email string) (gateway.College, error) {
	args := m.Called(ctx, email)
	college, _ := args.Get(0).(gateway.College)
	return college, args.Error(1)
}

// SendOTP records the call.
func (m *MockGateway) SendOTP(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// VerifyOTP records the call.
func (m *MockGateway) VerifyOTP(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// Authenticate records the call and returns the configured session.
func (m *MockGateway) Authenticate(ctx context.Context, email, password string) (gateway.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(gateway.Session)
	return session, args.Error(1)
}

// FinalizeCredentials records the call and returns the configured session.
func (m *MockGateway) FinalizeCredentials(ctx context.Context, reg gateway.Registration) (gateway.Session, error) {
	args := m.Called(ctx, reg)
	session, _ := args.Get(0).(gateway.Session)
	return session, args.Error(1)
}

// LookupUserByEmail records the call and returns the configured identity.
func (m *MockGateway) LookupUserByEmail(ctx context.Context, email string) (gateway.Identity, error) {
	args := m.Called(ctx, email)
	identity, _ := args.Get(0).(gateway.Identity)
	return identity, args.Error(1)
}

// ResetPassword records the call.
func (m *MockGateway) ResetPassword(ctx context.Context, id gateway.Identity, password string) error {
	args := m.Called(ctx, id, password)
	return args.Error(0)
}

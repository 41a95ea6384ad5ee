// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gateway

import (
	"context"
	"encoding/json"
)

// Operation names, used in logs, metrics and error context.
const (
	OpVerifyEmailDomain   = "verifyEmailDomain"
	OpSendOTP             = "sendOtp"
	OpVerifyOTP           = "verifyOtp"
	OpAuthenticate        = "authenticate"
	OpFinalizeCredentials = "finalizeCredentials"
	OpLookupUserByEmail   = "lookupUserByEmail"
	OpResetPassword       = "resetPassword"
)

// College is the institution an email domain resolves to.
type College struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// User is the account record returned with a session.
// Raw keeps the backend's full record for consumers that need more fields.
type User struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Email    string          `json:"email,omitempty"`
	Username string          `json:"username,omitempty"`
	FullName string          `json:"fullName,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Session is an authenticated session issued by the backend.
type Session struct {
	Token string
	User  User
}

// Identity is the account resolved from an email during password reset.
type Identity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Registration is the payload that finalizes a new account.
type Registration struct {
	Type     string   `json:"type"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Username string   `json:"username"`
	FullName string   `json:"fullName"`
	College  *College `json:"college,omitempty"`
}

// Gateway is the set of remote operations used by the auth flows.
// Implementations must be safe for concurrent use; each call is single-shot.
type Gateway interface {
	// VerifyEmailDomain resolves the institution behind an email's domain.
	VerifyEmailDomain(ctx context.Context, email string) (College, error)
	// SendOTP issues a one-time code to email. Safe to call repeatedly.
	SendOTP(ctx context.Context, email string) error
	// VerifyOTP checks a one-time code.
	VerifyOTP(ctx context.Context, code string) error
	// Authenticate signs in with email and password.
	Authenticate(ctx context.Context, email, password string) (Session, error)
	// FinalizeCredentials creates the account and signs it in.
	FinalizeCredentials(ctx context.Context, reg Registration) (Session, error)
	// LookupUserByEmail resolves the account owning email.
	LookupUserByEmail(ctx context.Context, email string) (Identity, error)
	// ResetPassword sets a new password for the identified account.
	ResetPassword(ctx context.Context, id Identity, password string) error
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gatewaytest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegan/campusauth/internal/gateway"
)

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := checkPassword("Str0ng!Pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checkPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesSalt(t *testing.T) {
	a, err := hashPassword("same")
	require.NoError(t, err)
	b, err := hashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCheckPasswordRejectsMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$m=1,t=1,p=1$!!$a2V5"} {
		_, err := checkPassword("x", hash)
		assert.Error(t, err, hash)
	}
}

func TestLockout(t *testing.T) {
	now := time.Now()
	var l lockout
	for i := 1; i < LockoutThreshold; i++ {
		assert.False(t, l.fail(now), "attempt %d", i)
	}
	assert.True(t, l.fail(now))
	assert.True(t, l.locked(now))
	assert.False(t, l.locked(now.Add(LockoutDuration)))
}

func TestBackendSignInLocksOut(t *testing.T) {
	b := NewBackend()
	url := b.Start()
	t.Cleanup(b.Close)
	b.AddAccount(Account{Email: "ada@uni.edu", Password: "Str0ng!Pass"})

	gw, err := gateway.NewHTTPClient(gateway.HTTPConfig{BaseURL: url})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 1; i < LockoutThreshold; i++ {
		_, err := gw.Authenticate(ctx, "ada@uni.edu", "nope")
		assert.True(t, gateway.HasCode(err, gateway.CodeInvalidCredentials), "attempt %d", i)
	}
	_, err = gw.Authenticate(ctx, "ada@uni.edu", "nope")
	assert.True(t, gateway.HasCode(err, gateway.CodeRateLimited))

	_, err = gw.Authenticate(ctx, "ada@uni.edu", "Str0ng!Pass")
	assert.True(t, gateway.HasCode(err, gateway.CodeRateLimited), "locked accounts reject the right password too")
}

func TestBackendResetClearsLockout(t *testing.T) {
	b := NewBackend()
	url := b.Start()
	t.Cleanup(b.Close)
	a := b.AddAccount(Account{Type: "student", Email: "ada@uni.edu", Password: "Str0ng!Pass"})
	assert.Empty(t, a.Password, "plaintext is not kept")

	gw, err := gateway.NewHTTPClient(gateway.HTTPConfig{BaseURL: url})
	require.NoError(t, err)
	ctx := context.Background()

	for range LockoutThreshold {
		_, _ = gw.Authenticate(ctx, "ada@uni.edu", "nope")
	}
	require.NoError(t, gw.ResetPassword(ctx, gateway.Identity{ID: a.ID, Type: a.Type}, "N3w!Passw0rd"))

	session, err := gw.Authenticate(ctx, "ada@uni.edu", "N3w!Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, a.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)
}

func TestBackendCollegePatterns(t *testing.T) {
	b := NewBackend()
	b.AddCollege("*.iit*.ac.in", gateway.College{Name: "IIT", Country: "India"})

	tests := []struct {
		domain string
		want   string
		ok     bool
	}{
		{domain: "uni.edu", want: DefaultCollege.Name, ok: true},
		{domain: "cs.uni.edu", want: DefaultCollege.Name, ok: true},
		{domain: "a.cs.uni.edu"},
		{domain: "student.iitb.ac.in", want: "IIT", ok: true},
		{domain: "elsewhere.org"},
	}
	for _, tt := range tests {
		got, ok := b.lookupCollege(tt.domain)
		assert.Equal(t, tt.ok, ok, tt.domain)
		assert.Equal(t, tt.want, got.Name, tt.domain)
	}
}

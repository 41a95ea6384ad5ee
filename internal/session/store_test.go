// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/pkg/errutil"
)

var testUser = gateway.User{ID: "u1", Type: "student", Email: "a@univ.edu", Username: "ada", FullName: "Ada Lovelace"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "state", "session.json"), slog.New(slog.DiscardHandler))
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	exp := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})

	saved, err := s.Save(token, testUser)
	require.NoError(t, err)
	require.NotNil(t, saved.ExpiresAt)
	assert.True(t, exp.Equal(*saved.ExpiresAt))
	assert.Equal(t, "u1", saved.Subject)

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, token, loaded.Token)
	assert.Equal(t, testUser.Email, loaded.User.Email)
	assert.Equal(t, testUser.FullName, loaded.User.FullName)
	assert.True(t, saved.SavedAt.Equal(loaded.SavedAt))
	require.NotNil(t, loaded.ExpiresAt)
	assert.True(t, exp.Equal(*loaded.ExpiresAt))
}

func TestStoreFilePermissions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CommitSession("opaque", testUser))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dir, err := os.Stat(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dir.Mode().Perm())
}

func TestStoreOpaqueTokenHasNoExpiry(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Save("not-a-jwt", testUser)
	require.NoError(t, err)
	assert.Nil(t, rec.ExpiresAt)
	assert.Empty(t, rec.Subject)
	assert.False(t, rec.Expired(time.Now()))
}

func TestRecordExpired(t *testing.T) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := Record{ExpiresAt: &exp}

	assert.False(t, rec.Expired(exp.Add(-time.Second)))
	assert.True(t, rec.Expired(exp))
	assert.True(t, rec.Expired(exp.Add(time.Hour)))
}

func TestStoreSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CommitSession("first", testUser))
	require.NoError(t, s.CommitSession("second", testUser))

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Token)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoSession)
	errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
}

func TestStoreLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"missing token", `{"user":{"id":"u1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o600))

			_, err := s.Load()
			errutil.AssertErrorCode(t, err, "SESSION_CORRUPT")
		})
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t)

	existed, err := s.Clear()
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, s.CommitSession("tok", testUser))
	existed, err = s.Clear()
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

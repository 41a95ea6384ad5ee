// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/xdg"
)

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Record is a stored session.
type Record struct {
	Token     string       `json:"token"`
	User      gateway.User `json:"user"`
	Subject   string       `json:"subject,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	SavedAt   time.Time    `json:"saved_at"`
}

// Expired reports whether the token's expiry has passed at now. Tokens
// without an expiry never expire client-side.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Store persists one session to a JSON file readable only by its owner.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewStore returns a store writing to path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger, now: time.Now}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// CommitSession saves the session.
func (s *Store) CommitSession(token string, user gateway.User) error {
	_, err := s.Save(token, user)
	return err
}

// Save writes the session, replacing any previous one.
func (s *Store) Save(token string, user gateway.User) (Record, error) {
	rec := Record{
		Token:   token,
		User:    user,
		SavedAt: s.now().UTC(),
	}
	if claims, ok := s.claims(token); ok {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			t := exp.UTC()
			rec.ExpiresAt = &t
		}
		if sub, err := claims.GetSubject(); err == nil {
			rec.Subject = sub
		}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, oops.Code("SESSION_ENCODE_FAILED").In("session").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := xdg.EnsureDir(filepath.Dir(s.path)); err != nil {
		return Record{}, err
	}
	if err := writeFile(s.path, data); err != nil {
		return Record{}, oops.Code("SESSION_WRITE_FAILED").In("session").With("path", s.path).Wrap(err)
	}

	s.logger.Info("session saved", "path", s.path, "user_id", user.ID, "expires_at", rec.ExpiresAt)
	return rec, nil
}

// Load reads the stored session.
func (s *Store) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, oops.Code("SESSION_NOT_FOUND").In("session").With("path", s.path).Wrap(ErrNoSession)
	}
	if err != nil {
		return Record{}, oops.Code("SESSION_READ_FAILED").In("session").With("path", s.path).Wrap(err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, oops.Code("SESSION_CORRUPT").In("session").With("path", s.path).Wrap(err)
	}
	if rec.Token == "" {
		return Record{}, oops.Code("SESSION_CORRUPT").In("session").With("path", s.path).Errorf("stored session has no token")
	}
	return rec, nil
}

// Clear deletes the stored session. It reports whether one existed.
func (s *Store) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("SESSION_CLEAR_FAILED").In("session").With("path", s.path).Wrap(err)
	}
	s.logger.Info("session cleared", "path", s.path)
	return true, nil
}

// claims decodes the token's claims without verifying its signature; the
// backend owns verification.
func (s *Store) claims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.logger.Debug("session token is not a JWT", "error", err)
		return nil, false
	}
	return claims, true
}

// writeFile replaces path with data through a temporary file so readers never
// see a partial session.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*")
	if err != nil {
		return err //nolint:wrapcheck // wrapped by caller
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err  //nolint:wrapcheck // wrapped by caller
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err  //nolint:wrapcheck // wrapped by caller
	}
	if err := tmp.Close(); err != nil {
		return err //nolint:wrapcheck // wrapped by caller
	}
	return os.Rename(tmp.Name(), path) //nolint:wrapcheck // wrapped by caller
}

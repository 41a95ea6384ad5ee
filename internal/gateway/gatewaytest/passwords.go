// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package gatewaytest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters kept small so tests stay fast.
const (
	argon2Time    = 1
	argon2Memory  = 1024
	argon2Threads = 1
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// hashPassword returns a PHC-encoded argon2id hash.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("BACKEND_SALT_FAILED").Wrap(err)
	}
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// checkPassword reports whether password matches encoded.
func checkPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, oops.Code("BACKEND_HASH_INVALID").Errorf("invalid hash format")
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, oops.Code("BACKEND_HASH_INVALID").Wrap(err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("BACKEND_HASH_INVALID").Wrap(err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, oops.Code("BACKEND_HASH_INVALID").Errorf("invalid key")
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want))) //nolint:gosec // len checked above
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// LockoutThreshold is the number of consecutive failed sign-ins after which
// the backend answers RATE_LIMITED.
const LockoutThreshold = 5

// LockoutDuration is how long a locked account stays locked.
const LockoutDuration = 15 * time.Minute

// lockout tracks failed sign-ins for one account.
type lockout struct {
	failures    int
	lockedUntil time.Time
}

func (l lockout) locked(now time.Time) bool {
	return now.Before(l.lockedUntil)
}

// fail records a failed attempt and reports whether it locked the account.
func (l *lockout) fail(now time.Time) bool {
	l.failures++
	if l.failures >= LockoutThreshold {
		l.lockedUntil = now.Add(LockoutDuration)
		return true
	}
	return false
}

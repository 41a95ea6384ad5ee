// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package validate

import (
	"regexp"
	"strings"
)

// PasswordSymbols is the punctuation set a password must draw at least one symbol from.
const PasswordSymbols = "@$!%*?&"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// OTPLength is the number of digits in a one-time code.
const OTPLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Func is a field predicate.
type Func func(string) bool

// Required reports whether s is non-empty after trimming whitespace.
func Required(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Email reports whether s has the local@domain.tld shape.
// It does not check that the domain exists.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Password reports whether s satisfies the password policy: at least
// MinPasswordLength characters drawn from letters, digits and PasswordSymbols,
// with at least one of each of lowercase, uppercase, digit and symbol.
func Password(s string) bool {
	if len(s) < MinPasswordLength {
		return false
	}

	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}

// OTP reports whether s is exactly OTPLength ASCII digits.
func OTP(s string) bool {
	if len(s) != OTPLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// OneOf returns a predicate accepting only the given options.
func OneOf(options ...string) Func {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import "github.com/renegan/campusauth/internal/gateway"

// NoticeKind classifies user feedback.
type NoticeKind string

// Notice kinds.
const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// SessionNotifier is how an engine reports to the surrounding application.
// The engine never calls it with its lock held, but implementations must not
// block on the engine either.
type SessionNotifier interface {
	// CommitSession establishes the authenticated session. An error leaves the
	// flow on its last step so the submit can be retried.
	CommitSession(token string, user gateway.User) error
	// Notify shows user feedback. Fire-and-forget.
	Notify(kind NoticeKind, title, detail string)
}

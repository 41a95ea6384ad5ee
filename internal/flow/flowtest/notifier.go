// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package flowtest provides test helpers for flow engines.
package flowtest

import (
	"sync"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
)

// Notice is a recorded Notify call.
type Notice struct {
	Kind   flow.NoticeKind
	Title  string
	Detail string
}

// Commit is a recorded CommitSession call.
type Commit struct {
	Token string
	User  gateway.User
}

// Recorder is a SessionNotifier that records every call.
type Recorder struct {
	// CommitErr, when set, is returned from CommitSession.
	CommitErr error
	// Gate, when set, holds CommitSession after recording until it is
	// closed.
	Gate chan struct{}

	mu      sync.Mutex
	commits []Commit
	notices []Notice
}

var _ flow.SessionNotifier = (*Recorder)(nil)

// CommitSession records the session.
func (r *Recorder) CommitSession(token string, user gateway.User) error {
	r.mu.Lock()
	r.commits = append(r.commits, Commit{Token: token, User: user})
	gate, err := r.Gate, r.CommitErr
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

// Notify records the notice.
func (r *Recorder) Notify(kind flow.NoticeKind, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Kind: kind, Title: title, Detail: detail})
}

// Commits returns the recorded sessions.
func (r *Recorder) Commits() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Commit(nil), r.commits...)
}

// Notices returns the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package session

import (
	"context"
	"log/slog"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
)

// Committer establishes a session.
type Committer interface {
	CommitSession(token string, user gateway.User) error
}

// LogNotifier commits sessions to a Committer and writes notices to a logger.
type LogNotifier struct {
	committer Committer
	logger    *slog.Logger
}

var _ flow.SessionNotifier = (*LogNotifier)(nil)

// NewLogNotifier returns a notifier backed by committer. A nil committer
// accepts every session without storing it.
func NewLogNotifier(committer Committer, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{committer: committer, logger: logger}
}

// CommitSession forwards to the committer.
func (n *LogNotifier) CommitSession(token string, user gateway.User) error {
	if n.committer == nil {
		return nil
	}
	return n.committer.CommitSession(token, user)
}

// Notify logs the notice; errors at warn, everything else at info.
func (n *LogNotifier) Notify(kind flow.NoticeKind, title, detail string) {
	level := slog.LevelInfo
	if kind == flow.NoticeError {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, "notice", "kind", string(kind), "title", title, "detail", detail)
}

// Multi fans out to several notifiers in order.
type Multi []flow.SessionNotifier

var _ flow.SessionNotifier = Multi(nil)

// CommitSession commits to each notifier, stopping at the first failure.
func (m Multi) CommitSession(token string, user gateway.User) error {
	for _, n := range m {
		if err := n.CommitSession(token, user); err != nil {
			return err
		}
	}
	return nil
}

// Notify forwards to every notifier.
func (m Multi) Notify(kind flow.NoticeKind, title, detail string) {
	for _, n := range m {
		n.Notify(kind, title, detail)
	}
}

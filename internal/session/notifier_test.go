// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package session

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/flow/flowtest"
	"github.com/renegan/campusauth/internal/gateway"
)

type failingCommitter struct{ err error }

func (f failingCommitter) CommitSession(string, gateway.User) error { return f.err }

func TestLogNotifierCommitsToStore(t *testing.T) {
	s := newTestStore(t)
	n := NewLogNotifier(s, slog.New(slog.DiscardHandler))

	require.NoError(t, n.CommitSession("tok", testUser))

	rec, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", rec.Token)
}

func TestLogNotifierWithoutCommitter(t *testing.T) {
	n := NewLogNotifier(nil, nil)
	assert.NoError(t, n.CommitSession("tok", testUser))
}

func TestLogNotifierLevels(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(nil, slog.New(slog.NewTextHandler(&buf, nil)))

	n.Notify(flow.NoticeSuccess, "OTP Sent", "OTP has been sent to a@univ.edu")
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), `title="OTP Sent"`)

	buf.Reset()
	n.Notify(flow.NoticeError, "OTP has expired", "")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestMultiFansOut(t *testing.T) {
	a, b := &flowtest.Recorder{}, &flowtest.Recorder{}
	m := Multi{a, b}

	require.NoError(t, m.CommitSession("tok", testUser))
	m.Notify(flow.NoticeSuccess, "Signed In", "Welcome back")

	for _, r := range []*flowtest.Recorder{a, b} {
		assert.Len(t, r.Commits(), 1)
		assert.Equal(t, []flowtest.Notice{{Kind: flow.NoticeSuccess, Title: "Signed In", Detail: "Welcome back"}}, r.Notices())
	}
}

func TestMultiStopsAtFirstCommitFailure(t *testing.T) {
	boom := errors.New("disk full")
	after := &flowtest.Recorder{}
	m := Multi{NewLogNotifier(failingCommitter{err: boom}, slog.New(slog.DiscardHandler)), after}

	err := m.CommitSession("tok", testUser)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, after.Commits())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
)

const noticeBuffer = 16

// stateChangedMsg tells the model to re-read the engine state.
type stateChangedMsg struct{}

// noticeMsg carries a notice raised by the engine.
type noticeMsg flow.Notice

// Bridge turns engine callbacks into bubbletea messages. Register Observe with
// flow.WithObserver and pass the Bridge as (part of) the engine's notifier.
// Neither callback blocks: state changes are coalesced and notices beyond the
// buffer are dropped.
type Bridge struct {
	changes chan struct{}
	notices chan flow.Notice
}

var _ flow.SessionNotifier = (*Bridge)(nil)

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{
		changes: make(chan struct{}, 1),
		notices: make(chan flow.Notice, noticeBuffer),
	}
}

// Observe records that the engine state changed.
func (b *Bridge) Observe(flow.State) {
	select {
	case b.changes <- struct{}{}:
	default:
	}
}

// CommitSession accepts the session; persistence is another notifier's job.
func (b *Bridge) CommitSession(string, gateway.User) error {
	return nil
}

// Notify queues a notice for display.
func (b *Bridge) Notify(kind flow.NoticeKind, title, detail string) {
	select {
	case b.notices <- flow.Notice{Kind: kind, Title: title, Detail: detail}:
	default:
	}
}

// pump forwards queued callbacks to send until ctx is done.
func (b *Bridge) pump(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.changes:
			send(stateChangedMsg{})
		case n := <-b.notices:
			send(noticeMsg(n))
		}
	}
}

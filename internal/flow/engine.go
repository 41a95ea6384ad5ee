// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/pkg/errutil"
)

// Resend cooldown defaults.
const (
	DefaultCooldown     = 30
	DefaultTickInterval = time.Second
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCooldown sets the resend cooldown in ticks (default: DefaultCooldown).
func WithCooldown(ticks int) Option {
	return func(e *Engine) {
		if ticks >= 0 {
			e.cooldown = ticks
		}
	}
}

// WithTickInterval sets how often the cooldown ticks. Zero disables the
// background ticker; the caller then drives the cooldown with Tick.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.tickInterval = d
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and must not block.
func WithObserver(fn func(State)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

type tickerHandle struct {
	seq     uint64
	done    chan struct{}
	stopped chan struct{}
}

// Engine drives one flow instance.
type Engine struct {
	id           ulid.ULID
	def          Definition
	gw           gateway.Gateway
	notifier     SessionNotifier
	logger       *slog.Logger
	cooldown     int
	tickInterval time.Duration
	observer     func(State)

	mu         sync.Mutex
	state      State
	generation uint64
	cancelCall context.CancelFunc
	committing bool
	closed     bool
	ticker     *tickerHandle
	tickerSeq  uint64
}

// NewEngine creates an engine for def. The engine makes no remote call until
// Start or Submit.
func NewEngine(def Definition, gw gateway.Gateway, notifier SessionNotifier, opts ...Option) (*Engine, error) {
	if len(def.Steps) == 0 {
		return nil, oops.Code("FLOW_CONFIG_INVALID").With("flow", def.Kind).Errorf("definition has no steps")
	}
	if gw == nil {
		return nil, oops.Code("FLOW_CONFIG_INVALID").Errorf("gateway is required")
	}
	if notifier == nil {
		return nil, oops.Code("FLOW_CONFIG_INVALID").Errorf("session notifier is required")
	}
	for i, s := range def.Steps {
		if s.Confirm && s.OnSubmit == nil {
			return nil, oops.Code("FLOW_CONFIG_INVALID").
				With("flow", def.Kind).
				With("step", i).
				Errorf("confirmation step %q has no submit trigger", s.Name)
		}
	}

	e := &Engine{
		id:           ulid.Make(),
		def:          def,
		gw:           gw,
		notifier:     notifier,
		logger:       slog.Default(),
		cooldown:     DefaultCooldown,
		tickInterval: DefaultTickInterval,
		state:        newState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("flow", string(def.Kind), "flow_id", e.id.String())
	return e, nil
}

// ID returns the instance id.
func (e *Engine) ID() ulid.ULID {
	return e.id
}

// Definition returns the flow definition the engine runs.
func (e *Engine) Definition() Definition {
	return e.def
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// CurrentStep returns the definition of the current step.
func (e *Engine) CurrentStep() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.def.Steps[e.state.Step]
}

// Start enters the first step, running its entry trigger if it has one. It
// returns ErrBusy while a call is outstanding.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if err := e.idleLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	return e.enter(ctx)
}

// FieldChange sets a field's value and clears its error.
func (e *Engine) FieldChange(name, value string) {
	e.mu.Lock()
	if e.finishedLocked() != nil {
		e.mu.Unlock()
		return
	}
	e.state.Fields[name] = value
	delete(e.state.FieldErrors, name)
	if e.state.OTP != nil && name == FieldOTP {
		e.state.OTP.Code = value
	}
	e.mu.Unlock()
	e.emit()
}

// Submit validates the current step and runs its submit trigger.
//
// It returns an ErrValidation-wrapped error when any field fails, ErrBusy
// while a call is outstanding, and the gateway error when the remote call
// failed. In every failure case the step is unchanged.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	index := e.state.Step
	step := e.def.Steps[index]
	if err := e.idleLocked(); err != nil {
		e.mu.Unlock()
		if errors.Is(err, ErrBusy) {
			RecordSubmit(e.def.Kind, step.Name, ResultBusy)
		}
		return err
	}
	if e.state.Pending != nil {
		e.mu.Unlock()
		return ErrPendingConfirmation
	}

	e.state.GlobalError = ""
	if errs := step.Validate(e.state.Fields); len(errs) > 0 {
		maps.Copy(e.state.FieldErrors, errs)
		e.mu.Unlock()
		RecordSubmit(e.def.Kind, step.Name, ResultValidation)
		e.emit()
		return oops.Code("FLOW_VALIDATION").
			In("flow").
			With("flow", e.def.Kind).
			With("step", step.Name).
			With("fields", slices.Sorted(maps.Keys(errs))).
			Wrap(ErrValidation)
	}
	for _, f := range step.Fields {
		delete(e.state.FieldErrors, f.Name)
	}

	if step.OnSubmit == nil {
		return e.resolve(ctx, index, step, Outcome{}, e.generation)
	}

	call := e.callLocked()
	callCtx, gen := e.beginLocked(ctx)
	e.mu.Unlock()
	e.emit()

	out, err := e.run(callCtx, step, PhaseSubmit, call)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding stale submit response", "step", step.Name)
		return ErrStale
	}
	if err != nil {
		e.endLocked()
		e.state.GlobalError = gateway.Message(err)
		e.mu.Unlock()
		RecordSubmit(e.def.Kind, step.Name, ResultRemoteError)
		errutil.LogWarn(e.logger, "step submit failed", err)
		if step.NotifyErrors {
			e.notifier.Notify(NoticeError, gateway.Message(err), "")
		}
		e.emit()
		return err
	}
	return e.resolve(ctx, index, step, out, gen)
}

// Confirm accepts the pending confirmation and advances.
func (e *Engine) Confirm(ctx context.Context) error {
	e.mu.Lock()
	if err := e.idleLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.state.Pending == nil {
		e.mu.Unlock()
		return ErrNoConfirmation
	}
	out := e.state.Pending.outcome
	e.state.Pending = nil
	index := e.state.Step
	return e.transition(ctx, index, e.def.Steps[index], out, e.generation)
}

// Cancel dismisses the pending confirmation and stays on the step.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.state.Pending == nil {
		e.mu.Unlock()
		return
	}
	e.dismissLocked()
	e.mu.Unlock()
	e.emit()
}

// dismissLocked closes the pending confirmation and drops the college it
// would have committed.
func (e *Engine) dismissLocked() {
	e.state.Pending = nil
	e.state.Draft.College = nil
}

// Resend re-runs the OTP step's entry trigger once the cooldown is over and
// restarts the cooldown.
func (e *Engine) Resend(ctx context.Context) error {
	e.mu.Lock()
	if err := e.idleLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	step := e.def.Steps[e.state.Step]
	if !step.OTP || step.OnEnter == nil || e.state.OTP == nil {
		e.mu.Unlock()
		return ErrNotOTPStep
	}
	if !e.state.OTP.CanResend() {
		e.mu.Unlock()
		return ErrCooldown
	}
	e.state.OTP.ResendCooldown = e.cooldown
	if e.cooldown > 0 {
		e.startTickerLocked()
	}
	return e.dispatchEnter(ctx, step)
}

// Tick advances the resend cooldown by one second. It never goes below zero.
func (e *Engine) Tick() {
	e.tick(0)
}

// Back moves to the previous step, re-entering it. On the first step it
// changes nothing and returns true: the caller should leave the flow. An open
// confirmation is dismissed instead of moving. While a session is being
// committed it does nothing.
func (e *Engine) Back(ctx context.Context) bool {
	e.mu.Lock()
	if e.finishedLocked() != nil || e.committing {
		e.mu.Unlock()
		return false
	}
	if e.state.Pending != nil {
		e.dismissLocked()
		e.mu.Unlock()
		e.emit()
		return false
	}
	if e.state.Step == 0 {
		e.mu.Unlock()
		return true
	}

	e.invalidateLocked()
	e.leaveLocked()
	e.state.Step--
	e.state.GlobalError = ""
	e.logger.Debug("stepped back", "step", e.def.Steps[e.state.Step].Name)
	_ = e.enter(ctx) //nolint:errcheck // entry failures surface through State.GlobalError
	return false
}

// Reset returns the flow to its first step with empty fields, as on re-entry.
// It returns ErrBusy while a session is being committed.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrFinished
	}
	if e.committing {
		e.mu.Unlock()
		return ErrBusy
	}
	e.invalidateLocked()
	e.leaveLocked()
	e.state = newState()
	return e.enter(ctx)
}

// Close tears the instance down. Outstanding responses are discarded and the
// cooldown ticker is stopped before Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.invalidateLocked()
	stopped := e.leaveLocked()
	e.mu.Unlock()
	if stopped != nil {
		<-stopped
	}
}

// resolve applies a successful submit. Called with e.mu held; returns with it released.
func (e *Engine) resolve(ctx context.Context, index int, step Step, out Outcome, gen uint64) error {
	if step.Commit != nil {
		step.Commit(&e.state.Draft, e.state.Fields, out)
	}

	if step.Confirm {
		e.endLocked()
		pending := &Confirmation{outcome: out}
		if out.College != nil {
			pending.College = *out.College
		}
		e.state.Pending = pending
		e.mu.Unlock()
		RecordSubmit(e.def.Kind, step.Name, ResultPending)
		e.notice(out.Notice)
		e.emit()
		return nil
	}
	return e.transition(ctx, index, step, out, gen)
}

// transition follows the step's transition rule. Called with e.mu held;
// returns with it released.
func (e *Engine) transition(ctx context.Context, index int, step Step, out Outcome, gen uint64) error {
	target := step.target(index, out)
	if target.Action != ActionNone {
		return e.complete(step, target.Action, out, gen)
	}

	if target.Step < 0 || target.Step >= len(e.def.Steps) {
		e.endLocked()
		e.mu.Unlock()
		err := oops.Code("FLOW_TRANSITION_INVALID").
			In("flow").
			With("flow", e.def.Kind).
			With("step", step.Name).
			With("target", target.Step).
			Errorf("transition leaves the flow's steps")
		errutil.LogError(e.logger, "invalid transition", err)
		e.emit()
		return err
	}

	e.endLocked()
	e.leaveLocked()
	e.state.Step = target.Step
	e.state.GlobalError = ""
	RecordSubmit(e.def.Kind, step.Name, ResultAdvanced)
	e.logger.Debug("step advanced", "from", step.Name, "to", e.def.Steps[target.Step].Name)
	_ = e.enter(ctx) //nolint:errcheck // entry failures surface through State.GlobalError
	e.notice(out.Notice)
	return nil
}

// complete ends the flow with action. Called with e.mu held; returns with it released.
func (e *Engine) complete(step Step, action TerminalAction, out Outcome, gen uint64) error {
	if action == ActionSession {
		if out.Session == nil {
			e.endLocked()
			e.mu.Unlock()
			err := oops.Code("FLOW_SESSION_MISSING").
				In("flow").
				With("flow", e.def.Kind).
				With("step", step.Name).
				Errorf("terminal step produced no session")
			errutil.LogError(e.logger, "cannot complete flow", err)
			e.emit()
			return err
		}

		// Loading stays set while the session is committed so no second
		// submit can start in between.
		e.state.Loading = true
		e.committing = true
		e.mu.Unlock()
		commitErr := e.notifier.CommitSession(out.Session.Token, out.Session.User)
		e.mu.Lock()
		e.committing = false
		if gen != e.generation {
			e.mu.Unlock()
			return ErrStale
		}
		if commitErr != nil {
			e.endLocked()
			err := oops.Code("FLOW_SESSION_COMMIT_FAILED").
				In("flow").
				With("flow", e.def.Kind).
				Public("Could not save your session. Please try again.").
				Wrap(commitErr)
			e.state.GlobalError = gateway.Message(err)
			e.mu.Unlock()
			errutil.LogError(e.logger, "session commit failed", err)
			e.emit()
			return err
		}
	}

	e.endLocked()
	e.stopTickerLocked()
	e.state.OTP = nil
	e.state.GlobalError = ""
	e.state.Done = &Completion{Action: action, Session: out.Session}
	e.generation++
	e.mu.Unlock()

	RecordSubmit(e.def.Kind, step.Name, ResultCompleted)
	RecordCompletion(e.def.Kind, action)
	e.logger.Info("flow completed", "action", action.String())
	e.notice(out.Notice)
	e.emit()
	return nil
}

// enter runs the current step's entry effects. Called with e.mu held;
// returns with it released.
func (e *Engine) enter(ctx context.Context) error {
	step := e.def.Steps[e.state.Step]
	if step.OTP {
		e.state.OTP = &OTPState{ResendCooldown: e.cooldown}
		if e.cooldown > 0 {
			e.startTickerLocked()
		}
	}
	if step.OnEnter == nil {
		e.mu.Unlock()
		e.emit()
		return nil
	}
	return e.dispatchEnter(ctx, step)
}

// dispatchEnter runs step.OnEnter. Called with e.mu held; returns with it released.
func (e *Engine) dispatchEnter(ctx context.Context, step Step) error {
	call := e.callLocked()
	callCtx, gen := e.beginLocked(ctx)
	e.mu.Unlock()
	e.emit()

	out, err := e.run(callCtx, step, PhaseEnter, call)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding stale entry response", "step", step.Name)
		return ErrStale
	}
	e.endLocked()
	if err != nil {
		e.state.GlobalError = gateway.Message(err)
		e.mu.Unlock()
		errutil.LogWarn(e.logger, "step entry call failed", err)
		if step.NotifyErrors {
			e.notifier.Notify(NoticeError, gateway.Message(err), "")
		}
		e.emit()
		return err
	}
	e.mu.Unlock()
	e.notice(out.Notice)
	e.emit()
	return nil
}

func (e *Engine) run(ctx context.Context, step Step, phase string, call Call) (Outcome, error) {
	trigger := step.OnSubmit
	if phase == PhaseEnter {
		trigger = step.OnEnter
	}

	start := time.Now()
	out, err := trigger(ctx, e.gw, call)
	status := CallSuccess
	switch {
	case err == nil:
	case ctx.Err() != nil:
		status = CallDiscarded
	case gateway.IsTransport(err):
		status = CallTransport
	default:
		status = CallApplication
	}
	RecordRemoteCall(e.def.Kind, step.Name, phase, status, time.Since(start))
	return out, err
}

func (e *Engine) callLocked() Call {
	call := Call{
		Fields: maps.Clone(e.state.Fields),
		Draft:  e.state.Draft,
	}
	if e.state.Draft.College != nil {
		college := *e.state.Draft.College
		call.Draft.College = &college
	}
	return call
}

func (e *Engine) beginLocked(ctx context.Context) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(ctx)
	e.cancelCall = cancel
	e.state.Loading = true
	e.state.GlobalError = ""
	return callCtx, e.generation
}

func (e *Engine) endLocked() {
	if e.cancelCall != nil {
		e.cancelCall()
		e.cancelCall = nil
	}
	e.state.Loading = false
}

// invalidateLocked discards the outstanding call, if any.
func (e *Engine) invalidateLocked() {
	e.generation++
	e.endLocked()
}

// leaveLocked releases the current step's resources.
func (e *Engine) leaveLocked() <-chan struct{} {
	e.state.OTP = nil
	return e.stopTickerLocked()
}

func (e *Engine) finishedLocked() error {
	if e.closed || e.state.Done != nil {
		return ErrFinished
	}
	return nil
}

func (e *Engine) idleLocked() error {
	if err := e.finishedLocked(); err != nil {
		return err
	}
	if e.state.Loading {
		return ErrBusy
	}
	return nil
}

func (e *Engine) startTickerLocked() {
	if e.tickInterval <= 0 || e.ticker != nil {
		return
	}
	e.tickerSeq++
	h := &tickerHandle{
		seq:     e.tickerSeq,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	e.ticker = h
	go e.runTicker(h, e.tickInterval)
}

func (e *Engine) runTicker(h *tickerHandle, interval time.Duration) {
	defer close(h.stopped)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-t.C:
			e.tick(h.seq)
		}
	}
}

func (e *Engine) stopTickerLocked() <-chan struct{} {
	h := e.ticker
	if h == nil {
		return nil
	}
	e.ticker = nil
	close(h.done)
	return h.stopped
}

// tick decrements the cooldown. seq identifies the calling ticker goroutine;
// zero means a manual Tick.
func (e *Engine) tick(seq uint64) {
	e.mu.Lock()
	if seq != 0 && (e.ticker == nil || e.ticker.seq != seq) {
		e.mu.Unlock()
		return
	}
	if e.state.OTP == nil || e.state.OTP.ResendCooldown == 0 {
		if seq != 0 {
			e.stopTickerLocked()
		}
		e.mu.Unlock()
		return
	}
	e.state.OTP.ResendCooldown--
	if e.state.OTP.ResendCooldown == 0 {
		e.stopTickerLocked()
	}
	e.mu.Unlock()
	e.emit()
}

func (e *Engine) notice(n *Notice) {
	if n != nil {
		e.notifier.Notify(n.Kind, n.Title, n.Detail)
	}
}

func (e *Engine) emit() {
	if e.observer != nil {
		e.observer(e.State())
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import "errors"

var (
	// ErrValidation is returned by Submit when local validation failed; see State.FieldErrors.
	ErrValidation = errors.New("validation failed")
	// ErrBusy is returned while a remote call is outstanding.
	ErrBusy = errors.New("remote call in progress")
	// ErrPendingConfirmation is returned by Submit while a confirmation is open.
	ErrPendingConfirmation = errors.New("confirmation pending")
	// ErrNoConfirmation is returned by Confirm when nothing awaits confirmation.
	ErrNoConfirmation = errors.New("nothing to confirm")
	// ErrCooldown is returned by Resend while the resend cooldown is running.
	ErrCooldown = errors.New("resend cooldown active")
	// ErrNotOTPStep is returned by Resend outside an OTP step.
	ErrNotOTPStep = errors.New("current step has no one-time code")
	// ErrFinished is returned once the flow reached its terminal state or was closed.
	ErrFinished = errors.New("flow finished")
	// ErrStale is returned when a response arrived after the flow moved on.
	ErrStale = errors.New("response discarded: flow moved on")
)

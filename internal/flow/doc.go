// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package flow drives the multi-step auth wizards: sign-up, sign-in and
// password reset.
//
// # Definitions
//
// A Definition is an ordered list of Steps. Each Step declares its fields and
// their rules, an optional trigger run on entry, an optional trigger run on
// submit, and a transition mapping the submit outcome to the next step or a
// terminal action. Definitions are immutable and shared by every Engine:
//   - SignUp - account type, email + institution confirmation, OTP, password, profile
//   - SignIn - email and password
//   - PasswordReset - email lookup, OTP, new password
//
// # Engine
//
// An Engine owns the State of one flow instance and processes one event at a
// time. Remote calls run without the engine lock held; while one is
// outstanding State.Loading is true and Submit, Confirm and Resend return
// ErrBusy. Back, Reset and Close invalidate the outstanding call so its late
// response is discarded.
//
// Terminal outcomes are reported to the injected SessionNotifier, which is
// also the only channel for user-facing notices.
package flow

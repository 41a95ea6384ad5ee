// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package gateway defines the remote operations the auth flows depend on and
// an HTTP implementation of them against the platform backend.
//
// # Errors
//
// Every failure is an oops error carrying one of the Code* values and a
// public message fit for display:
//   - CodeTransport - no response was received; the public message is the raw
//     transport error text
//   - every other code - the backend answered with a failure; the public message
//     is the backend's message verbatim
//
// Use IsTransport, IsApplication, HasCode and Message rather than inspecting
// errors directly. No operation retries; retrying is the caller's decision.
package gateway

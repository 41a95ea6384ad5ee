// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package session holds the authenticated session a completed flow produces.
//
// Store persists the session token and user record to a private file.
// LogNotifier and Multi adapt stores and front-ends to flow.SessionNotifier.
package session

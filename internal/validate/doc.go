// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package validate holds the pure field predicates used by the auth flows.
//
// Every predicate is deterministic and side-effect free. A false result is a
// normal outcome, never an error; callers map it to a field message.
package validate

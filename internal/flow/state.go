// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import (
	"maps"

	"github.com/renegan/campusauth/internal/gateway"
)

// Values maps field names to their current values.
type Values map[string]string

// FieldErrors maps field names to their error message. A missing key means
// the field has no error.
type FieldErrors map[string]string

// Draft is the partial user record built up across steps.
type Draft struct {
	UserID   string
	UserType string
	Email    string
	College  *gateway.College
}

// Confirmation is a successful submit awaiting explicit confirmation.
type Confirmation struct {
	College gateway.College

	outcome Outcome
}

// OTPState belongs to an OTP step and is discarded when the step is left.
type OTPState struct {
	Code           string
	ResendCooldown int
}

// CanResend reports whether the resend cooldown has run out.
func (o OTPState) CanResend() bool {
	return o.ResendCooldown == 0
}

// Completion records how a flow ended.
type Completion struct {
	Action  TerminalAction
	Session *gateway.Session
}

// State is a snapshot of one flow instance.
type State struct {
	Step        int
	Fields      Values
	FieldErrors FieldErrors
	GlobalError string
	Loading     bool
	Draft       Draft
	Pending     *Confirmation
	OTP         *OTPState
	Done        *Completion
}

func newState() State {
	return State{
		Fields:      Values{},
		FieldErrors: FieldErrors{},
	}
}

// clone returns a deep copy safe to hand to callers.
func (s State) clone() State {
	c := s
	c.Fields = maps.Clone(s.Fields)
	c.FieldErrors = maps.Clone(s.FieldErrors)
	if s.Draft.College != nil {
		college := *s.Draft.College
		c.Draft.College = &college
	}
	if s.Pending != nil {
		pending := *s.Pending
		c.Pending = &pending
	}
	if s.OTP != nil {
		otp := *s.OTP
		c.OTP = &otp
	}
	if s.Done != nil {
		done := *s.Done
		c.Done = &done
	}
	return c
}

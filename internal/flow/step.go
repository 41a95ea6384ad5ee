// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import (
	"context"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/validate"
)

// Kind identifies a flow type.
type Kind string

// Flow kinds.
const (
	KindSignUp        Kind = "signup"
	KindSignIn        Kind = "signin"
	KindPasswordReset Kind = "reset"
)

// TerminalAction is what happens when a flow completes.
type TerminalAction int

// Terminal actions.
const (
	// ActionNone means the flow continues at Target.Step.
	ActionNone TerminalAction = iota
	// ActionSession commits the returned session.
	ActionSession
	// ActionRedirectSignIn ends the flow; the user continues at sign-in.
	ActionRedirectSignIn
)

func (a TerminalAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSession:
		return "session"
	case ActionRedirectSignIn:
		return "redirect_signin"
	default:
		return "unknown"
	}
}

// Target is where a transition leads.
type Target struct {
	Step   int
	Action TerminalAction
}

// Rule is one check on a field value and the message shown when it fails.
type Rule struct {
	Check   validate.Func
	Message string
}

// Field is an input owned by a step. Rules run in order; the first failing
// rule sets the field's error.
type Field struct {
	Name   string
	Label  string
	Secret bool
	Rules  []Rule
}

// Match requires two fields to hold the same value. It is only checked when
// both fields passed their own rules; on mismatch Message is set on both.
type Match struct {
	Field   string
	Confirm string
	Message string
}

// Notice is user feedback produced by a trigger.
type Notice struct {
	Kind   NoticeKind
	Title  string
	Detail string
}

// Outcome is what a trigger produced.
type Outcome struct {
	College  *gateway.College
	Identity *gateway.Identity
	Session  *gateway.Session
	Notice   *Notice
}

// Call is the input a trigger runs with: copies of the fields and draft at
// dispatch time.
type Call struct {
	Fields Values
	Draft  Draft
}

// Trigger performs a step's remote work.
type Trigger func(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error)

// Copy is the heading and prompt a UI shows for a step.
type Copy struct {
	Title  string
	Prompt string
}

// Step is one screen of a flow.
type Step struct {
	Name   string
	Title  string
	Prompt string
	Fields []Field
	Match  *Match

	// OnEnter runs whenever the step is entered, and again on Resend.
	OnEnter Trigger
	// OnSubmit runs after validation passes.
	OnSubmit Trigger

	// Confirm holds a successful submit behind an explicit Confirm.
	Confirm bool
	// OTP gives the step a one-time code and resend cooldown.
	OTP bool
	// NotifyErrors reports remote failures through the notifier as well.
	NotifyErrors bool

	// Commit folds a successful submit into the draft.
	Commit func(d *Draft, fields Values, out Outcome)
	// Text overrides Title and Prompt based on the draft.
	Text func(d Draft) Copy
	// Transition picks the next target; nil advances to the following step.
	Transition func(index int, out Outcome) Target
}

// Copy returns the heading and prompt for the step given the draft.
func (s Step) Copy(d Draft) Copy {
	if s.Text != nil {
		return s.Text(d)
	}
	return Copy{Title: s.Title, Prompt: s.Prompt}
}

// Validate runs every field's rules and the match rule against values. All
// failures are reported together.
func (s Step) Validate(values Values) FieldErrors {
	errs := FieldErrors{}
	for _, f := range s.Fields {
		for _, r := range f.Rules {
			if !r.Check(values[f.Name]) {
				errs[f.Name] = r.Message
				break
			}
		}
	}

	if m := s.Match; m != nil {
		_, fieldBad := errs[m.Field]
		_, confirmBad := errs[m.Confirm]
		if !fieldBad && !confirmBad && values[m.Field] != values[m.Confirm] {
			errs[m.Field] = m.Message
			errs[m.Confirm] = m.Message
		}
	}
	return errs
}

func (s Step) target(index int, out Outcome) Target {
	if s.Transition != nil {
		return s.Transition(index, out)
	}
	return Target{Step: index + 1}
}

// Advance is the transition to the following step.
func Advance(index int, _ Outcome) Target {
	return Target{Step: index + 1}
}

// Finish returns a transition that ends the flow with action.
func Finish(action TerminalAction) func(int, Outcome) Target {
	return func(index int, _ Outcome) Target {
		return Target{Step: index, Action: action}
	}
}

// Definition is an ordered list of steps.
type Definition struct {
	Kind  Kind
	Steps []Step
}

// Step returns the step at index.
func (d Definition) Step(index int) Step {
	return d.Steps[index]
}

// Len returns the number of steps.
func (d Definition) Len() int {
	return len(d.Steps)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renegan/campusauth/internal/flow"
)

func stepNames(def flow.Definition) []string {
	names := make([]string, 0, def.Len())
	for _, s := range def.Steps {
		names = append(names, s.Name)
	}
	return names
}

func TestDefinitionShapes(t *testing.T) {
	assert.Equal(t, []string{"account-type", "email", "otp", "password", "profile"}, stepNames(flow.SignUp()))
	assert.Equal(t, []string{"credentials"}, stepNames(flow.SignIn()))
	assert.Equal(t, []string{"email", "otp", "password"}, stepNames(flow.PasswordReset()))
}

func TestOnlyOTPStepsHaveCooldown(t *testing.T) {
	for _, def := range []flow.Definition{flow.SignUp(), flow.SignIn(), flow.PasswordReset()} {
		for _, s := range def.Steps {
			assert.Equal(t, s.Name == "otp", s.OTP, "%s/%s", def.Kind, s.Name)
			if s.OTP {
				assert.NotNil(t, s.OnEnter, "%s/%s sends a code on entry", def.Kind, s.Name)
			}
		}
	}
}

func TestSignUpEmailCopyFollowsCategory(t *testing.T) {
	step := flow.SignUp().Step(1)

	tests := []struct {
		category string
		title    string
	}{
		{flow.CategoryStudent, "Create Student Account"},
		{flow.CategorySociety, "Create Society / Clubs Account"},
		{flow.CategoryUniversity, "Create University Account"},
		{"", "Create Account"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			c := step.Copy(flow.Draft{UserType: tt.category})
			assert.Equal(t, tt.title, c.Title)
		})
	}
	assert.Contains(t, step.Copy(flow.Draft{UserType: flow.CategorySociety}).Prompt, "Lead / Coordinator")
}

func TestStaticCopy(t *testing.T) {
	c := flow.PasswordReset().Step(0).Copy(flow.Draft{})
	assert.Equal(t, "Forgot Your Password", c.Title)
	assert.Equal(t, "Please Enter Your University Mail Id to reset your password.", c.Prompt)
}

func TestForKind(t *testing.T) {
	for _, kind := range []flow.Kind{flow.KindSignUp, flow.KindSignIn, flow.KindPasswordReset} {
		def, ok := flow.ForKind(kind)
		require.True(t, ok)
		assert.Equal(t, kind, def.Kind)
	}
	_, ok := flow.ForKind("bogus")
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	cats := flow.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, flow.CategoryStudent, cats[0].Value)
	assert.Equal(t, "Society / Clubs", cats[1].Label)
}

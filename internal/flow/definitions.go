// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import (
	"context"
	"fmt"

	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/validate"
)

// Field names shared by the flow definitions.
const (
	FieldUserType        = "userType"
	FieldEmail           = "email"
	FieldOTP             = "otp"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldUsername        = "username"
	FieldFullName        = "fullName"
)

// Account categories offered on the first sign-up step.
const (
	CategoryStudent    = "student"
	CategorySociety    = "society"
	CategoryUniversity = "university"
)

// Category is a selectable account type.
type Category struct {
	Value string
	Label string
}

// Categories lists the account types in display order.
func Categories() []Category {
	return []Category{
		{Value: CategoryStudent, Label: "University Student"},
		{Value: CategorySociety, Label: "Society / Clubs"},
		{Value: CategoryUniversity, Label: "University / College"},
	}
}

// Field error messages.
const (
	MsgUserTypeRequired  = "Please choose an account type."
	MsgUserTypeUnknown   = "Unknown account type."
	MsgEmailRequired     = "Email is required."
	MsgEmailInvalid      = "Invalid email format."
	MsgOTPRequired       = "OTP is required."
	MsgOTPInvalid        = "OTP must be 6 digits."
	MsgPasswordRequired  = "Password is required."
	MsgPasswordWeak      = "Password must have at least 8 characters, one uppercase letter, one lowercase letter, one digit, and one special character."
	MsgConfirmRequired   = "Confirm Password is required."
	MsgPasswordMismatch  = "Password and Confirm Password must be same."
	MsgUsernameRequired  = "Username is required."
	MsgFullNameRequired  = "Full name is required."
	msgPasswordPrompt    = "Please create a new strong password to secure your account."
	msgOTPPrompt         = "Please enter the One-Time Password (OTP) sent to your email address."
	msgUniversityMailBox = "Please Enter Your University Mail Id"
)

var (
	emailField = Field{
		Name:  FieldEmail,
		Label: "Email Address",
		Rules: []Rule{
			{Check: validate.Required, Message: MsgEmailRequired},
			{Check: validate.Email, Message: MsgEmailInvalid},
		},
	}
	otpField = Field{
		Name:  FieldOTP,
		Label: "OTP",
		Rules: []Rule{
			{Check: validate.Required, Message: MsgOTPRequired},
			{Check: validate.OTP, Message: MsgOTPInvalid},
		},
	}
	newPasswordField = Field{
		Name:   FieldPassword,
		Label:  "Password",
		Secret: true,
		Rules: []Rule{
			{Check: validate.Required, Message: MsgPasswordRequired},
			{Check: validate.Password, Message: MsgPasswordWeak},
		},
	}
	confirmPasswordField = Field{
		Name:   FieldConfirmPassword,
		Label:  "Confirm Password",
		Secret: true,
		Rules: []Rule{
			{Check: validate.Required, Message: MsgConfirmRequired},
		},
	}
	passwordMatch = &Match{
		Field:   FieldPassword,
		Confirm: FieldConfirmPassword,
		Message: MsgPasswordMismatch,
	}
)

// SignUp returns the five-step registration flow.
func SignUp() Definition {
	return Definition{
		Kind: KindSignUp,
		Steps: []Step{
			{
				Name:   "account-type",
				Title:  "Choose Account Type",
				Prompt: "Let us know if you are a Student, Society / Clubs or a University.",
				Fields: []Field{{
					Name:  FieldUserType,
					Label: "Account Type",
					Rules: []Rule{
						{Check: validate.Required, Message: MsgUserTypeRequired},
						{Check: validate.OneOf(CategoryStudent, CategorySociety, CategoryUniversity), Message: MsgUserTypeUnknown},
					},
				}},
				Commit: func(d *Draft, fields Values, _ Outcome) {
					d.UserType = fields[FieldUserType]
				},
			},
			{
				Name:     "email",
				Fields:   []Field{emailField},
				OnSubmit: verifyEmailDomain,
				Confirm:  true,
				Commit: func(d *Draft, fields Values, out Outcome) {
					d.Email = fields[FieldEmail]
					d.College = out.College
				},
				Text: signUpEmailCopy,
			},
			{
				Name:         "otp",
				Title:        "Verify Your Email",
				Prompt:       msgOTPPrompt,
				Fields:       []Field{otpField},
				OnEnter:      sendOTP,
				OnSubmit:     verifyOTP,
				OTP:          true,
				NotifyErrors: true,
			},
			{
				Name:   "password",
				Title:  "Create a Password",
				Prompt: msgPasswordPrompt,
				Fields: []Field{newPasswordField, confirmPasswordField},
				Match:  passwordMatch,
			},
			{
				Name:   "profile",
				Title:  "Add Your Details",
				Prompt: "Add details and information about yourself.",
				Fields: []Field{
					{
						Name:  FieldUsername,
						Label: "Username",
						Rules: []Rule{{Check: validate.Required, Message: MsgUsernameRequired}},
					},
					{
						Name:  FieldFullName,
						Label: "Full Name",
						Rules: []Rule{{Check: validate.Required, Message: MsgFullNameRequired}},
					},
				},
				OnSubmit:   finalizeCredentials,
				Transition: Finish(ActionSession),
			},
		},
	}
}

// SignIn returns the single-step sign-in flow.
func SignIn() Definition {
	return Definition{
		Kind: KindSignIn,
		Steps: []Step{
			{
				Name:   "credentials",
				Title:  "Welcome Back",
				Prompt: "Welcome Back, " + msgUniversityMailBox,
				Fields: []Field{
					emailField,
					{
						Name:   FieldPassword,
						Label:  "Password",
						Secret: true,
						Rules:  []Rule{{Check: validate.Required, Message: MsgPasswordRequired}},
					},
				},
				OnSubmit:   authenticate,
				Transition: Finish(ActionSession),
			},
		},
	}
}

// PasswordReset returns the three-step password reset flow.
func PasswordReset() Definition {
	return Definition{
		Kind: KindPasswordReset,
		Steps: []Step{
			{
				Name:     "email",
				Title:    "Forgot Your Password",
				Prompt:   msgUniversityMailBox + " to reset your password.",
				Fields:   []Field{emailField},
				OnSubmit: lookupUserByEmail,
				Commit: func(d *Draft, fields Values, out Outcome) {
					d.Email = fields[FieldEmail]
					if out.Identity != nil {
						d.UserID = out.Identity.ID
						d.UserType = out.Identity.Type
					}
				},
			},
			{
				Name:         "otp",
				Title:        "Verify Your Email",
				Prompt:       msgOTPPrompt,
				Fields:       []Field{otpField},
				OnEnter:      sendOTP,
				OnSubmit:     verifyOTP,
				OTP:          true,
				NotifyErrors: true,
			},
			{
				Name:       "password",
				Title:      "Update your Password",
				Prompt:     msgPasswordPrompt,
				Fields:     []Field{newPasswordField, confirmPasswordField},
				Match:      passwordMatch,
				OnSubmit:   resetPassword,
				Transition: Finish(ActionRedirectSignIn),
			},
		},
	}
}

// ForKind returns the definition for kind.
func ForKind(kind Kind) (Definition, bool) {
	switch kind {
	case KindSignUp:
		return SignUp(), true
	case KindSignIn:
		return SignIn(), true
	case KindPasswordReset:
		return PasswordReset(), true
	default:
		return Definition{}, false
	}
}

func signUpEmailCopy(d Draft) Copy {
	switch d.UserType {
	case CategoryStudent:
		return Copy{
			Title:  "Create Student Account",
			Prompt: "Please enter your university email address to create a student account.",
		}
	case CategorySociety:
		return Copy{
			Title:  "Create Society / Clubs Account",
			Prompt: "Please enter your Lead / Coordinator's university email address to create a society / clubs account.",
		}
	case CategoryUniversity:
		return Copy{
			Title:  "Create University Account",
			Prompt: "Please enter your university email address to create a university account.",
		}
	default:
		return Copy{Title: "Create Account"}
	}
}

func verifyEmailDomain(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	college, err := gw.VerifyEmailDomain(ctx, call.Fields[FieldEmail])
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{College: &college}, nil
}

func sendOTP(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	if err := gw.SendOTP(ctx, call.Draft.Email); err != nil {
		return Outcome{}, err
	}
	return Outcome{Notice: &Notice{
		Kind:   NoticeSuccess,
		Title:  "OTP Sent",
		Detail: fmt.Sprintf("OTP has been sent to %s", call.Draft.Email),
	}}, nil
}

func verifyOTP(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	return Outcome{}, gw.VerifyOTP(ctx, call.Fields[FieldOTP])
}

func finalizeCredentials(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	session, err := gw.FinalizeCredentials(ctx, gateway.Registration{
		Type:     call.Draft.UserType,
		Email:    call.Draft.Email,
		Password: call.Fields[FieldPassword],
		Username: call.Fields[FieldUsername],
		FullName: call.Fields[FieldFullName],
		College:  call.Draft.College,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Session: &session,
		Notice:  &Notice{Kind: NoticeSuccess, Title: "Account Created", Detail: "Welcome to Renegan"},
	}, nil
}

func authenticate(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	session, err := gw.Authenticate(ctx, call.Fields[FieldEmail], call.Fields[FieldPassword])
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Session: &session,
		Notice:  &Notice{Kind: NoticeSuccess, Title: "Signed In", Detail: "Welcome back"},
	}, nil
}

func lookupUserByEmail(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	identity, err := gw.LookupUserByEmail(ctx, call.Fields[FieldEmail])
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Identity: &identity}, nil
}

func resetPassword(ctx context.Context, gw gateway.Gateway, call Call) (Outcome, error) {
	id := gateway.Identity{ID: call.Draft.UserID, Type: call.Draft.UserType}
	if err := gw.ResetPassword(ctx, id, call.Fields[FieldPassword]); err != nil {
		return Outcome{}, err
	}
	return Outcome{Notice: &Notice{
		Kind:   NoticeSuccess,
		Title:  "Password Reset",
		Detail: "Password has been reset successfully",
	}}, nil
}

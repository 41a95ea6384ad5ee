// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

//go:build integration

package flows_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/gateway/gatewaytest"
)

var _ = Describe("Sign up", func() {
	var (
		env    *testEnv
		engine *flow.Engine
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = newTestEnv()
		engine = env.engine(flow.SignUp(), flow.WithCooldown(5))
		Expect(engine.Start(ctx)).To(Succeed())

		engine.FieldChange(flow.FieldUserType, flow.CategorySociety)
		Expect(engine.Submit(ctx)).To(Succeed())
	})

	It("registers the account and stores its session", func() {
		engine.FieldChange(flow.FieldEmail, "lead@uni.edu")
		Expect(engine.Submit(ctx)).To(Succeed())
		Expect(engine.State().Pending).NotTo(BeNil())
		Expect(engine.State().Pending.College).To(Equal(gatewaytest.DefaultCollege))

		Expect(engine.Confirm(ctx)).To(Succeed())
		Expect(engine.CurrentStep().Name).To(Equal("otp"))
		Expect(env.backend.OTPsSent()).To(Equal([]string{"lead@uni.edu"}))
		Expect(engine.State().OTP.ResendCooldown).To(Equal(5))

		engine.FieldChange(flow.FieldOTP, gatewaytest.DefaultOTP)
		Expect(engine.Submit(ctx)).To(Succeed())

		engine.FieldChange(flow.FieldPassword, strongPassword)
		engine.FieldChange(flow.FieldConfirmPassword, strongPassword)
		Expect(engine.Submit(ctx)).To(Succeed())

		engine.FieldChange(flow.FieldUsername, "chess-club")
		engine.FieldChange(flow.FieldFullName, "Chess Club")
		Expect(engine.Submit(ctx)).To(Succeed())

		done := engine.State().Done
		Expect(done).NotTo(BeNil())
		Expect(done.Action).To(Equal(flow.ActionSession))

		account, ok := env.backend.Account("lead@uni.edu")
		Expect(ok).To(BeTrue())
		Expect(account.Type).To(Equal(flow.CategorySociety))

		rec, err := env.store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.User.ID).To(Equal(account.ID))
		Expect(rec.Subject).To(Equal(account.ID))
		Expect(rec.ExpiresAt).NotTo(BeNil())
		Expect(rec.Expired(time.Now())).To(BeFalse())
	})

	It("keeps the user on the email step for an unknown domain", func() {
		engine.FieldChange(flow.FieldEmail, "someone@elsewhere.org")
		err := engine.Submit(ctx)
		Expect(gateway.HasCode(err, gateway.CodeDomainUnrecognized)).To(BeTrue())

		state := engine.State()
		Expect(engine.CurrentStep().Name).To(Equal("email"))
		Expect(state.GlobalError).To(Equal("Your university is not registered with us."))
		Expect(state.Pending).To(BeNil())
	})

	It("reports a wrong code and lets the user resend after the cooldown", func() {
		engine.FieldChange(flow.FieldEmail, "lead@uni.edu")
		Expect(engine.Submit(ctx)).To(Succeed())
		Expect(engine.Confirm(ctx)).To(Succeed())

		engine.FieldChange(flow.FieldOTP, "000000")
		err := engine.Submit(ctx)
		Expect(gateway.HasCode(err, gateway.CodeOTPInvalid)).To(BeTrue())
		Expect(engine.CurrentStep().Name).To(Equal("otp"))
		Expect(env.recorder.Notices()).To(ContainElement(HaveField("Title", "Invalid OTP")))

		Expect(engine.Resend(ctx)).To(MatchError(flow.ErrCooldown))
		for range 5 {
			engine.Tick()
		}
		Expect(engine.Resend(ctx)).To(Succeed())
		Expect(env.backend.OTPsSent()).To(HaveLen(2))
	})
})

var _ = Describe("Sign in", func() {
	var (
		env *testEnv
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = newTestEnv()
		env.backend.AddAccount(gatewaytest.Account{
			Type:     flow.CategoryStudent,
			Email:    "ada@uni.edu",
			Password: strongPassword,
			Username: "ada",
		})
	})

	It("stores the session for valid credentials", func() {
		engine := env.engine(flow.SignIn())
		Expect(engine.Start(ctx)).To(Succeed())
		engine.FieldChange(flow.FieldEmail, "ada@uni.edu")
		engine.FieldChange(flow.FieldPassword, strongPassword)
		Expect(engine.Submit(ctx)).To(Succeed())

		Expect(engine.State().Done).NotTo(BeNil())
		Expect(env.recorder.Commits()).To(HaveLen(1))
		rec, err := env.store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.User.Username).To(Equal("ada"))
	})

	It("rejects a wrong password without storing anything", func() {
		engine := env.engine(flow.SignIn())
		Expect(engine.Start(ctx)).To(Succeed())
		engine.FieldChange(flow.FieldEmail, "ada@uni.edu")
		engine.FieldChange(flow.FieldPassword, "Wr0ng!Pass")
		err := engine.Submit(ctx)
		Expect(gateway.HasCode(err, gateway.CodeInvalidCredentials)).To(BeTrue())

		Expect(engine.State().Done).To(BeNil())
		Expect(engine.State().GlobalError).To(Equal("Invalid email or password"))
		Expect(env.recorder.Commits()).To(BeEmpty())
		Expect(env.store.Path()).NotTo(BeAnExistingFile())
	})
})

var _ = Describe("Password reset", func() {
	It("changes the password so the next sign-in uses it", func() {
		ctx := context.Background()
		env := newTestEnv()
		env.backend.AddAccount(gatewaytest.Account{
			Type:     flow.CategoryStudent,
			Email:    "ada@uni.edu",
			Password: "Old!Passw0rd",
		})

		reset := env.engine(flow.PasswordReset())
		Expect(reset.Start(ctx)).To(Succeed())
		reset.FieldChange(flow.FieldEmail, "ada@uni.edu")
		Expect(reset.Submit(ctx)).To(Succeed())
		Expect(reset.State().Draft.UserType).To(Equal(flow.CategoryStudent))

		reset.FieldChange(flow.FieldOTP, gatewaytest.DefaultOTP)
		Expect(reset.Submit(ctx)).To(Succeed())
		reset.FieldChange(flow.FieldPassword, strongPassword)
		reset.FieldChange(flow.FieldConfirmPassword, strongPassword)
		Expect(reset.Submit(ctx)).To(Succeed())

		done := reset.State().Done
		Expect(done).NotTo(BeNil())
		Expect(done.Action).To(Equal(flow.ActionRedirectSignIn))
		Expect(done.Session).To(BeNil())
		Expect(env.recorder.Notices()).To(ContainElement(HaveField("Title", "Password Reset")))

		signIn := env.engine(flow.SignIn())
		Expect(signIn.Start(ctx)).To(Succeed())
		signIn.FieldChange(flow.FieldEmail, "ada@uni.edu")
		signIn.FieldChange(flow.FieldPassword, strongPassword)
		Expect(signIn.Submit(ctx)).To(Succeed())
		Expect(signIn.State().Done).NotTo(BeNil())
	})

	It("stops at the email step for an unknown account", func() {
		ctx := context.Background()
		env := newTestEnv()

		reset := env.engine(flow.PasswordReset())
		Expect(reset.Start(ctx)).To(Succeed())
		reset.FieldChange(flow.FieldEmail, "ghost@uni.edu")
		err := reset.Submit(ctx)
		Expect(gateway.HasCode(err, gateway.CodeUserNotFound)).To(BeTrue())
		Expect(reset.CurrentStep().Name).To(Equal("email"))
		Expect(env.backend.Calls(gateway.PathGenerateOTP)).To(BeZero())
	})
})

var _ = Describe("Sign-in lockout", func() {
	It("surfaces the backend's rate limit message", func() {
		ctx := context.Background()
		env := newTestEnv()
		env.backend.AddAccount(gatewaytest.Account{Email: "ada@uni.edu", Password: strongPassword})

		engine := env.engine(flow.SignIn())
		Expect(engine.Start(ctx)).To(Succeed())
		engine.FieldChange(flow.FieldEmail, "ada@uni.edu")
		engine.FieldChange(flow.FieldPassword, "Wr0ng!Pass")

		var err error
		for range gatewaytest.LockoutThreshold {
			err = engine.Submit(ctx)
		}
		Expect(gateway.HasCode(err, gateway.CodeRateLimited)).To(BeTrue())
		Expect(engine.State().GlobalError).To(Equal("Too many attempts. Try again later."))
		Expect(engine.State().Loading).To(BeFalse())
	})
})

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/renegan/campusauth/internal/config"
	"github.com/renegan/campusauth/internal/flow"
	"github.com/renegan/campusauth/internal/gateway"
	"github.com/renegan/campusauth/internal/logging"
	"github.com/renegan/campusauth/internal/session"
	"github.com/renegan/campusauth/internal/tui"
	"github.com/renegan/campusauth/pkg/errutil"
)

const metricsShutdownTimeout = 5 * time.Second

type flowCommand struct {
	use   string
	short string
	long  string
}

var flowCommands = map[flow.Kind]flowCommand{
	flow.KindSignIn: {
		use:   "signin",
		short: "Sign in with your university email",
		long: `Sign in with your university email and password. On success the
session is saved to the session file.`,
	},
	flow.KindSignUp: {
		use:   "signup",
		short: "Create a new account",
		long: `Create a Renegan account. You choose an account type, confirm the
college behind your university email, verify a one-time code, pick a
password and add your details. The new session is saved on success.`,
	},
	flow.KindPasswordReset: {
		use:   "reset",
		short: "Reset a forgotten password",
		long: `Reset a forgotten password by verifying a one-time code sent to your
university email. Sign-in starts once the new password is set.`,
	},
}

func newFlowCmd(kind flow.Kind, deps *FlowDeps) *cobra.Command {
	meta := flowCommands[kind]
	return &cobra.Command{
		Use:   meta.use,
		Short: meta.short,
		Long:  meta.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFlow(cmd, kind, deps.withDefaults())
		},
	}
}

// flowEnv holds what every flow in one invocation shares.
type flowEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	gw     gateway.Gateway
	store  *session.Store
	run    FlowRunner
}

func runFlow(cmd *cobra.Command, kind flow.Kind, deps FlowDeps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	logFile, err := deps.LogWriterOpener(logPath)
	if err != nil {
		return oops.Code("LOG_FILE_OPEN_FAILED").With("path", logPath).Wrap(err)
	}
	defer func() { _ = logFile.Close() }()

	logger := logging.Setup(logging.Options{
		Service: "campusauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  logFile,
	})
	logger.Info("starting flow", "flow", kind, "base_url", cfg.BaseURL)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.MetricsAddr != "" {
		srv := deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool { return true }, logger)
		errCh, err := srv.Start()
		if err != nil {
			return err //nolint:wrapcheck // oops error from the server
		}
		go func() {
			for err := range errCh {
				errutil.LogError(logger, "metrics server error", err)
			}
		}()
		logger.Info("metrics server started", "addr", srv.Addr())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				errutil.LogWarn(logger, "metrics server shutdown failed", err)
			}
		}()
	}

	gw, err := deps.GatewayFactory(gateway.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: "campusauth/" + version,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		return err
	}

	env := flowEnv{
		cfg:    cfg,
		logger: logger,
		gw:     gw,
		store:  session.NewStore(sessionPath, logger),
		run:    deps.Runner,
	}
	return env.loop(ctx, cmd, kind)
}

// loop runs flows until one ends the invocation. A finished or abandoned
// password reset continues into sign-in.
func (env flowEnv) loop(ctx context.Context, cmd *cobra.Command, kind flow.Kind) error {
	for {
		res, err := env.runOne(ctx, kind)
		if err != nil {
			errutil.LogError(env.logger, "flow failed", err)
			return err
		}

		switch {
		case res.Quit:
			env.logger.Info("flow interrupted", "flow", kind)
			cmd.PrintErrln("Cancelled.")
			return nil

		case res.Exited:
			env.logger.Info("flow exited", "flow", kind)
			if kind == flow.KindPasswordReset {
				kind = flow.KindSignIn
				continue
			}
			return nil

		case res.Done != nil && res.Done.Action == flow.ActionRedirectSignIn:
			env.logger.Info("flow completed", "flow", kind, "action", res.Done.Action)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password updated. Sign in with your new password.")
			kind = flow.KindSignIn
			continue

		case res.Done != nil && res.Done.Action == flow.ActionSession:
			env.logger.Info("flow completed", "flow", kind, "action", res.Done.Action)
			user := res.Done.Session.User
			name := user.Username
			if name == "" {
				name = user.Email
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Signed in as %s.\n", name)
			_, _ = fmt.Fprintf(out, "Session saved to %s\n", env.store.Path())
			return nil

		default:
			return oops.Code("FLOW_UNFINISHED").With("flow", kind).Errorf("flow ended without a result")
		}
	}
}

func (env flowEnv) runOne(ctx context.Context, kind flow.Kind) (tui.Result, error) {
	def, ok := flow.ForKind(kind)
	if !ok {
		return tui.Result{}, oops.Code("FLOW_UNKNOWN").With("flow", kind).Errorf("unknown flow")
	}

	bridge := tui.NewBridge()
	notifier := session.Multi{session.NewLogNotifier(env.store, env.logger), bridge}
	engine, err := flow.NewEngine(def, env.gw, notifier,
		flow.WithLogger(env.logger),
		flow.WithCooldown(env.cfg.OTPCooldown),
		flow.WithObserver(bridge.Observe),
	)
	if err != nil {
		return tui.Result{}, err //nolint:wrapcheck // oops error from the engine
	}
	defer engine.Close()

	env.logger.Debug("flow started", "flow", kind, "flow_id", engine.ID())
	res, err := env.run(ctx, engine, bridge)
	if err != nil && !errors.Is(err, context.Canceled) {
		return tui.Result{}, oops.Code("FLOW_RUN_FAILED").With("flow", kind).Wrap(err)
	}
	if err != nil {
		return tui.Result{Quit: true}, nil
	}
	return res, nil
}


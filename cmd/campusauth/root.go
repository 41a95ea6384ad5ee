// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/renegan/campusauth/internal/config"
	"github.com/renegan/campusauth/internal/flow"
)

const configFlag = "config"

// NewRootCmd creates the root command for the campusauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&FlowDeps{})
}

func newRootCmd(deps *FlowDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campusauth",
		Short: "Sign up, sign in and reset passwords for Renegan",
		Long: `campusauth walks you through the Renegan account flows in the terminal:
registering with your university email, signing in, and resetting a
forgotten password. Signed-in sessions are stored for other tools to use.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(configFlag, "", "config file path (default: XDG_CONFIG_HOME/campusauth/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newFlowCmd(flow.KindSignIn, deps))
	cmd.AddCommand(newFlowCmd(flow.KindSignUp, deps))
	cmd.AddCommand(newFlowCmd(flow.KindPasswordReset, deps))
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig reads the config file named by --config, or the default one if
// it exists, and applies the command's flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString(configFlag)
	if err != nil {
		return nil, err //nolint:wrapcheck // flag is always registered
	}
	explicit := flags.Changed(configFlag)
	if path == "" {
		// Without a resolvable home there is simply no default file.
		if p, derr := config.DefaultPath(); derr == nil {
			path = p
		}
	}
	return config.Load(path, explicit, flags)
}

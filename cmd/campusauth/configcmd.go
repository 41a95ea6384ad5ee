// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/renegan/campusauth/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

// configPath returns the file --config names, or the default location.
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return "", err //nolint:wrapcheck // flag is always registered
	}
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err //nolint:wrapcheck // writer errors are reported as-is
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the config file",
		Long: `Print the JSON Schema that config files are checked against. Editors
that understand JSON Schema can use it to complete and check config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // oops error from config
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
				return err //nolint:wrapcheck // writer errors are reported as-is
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
			}
			if err := os.WriteFile(output, schema, 0o600); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", output)
			return err //nolint:wrapcheck // writer errors are reported as-is
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to this file instead of stdout")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Config OK (base_url: %s)\n", cfg.BaseURL)
			return err //nolint:wrapcheck // writer errors are reported as-is
		},
	}
}

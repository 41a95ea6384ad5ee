// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/renegan/campusauth/internal/config"
	"github.com/renegan/campusauth/internal/logging"
	"github.com/renegan/campusauth/internal/session"
)

// Output formats for the session command.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// SessionStatus is the printable view of a stored session.
type SessionStatus struct {
	SignedIn  bool       `json:"signed_in" yaml:"signed_in"`
	Path      string     `json:"path" yaml:"path"`
	UserID    string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Type      string     `json:"type,omitempty" yaml:"type,omitempty"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Username  string     `json:"username,omitempty" yaml:"username,omitempty"`
	FullName  string     `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	SavedAt   *time.Time `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool       `json:"expired" yaml:"expired"`
	Token     string     `json:"token,omitempty" yaml:"token,omitempty"`
}

type sessionConfig struct {
	format    string
	showToken bool
}

func newSessionCmd() *cobra.Command {
	cfg := &sessionConfig{}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		Long: `Show who is signed in according to the session file, and whether the
stored token has expired.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.format, "format", formatText, "output format (text, json, yaml)")
	cmd.Flags().BoolVar(&cfg.showToken, "show-token", false, "include the session token in the output")

	return cmd
}

func runSession(cmd *cobra.Command, cfg *sessionConfig) error {
	switch cfg.format {
	case formatText, formatJSON, formatYAML:
	default:
		return oops.Code("OUTPUT_FORMAT_INVALID").
			With("format", cfg.format).
			Errorf("output format must be text, json or yaml")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	status := SessionStatus{Path: store.Path()}
	rec, err := store.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
	case err != nil:
		return err //nolint:wrapcheck // oops error from the store
	default:
		status = statusFromRecord(store.Path(), rec, time.Now(), cfg.showToken)
	}

	var output string
	switch cfg.format {
	case formatJSON:
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("OUTPUT_ENCODE_FAILED").Wrap(err)
		}
		output = string(data) + "\n"
	case formatYAML:
		data, err := yaml.Marshal(status)
		if err != nil {
			return oops.Code("OUTPUT_ENCODE_FAILED").Wrap(err)
		}
		output = string(data)
	default:
		output = formatSessionTable(status)
	}

	_, err = io.WriteString(cmd.OutOrStdout(), output)
	return err //nolint:wrapcheck // writer errors are reported as-is
}

func statusFromRecord(path string, rec session.Record, now time.Time, showToken bool) SessionStatus {
	saved := rec.SavedAt
	status := SessionStatus{
		SignedIn:  true,
		Path:      path,
		UserID:    rec.User.ID,
		Type:      rec.User.Type,
		Email:     rec.User.Email,
		Username:  rec.User.Username,
		FullName:  rec.User.FullName,
		SavedAt:   &saved,
		ExpiresAt: rec.ExpiresAt,
		Expired:   rec.Expired(now),
	}
	if status.UserID == "" {
		status.UserID = rec.Subject
	}
	if showToken {
		status.Token = rec.Token
	}
	return status
}

// formatSessionTable formats the status as a human-readable table.
func formatSessionTable(s SessionStatus) string {
	if !s.SignedIn {
		return fmt.Sprintf("Not signed in (no session at %s)\n", s.Path)
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", label, value)
		}
	}
	row("USER", s.UserID)
	row("TYPE", s.Type)
	row("EMAIL", s.Email)
	row("USERNAME", s.Username)
	row("NAME", s.FullName)
	if s.SavedAt != nil {
		row("SAVED", s.SavedAt.Local().Format(time.RFC1123))
	}
	switch {
	case s.ExpiresAt == nil:
		row("EXPIRES", "never")
	case s.Expired:
		row("EXPIRES", s.ExpiresAt.Local().Format(time.RFC1123)+" (expired)")
	default:
		row("EXPIRES", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	row("TOKEN", s.Token)
	row("FILE", s.Path)
	_ = w.Flush()
	return buf.String()
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Long:  `Remove the session file so that no account is signed in.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			removed, err := store.Clear()
			if err != nil {
				return err //nolint:wrapcheck // oops error from the store
			}
			msg := "Not signed in."
			if removed {
				msg = "Signed out."
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err //nolint:wrapcheck // writer errors are reported as-is
		},
	}
}

func openStore(cmd *cobra.Command) (*session.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := stderrLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	path, err := cfg.SessionPath()
	if err != nil {
		return nil, err //nolint:wrapcheck // oops error from xdg
	}
	return session.NewStore(path, logger), nil
}

// stderrLogger logs to the command's error stream for commands that do not
// take over the terminal.
func stderrLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err //nolint:wrapcheck // oops error from logging
	}
	return logging.Setup(logging.Options{
		Service: "campusauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	}), nil
}

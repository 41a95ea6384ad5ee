// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

// Package config loads campusauth settings from defaults, an optional YAML
// file and command-line flags, in increasing priority.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/renegan/campusauth/internal/logging"
	"github.com/renegan/campusauth/internal/xdg"
)

// Defaults.
const (
	DefaultBaseURL     = "https://renegan-backend.onrender.com/"
	DefaultTimeout     = 15 * time.Second
	DefaultOTPCooldown = 30
	DefaultLogFormat   = logging.FormatText
	DefaultLogLevel    = "info"
)

// Config holds every campusauth setting.
type Config struct {
	BaseURL     string        `koanf:"base_url"`
	Timeout     time.Duration `koanf:"timeout"`
	OTPCooldown int           `koanf:"otp_cooldown"`
	SessionFile string        `koanf:"session_file"`
	MetricsAddr string        `koanf:"metrics_addr"`
	Log         LogConfig     `koanf:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	// File receives logs while a flow occupies the terminal.
	File string `koanf:"file"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"base-url":     "base_url",
	"timeout":      "timeout",
	"otp-cooldown": "otp_cooldown",
	"session-file": "session_file",
	"metrics-addr": "metrics_addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"log-file":     "log.file",
}

// RegisterFlags adds the config flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("base-url", DefaultBaseURL, "backend base URL")
	fs.Duration("timeout", DefaultTimeout, "timeout for each backend request")
	fs.Int("otp-cooldown", DefaultOTPCooldown, "seconds before a one-time code can be resent")
	fs.String("session-file", "", "session file path (default: XDG_STATE_HOME/campusauth/session.json)")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("log-file", "", "log file used while a flow runs (default: XDG_STATE_HOME/campusauth/campusauth.log)")
}

// Load builds the config. path is the YAML file to read; when explicit is
// false a missing file is ignored. flags may be nil.
func Load(path string, explicit bool, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"base_url":     DefaultBaseURL,
		"timeout":      DefaultTimeout.String(),
		"otp_cooldown": DefaultOTPCooldown,
		"session_file": "",
		"metrics_addr": "",
		"log.format":   DefaultLogFormat,
		"log.level":    DefaultLogLevel,
		"log.file":     "",
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			//nolint:gosec // path is the user's own config file
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, oops.Code("CONFIG_FILE_UNREADABLE").With("path", path).Wrap(err)
			}
			if err := ValidateFile(data); err != nil {
				return nil, oops.With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
			}
		case explicit || !errors.Is(statErr, fs.ErrNotExist):
			return nil, oops.Code("CONFIG_FILE_UNREADABLE").With("path", path).Wrap(statErr)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return oops.Code("CONFIG_INVALID").
			With("key", "base_url").
			With("value", c.BaseURL).
			Errorf("base_url must be an absolute http(s) URL")
	}
	if c.Timeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "timeout").
			Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.OTPCooldown < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "otp_cooldown").
			Errorf("otp_cooldown must not be negative, got %d", c.OTPCooldown)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// SessionPath returns the session file, defaulting to the XDG state dir.
func (c *Config) SessionPath() (string, error) {
	if strings.TrimSpace(c.SessionFile) != "" {
		return c.SessionFile, nil
	}
	return xdg.SessionFile()
}

// LogPath returns the flow log file, defaulting to the XDG state dir.
func (c *Config) LogPath() (string, error) {
	if strings.TrimSpace(c.Log.File) != "" {
		return c.Log.File, nil
	}
	return xdg.LogFile()
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	return xdg.ConfigFile()
}

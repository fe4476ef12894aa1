// Package appconfig loads the SDK's init configuration (appId/secretKey/
// version, log level and state directory; SPEC_FULL §2 A2). It carries no
// connection defaults. It merges a TOML config
// file, a .env/.env.local overlay, environment variables, and explicit
// caller overrides, in that precedence — the same layering
// internal/dirstral/config.Load uses for the teacher's own settings.
package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FieldSource records where a configuration value came from, mirroring the
// teacher's FieldInfo/FieldSource provenance tracking.
type FieldSource string

const (
	SourceDefault     FieldSource = "default"
	SourceConfigFile  FieldSource = "config.toml"
	SourceDotEnv      FieldSource = ".env"
	SourceDotEnvLocal FieldSource = ".env.local"
	SourceEnv         FieldSource = "env"
	SourceOverride    FieldSource = "override"
)

// FieldInfo describes one configurable field and its provenance, exposed
// so a CLI's `config` subcommand can show the user where each value came
// from (same shape as the teacher's EffectiveFields).
type FieldInfo struct {
	Key       string
	Value     string
	Source    FieldSource
	Sensitive bool
}

// InitOptions is the SDK's Init() argument (SPEC §6, SPEC_FULL §3).
type InitOptions struct {
	AppID     string `toml:"app_id"`
	SecretKey string `toml:"secret_key"`
	Version   string `toml:"version"`
	LogLevel  string `toml:"log_level"`
	StateDir  string `toml:"state_dir"`
}

const (
	envAppID     = "TAPLINK_APP_ID"
	envSecretKey = "TAPLINK_SECRET_KEY"
	envVersion   = "TAPLINK_VERSION"
	envLogLevel  = "TAPLINK_LOG_LEVEL"
	envStateDir  = "TAPLINK_STATE_DIR"

	defaultVersion  = "1.0"
	defaultLogLevel = "info"
)

func defaults() InitOptions {
	return InitOptions{
		Version:  defaultVersion,
		LogLevel: defaultLogLevel,
	}
}

// ConfigDir returns the platform config directory for the SDK, creating it
// if absent (mirrors the teacher's StateDir).
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "taplink-connect")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func configPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load resolves InitOptions by merging, in increasing precedence: built-in
// defaults, config.toml, .env then .env.local, process environment
// variables, and finally the caller-supplied override.
func Load(override InitOptions) (InitOptions, error) {
	if err := loadDotEnvPrecedence(); err != nil {
		return InitOptions{}, err
	}

	opts := defaults()
	if err := mergeConfigFile(&opts); err != nil {
		return InitOptions{}, err
	}
	mergeEnv(&opts)
	mergeOverride(&opts, override)

	if opts.StateDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return InitOptions{}, err
		}
		opts.StateDir = dir
	}
	if opts.AppID == "" {
		return InitOptions{}, errors.New("appconfig: appId is required")
	}
	if opts.SecretKey == "" {
		return InitOptions{}, errors.New("appconfig: secretKey is required")
	}
	return opts, nil
}

func loadDotEnvPrecedence() error {
	// .env.local is read first so that its keys are set before .env is
	// consulted; a key already present in the environment is never replaced.
	for _, name := range []string{".env.local", ".env"} {
		values, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				if err := os.Setenv(k, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func mergeConfigFile(opts *InitOptions) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	_, err = toml.DecodeFile(path, opts)
	return err
}

func mergeEnv(opts *InitOptions) {
	if v := strings.TrimSpace(os.Getenv(envAppID)); v != "" {
		opts.AppID = v
	}
	if v := strings.TrimSpace(os.Getenv(envSecretKey)); v != "" {
		opts.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv(envVersion)); v != "" {
		opts.Version = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		opts.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(envStateDir)); v != "" {
		opts.StateDir = v
	}
}

func mergeOverride(opts *InitOptions, override InitOptions) {
	if override.AppID != "" {
		opts.AppID = override.AppID
	}
	if override.SecretKey != "" {
		opts.SecretKey = override.SecretKey
	}
	if override.Version != "" {
		opts.Version = override.Version
	}
	if override.LogLevel != "" {
		opts.LogLevel = override.LogLevel
	}
	if override.StateDir != "" {
		opts.StateDir = override.StateDir
	}
}

// fieldDef backs EffectiveFields, mirroring the teacher's own table.
type fieldDef struct {
	Key       string
	EnvVar    string
	Sensitive bool
}

var fieldDefs = []fieldDef{
	{Key: "app_id", EnvVar: envAppID},
	{Key: "secret_key", EnvVar: envSecretKey, Sensitive: true},
	{Key: "version", EnvVar: envVersion},
	{Key: "log_level", EnvVar: envLogLevel},
	{Key: "state_dir", EnvVar: envStateDir},
}

func fieldValue(opts InitOptions, key string) string {
	switch key {
	case "app_id":
		return opts.AppID
	case "secret_key":
		return opts.SecretKey
	case "version":
		return opts.Version
	case "log_level":
		return opts.LogLevel
	case "state_dir":
		return opts.StateDir
	default:
		return ""
	}
}

// EffectiveFields reports each field's resolved value, redacting sensitive
// fields. Source is SourceEnv when the field's environment variable is set
// (including values copied into the environment from .env/.env.local) and
// SourceDefault otherwise; values taken from config.toml or from a caller
// override are also reported as SourceDefault.
func EffectiveFields(opts InitOptions) []FieldInfo {
	out := make([]FieldInfo, 0, len(fieldDefs))
	for _, fd := range fieldDefs {
		value := fieldValue(opts, fd.Key)
		source := SourceDefault
		if os.Getenv(fd.EnvVar) != "" {
			source = SourceEnv
		}
		if fd.Sensitive && value != "" {
			value = "********"
		}
		out = append(out, FieldInfo{Key: fd.Key, Value: value, Source: source, Sensitive: fd.Sensitive})
	}
	return out
}

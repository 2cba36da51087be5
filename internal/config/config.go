// Package config loads CleanSlate's runtime configuration from the
// environment. Invalid or missing required values are startup errors; nothing
// in here is re-read after process start.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ConfigError reports an invalid or missing configuration value. It is always
// fatal: main exits rather than running with a half-formed config.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config holds the full runtime configuration for the service.
type Config struct {
	Address         string
	WatchDir        string
	OutputDir       string
	RemoteName      string
	RemotePath      string
	AuditEnabled    bool
	ProjectID       string
	CredentialsFile string
	SettleDelay     time.Duration
	Verbose         bool
}

const (
	defaultAddress     = ":8000"
	defaultWatchDir    = "/data/watch"
	defaultOutputDir   = "/data/clean"
	defaultRemoteName  = "gdrive"
	defaultRemotePath  = "backups"
	defaultSettleDelay = 500 * time.Millisecond
)

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:         readEnv("CLEANSLATE_ADDRESS", defaultAddress),
		WatchDir:        readEnv("CLEANSLATE_WATCH_DIR", defaultWatchDir),
		OutputDir:       readEnv("CLEANSLATE_OUTPUT_DIR", defaultOutputDir),
		RemoteName:      readEnv("CLEANSLATE_REMOTE_NAME", defaultRemoteName),
		RemotePath:      readEnv("CLEANSLATE_REMOTE_PATH", defaultRemotePath),
		ProjectID:       readEnv("CLEANSLATE_PROJECT_ID", ""),
		CredentialsFile: readEnv("CLEANSLATE_CREDENTIALS_FILE", ""),
	}

	var err error
	if cfg.AuditEnabled, err = parseBool("CLEANSLATE_AUDIT_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = parseBool("CLEANSLATE_VERBOSE", false); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = parseDuration("CLEANSLATE_SETTLE_DELAY", defaultSettleDelay); err != nil {
		return nil, err
	}

	if cfg.WatchDir == "" {
		return nil, &ConfigError{Key: "CLEANSLATE_WATCH_DIR", Reason: "must not be empty"}
	}
	if cfg.OutputDir == "" {
		return nil, &ConfigError{Key: "CLEANSLATE_OUTPUT_DIR", Reason: "must not be empty"}
	}
	if cfg.RemoteName == "" {
		return nil, &ConfigError{Key: "CLEANSLATE_REMOTE_NAME", Reason: "must not be empty"}
	}
	if cfg.AuditEnabled && cfg.ProjectID == "" {
		return nil, &ConfigError{
			Key:    "CLEANSLATE_PROJECT_ID",
			Reason: "required when CLEANSLATE_AUDIT_ENABLED is true",
		}
	}
	if cfg.SettleDelay < 0 {
		return nil, &ConfigError{Key: "CLEANSLATE_SETTLE_DELAY", Reason: "must not be negative"}
	}

	return cfg, nil
}

// RemoteDest returns the rclone destination string ("name:path"). It is built
// once from config and reused for every processed file.
func (c *Config) RemoteDest() string {
	return c.RemoteName + ":" + c.RemotePath
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "on": true, "y": true, "t": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "off": true, "n": true, "f": true}
)

func parseBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	normalized := strings.ToLower(strings.TrimSpace(v))
	if truthy[normalized] {
		return true, nil
	}
	if falsy[normalized] {
		return false, nil
	}
	return false, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid boolean %q", v)}
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("invalid duration %q", v)}
	}
	return parsed, nil
}

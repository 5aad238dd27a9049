// Package config provides configuration management for the triage tools.
//
// Values are resolved in order: built-in defaults, an optional TOML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"buildtriage/src/analyze"
	"buildtriage/src/ingest"
	"buildtriage/src/store"
	"buildtriage/src/taskctx"
)

// Environment variables read by LoadFromEnv.
const (
	EnvConfigFile    = "TRIAGE_CONFIG"
	EnvRetentionDays = "TRIAGE_RETENTION_DAYS"
	EnvLogLevel      = "TRIAGE_LOG_LEVEL"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvBrokers       = "REDPANDA_BROKERS"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvMetricsFile   = "TRIAGE_METRICS_FILE"
)

const (
	// DefaultJenkinsURL is used to build links when no Jenkins URL is configured.
	DefaultJenkinsURL = "http://localhost:8080"
	// DefaultGCInterval is the number of builds between forced garbage collections.
	DefaultGCInterval = 100
	// DefaultExportTimeout bounds the mirror write and event publishing of one run.
	DefaultExportTimeout = 30 * time.Second
)

// Config holds the application configuration.
type Config struct {
	// RetentionDays is how long classified builds stay in the cache.
	RetentionDays int `toml:"retention_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// JenkinsURL prefixes the links in build hierarchies.
	JenkinsURL string `toml:"jenkins_url"`

	Scan    ScanConfig    `toml:"scan"`
	Outputs OutputsConfig `toml:"outputs"`
}

// ScanConfig controls how a build is read and classified.
type ScanConfig struct {
	// LogFiles are the console log names read from each build directory.
	LogFiles []string `toml:"log_files"`

	// PostBuildMarker cuts the log; later lines are ignored.
	PostBuildMarker string `toml:"post_build_marker"`

	// TerminalTasks end a deployment; task failures after them are not reported.
	TerminalTasks []string `toml:"terminal_tasks"`

	// SlowDetector and SlowBuild are the warning thresholds, e.g. "1s".
	SlowDetector time.Duration `toml:"slow_detector"`
	SlowBuild    time.Duration `toml:"slow_build"`

	// GCInterval forces a garbage collection every N builds; 0 disables it.
	GCInterval int `toml:"gc_interval"`
}

// OutputsConfig lists the optional sinks next to the JSON cache.
type OutputsConfig struct {
	// Brokers are Redpanda seed addresses; empty disables event publishing.
	Brokers []string `toml:"brokers"`

	// PostgresDSN enables the SQL mirror of the cache.
	PostgresDSN string `toml:"postgres_dsn"`

	// MetricsFile is a node-exporter textfile the run metrics are written to.
	MetricsFile string `toml:"metrics_file"`

	// ExportTimeout bounds the mirror write and event publishing, e.g. "30s".
	ExportTimeout time.Duration `toml:"export_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RetentionDays: store.DefaultRetentionDays,
		LogLevel:      "info",
		JenkinsURL:    DefaultJenkinsURL,
		Scan: ScanConfig{
			LogFiles:        append([]string(nil), ingest.DefaultLogFiles...),
			PostBuildMarker: ingest.PostBuildMarker,
			TerminalTasks:   []string{taskctx.DefaultTerminalTask},
			SlowDetector:    analyze.DefaultSlowDetector,
			SlowBuild:       analyze.DefaultSlowBuild,
			GCInterval:      DefaultGCInterval,
		},
		Outputs: OutputsConfig{
			ExportTimeout: DefaultExportTimeout,
		},
	}
}

// Load resolves the configuration. path may be empty, in which case TRIAGE_CONFIG
// is consulted; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overrides fields from environment variables that are set.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvRetentionDays); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", EnvRetentionDays, err)
		}
		c.RetentionDays = days
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvJenkinsURL); v != "" {
		c.JenkinsURL = v
	}
	if v := os.Getenv(EnvBrokers); v != "" {
		c.Outputs.Brokers = splitList(v)
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Outputs.PostgresDSN = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		c.Outputs.MetricsFile = v
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("retention_days must be positive, got %d", c.RetentionDays))
	}
	if c.Scan.SlowDetector <= 0 {
		errs = append(errs, fmt.Errorf("scan.slow_detector must be positive, got %s", c.Scan.SlowDetector))
	}
	if c.Scan.SlowBuild <= 0 {
		errs = append(errs, fmt.Errorf("scan.slow_build must be positive, got %s", c.Scan.SlowBuild))
	}
	if c.Scan.GCInterval < 0 {
		errs = append(errs, fmt.Errorf("scan.gc_interval must not be negative, got %d", c.Scan.GCInterval))
	}
	if c.Outputs.ExportTimeout <= 0 {
		errs = append(errs, fmt.Errorf("outputs.export_timeout must be positive, got %s", c.Outputs.ExportTimeout))
	}
	if len(c.Scan.LogFiles) == 0 {
		errs = append(errs, errors.New("scan.log_files must not be empty"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

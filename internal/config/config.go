// Package config loads misp-purge settings from an optional TOML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultChunkSize is the number of event IDs sent per bulk delete.
const DefaultChunkSize = 100

type Config struct {
	MISPURL     string   `toml:"misp_url"`     // MISP_URL (required)
	MISPKey     string   `toml:"misp_key"`     // MISP_KEY (required)
	VerifyCert  bool     `toml:"verify_cert"`  // MISP_VERIFY_CERT (default true)
	ExcludeOrgs []string `toml:"exclude_orgs"` // MISP_PURGE_EXCLUDE_ORGS (comma separated)
	ChunkSize   int      `toml:"chunk_size"`   // MISP_PURGE_CHUNK_SIZE (default 100)
	LockFile    string   `toml:"lock_file"`    // MISP_PURGE_LOCK_FILE (default $TMPDIR/misp-purge.lock)

	// Pacing
	PauseOnFailure    Duration `toml:"pause_on_failure"`    // MISP_PURGE_PAUSE_ON_FAILURE (default 6m)
	PauseInterval     Duration `toml:"pause_interval"`      // MISP_PURGE_PAUSE_INTERVAL (default 2m)
	PauseEvery        int      `toml:"pause_every"`         // MISP_PURGE_PAUSE_EVERY (default 10 chunks)
	MaxFailedAttempts int      `toml:"max_failed_attempts"` // MISP_PURGE_MAX_FAILED (default 3)
	CountRejected     bool     `toml:"count_rejected"`      // MISP_PURGE_COUNT_REJECTED (default false)

	// Optional sinks
	NATSURL     string `toml:"nats_url"`     // MISP_PURGE_NATS_URL (empty = no events)
	DatabaseURL string `toml:"database_url"` // MISP_PURGE_DATABASE_URL (empty = no run ledger)

	Report ReportConfig `toml:"report"`
}

// ReportConfig selects where JSONL run reports are archived.
type ReportConfig struct {
	Dir        string `toml:"dir"`         // MISP_PURGE_REPORT_DIR
	S3Bucket   string `toml:"s3_bucket"`   // MISP_PURGE_REPORT_S3_BUCKET (enables S3 when set)
	S3Prefix   string `toml:"s3_prefix"`   // MISP_PURGE_REPORT_S3_PREFIX (default "misp-purge/")
	S3Region   string `toml:"s3_region"`   // MISP_PURGE_REPORT_S3_REGION (default "us-east-1")
	S3Endpoint string `toml:"s3_endpoint"` // MISP_PURGE_REPORT_S3_ENDPOINT (custom endpoint for MinIO)
	GitRepo    string `toml:"git_repo"`    // MISP_PURGE_REPORT_GIT_REPO (enables git when set)
	GitDir     string `toml:"git_dir"`     // MISP_PURGE_REPORT_GIT_DIR (default "runs")
	GitBranch  string `toml:"git_branch"`  // MISP_PURGE_REPORT_GIT_BRANCH (default "main")
}

// Duration is a time.Duration that decodes from a TOML string like "6m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaults() Config {
	return Config{
		VerifyCert:        true,
		ChunkSize:         DefaultChunkSize,
		PauseOnFailure:    Duration{360 * time.Second},
		PauseInterval:     Duration{120 * time.Second},
		PauseEvery:        10,
		MaxFailedAttempts: 3,
		Report: ReportConfig{
			S3Prefix:  "misp-purge/",
			S3Region:  "us-east-1",
			GitDir:    "runs",
			GitBranch: "main",
		},
	}
}

// Load builds and validates the configuration for a purge run.
func Load(path string) (*Config, error) {
	c, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read builds the configuration without requiring the MISP settings, for
// commands that only talk to the ledger or the event bus. path names a TOML
// file; an empty path falls back to MISP_PURGE_CONFIG. A missing file is
// only an error when it was asked for explicitly.
func Read(path string) (*Config, error) {
	c := defaults()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("MISP_PURGE_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "misp-purge.toml"
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	c.MISPURL = envOrDefault("MISP_URL", c.MISPURL)
	c.MISPKey = envOrDefault("MISP_KEY", c.MISPKey)
	c.LockFile = envOrDefault("MISP_PURGE_LOCK_FILE", c.LockFile)
	c.NATSURL = envOrDefault("MISP_PURGE_NATS_URL", c.NATSURL)
	c.DatabaseURL = envOrDefault("MISP_PURGE_DATABASE_URL", c.DatabaseURL)

	c.Report.Dir = envOrDefault("MISP_PURGE_REPORT_DIR", c.Report.Dir)
	c.Report.S3Bucket = envOrDefault("MISP_PURGE_REPORT_S3_BUCKET", c.Report.S3Bucket)
	c.Report.S3Prefix = envOrDefault("MISP_PURGE_REPORT_S3_PREFIX", c.Report.S3Prefix)
	c.Report.S3Region = envOrDefault("MISP_PURGE_REPORT_S3_REGION", c.Report.S3Region)
	c.Report.S3Endpoint = envOrDefault("MISP_PURGE_REPORT_S3_ENDPOINT", c.Report.S3Endpoint)
	c.Report.GitRepo = envOrDefault("MISP_PURGE_REPORT_GIT_REPO", c.Report.GitRepo)
	c.Report.GitDir = envOrDefault("MISP_PURGE_REPORT_GIT_DIR", c.Report.GitDir)
	c.Report.GitBranch = envOrDefault("MISP_PURGE_REPORT_GIT_BRANCH", c.Report.GitBranch)

	if v := os.Getenv("MISP_PURGE_EXCLUDE_ORGS"); v != "" {
		c.ExcludeOrgs = splitList(v)
	}

	var err error
	if c.VerifyCert, err = envBool("MISP_VERIFY_CERT", c.VerifyCert); err != nil {
		return err
	}
	if c.CountRejected, err = envBool("MISP_PURGE_COUNT_REJECTED", c.CountRejected); err != nil {
		return err
	}
	if c.ChunkSize, err = envInt("MISP_PURGE_CHUNK_SIZE", c.ChunkSize); err != nil {
		return err
	}
	if c.PauseEvery, err = envInt("MISP_PURGE_PAUSE_EVERY", c.PauseEvery); err != nil {
		return err
	}
	if c.MaxFailedAttempts, err = envInt("MISP_PURGE_MAX_FAILED", c.MaxFailedAttempts); err != nil {
		return err
	}
	if c.PauseOnFailure.Duration, err = envDuration("MISP_PURGE_PAUSE_ON_FAILURE", c.PauseOnFailure.Duration); err != nil {
		return err
	}
	if c.PauseInterval.Duration, err = envDuration("MISP_PURGE_PAUSE_INTERVAL", c.PauseInterval.Duration); err != nil {
		return err
	}
	return nil
}

// Validate checks required settings and ranges.
func (c *Config) Validate() error {
	if c.MISPURL == "" {
		return fmt.Errorf("MISP_URL (misp_url) is required")
	}
	if c.MISPKey == "" {
		return fmt.Errorf("MISP_KEY (misp_key) is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.PauseOnFailure.Duration <= 0 {
		return fmt.Errorf("pause_on_failure must be positive, got %s", c.PauseOnFailure.Duration)
	}
	if c.PauseInterval.Duration <= 0 {
		return fmt.Errorf("pause_interval must be positive, got %s", c.PauseInterval.Duration)
	}
	if c.PauseEvery <= 0 {
		return fmt.Errorf("pause_every must be positive, got %d", c.PauseEvery)
	}
	if c.MaxFailedAttempts <= 0 {
		return fmt.Errorf("max_failed_attempts must be positive, got %d", c.MaxFailedAttempts)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

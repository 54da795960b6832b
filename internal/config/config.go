// Package config loads repoclassify settings from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".repoclassify.yaml"

// Config holds all configuration for repoclassify.
type Config struct {
	Forge    ForgeConfig    `yaml:"forge"`
	Source   SourceConfig   `yaml:"source"`
	Walk     WalkConfig     `yaml:"walk"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Report   ReportConfig   `yaml:"report"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ForgeConfig holds settings for the hosted contents API.
type ForgeConfig struct {
	APIURL  string `yaml:"api_url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout"` // Go duration; "0" or "" means no timeout
}

// SourceConfig selects how repositories are obtained.
type SourceConfig struct {
	Mode    string `yaml:"mode"`     // "clone" or "remote"
	Cloner  string `yaml:"cloner"`   // "git" or "go-git"
	Depth   int    `yaml:"depth"`    // 0 clones full history
	TempDir string `yaml:"temp_dir"` // parent of clone workspaces, "" for the system default
}

// WalkConfig narrows which files are listed.
type WalkConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// AnalysisConfig controls per-file processing.
type AnalysisConfig struct {
	ParsePolicy string `yaml:"parse_policy"` // "fallback" or "skip"
	MaxFileSize int    `yaml:"max_file_size"`
}

// StorageConfig holds the results database. An empty DSN disables storage.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	Output string `yaml:"output"` // file path or s3://bucket/key; "" for stdout
	Format string `yaml:"format"` // "text" or "toon"
}

// ArtifactConfig holds S3-compatible object storage settings.
type ArtifactConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Forge: ForgeConfig{
			APIURL:  "https://api.github.com",
			Timeout: "0",
		},
		Source: SourceConfig{
			Mode:   "clone",
			Cloner: "git",
		},
		Analysis: AnalysisConfig{
			ParsePolicy: "fallback",
			MaxFileSize: 1_000_000,
		},
		Report: ReportConfig{
			Format: "text",
		},
		Artifact: ArtifactConfig{
			Region: "us-east-1",
			Bucket: "repoclassify-reports",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads FileName from dir, or returns the defaults.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables read with getenv.
// Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Forge.Token, "GITHUB_TOKEN")
	set(&c.Forge.APIURL, "REPOCLASSIFY_API_URL")
	set(&c.Storage.DSN, "REPOCLASSIFY_DSN")
	set(&c.Artifact.Endpoint, "ARTIFACT_S3_ENDPOINT")
	set(&c.Artifact.Region, "ARTIFACT_S3_REGION")
	set(&c.Artifact.AccessKey, "ARTIFACT_S3_ACCESS_KEY")
	set(&c.Artifact.SecretKey, "ARTIFACT_S3_SECRET_KEY")
	set(&c.Artifact.Bucket, "ARTIFACT_S3_BUCKET")
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv("ARTIFACT_S3_USE_SSL"))); err == nil {
		c.Artifact.UseSSL = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Source.Mode {
	case "clone", "remote":
	default:
		return fmt.Errorf("source.mode: unknown mode %q (want clone or remote)", c.Source.Mode)
	}
	switch c.Source.Cloner {
	case "git", "go-git":
	default:
		return fmt.Errorf("source.cloner: unknown cloner %q (want git or go-git)", c.Source.Cloner)
	}
	switch c.Analysis.ParsePolicy {
	case "fallback", "skip":
	default:
		return fmt.Errorf("analysis.parse_policy: unknown policy %q (want fallback or skip)", c.Analysis.ParsePolicy)
	}
	switch c.Report.Format {
	case "text", "toon":
	default:
		return fmt.Errorf("report.format: unknown format %q (want text or toon)", c.Report.Format)
	}
	if c.Analysis.MaxFileSize < 0 {
		return fmt.Errorf("analysis.max_file_size: must not be negative")
	}
	if _, err := c.ForgeTimeout(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ForgeTimeout parses Forge.Timeout. Zero means no timeout.
func (c *Config) ForgeTimeout() (time.Duration, error) {
	s := strings.TrimSpace(c.Forge.Timeout)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("forge.timeout: %w", err)
	}
	return d, nil
}

// ArtifactEnabled reports whether object storage credentials are present.
func (c *Config) ArtifactEnabled() bool {
	return c.Artifact.Endpoint != "" && c.Artifact.AccessKey != "" && c.Artifact.SecretKey != ""
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging.level: unknown level %q", s)
}

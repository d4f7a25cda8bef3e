// Package config provides configuration for the txguard binary.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors"
)

// Artifact source types.
const (
	SourceLocal = "local"
	SourceS3    = "s3"
)

// Config holds the configuration for all commands.
type Config struct {
	// HTTP server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Artifacts locates the model and scaler
	Artifacts ArtifactsConfig `json:"artifacts" yaml:"artifacts"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`

	// Dashboard configuration
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`

	// Training configuration for the train command
	Training detectors.Config `json:"training" yaml:"training"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ArtifactsConfig locates the serialized model and scaler.
type ArtifactsConfig struct {
	// Source is local or s3
	Source string `json:"source" yaml:"source"`

	// Dir is the local directory holding the artifacts
	Dir string `json:"dir" yaml:"dir"`

	// ModelFile is the model artifact name
	ModelFile string `json:"model_file" yaml:"model_file"`

	// ScalerFile is the scaler artifact name
	ScalerFile string `json:"scaler_file" yaml:"scaler_file"`

	// S3 configuration (for s3 source)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 artifact store configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Prefix       string `json:"prefix" yaml:"prefix"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is a logrus level name
	Level string `json:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format"`
}

// DashboardConfig holds batch dashboard configuration.
type DashboardConfig struct {
	// PreviewRows is the number of rows shown in previews
	PreviewRows int `json:"preview_rows" yaml:"preview_rows"`

	// MaxUploadBytes caps the uploaded CSV size
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			Source:     SourceLocal,
			Dir:        "models",
			ModelFile:  "isolation_forest.gob",
			ScalerFile: "scaler.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Dashboard: DashboardConfig{
			PreviewRows:    5,
			MaxUploadBytes: 64 << 20,
		},
		Training: detectors.DefaultConfig(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Artifacts.Source {
	case SourceLocal:
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("artifacts.dir is required when source is local")
		}
	case SourceS3:
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts.s3.bucket is required when source is s3")
		}
	default:
		return fmt.Errorf("invalid artifacts.source: %s (must be local or s3)", c.Artifacts.Source)
	}

	if c.Artifacts.ModelFile == "" || c.Artifacts.ScalerFile == "" {
		return fmt.Errorf("artifacts.model_file and artifacts.scaler_file are required")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %s (must be text or json)", c.Log.Format)
	}

	if c.Dashboard.PreviewRows <= 0 {
		return fmt.Errorf("dashboard.preview_rows must be positive, got %d", c.Dashboard.PreviewRows)
	}
	if c.Dashboard.MaxUploadBytes <= 0 {
		return fmt.Errorf("dashboard.max_upload_bytes must be positive, got %d", c.Dashboard.MaxUploadBytes)
	}

	if err := c.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv applies TXGUARD_* environment variables to cfg.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("TXGUARD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TXGUARD_READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TXGUARD_READ_TIMEOUT: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}
	if v := os.Getenv("TXGUARD_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TXGUARD_WRITE_TIMEOUT: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	// Artifacts
	if v := os.Getenv("TXGUARD_ARTIFACTS_SOURCE"); v != "" {
		cfg.Artifacts.Source = v
	}
	if v := os.Getenv("TXGUARD_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("TXGUARD_MODEL_FILE"); v != "" {
		cfg.Artifacts.ModelFile = v
	}
	if v := os.Getenv("TXGUARD_SCALER_FILE"); v != "" {
		cfg.Artifacts.ScalerFile = v
	}
	if v := os.Getenv("TXGUARD_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3.Bucket = v
	}
	if v := os.Getenv("TXGUARD_S3_PREFIX"); v != "" {
		cfg.Artifacts.S3.Prefix = v
	}
	if v := os.Getenv("TXGUARD_S3_REGION"); v != "" {
		cfg.Artifacts.S3.Region = v
	}
	if v := os.Getenv("TXGUARD_S3_ENDPOINT"); v != "" {
		cfg.Artifacts.S3.Endpoint = v
	}
	if v := os.Getenv("TXGUARD_S3_PATH_STYLE"); v != "" {
		cfg.Artifacts.S3.UsePathStyle = v == "true" || v == "1"
	}

	// Logging
	if v := os.Getenv("TXGUARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TXGUARD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Dashboard
	if v := os.Getenv("TXGUARD_PREVIEW_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TXGUARD_PREVIEW_ROWS: %w", err)
		}
		cfg.Dashboard.PreviewRows = n
	}

	return nil
}

// Load builds the effective configuration: defaults, then the optional file,
// then .env files, then environment variables.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(dotenv...); err != nil {
		return nil, err
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

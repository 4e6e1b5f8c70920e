package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds connection settings for the backend API.
type ServerConfig struct {
	URL      string        `yaml:"url"`      // API base URL, e.g. https://admin.example.net
	Token    string        `yaml:"token"`    // bearer token from the last login
	Operator string        `yaml:"operator"` // operator name shown in the dashboard status bar
	Timeout  time.Duration `yaml:"timeout"`  // per-request timeout
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Mode       string `yaml:"mode"` // development|production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// TelemetryConfig controls the live polling loop and the local sample archive.
type TelemetryConfig struct {
	Interval    time.Duration `yaml:"interval"`     // poll tick interval
	BufferSize  int           `yaml:"buffer_size"`  // samples kept per series
	ArchivePath string        `yaml:"archive_path"` // tstorage data dir, empty disables archiving
}

// SandboxConfig controls the embedded development backend.
type SandboxConfig struct {
	Listen string `yaml:"listen"`
	DBFile string `yaml:"db_file"`
	Secret string `yaml:"secret"` // HS256 signing secret for session tokens
}

// AppConfig is the root configuration document.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
}

// DefaultConfig returns the configuration used when no config file exists yet.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			URL:     "http://127.0.0.1:8600",
			Timeout: 15 * time.Second,
		},
		Logger: LoggerConfig{
			Mode: "development",
		},
		Telemetry: TelemetryConfig{
			Interval:   2 * time.Second,
			BufferSize: 30,
		},
		Sandbox: SandboxConfig{
			Listen: "127.0.0.1:8600",
			DBFile: "ispadm-sandbox.db",
			Secret: "ispadm-sandbox-secret",
		},
	}
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "ispadm")
}

// Load reads the YAML config at path, falling back to defaults for any
// unset section. A missing file is not an error.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 15 * time.Second
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = 2 * time.Second
	}
	if cfg.Telemetry.BufferSize <= 0 {
		cfg.Telemetry.BufferSize = 30
	}
	return cfg, nil
}

// Save writes the config back to path, creating parent directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

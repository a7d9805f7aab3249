// Package config loads storypack settings from a TOML file and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains log output configuration.
type Logging struct {
	Level string `toml:"level"`
}

// Build contains pack encoding configuration.
type Build struct {
	Enriched           bool `toml:"enriched"`
	LockTimeoutSeconds int  `toml:"lock_timeout_seconds"`
	VerifyAfterBuild   bool `toml:"verify_after_build"`
}

// Config is the full storypack configuration.
type Config struct {
	Logging Logging `toml:"logging"`
	Build   Build   `toml:"build"`
}

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"off":   true,
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: Logging{Level: "warn"},
		Build: Build{
			VerifyAfterBuild: true,
		},
	}
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "storypack", "config.toml"), nil
}

// Load reads the configuration file at path, or the default location when
// path is empty, then applies environment overrides. A missing default file
// is not an error; a missing explicit file is.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if path != "" && !exists {
		return nil, "", fmt.Errorf("config %s: %w", resolvedPath, fs.ErrNotExist)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if projectPath, err := filepath.Abs("storypack.toml"); err == nil {
			if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
				return projectPath, true, nil
			}
		}
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config %s is a directory", path)
	}
	return path, true, nil
}

func (c *Config) applyEnv() error {
	if level := strings.TrimSpace(os.Getenv("STORYPACK_LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if raw := strings.TrimSpace(os.Getenv("STORYPACK_ENRICHED")); raw != "" {
		enriched, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("STORYPACK_ENRICHED: %w", err)
		}
		c.Build.Enriched = enriched
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	level := strings.ToLower(c.Logging.Level)
	if strings.HasPrefix(level, "json") {
		level = strings.TrimPrefix(strings.TrimPrefix(level, "json"), ":")
		if level == "" {
			level = "info"
		}
	}
	if !validLevels[level] {
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error, off", c.Logging.Level)
	}
	if c.Build.LockTimeoutSeconds < 0 {
		return fmt.Errorf("build.lock_timeout_seconds must not be negative, got %d", c.Build.LockTimeoutSeconds)
	}
	return nil
}

// LockTimeout returns the destination lock wait as a duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Build.LockTimeoutSeconds) * time.Second
}

// SampleConfig returns the documented sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

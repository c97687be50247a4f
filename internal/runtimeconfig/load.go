package runtimeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvStorageDriver = "MICROSITE_STORAGE_DRIVER"
	EnvStorageDSN    = "MICROSITE_STORAGE_DSN"
	EnvOutputDir     = "MICROSITE_OUTPUT_DIR"
	EnvLogLevel      = "MICROSITE_LOG_LEVEL"
	EnvMetrics       = "MICROSITE_METRICS_ENABLED"
)

// DefaultEnvFiles are loaded, when present, before the config file is read.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Load reads the YAML file at path over DefaultConfig, applies environment
// overrides and validates the result. An empty path skips the file. ${VAR}
// references in the file are expanded from the environment.
func Load(path string) (Config, error) {
	if err := LoadEnvFiles(DefaultEnvFiles...); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("microsite config: read %s: %w", path, err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("microsite config: %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFiles loads each existing file with godotenv. Variables already set
// in the process are kept.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("microsite config: load %s: %w", path, err)
		}
	}
	return nil
}

// Decode expands environment references in data and decodes it into cfg.
// Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv copies MICROSITE_* overrides into cfg.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup(EnvStorageDriver); ok {
		cfg.Storage.Driver = v
	}
	if v, ok := lookup(EnvStorageDSN); ok {
		cfg.Storage.DSN = v
	}
	if v, ok := lookup(EnvOutputDir); ok {
		cfg.Generator.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookup(EnvMetrics); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("microsite config: %s: %w", EnvMetrics, err)
		}
		cfg.Metrics.Enabled = enabled
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

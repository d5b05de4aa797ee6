package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Missing keys keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for unset
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Lipsync.Level != "" && cfg.Lipsync.Level != "low" && cfg.Lipsync.Level != "high" {
		errs = append(errs, fmt.Errorf("lipsync.level %q is invalid; valid values: low, high", cfg.Lipsync.Level))
	}
	if cfg.Tools.Timeout < 0 {
		errs = append(errs, fmt.Errorf("tools.timeout must not be negative, got %s", cfg.Tools.Timeout))
	}
	if cfg.ModelsDir == "" {
		errs = append(errs, errors.New("models_dir must not be empty"))
	}
	if cfg.Dictionary.Path == "" {
		errs = append(errs, errors.New("dictionary.path must not be empty"))
	}

	return errors.Join(errs...)
}

// Package config loads the host configuration.
//
// Configuration is YAML, decoded strictly (unknown keys are errors), then
// validated by unifying it with an embedded CUE schema. Command-line flags
// are applied on top by the CLI.
//
// Example:
//
//	updates_per_second: 120
//	bail_threshold: 40
//	script: demos/main.lua
//	journal: ./pacing.db
//	metrics_addr: 127.0.0.1:9464
//	log_level: info
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/avhost/internal/scheduler"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the host configuration.
type Config struct {
	UpdatesPerSecond int64  `yaml:"updates_per_second" json:"updates_per_second"`
	BailThreshold    int64  `yaml:"bail_threshold" json:"bail_threshold"`
	Script           string `yaml:"script,omitempty" json:"script"`
	Journal          string `yaml:"journal,omitempty" json:"journal"`
	MetricsAddr      string `yaml:"metrics_addr,omitempty" json:"metrics_addr"`
	LogLevel         string `yaml:"log_level,omitempty" json:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UpdatesPerSecond: scheduler.DefaultUpdatesPerSecond,
		BailThreshold:    scheduler.DefaultBailThreshold,
		LogLevel:         "info",
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
// An empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse YAML: %v", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against the CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Scheduler returns the pacing constants.
func (c Config) Scheduler() scheduler.Config {
	return scheduler.Config{
		UpdatesPerSecond: c.UpdatesPerSecond,
		BailThreshold:    c.BailThreshold,
	}
}

// Level maps LogLevel to a slog level. Unknown values map to info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

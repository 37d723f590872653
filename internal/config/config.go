// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads wayfarer settings from an optional YAML file and
// command-line flags.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/wayfarer/internal/engine"
	"github.com/holomush/wayfarer/internal/logging"
	"github.com/holomush/wayfarer/internal/traversal"
	"github.com/holomush/wayfarer/internal/waypoint"
	"github.com/holomush/wayfarer/internal/xdg"
)

// Config holds every runtime setting. Keys match the YAML file; flags use
// the same names with dashes.
type Config struct {
	TickRate          time.Duration `koanf:"tick_rate"`
	MaxTicks          uint64        `koanf:"max_ticks"`
	LogFormat         string        `koanf:"log_format"`
	LogLevel          string        `koanf:"log_level"`
	MetricsAddr       string        `koanf:"metrics_addr"`
	Scenario          string        `koanf:"scenario"`
	RegionSize        int           `koanf:"region_size"`
	MaterializeRadius int           `koanf:"materialize_radius"`
	CheckInterval     int           `koanf:"check_interval"`
	TraceNPCs         []string      `koanf:"trace_npcs"`
	Reports           bool          `koanf:"reports"`
}

// Defaults returns the settings used when neither file nor flag sets a key.
func Defaults() Config {
	return Config{
		TickRate:          engine.DefaultTickRate,
		LogFormat:         logging.FormatJSON,
		LogLevel:          "info",
		MetricsAddr:       "127.0.0.1:9100",
		RegionSize:        waypoint.DefaultRegionSize,
		MaterializeRadius: traversal.DefaultMaterializeRadius,
		CheckInterval:     traversal.DefaultCheckInterval,
	}
}

// RegisterFlags adds a flag for every key, defaulted from Defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Duration("tick-rate", d.TickRate, "wall time between ticks")
	fs.Uint64("max-ticks", d.MaxTicks, "stop after this many ticks (0 = run until interrupted)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("scenario", d.Scenario, "scenario file to run")
	fs.Int("region-size", d.RegionSize, "region edge length in blocks (scenario value wins)")
	fs.Int("materialize-radius", d.MaterializeRadius, "regions around a position that must be loaded to respawn")
	fs.Int("check-interval", d.CheckInterval, "ticks between self-despawn checks")
	fs.StringSlice("trace-npcs", d.TraceNPCs, "glob patterns of NPC names traced at info level")
	fs.Bool("reports", d.Reports, "write one JSON report per tick to stdout")
}

// Load reads path, or the XDG default when path is empty and that file
// exists, then applies flags that the file does not set or that were given
// explicitly. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		def, err := xdg.ConfigFile()
		if err == nil {
			path = def
		}
	}

	if path != "" {
		switch _, err := os.Stat(path); {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
			}
			slog.Debug("loaded config file", "path", path)
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	fail := func(key string, value any, msg string) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf("%s: %s", key, msg)
	}

	if c.TickRate <= 0 {
		return fail("tick_rate", c.TickRate, "must be positive")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fail("log_format", c.LogFormat, "must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fail("log_level", c.LogLevel, "must be debug, info, warn or error")
	}
	if c.RegionSize <= 0 {
		return fail("region_size", c.RegionSize, "must be positive")
	}
	if c.MaterializeRadius < 0 {
		return fail("materialize_radius", c.MaterializeRadius, "must not be negative")
	}
	if c.CheckInterval < 0 {
		return fail("check_interval", c.CheckInterval, "must not be negative")
	}
	for _, p := range c.TraceNPCs {
		if _, err := glob.Compile(p); err != nil {
			return fail("trace_npcs", p, "invalid glob pattern")
		}
	}
	return nil
}

// Level returns the parsed log level. Validate has accepted it.
func (c *Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Engine returns the engine settings.
func (c *Config) Engine(logger *slog.Logger) engine.Config {
	return engine.Config{
		TickRate:          c.TickRate,
		MaxTicks:          c.MaxTicks,
		RegionSize:        c.RegionSize,
		MaterializeRadius: c.MaterializeRadius,
		CheckInterval:     c.CheckInterval,
		TracePatterns:     c.TraceNPCs,
		Logger:            logger,
	}
}

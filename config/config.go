// Package config loads the recorder configuration from a YAML file and NXREC_ environment
// variables, and converts it into recorder and exporter options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/recorder"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NXREC_"

// Config is the file and environment configuration of a recorder.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Output  OutputConfig  `yaml:"output" envPrefix:"OUTPUT_"`
	Streams StreamsConfig `yaml:"streams" envPrefix:"STREAM_"`
	Plans   PlansConfig   `yaml:"plans" envPrefix:"PLAN_"`
	HTTP    HTTPConfig    `yaml:"http" envPrefix:"HTTP_"`

	// PositionerSources are the source substrings that classify a signal as a positioner.
	PositionerSources []string `yaml:"positioner_sources" env:"POSITIONER_SOURCES" envSeparator:","`

	// Devices overrides the device map of the default sections. File only.
	Devices *exporter.DeviceMap `yaml:"devices"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir" env:"DIR"`
	Format   string `yaml:"format" env:"FORMAT"`
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
	Creator  string `yaml:"creator" env:"CREATOR"`
}

type StreamsConfig struct {
	Primary  string `yaml:"primary" env:"PRIMARY"`
	Baseline string `yaml:"baseline" env:"BASELINE"`
}

type PlansConfig struct {
	// Allow lists the plan names to record. Empty records every plan.
	Allow []string `yaml:"allow" env:"ALLOW" envSeparator:","`
	// Filter is an optional boolean expression over the start document.
	Filter string `yaml:"filter" env:"FILTER"`
}

type HTTPConfig struct {
	// Addr is the listen address of the /metrics and /runs endpoints. Empty disables them.
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Output:  OutputConfig{Dir: ".", Format: string(nexus.MsgpackFormat), Timezone: "Local", Creator: exporter.DefaultCreator},
		Streams: StreamsConfig{Primary: exporter.DefaultPrimaryStream, Baseline: exporter.DefaultBaselineStream},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults, then applies
// NXREC_ environment variables and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Validate checks the values that options would reject later.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := nexus.EncoderFor(nexus.Format(c.Output.Format)); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Streams.Primary == "" || c.Streams.Primary == c.Streams.Baseline {
		errs = append(errs, fmt.Errorf("invalid streams: primary %q, baseline %q", c.Streams.Primary, c.Streams.Baseline))
	}
	if _, err := recorder.NewPlanFilter(c.Plans.Allow, c.Plans.Filter); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Output.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Output.Timezone)
	}
}

// DeviceMap returns the configured device map, or exporter.DefaultDeviceMap.
func (c *Config) DeviceMap() exporter.DeviceMap {
	if c.Devices == nil {
		return exporter.DefaultDeviceMap()
	}

	return *c.Devices
}

// Logger creates the logger described by the log section, writing to w.
func (c *Config) Logger(w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	return logger.NewSlogWriter(w, level, logger.ParseFormat(c.Log.Format), false), nil
}

// ExporterOptions converts the output, streams, classification and device settings.
func (c *Config) ExporterOptions() ([]exporter.Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	opts := []exporter.Option{
		exporter.WithOutputDir(c.Output.Dir),
		exporter.WithFormat(nexus.Format(c.Output.Format)),
		exporter.WithLocation(loc),
		exporter.WithCreator(c.Output.Creator),
		exporter.WithStreams(c.Streams.Primary, c.Streams.Baseline),
		exporter.WithSections(exporter.NewDefaultSections(c.DeviceMap())),
	}
	if len(c.PositionerSources) > 0 {
		opts = append(opts, exporter.WithPositionerSources(c.PositionerSources...))
	}

	return opts, nil
}

// PlanFilter builds the plan filter, or returns nil when no rule is configured.
func (c *Config) PlanFilter() (*recorder.PlanFilter, error) {
	if len(c.Plans.Allow) == 0 && c.Plans.Filter == "" {
		return nil, nil
	}

	return recorder.NewPlanFilter(c.Plans.Allow, c.Plans.Filter)
}

// RecorderOptions converts the whole configuration into recorder options.
func (c *Config) RecorderOptions(l logger.Logger) ([]recorder.Option, error) {
	exportOpts, err := c.ExporterOptions()
	if err != nil {
		return nil, err
	}
	filter, err := c.PlanFilter()
	if err != nil {
		return nil, err
	}

	opts := []recorder.Option{
		recorder.WithExportOptions(exportOpts...),
		recorder.WithPlanFilter(filter),
	}
	if l != nil {
		opts = append(opts, recorder.WithLogger(l))
	}

	return opts, nil
}

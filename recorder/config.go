package recorder

import (
	"errors"
	"time"

	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/logger"
)

// Config holds the recorder settings.
type Config struct {
	// exporter writes finished runs.
	// Built from exportOpts when not set.
	exporter   *exporter.Exporter
	exportOpts []exporter.Option

	// filter refuses start documents of runs that must not be recorded.
	// A nil filter records every run.
	filter *PlanFilter

	observer Observer
	history  *History
	now      func() time.Time
	logger   logger.Logger
}

// NewConfig creates a recorder configuration from defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		observer: NopObserver{},
		history:  NewHistory(),
		now:      time.Now,
		logger:   logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.exporter == nil {
		exp, err := exporter.New(append([]exporter.Option{exporter.WithLogger(cfg.logger)}, cfg.exportOpts...)...)
		if err != nil {
			return cfg, err
		}
		cfg.exporter = exp
	}

	return cfg, nil
}

// Option represents a functional option for configuring a recorder Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	return o.applyFunc(cfg)
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithExporter sets the exporter. It takes precedence over WithExportOptions.
func WithExporter(exp *exporter.Exporter) Option {
	return newOptFunc("WithExporter", func(cfg *Config) error {
		if exp == nil {
			return errors.New("exporter is nil")
		}
		cfg.exporter = exp

		return nil
	})
}

// WithExportOptions appends options of the default exporter.
func WithExportOptions(opts ...exporter.Option) Option {
	return newOptFunc("WithExportOptions", func(cfg *Config) error {
		cfg.exportOpts = append(cfg.exportOpts, opts...)
		return nil
	})
}

// WithPlanFilter sets the filter deciding which runs are recorded.
func WithPlanFilter(filter *PlanFilter) Option {
	return newOptFunc("WithPlanFilter", func(cfg *Config) error {
		cfg.filter = filter
		return nil
	})
}

// WithAllowedPlans records only runs whose plan name is listed.
func WithAllowedPlans(plans ...string) Option {
	return newOptFunc("WithAllowedPlans", func(cfg *Config) error {
		cfg.filter = AllowPlans(plans...)
		return nil
	})
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return newOptFunc("WithObserver", func(cfg *Config) error {
		if o == nil {
			return errors.New("observer is nil")
		}
		cfg.observer = o

		return nil
	})
}

// WithHistory shares an export history, for example with a status endpoint.
func WithHistory(h *History) Option {
	return newOptFunc("WithHistory", func(cfg *Config) error {
		if h == nil {
			return errors.New("history is nil")
		}
		cfg.history = h

		return nil
	})
}

// WithClock overrides the clock used for history records.
func WithClock(now func() time.Time) Option {
	return newOptFunc("WithClock", func(cfg *Config) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		cfg.now = now

		return nil
	})
}

// WithLogger sets the logger of the recorder and its default exporter.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

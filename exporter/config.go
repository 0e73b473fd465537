package exporter

import (
	"errors"
	"os"
	"time"

	"github.com/arloliu/go-nxrec/classify"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/nexus"
)

const (
	// DefaultPrimaryStream is the stream holding the scan measurements.
	DefaultPrimaryStream = "primary"
	// DefaultBaselineStream is the stream sampled at run start and end.
	DefaultBaselineStream = "baseline"
	// DefaultCreator is written into the creator root attribute.
	DefaultCreator = "go-nxrec"
)

// Config holds the exporter settings.
type Config struct {
	// outputDir is the directory receiving the output files.
	// Defaults to the current working directory.
	outputDir string

	// namer builds the output file name of a run.
	// Defaults to DefaultFileNamer in the configured location.
	namer FileNamer

	// encoder serializes the hierarchy.
	// Defaults to the msgpack container codec.
	encoder nexus.Encoder

	// classifier assigns positioner or detector roles to primary stream signals.
	classifier *classify.Classifier

	// sections builds the customizable hierarchy subsections.
	// Defaults to DefaultSections with DefaultDeviceMap.
	sections Sections

	// primaryStream and baselineStream name the streams with special treatment.
	primaryStream  string
	baselineStream string

	// location is the time zone used for ISO timestamps and file names.
	// Defaults to the local time zone.
	location *time.Location

	// creator is written into the creator root attribute.
	creator string

	// now returns the file creation time.
	now func() time.Time

	logger logger.Logger
}

// NewConfig creates an exporter configuration from defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		outputDir:      ".",
		encoder:        &nexus.MsgpackCodec{},
		classifier:     classify.New(),
		sections:       NewDefaultSections(DefaultDeviceMap()),
		primaryStream:  DefaultPrimaryStream,
		baselineStream: DefaultBaselineStream,
		location:       time.Local,
		creator:        DefaultCreator,
		now:            time.Now,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.namer == nil {
		cfg.namer = DefaultFileNamer(cfg.location)
	}

	return cfg, nil
}

func (cfg *Config) OutputDir() string                { return cfg.outputDir }
func (cfg *Config) Encoder() nexus.Encoder           { return cfg.encoder }
func (cfg *Config) Classifier() *classify.Classifier { return cfg.classifier }
func (cfg *Config) Sections() Sections               { return cfg.sections }
func (cfg *Config) PrimaryStream() string            { return cfg.primaryStream }
func (cfg *Config) BaselineStream() string           { return cfg.baselineStream }
func (cfg *Config) Location() *time.Location         { return cfg.location }
func (cfg *Config) Logger() logger.Logger            { return cfg.logger }

// Option represents a functional option for configuring an exporter Config.
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

// WithOutputDir sets the directory receiving output files.
// An error is returned if dir exists and is not a directory.
func WithOutputDir(dir string) Option {
	return newOptFunc("WithOutputDir", func(cfg *Config) error {
		if dir == "" {
			return errors.New("output directory is empty")
		}
		if st, err := os.Stat(dir); err == nil && !st.IsDir() {
			return errors.New("output path is not a directory: " + dir)
		}
		cfg.outputDir = dir

		return nil
	})
}

// WithFileNamer overrides the output file name pattern.
func WithFileNamer(namer FileNamer) Option {
	return newOptFunc("WithFileNamer", func(cfg *Config) error {
		if namer == nil {
			return errors.New("file namer is nil")
		}
		cfg.namer = namer

		return nil
	})
}

// WithEncoder sets the container encoder.
func WithEncoder(enc nexus.Encoder) Option {
	return newOptFunc("WithEncoder", func(cfg *Config) error {
		if enc == nil {
			return errors.New("encoder is nil")
		}
		cfg.encoder = enc

		return nil
	})
}

// WithFormat selects the container encoder by format name.
func WithFormat(format nexus.Format) Option {
	return newOptFunc("WithFormat", func(cfg *Config) error {
		enc, err := nexus.EncoderFor(format)
		if err != nil {
			return err
		}
		cfg.encoder = enc

		return nil
	})
}

// WithPositionerSources sets the source substrings that classify a signal as a positioner.
func WithPositionerSources(patterns ...string) Option {
	return newOptFunc("WithPositionerSources", func(cfg *Config) error {
		cfg.classifier = classify.New(patterns...)
		return nil
	})
}

// WithSections injects the strategy building the customizable subsections.
func WithSections(sections Sections) Option {
	return newOptFunc("WithSections", func(cfg *Config) error {
		if sections == nil {
			return errors.New("sections is nil")
		}
		cfg.sections = sections

		return nil
	})
}

// WithStreams sets the names of the primary and baseline streams.
func WithStreams(primary, baseline string) Option {
	return newOptFunc("WithStreams", func(cfg *Config) error {
		if primary == "" || baseline == "" {
			return errors.New("stream names must not be empty")
		}
		if primary == baseline {
			return errors.New("primary and baseline streams must differ")
		}
		cfg.primaryStream = primary
		cfg.baselineStream = baseline

		return nil
	})
}

// WithLocation sets the time zone of ISO timestamps and default file names.
func WithLocation(loc *time.Location) Option {
	return newOptFunc("WithLocation", func(cfg *Config) error {
		if loc == nil {
			return errors.New("location is nil")
		}
		cfg.location = loc

		return nil
	})
}

// WithCreator sets the creator root attribute.
func WithCreator(creator string) Option {
	return newOptFunc("WithCreator", func(cfg *Config) error {
		cfg.creator = creator
		return nil
	})
}

// WithClock overrides the clock used for the file_time root attribute.
func WithClock(now func() time.Time) Option {
	return newOptFunc("WithClock", func(cfg *Config) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		cfg.now = now

		return nil
	})
}

// WithLogger sets the logger of the exporter.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/canvas-host/errors"
	"github.com/wippyai/canvas-host/graphics"
)

// Prefix is prepended to every variable name.
const Prefix = "CANVAS_"

// Config is the process configuration of the canvas host.
type Config struct {
	Backend        string        `env:"BACKEND"         envDefault:"simple-buffer"`
	PresentMode    string        `env:"PRESENT_MODE"    envDefault:"fifo"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	OTLPEndpoint   string        `env:"OTLP_ENDPOINT"`
	ServiceName    string        `env:"SERVICE_NAME"    envDefault:"canvas-host"`
	FrameInterval  time.Duration `env:"FRAME_INTERVAL"  envDefault:"16ms"`
	BusCapacity    int           `env:"BUS_CAPACITY"    envDefault:"16"`
	Width          uint32        `env:"WIDTH"`
	Height         uint32        `env:"HEIGHT"`
	LogDevelopment bool          `env:"LOG_DEVELOPMENT"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from vars instead of the process
// environment. Keys carry the prefix.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the parser cannot.
func (c Config) Validate() error {
	if _, err := graphics.ParseBackend(c.Backend); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "backend")
	}
	if _, err := graphics.ParsePresentMode(c.PresentMode); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "present mode")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	if c.BusCapacity <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "bus capacity must be positive")
	}
	if c.FrameInterval <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "frame interval must be positive")
	}
	return nil
}

// Descriptor returns the configure-context descriptor for a canvas of the
// configured size, or of width x height when none is configured.
func (c Config) Descriptor(width, height uint32) graphics.Descriptor {
	if c.Width != 0 {
		width = c.Width
	}
	if c.Height != 0 {
		height = c.Height
	}
	backend, _ := graphics.ParseBackend(c.Backend)
	mode, _ := graphics.ParsePresentMode(c.PresentMode)
	return graphics.Descriptor{
		Backend:     backend,
		Width:       width,
		Height:      height,
		PresentMode: mode,
	}
}

// NewLogger builds the process logger. paths replace the default
// stderr output when given.
func (c Config) NewLogger(paths ...string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(paths) > 0 {
		zc.OutputPaths = paths
		zc.ErrorOutputPaths = paths
	}
	return zc.Build()
}

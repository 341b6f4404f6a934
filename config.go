package scene

import (
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config holds the environment configuration of a scene.
type Config struct {
	// Minimum level of the scene logger (trace, debug, info, warn, error).
	LogLevel string `env:"SCENE_LOG_LEVEL" envDefault:"info"`

	// Human readable console output instead of JSON lines.
	LogPretty bool `env:"SCENE_LOG_PRETTY" envDefault:"false"`

	// Address of the statsd agent. Metrics are dropped when empty.
	StatsdAddress string `env:"SCENE_STATSD_ADDRESS"`

	// Comma separated tags attached to every metric.
	StatsdTags []string `env:"SCENE_STATSD_TAGS"`

	// Export spans through the DataDog tracer provider.
	TraceEnabled bool `env:"SCENE_TRACE_ENABLED" envDefault:"false"`

	ProfilerEnabled bool `env:"SCENE_PROFILER_ENABLED" envDefault:"false"`

	// Return contract violations as errors instead of panicking.
	RecoverableContracts bool `env:"SCENE_RECOVERABLE_CONTRACTS" envDefault:"false"`
}

// loadConfig loads the scene configuration from environment variables.
func loadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse scene config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.LogLevel == "" {
		return eris.New("log level cannot be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return eris.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	if len(cfg.StatsdTags) > 0 && cfg.StatsdAddress == "" {
		return eris.New("statsd tags given without a statsd address")
	}
	return nil
}

// logger builds the scene logger described by the config.
func (cfg *Config) logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	if cfg.LogPretty {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("module", "scene").
		Logger()
}

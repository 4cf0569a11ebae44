package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// envPrefix namespaces every environment variable the command reads.
const envPrefix = "FIDELITY_"

// Config holds the defaults for every command. Flags override it.
type Config struct {
	SourceDir  string `env:"SOURCE_DIR"`
	DestDir    string `env:"DEST_DIR" envDefault:"compressed"`
	Report     string `env:"REPORT" envDefault:"results.csv"`
	ChartDir   string `env:"CHART_DIR" envDefault:"."`
	Width      int    `env:"WIDTH"`
	Height     int    `env:"HEIGHT"`
	Format     string `env:"FORMAT" envDefault:"JPEG"`
	Quality    int    `env:"QUALITY" envDefault:"50"`
	Resizer    string `env:"RESIZER" envDefault:"imaging"`
	MSSSIMMode string `env:"MSSSIM_MODE" envDefault:"columns"`
	Workers    int    `env:"WORKERS" envDefault:"1"`
	Prefix     string `env:"PREFIX" envDefault:"compressed_"`
	TempDir    string `env:"TEMP_DIR"`
	Archive    string `env:"ARCHIVE"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// ReadEnvConfig fills cfg from FIDELITY_* environment variables.
func ReadEnvConfig(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// newLogger writes human-readable events to w at the named level.
// Unknown levels fall back to info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

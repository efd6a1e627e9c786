// Package logger provides structured logging using zerolog
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level   string `yaml:"level"`
	Debug   bool   `yaml:"debug"`
	Output  string `yaml:"output"`
	Console bool   `yaml:"console"`
}

var (
	mu           sync.RWMutex
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// New builds a logger from config without touching the global one
func New(cfg Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", cfg.Output)
	}

	if cfg.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// Init replaces the process-wide logger
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	globalLogger = l
	mu.Unlock()

	return nil
}

// Get returns the process-wide logger
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// WithComponent returns a child of the process-wide logger tagged with component
func WithComponent(component string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", component).Logger()
}

// NewTestLogger returns a logger that discards everything
func NewTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

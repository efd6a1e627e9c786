package app

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/self-ai-0084/selfailab-public/app/logger"
)

// Config holds monitor server configuration
type Config struct {
	TCPHost             string        `yaml:"tcp_host"`
	TCPPort             int           `yaml:"tcp_port"`
	HTTPHost            string        `yaml:"http_host"`
	HTTPPort            int           `yaml:"http_port"`
	OfflineAfterSeconds int           `yaml:"offline_after_seconds"`
	MaxLineBytes        int           `yaml:"max_line_bytes"`
	IdleTimeoutSec      int           `yaml:"idle_timeout_sec"`
	StatsIntervalSec    int           `yaml:"stats_interval_sec"`
	CORSOrigins         []string      `yaml:"cors_origins"`
	Log                 logger.Config `yaml:"log"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		TCPHost:             "0.0.0.0",
		TCPPort:             8888,
		HTTPHost:            "0.0.0.0",
		HTTPPort:            8080,
		OfflineAfterSeconds: 30,
		MaxLineBytes:        64 * 1024,
		IdleTimeoutSec:      300,
		StatsIntervalSec:    60,
		Log:                 logger.Config{Level: "info"},
	}
}

// TCPAddr is the collector bind address
func (c *Config) TCPAddr() string {
	return net.JoinHostPort(c.TCPHost, strconv.Itoa(c.TCPPort))
}

// HTTPAddr is the query service bind address
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// IdleTimeout is the collector read idle timeout
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// LoadConfig layers defaults, an optional YAML file, MONITOR_* environment
// variables and command line flags, in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("monitor-server", pflag.ContinueOnError)
	configPath := fs.String("config", getEnv("MONITOR_CONFIG", ""), "path to a YAML config file")
	tcpHost := fs.String("tcp-host", cfg.TCPHost, "TCP collector bind host")
	tcpPort := fs.Int("tcp-port", cfg.TCPPort, "TCP collector bind port")
	httpHost := fs.String("http-host", cfg.HTTPHost, "HTTP dashboard bind host")
	httpPort := fs.Int("http-port", cfg.HTTPPort, "HTTP dashboard bind port")
	offlineAfter := fs.Int("offline-after", cfg.OfflineAfterSeconds, "seconds without a report before a client is shown offline")
	maxLine := fs.Int("max-line-bytes", cfg.MaxLineBytes, "longest accepted message line")
	idleTimeout := fs.Int("idle-timeout", cfg.IdleTimeoutSec, "seconds before a silent connection is closed (0 disables)")
	statsInterval := fs.Int("stats-interval", cfg.StatsIntervalSec, "seconds between stats log lines (0 disables)")
	corsOrigins := fs.StringSlice("cors-origin", nil, "origin allowed to call the API (repeatable)")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level (trace, debug, info, warn, error)")
	logConsole := fs.Bool("log-console", false, "human readable log output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if fs.Changed("tcp-host") {
		cfg.TCPHost = *tcpHost
	}
	if fs.Changed("tcp-port") {
		cfg.TCPPort = *tcpPort
	}
	if fs.Changed("http-host") {
		cfg.HTTPHost = *httpHost
	}
	if fs.Changed("http-port") {
		cfg.HTTPPort = *httpPort
	}
	if fs.Changed("offline-after") {
		cfg.OfflineAfterSeconds = *offlineAfter
	}
	if fs.Changed("max-line-bytes") {
		cfg.MaxLineBytes = *maxLine
	}
	if fs.Changed("idle-timeout") {
		cfg.IdleTimeoutSec = *idleTimeout
	}
	if fs.Changed("stats-interval") {
		cfg.StatsIntervalSec = *statsInterval
	}
	if fs.Changed("cors-origin") {
		cfg.CORSOrigins = *corsOrigins
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if fs.Changed("log-console") {
		cfg.Log.Console = *logConsole
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.TCPHost = getEnv("MONITOR_TCP_HOST", c.TCPHost)
	c.HTTPHost = getEnv("MONITOR_HTTP_HOST", c.HTTPHost)
	c.Log.Level = getEnv("MONITOR_LOG_LEVEL", c.Log.Level)
	if origins := getEnv("MONITOR_CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}

	for _, e := range []struct {
		key string
		dst *int
	}{
		{"MONITOR_TCP_PORT", &c.TCPPort},
		{"MONITOR_HTTP_PORT", &c.HTTPPort},
		{"MONITOR_OFFLINE_AFTER", &c.OfflineAfterSeconds},
		{"MONITOR_MAX_LINE_BYTES", &c.MaxLineBytes},
		{"MONITOR_IDLE_TIMEOUT_SEC", &c.IdleTimeoutSec},
		{"MONITOR_STATS_INTERVAL_SEC", &c.StatsIntervalSec},
	} {
		v, err := getEnvInt(e.key, *e.dst)
		if err != nil {
			return err
		}
		*e.dst = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		errs = append(errs, fmt.Errorf("tcp port %d out of range", c.TCPPort))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTPPort))
	}
	if c.OfflineAfterSeconds < 0 {
		errs = append(errs, fmt.Errorf("offline-after must not be negative"))
	}
	if c.MaxLineBytes <= 0 {
		errs = append(errs, fmt.Errorf("max line bytes must be positive"))
	}
	if c.IdleTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("idle timeout must not be negative"))
	}
	if c.StatsIntervalSec < 0 {
		errs = append(errs, fmt.Errorf("stats interval must not be negative"))
	}
	for i, origin := range c.CORSOrigins {
		origin = strings.TrimSpace(origin)
		c.CORSOrigins[i] = origin
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("cors origin %q must start with http:// or https://", origin))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

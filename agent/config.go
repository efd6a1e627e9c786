package agent

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/self-ai-0084/selfailab-public/app/logger"
)

// Config holds reporting agent configuration
type Config struct {
	ServerHost  string
	ServerPort  int
	IntervalSec int
	TimeoutSec  int
	ClientID    string
	Log         logger.Config
}

// ServerAddr is the monitor's TCP collector address
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// Interval is the time between heartbeats
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// Timeout bounds connecting, writing and the GPU query
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LoadConfig reads MONITOR_* environment variables, then command line flags
func LoadConfig(args []string) (*Config, error) {
	hostname, _ := os.Hostname()

	port, err := getEnvInt("MONITOR_SERVER_PORT", 8888)
	if err != nil {
		return nil, err
	}
	interval, err := getEnvInt("MONITOR_INTERVAL_SEC", 10)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvInt("MONITOR_TIMEOUT_SEC", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	fs := pflag.NewFlagSet("monitor-agent", pflag.ContinueOnError)
	fs.StringVar(&cfg.ServerHost, "server-host", getEnv("MONITOR_SERVER_HOST", ""), "monitor server host (required)")
	fs.IntVar(&cfg.ServerPort, "server-port", port, "monitor server TCP port")
	fs.IntVar(&cfg.IntervalSec, "interval", interval, "seconds between reports")
	fs.IntVar(&cfg.TimeoutSec, "timeout", timeout, "seconds allowed for connecting and sending")
	fs.StringVar(&cfg.ClientID, "client-id", getEnv("MONITOR_CLIENT_ID", hostname), "identity reported to the server")
	fs.StringVar(&cfg.Log.Level, "log-level", getEnv("MONITOR_LOG_LEVEL", "info"), "log level")
	fs.BoolVar(&cfg.Log.Console, "log-console", false, "human readable log output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	var errs []error
	if c.ServerHost == "" {
		errs = append(errs, errors.New("server host must be set (--server-host or MONITOR_SERVER_HOST)"))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.ServerPort))
	}
	if c.IntervalSec <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.TimeoutSec <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
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

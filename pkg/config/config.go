// Package config provides configuration handling for the router traffic poller.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/irctrakz/routertraffic/pkg/core"
	"github.com/irctrakz/routertraffic/pkg/logging"
	"github.com/irctrakz/routertraffic/pkg/rate"
	"github.com/irctrakz/routertraffic/pkg/routerapi"
)

// Poll interval bounds, in seconds.
const (
	MinPollIntervalSec = 5
	MaxPollIntervalSec = 3600
)

// Config represents the complete poller configuration.
type Config struct {
	// Router contains the monitored router and its credentials.
	Router core.RouterConfig `json:"router" yaml:"router"`

	// HTTP contains the configuration of the stats endpoint.
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Report contains the configuration of the periodic log report.
	Report ReportConfig `json:"report" yaml:"report"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// HTTPConfig contains configuration for the HTTP surface.
type HTTPConfig struct {
	// Listen is the listen address; empty disables the server.
	Listen string `json:"listen" yaml:"listen"`
}

// ReportConfig contains configuration for the snapshot reporter.
type ReportConfig struct {
	// Enabled turns on logging of every snapshot.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`

	// Unit is the rate unit used in reports (B/s, KB/s, MB/s, kbit/s, Mbit/s).
	Unit string `json:"unit" yaml:"unit"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is the line format (text, json).
	Format string `json:"format" yaml:"format"`

	// File is the log file path.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Router: core.RouterConfig{
			Host:            "192.168.1.254",
			PollIntervalSec: MinPollIntervalSec,
			TimeoutSec:      int(routerapi.DefaultTimeout / time.Second),
			CounterBits:     32,
			WirelessPrefix:  core.DefaultWirelessPrefix,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		Report: ReportConfig{
			Enabled: false,
			Format:  "text",
			Unit:    string(rate.MegabytesPerSecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file.
func LoadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return nil
}

// LoadFromEnv overrides configuration from environment variables.
// Malformed numeric values are ignored.
func LoadFromEnv(config *Config) {
	// Router config
	if val := os.Getenv("ROUTER_HOST"); val != "" {
		config.Router.Host = val
	}
	if val := os.Getenv("ROUTER_USERNAME"); val != "" {
		config.Router.Username = val
	}
	if val := os.Getenv("ROUTER_PASSWORD"); val != "" {
		config.Router.Password = val
	}
	setInt("ROUTER_POLL_INTERVAL", &config.Router.PollIntervalSec)
	setInt("ROUTER_TIMEOUT", &config.Router.TimeoutSec)
	setInt("ROUTER_COUNTER_BITS", &config.Router.CounterBits)
	if val := os.Getenv("ROUTER_WIRELESS_PREFIX"); val != "" {
		config.Router.WirelessPrefix = val
	}

	// HTTP config
	if val, ok := os.LookupEnv("HTTP_LISTEN"); ok {
		config.HTTP.Listen = val
	}

	// Report config
	if val := os.Getenv("REPORT_ENABLED"); val != "" {
		config.Report.Enabled = truthy(val)
	}
	if val := os.Getenv("REPORT_FORMAT"); val != "" {
		config.Report.Format = val
	}
	if val := os.Getenv("REPORT_UNIT"); val != "" {
		config.Report.Unit = val
	}

	// Logging config
	if val := os.Getenv("LOGGING_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOGGING_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOGGING_FILE"); val != "" {
		config.Logging.File = val
	}
	setInt("LOGGING_MAX_SIZE", &config.Logging.MaxSize)
	setInt("LOGGING_MAX_BACKUPS", &config.Logging.MaxBackups)
	setInt("LOGGING_MAX_AGE", &config.Logging.MaxAge)
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			*dst = n
		}
	}
}

func truthy(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate Router config
	if strings.TrimSpace(c.Router.Host) == "" {
		return fmt.Errorf("router host cannot be empty")
	}
	if strings.Contains(c.Router.Host, "://") {
		return fmt.Errorf("router host must not include a scheme: %s", c.Router.Host)
	}
	if c.Router.Username == "" {
		return fmt.Errorf("router username cannot be empty")
	}
	if c.Router.Password == "" {
		return fmt.Errorf("router password cannot be empty")
	}
	if c.Router.PollIntervalSec < MinPollIntervalSec || c.Router.PollIntervalSec > MaxPollIntervalSec {
		return fmt.Errorf("invalid poll interval: %d (must be between %d and %d seconds)",
			c.Router.PollIntervalSec, MinPollIntervalSec, MaxPollIntervalSec)
	}
	if c.Router.TimeoutSec <= 0 {
		return fmt.Errorf("invalid request timeout: %d", c.Router.TimeoutSec)
	}
	switch c.Router.CounterBits {
	case 32, 64:
	default:
		return fmt.Errorf("invalid counter width: %d (must be 32 or 64)", c.Router.CounterBits)
	}

	// Validate Report config
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid report format: %s", c.Report.Format)
	}
	if _, err := rate.ParseUnit(c.Report.Unit); err != nil {
		return err
	}

	// Validate Logging config
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Router.PollIntervalSec) * time.Second
}

// ClientConfig builds the router client configuration.
func (c *Config) ClientConfig() routerapi.Config {
	return routerapi.Config{
		Timeout: time.Duration(c.Router.TimeoutSec) * time.Second,
		Rate: rate.Config{
			CounterBits:    c.Router.CounterBits,
			WirelessPrefix: c.Router.WirelessPrefix,
		},
	}
}

// ApplyLogging applies the logging configuration.
func (c *Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	if err := logging.SetFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Logging.File != "" {
		err := logging.EnableFileLogging(c.Logging.File, logging.Rotation{
			MaxSizeMB:  c.Logging.MaxSize,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAge,
		})
		if err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch {
	case strings.HasSuffix(path, ".json"):
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Credentials live in this file.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the collector.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Source   SourceConfig      `yaml:"source"`
	Serial   SerialConfig      `yaml:"serial"`
	MQTT     MQTTConfig        `yaml:"mqtt"`
	Queue    QueueConfig       `yaml:"queue"`
	InfluxDB InfluxDBConfig    `yaml:"influxdb"`
	Tags     map[string]string `yaml:"tags"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// SourceConfig selects where sample lines are read from.
type SourceConfig struct {
	// Type is the line source: "serial" or "mqtt".
	Type string `yaml:"type"`

	// Geiger wraps the source in counts-per-minute mode: the device is
	// expected to emit bare integer counts, and the collector reports the
	// first reading of every minute as a "geiger" measurement.
	Geiger bool `yaml:"geiger"`
}

// SerialConfig contains serial device settings.
type SerialConfig struct {
	// Device is the serial device path (e.g., "/dev/ttyUSB0").
	Device string `yaml:"device"`

	// BaudRate is the serial line speed.
	BaudRate int `yaml:"baud_rate"`

	// ReadTimeout is the inactivity timeout in seconds. Set it higher than
	// the longest expected period of device silence; a device that sends
	// every 60s needs read_timeout > 60.
	ReadTimeout int `yaml:"read_timeout"`

	// MaxLineLength is the maximum accepted line length in bytes.
	// Longer lines indicate a misbehaving device and abort the read.
	MaxLineLength int `yaml:"max_line_length"`

	// Reconnect controls reopening the device after an I/O error.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// MQTTConfig contains MQTT broker connection settings for the MQTT source.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	Topic  string           `yaml:"topic"`
	QoS    int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// QueueConfig contains settings for the durable sample queue.
type QueueConfig struct {
	// Path is the filesystem path to the SQLite queue file.
	// The directory will be created if it doesn't exist.
	Path string `yaml:"path"`

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int `yaml:"busy_timeout"`

	// Synchronous selects the SQLite synchronous pragma: "full" (every
	// enqueue survives power loss) or "normal" (survives process crash).
	Synchronous string `yaml:"synchronous"`
}

// InfluxDBConfig contains database endpoint and delivery settings.
type InfluxDBConfig struct {
	// API selects the write API: "v1" (/write?db=...) or "v2" (org/bucket/token).
	API string `yaml:"api"`

	// URL of the InfluxDB server (e.g., "http://localhost:8086").
	URL string `yaml:"url"`

	// Database is the target database name (v1 API).
	Database string `yaml:"database"`

	// Org, Bucket and Token are the v2 API equivalents.
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
	Token  string `yaml:"token"`

	// BatchSize is the maximum number of lines sent per write request.
	BatchSize int `yaml:"batch_size"`

	// SkipStatuses lists HTTP statuses that are logged as warnings and
	// treated as delivered, so a permanently rejected datapoint can be
	// skipped instead of stalling the queue. Empty means never skip.
	SkipStatuses []int `yaml:"skip_statuses"`

	// Retry controls backoff for transient delivery failures.
	Retry ReconnectConfig `yaml:"retry"`
}

// ReconnectConfig contains exponential backoff settings (seconds).
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: COLLECTOR_SECTION_KEY
// For example: COLLECTOR_SERIAL_DEVICE, COLLECTOR_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "serial",
		},
		Serial: SerialConfig{
			BaudRate:      9600,
			ReadTimeout:   70,
			MaxLineLength: 1024,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "arduino-influxdb",
			},
			QoS: 1,
		},
		Queue: QueueConfig{
			Path:        "./data/queue.db",
			BusyTimeout: 5,
			Synchronous: "full",
		},
		InfluxDB: InfluxDBConfig{
			API:       "v1",
			URL:       "http://localhost:8086",
			BatchSize: 100,
			Retry: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: COLLECTOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Serial
	if v := os.Getenv("COLLECTOR_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v := os.Getenv("COLLECTOR_SERIAL_BAUD_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Serial.BaudRate = n
		}
	}

	// MQTT
	if v := os.Getenv("COLLECTOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("COLLECTOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("COLLECTOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Queue
	if v := os.Getenv("COLLECTOR_QUEUE_PATH"); v != "" {
		cfg.Queue.Path = v
	}

	// InfluxDB
	if v := os.Getenv("COLLECTOR_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("COLLECTOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Source validation
	switch c.Source.Type {
	case "serial":
		if c.Serial.Device == "" {
			errs = append(errs, "serial.device is required (set COLLECTOR_SERIAL_DEVICE environment variable)")
		}
		if c.Serial.BaudRate <= 0 {
			errs = append(errs, "serial.baud_rate must be positive")
		}
		if c.Serial.ReadTimeout <= 0 {
			errs = append(errs, "serial.read_timeout must be positive; set it above the device's longest silent period")
		}
		if c.Serial.MaxLineLength <= 0 {
			errs = append(errs, "serial.max_line_length must be positive")
		}
	case "mqtt":
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required for the mqtt source")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.type must be \"serial\" or \"mqtt\", got %q", c.Source.Type))
	}

	// Queue validation
	if c.Queue.Path == "" {
		errs = append(errs, "queue.path is required")
	}
	switch c.Queue.Synchronous {
	case "full", "normal":
	default:
		errs = append(errs, "queue.synchronous must be \"full\" or \"normal\"")
	}

	// InfluxDB validation
	if c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required")
	}
	switch c.InfluxDB.API {
	case "v1":
		if c.InfluxDB.Database == "" {
			errs = append(errs, "influxdb.database is required for the v1 API")
		}
	case "v2":
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required for the v2 API")
		}
	default:
		errs = append(errs, fmt.Sprintf("influxdb.api must be \"v1\" or \"v2\", got %q", c.InfluxDB.API))
	}
	if c.InfluxDB.BatchSize <= 0 {
		errs = append(errs, "influxdb.batch_size must be positive")
	}

	// Static tag keys must survive line-protocol serialization.
	for k := range c.Tags {
		if k == "" {
			errs = append(errs, "tags: empty tag key")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the serial read timeout as a Duration.
func (c *SerialConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// GetInitialDelay returns the initial backoff delay as a Duration.
func (r *ReconnectConfig) GetInitialDelay() time.Duration {
	return time.Duration(r.InitialDelay) * time.Second
}

// GetMaxDelay returns the backoff delay cap as a Duration.
func (r *ReconnectConfig) GetMaxDelay() time.Duration {
	return time.Duration(r.MaxDelay) * time.Second
}

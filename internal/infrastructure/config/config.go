package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic Z-Wave service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	ZWave     ZWaveConfig     `yaml:"zwave"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ZWaveConfig contains Z-Wave engine and bridge settings.
type ZWaveConfig struct {
	Enabled bool `yaml:"enabled"`

	// Engine selects the controller engine. Only "simulator" is built in.
	Engine string `yaml:"engine"`

	// NetworkFile is the simulator's network fixture (YAML).
	NetworkFile string `yaml:"network_file"`

	// Drivers are the controllers brought online at startup.
	Drivers []ZWaveDriverConfig `yaml:"drivers"`

	// PollInterval is the length of one poll pass in seconds, or the gap
	// between individual polls when PollBetweenEach is set.
	PollInterval    int  `yaml:"poll_interval"`
	PollBetweenEach bool `yaml:"poll_between_each"`

	Bridge  ZWaveBridgeConfig  `yaml:"bridge"`
	History ZWaveHistoryConfig `yaml:"history"`
}

// ZWaveDriverConfig is one controller device.
type ZWaveDriverConfig struct {
	Path string `yaml:"path"`

	// Interface is "serial" (default) or "hid".
	Interface string `yaml:"interface"`
}

// ZWaveBridgeConfig contains MQTT bridge settings.
type ZWaveBridgeConfig struct {
	ID string `yaml:"id"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`

	// QueueSize is the capacity of the notification queue between the
	// engine and the bridge worker.
	QueueSize int `yaml:"queue_size"`
}

// ZWaveHistoryConfig contains value history settings.
type ZWaveHistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays bounds how long readings are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// Supported engine kinds.
const (
	EngineSimulator = "simulator"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. A .env file next to the working directory, if present
//  3. YAML file values (override defaults)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_ZWAVE_NETWORK_FILE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored
// and variables already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-zwave.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-zwave",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8081,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		ZWave: ZWaveConfig{
			Enabled:      true,
			Engine:       EngineSimulator,
			NetworkFile:  "configs/zwave-network.yaml",
			PollInterval: 30,
			Bridge: ZWaveBridgeConfig{
				ID:             "zwave",
				HealthInterval: 30,
				QueueSize:      256,
			},
			History: ZWaveHistoryConfig{
				Enabled:       true,
				RetentionDays: 30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Z-Wave
	if v := os.Getenv("GRAYLOGIC_ZWAVE_NETWORK_FILE"); v != "" {
		cfg.ZWave.NetworkFile = v
	}
	if v := os.Getenv("GRAYLOGIC_ZWAVE_DRIVER"); v != "" {
		// A single driver path replaces the configured list.
		cfg.ZWave.Drivers = []ZWaveDriverConfig{{Path: v}}
	}
}

// Validate checks the configuration for errors.
//
// Every problem is reported, joined with "; ", so a broken file can be
// fixed in one pass.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls requires cert_file and key_file")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	errs = append(errs, c.ZWave.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (z *ZWaveConfig) validate() []string {
	if !z.Enabled {
		return nil
	}

	var errs []string
	if z.Engine != EngineSimulator {
		errs = append(errs, fmt.Sprintf("zwave.engine %q is not supported (want %q)", z.Engine, EngineSimulator))
	}
	if z.Engine == EngineSimulator && z.NetworkFile == "" {
		errs = append(errs, "zwave.network_file is required for the simulator engine")
	}
	if z.PollInterval < 0 {
		errs = append(errs, "zwave.poll_interval must not be negative")
	}
	if z.Bridge.ID == "" {
		errs = append(errs, "zwave.bridge.id is required")
	}
	if z.Bridge.QueueSize < 1 {
		errs = append(errs, "zwave.bridge.queue_size must be at least 1")
	}
	if z.History.RetentionDays < 0 {
		errs = append(errs, "zwave.history.retention_days must not be negative")
	}

	seen := make(map[string]bool, len(z.Drivers))
	for i, d := range z.Drivers {
		switch {
		case d.Path == "":
			errs = append(errs, fmt.Sprintf("zwave.drivers[%d].path is required", i))
		case seen[d.Path]:
			errs = append(errs, fmt.Sprintf("zwave.drivers[%d].path %q is duplicated", i, d.Path))
		}
		seen[d.Path] = true

		switch strings.ToLower(d.Interface) {
		case "", "serial", "hid":
		default:
			errs = append(errs, fmt.Sprintf("zwave.drivers[%d].interface must be serial or hid", i))
		}
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetPollInterval returns the Z-Wave poll interval as a Duration.
func (z ZWaveConfig) GetPollInterval() time.Duration {
	return time.Duration(z.PollInterval) * time.Second
}

// GetHealthInterval returns the bridge health interval as a Duration.
func (z ZWaveConfig) GetHealthInterval() time.Duration {
	return time.Duration(z.Bridge.HealthInterval) * time.Second
}

// GetRetention returns the history retention as a Duration (0 = forever).
func (z ZWaveConfig) GetRetention() time.Duration {
	return time.Duration(z.History.RetentionDays) * 24 * time.Hour
}

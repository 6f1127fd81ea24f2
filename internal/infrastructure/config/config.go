package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Nuvo Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Amplifier AmplifierConfig `yaml:"amplifier"`
	Zones     []ZoneConfig    `yaml:"zones"`
	Sources   []SourceConfig  `yaml:"sources"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AmplifierConfig identifies the amplifier and the serial driver service
// that owns the physical RS-232 link to it.
type AmplifierConfig struct {
	// Model is the amplifier model: "grand_concerto" or "essentia_g".
	Model string `yaml:"model"`

	// Driver is the address of the nuvo-serial companion service.
	Driver DriverConfig `yaml:"driver"`

	// VolumeStep is the normalized volume increment for volume_up/volume_down
	// commands issued over MQTT or HTTP. Default: 0.02
	VolumeStep float64 `yaml:"volume_step"`
}

// DriverConfig contains the connection settings for the serial driver service.
type DriverConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// RequestTimeout is the per-request timeout in seconds for
	// request/response exchanges with the driver. Default: 5
	RequestTimeout int `yaml:"request_timeout"`
}

// ZoneConfig describes one amplifier zone exposed by this instance.
type ZoneConfig struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// SourceConfig describes one amplifier source input.
type SourceConfig struct {
	ID   int    `yaml:"id"`
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
	Enabled   bool                `yaml:"enabled"`
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
	MaxAttempts  int `yaml:"max_attempts"`
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
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// HistoryConfig contains zone state history retention settings.
type HistoryConfig struct {
	// RetentionDays is how long zone state history rows are kept before
	// pruning. 0 disables pruning. Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneInterval is how often the prune job runs, in hours. Default: 24
	PruneInterval int `yaml:"prune_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Supported amplifier models.
const (
	ModelGrandConcerto = "grand_concerto"
	ModelEssentiaG     = "essentia_g"
)

// Per-model zone and source limits.
const (
	maxZonesGrandConcerto = 16
	maxZonesEssentiaG     = 12
	maxSources            = 6
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NUVOCORE_SECTION_KEY
// For example: NUVOCORE_DATABASE_PATH, NUVOCORE_MQTT_HOST
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
		Amplifier: AmplifierConfig{
			Model: ModelGrandConcerto,
			Driver: DriverConfig{
				Host:           "localhost",
				Port:           4747,
				RequestTimeout: 5,
			},
			VolumeStep: 0.02,
		},
		Database: DatabaseConfig{
			Path:        "./data/nuvocore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "nuvo-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		History: HistoryConfig{
			RetentionDays: 30,
			PruneInterval: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NUVOCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Driver service
	if v := os.Getenv("NUVOCORE_DRIVER_HOST"); v != "" {
		cfg.Amplifier.Driver.Host = v
	}
	if v := os.Getenv("NUVOCORE_DRIVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Amplifier.Driver.Port = port
		}
	}

	// Database
	if v := os.Getenv("NUVOCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("NUVOCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NUVOCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NUVOCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("NUVOCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("NUVOCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Amplifier validation
	maxZones := 0
	switch c.Amplifier.Model {
	case ModelGrandConcerto:
		maxZones = maxZonesGrandConcerto
	case ModelEssentiaG:
		maxZones = maxZonesEssentiaG
	default:
		errs = append(errs, fmt.Sprintf("amplifier.model must be %q or %q", ModelGrandConcerto, ModelEssentiaG))
	}

	if c.Amplifier.Driver.Host == "" {
		errs = append(errs, "amplifier.driver.host is required")
	}
	if c.Amplifier.Driver.Port < 1 || c.Amplifier.Driver.Port > 65535 {
		errs = append(errs, "amplifier.driver.port must be between 1 and 65535")
	}
	if c.Amplifier.VolumeStep <= 0 || c.Amplifier.VolumeStep > 1 {
		errs = append(errs, "amplifier.volume_step must be between 0 and 1")
	}

	// Zone validation
	if len(c.Zones) == 0 {
		errs = append(errs, "at least one zone is required")
	}
	seenZones := make(map[int]bool, len(c.Zones))
	for _, z := range c.Zones {
		if maxZones > 0 && (z.ID < 1 || z.ID > maxZones) {
			errs = append(errs, fmt.Sprintf("zone id %d out of range for %s (1-%d)", z.ID, c.Amplifier.Model, maxZones))
		}
		if seenZones[z.ID] {
			errs = append(errs, fmt.Sprintf("duplicate zone id %d", z.ID))
		}
		seenZones[z.ID] = true
		if z.Name == "" {
			errs = append(errs, fmt.Sprintf("zone %d is missing a name", z.ID))
		}
	}

	// Source validation
	seenSources := make(map[int]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.ID < 1 || s.ID > maxSources {
			errs = append(errs, fmt.Sprintf("source id %d out of range (1-%d)", s.ID, maxSources))
		}
		if seenSources[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate source id %d", s.ID))
		}
		seenSources[s.ID] = true
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

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRequestTimeout returns the driver request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Amplifier.Driver.RequestTimeout) * time.Second
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

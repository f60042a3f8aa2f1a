package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Slate Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	School    SchoolConfig    `yaml:"school"`
	Database  DatabaseConfig  `yaml:"database"`
	Directory DirectoryConfig `yaml:"directory"`
	Provision ProvisionConfig `yaml:"provision"`
	Timeslots TimeslotConfig  `yaml:"timeslots"`
	Actions   ActionConfig    `yaml:"actions"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SchoolConfig contains tenant-specific information.
type SchoolConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DirectoryConfig contains settings for the remote MDM/directory service.
type DirectoryConfig struct {
	// BaseURL is the root of the directory REST API (e.g., "https://mdm.example.com/api").
	BaseURL string `yaml:"base_url"`

	// NetworkID identifies the tenant ("company") on the directory service.
	NetworkID string `yaml:"network_id"`

	// APIKey authenticates unprivileged directory calls.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// ProvisionConfig contains settings for directory bootstrap.
type ProvisionConfig struct {
	// ClassName is the reserved sentinel name for the system class in each location.
	ClassName string `yaml:"class_name"`

	// TeacherPrefix is the reserved username prefix for system teacher accounts.
	// The per-location suffix is appended, e.g. "slate.teacher.4".
	TeacherPrefix string `yaml:"teacher_prefix"`

	// TeacherGroupPrefix is the reserved name prefix for system teacher groups.
	TeacherGroupPrefix string `yaml:"teacher_group_prefix"`

	// TeacherPassword is the default password for system teacher accounts,
	// exchanged for the session token during bootstrap.
	TeacherPassword string `yaml:"teacher_password"`
}

// TimeslotConfig contains the hour ranges used for schedule resolution.
// Ranges are half-open [start, end) on the 24h clock.
type TimeslotConfig struct {
	AMStart   int `yaml:"am_start"`
	AMEnd     int `yaml:"am_end"`
	PMStart   int `yaml:"pm_start"`
	PMEnd     int `yaml:"pm_end"`
	HomeStart int `yaml:"home_start"`
	HomeEnd   int `yaml:"home_end"`
}

// ActionConfig contains batch device-action executor settings.
type ActionConfig struct {
	// Workers bounds the number of concurrent outbound device calls per batch.
	Workers int `yaml:"workers"`

	// ProgressEvents enables per-device progress broadcasts during a batch run.
	ProgressEvents bool `yaml:"progress_events"`
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

// MQTTConfig contains MQTT broker connection settings for event mirroring.
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

// SecurityConfig contains authentication settings for the local API.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings for teacher sessions.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SLATE_SECTION_KEY
// For example: SLATE_DATABASE_PATH, SLATE_DIRECTORY_API_KEY
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
		School: SchoolConfig{
			ID:       "school-001",
			Name:     "Slate",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/slate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Directory: DirectoryConfig{
			Timeout: 30,
		},
		Provision: ProvisionConfig{
			ClassName:          "Slate Control",
			TeacherPrefix:      "slate.teacher.",
			TeacherGroupPrefix: "Slate Teachers ",
		},
		Timeslots: TimeslotConfig{
			AMStart:   8,
			AMEnd:     12,
			PMStart:   12,
			PMEnd:     17,
			HomeStart: 17,
			HomeEnd:   24,
		},
		Actions: ActionConfig{
			Workers:        6,
			ProgressEvents: true,
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
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "slate-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
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
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SLATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("SLATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Directory service
	if v := os.Getenv("SLATE_DIRECTORY_BASE_URL"); v != "" {
		cfg.Directory.BaseURL = v
	}
	if v := os.Getenv("SLATE_DIRECTORY_NETWORK_ID"); v != "" {
		cfg.Directory.NetworkID = v
	}
	if v := os.Getenv("SLATE_DIRECTORY_API_KEY"); v != "" {
		cfg.Directory.APIKey = v
	}

	// Provisioning
	if v := os.Getenv("SLATE_PROVISION_TEACHER_PASSWORD"); v != "" {
		cfg.Provision.TeacherPassword = v
	}

	// API
	if v := os.Getenv("SLATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SLATE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("SLATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SLATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SLATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("SLATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("SLATE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// School validation
	if c.School.ID == "" {
		errs = append(errs, "school.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Directory validation
	if c.Directory.BaseURL == "" {
		errs = append(errs, "directory.base_url is required")
	}
	if c.Directory.NetworkID == "" {
		errs = append(errs, "directory.network_id is required")
	}
	if c.Directory.APIKey == "" {
		errs = append(errs, "directory.api_key is required (set SLATE_DIRECTORY_API_KEY environment variable)")
	}

	// Provisioning validation
	if c.Provision.ClassName == "" {
		errs = append(errs, "provision.class_name is required")
	}
	if c.Provision.TeacherPrefix == "" {
		errs = append(errs, "provision.teacher_prefix is required")
	}
	if c.Provision.TeacherPassword == "" {
		errs = append(errs, "provision.teacher_password is required (set SLATE_PROVISION_TEACHER_PASSWORD environment variable)")
	}

	// Timeslot validation: each range must be within the 24h clock and non-inverted.
	// Empty ranges (start == end) are allowed; the resolver classifies those hours as blocked.
	errs = append(errs, validateHourRange("timeslots.am", c.Timeslots.AMStart, c.Timeslots.AMEnd)...)
	errs = append(errs, validateHourRange("timeslots.pm", c.Timeslots.PMStart, c.Timeslots.PMEnd)...)
	errs = append(errs, validateHourRange("timeslots.home", c.Timeslots.HomeStart, c.Timeslots.HomeEnd)...)

	// Action executor validation
	if c.Actions.Workers < 1 {
		errs = append(errs, "actions.workers must be at least 1")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Security validation - JWT secret is REQUIRED
	// Teacher tokens gate device restriction actions on children's tablets;
	// a forgeable token would let anyone lock or unlock a whole fleet.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set SLATE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateHourRange checks a half-open [start, end) hour range.
func validateHourRange(name string, start, end int) []string {
	var errs []string
	if start < 0 || start > 24 {
		errs = append(errs, name+"_start must be between 0 and 24")
	}
	if end < 0 || end > 24 {
		errs = append(errs, name+"_end must be between 0 and 24")
	}
	if start > end {
		errs = append(errs, name+" range must not be inverted")
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

// GetDirectoryTimeout returns the per-request directory timeout as a Duration.
func (c *Config) GetDirectoryTimeout() time.Duration {
	if c.Directory.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Directory.Timeout) * time.Second
}

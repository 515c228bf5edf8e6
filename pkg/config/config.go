package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/bytesize"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/api"
)

// serverAppName and clientAppName name the per-binary configuration
// directories under the XDG config root.
const (
	serverAppName = "computeserver"
	clientAppName = "computeclient"
)

// Config represents the compute server configuration.
//
// This structure captures the static configuration of the server:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Listener settings (address, connection limits, handshake timeouts)
//   - Compute settings (worker pool size, chunk planning)
//   - Result cache budget
//   - Registered users (bcrypt password hashes)
//   - Client address allow-list
//   - Operational HTTP API (health, status, metrics)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (COMPUTE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server contains the TCP listener configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Compute contains worker pool and chunk planning configuration
	Compute ComputeConfig `mapstructure:"compute" yaml:"compute"`

	// Cache configures the in-memory result cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// API contains the operational HTTP API configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Users lists the accounts allowed to authenticate.
	// Passwords are stored as bcrypt hashes, never in clear text.
	Users []UserConfig `mapstructure:"users" validate:"omitempty,dive" yaml:"users,omitempty"`

	// AllowList restricts which client addresses may connect
	AllowList AllowListConfig `mapstructure:"allow_list" yaml:"allow_list"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json, color
	Format string `mapstructure:"format" validate:"required,oneof=text json color" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g. Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	// Set to false in production with a TLS-enabled collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// 1.0 = sample all traces, 0.5 = sample 50%, 0.0 = no sampling
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// ServerConfig holds the TCP listener configuration.
//
// Host and Port may also be supplied as CLI positionals, which take
// precedence over the file values.
type ServerConfig struct {
	// Host is the address to listen on.
	// Default: "0.0.0.0" (all interfaces)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the TCP port to listen on for compute connections.
	// Default: 5555
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// MaxConnections limits the number of concurrent client connections.
	// When reached, new connections are rejected until existing ones close.
	// 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// MaxFrameSize bounds the declared length of a single incoming frame.
	// Frames announcing a larger payload are treated as corrupted.
	// Supports human-readable formats: "64MB", "1Gi".
	// Default: 64MiB
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" yaml:"max_frame_size,omitempty"`

	// Timeouts groups the handshake and write deadlines
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// TimeoutsConfig groups the per-connection deadlines.
type TimeoutsConfig struct {
	// Auth is the maximum time a freshly accepted socket may take to
	// deliver its login frame before being closed.
	// Default: 3s
	Auth time.Duration `mapstructure:"auth" validate:"min=0" yaml:"auth"`

	// Write is the maximum duration for writing a single frame to a client.
	// Default: 1s
	Write time.Duration `mapstructure:"write" validate:"min=0" yaml:"write"`
}

// ComputeConfig holds worker pool and chunk planning configuration.
type ComputeConfig struct {
	// Workers is the number of goroutines executing task chunks.
	// 0 means runtime.NumCPU().
	Workers int `mapstructure:"workers" validate:"min=0" yaml:"workers"`

	// QueueSize bounds the number of chunk closures waiting for a worker.
	// 0 means the built-in default.
	QueueSize int `mapstructure:"queue_size" validate:"min=0" yaml:"queue_size"`

	// MaxChunks caps how many chunks a single task is split into.
	// Default: 100
	MaxChunks int64 `mapstructure:"max_chunks" validate:"min=0" yaml:"max_chunks"`

	// MinChunkSize is the smallest chunk worth dispatching on its own.
	// Inputs below MinChunkSize×MaxChunks elements are split into
	// MinChunkSize-sized chunks instead of MaxChunks balanced ones.
	// Default: 100
	MinChunkSize int64 `mapstructure:"min_chunk_size" validate:"min=0" yaml:"min_chunk_size"`
}

// CacheConfig configures the in-memory result cache.
type CacheConfig struct {
	// MaxSize is the byte budget for cached result frames.
	// Supports human-readable formats: "64MB", "1Gi".
	// Default: 64MiB
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size,omitempty"`
}

// UserConfig describes one account allowed to authenticate.
type UserConfig struct {
	// Username identifies the account. At most one connection per
	// username may be live at a time.
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// PasswordHash is the bcrypt hash of the account password.
	// Generated by 'computeserver user add' or manually via
	// htpasswd -nbB "" "password" | cut -d: -f2
	PasswordHash string `mapstructure:"password_hash" validate:"required" yaml:"password_hash"`

	// Disabled blocks the account without removing it from the file.
	Disabled bool `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// AllowListConfig restricts which client addresses may connect.
//
// When disabled, any address may attempt the login handshake.
type AllowListConfig struct {
	// Enabled turns the allow-list on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Addresses lists the permitted client IP addresses
	Addresses []string `mapstructure:"addresses" yaml:"addresses,omitempty"`
}

// Load loads the server configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COMPUTE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath, serverAppName)

	// Read configuration file if it exists
	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the server configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions if config not found
func MustLoad(configPath string) (*Config, error) {
	// Determine config path
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  computeserver config init\n\n"+
				"Or specify a custom config file:\n"+
				"  computeserver <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  computeserver config init --config %s",
				configPath, configPath)
		}
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file with restricted permissions (0600 = owner read/write only).
	// This is important because config files contain password hashes.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath, appName string) {
	// Set up environment variable support
	// Environment variables use COMPUTE_ prefix and underscores
	// Example: COMPUTE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COMPUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/<app>/config.yaml
		configDir := getConfigDir(appName)
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use human-readable
// sizes like "1Gi", "500Mi", "100MB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to ByteSize
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "1Gi", "500Mi", "100MB"
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path for the given app.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir(appName string) string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", appName)
}

// GetDefaultConfigPath returns the default server configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(serverAppName), "config.yaml")
}

// DefaultConfigExists checks if a server config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the server configuration directory path (exposed for the config command).
func GetConfigDir() string {
	return getConfigDir(serverAppName)
}

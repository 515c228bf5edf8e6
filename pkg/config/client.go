package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ClientConfig represents the compute client configuration.
//
// The client keeps a much smaller surface than the server: where to
// connect, how patient to be about it, and how to log. Username and
// password normally arrive as CLI positionals; the credentials section
// exists so scripted runs can omit them.
type ClientConfig struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server is the compute server to connect to
	Server RemoteConfig `mapstructure:"server" yaml:"server"`

	// Local optionally pins the local address the socket binds to
	Local LocalBindConfig `mapstructure:"local" yaml:"local,omitempty"`

	// Connection groups the connect/write/reconnect timing knobs
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`

	// Credentials optionally stores the login identity.
	// CLI positionals take precedence over these values.
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials,omitempty"`
}

// RemoteConfig addresses the compute server.
type RemoteConfig struct {
	// Host is the server address.
	// Default: "127.0.0.1"
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server compute port.
	// Default: 5555
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// LocalBindConfig optionally pins the local end of the connection.
// Useful when the server enforces an address allow-list and the client
// machine has several interfaces.
type LocalBindConfig struct {
	// Host is the local address to bind. Empty lets the OS choose.
	Host string `mapstructure:"host" yaml:"host,omitempty"`

	// Port is the local port to bind. 0 lets the OS choose.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`
}

// ConnectionConfig groups the client-side timing knobs.
type ConnectionConfig struct {
	// ConnectTimeout bounds the initial dial.
	// Default: 10s
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"min=0" yaml:"connect_timeout"`

	// WriteTimeout is the maximum duration for writing a single frame.
	// Default: 1s
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0" yaml:"write_timeout"`

	// Reconnect controls whether the client rearms a connect attempt
	// after an unexpected disconnect.
	// Default: true
	// Use a pointer to distinguish "not set" from "explicitly false"
	Reconnect *bool `mapstructure:"reconnect" yaml:"reconnect,omitempty"`

	// ReconnectInterval is the delay before that reconnect attempt.
	// Default: 60s
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" validate:"min=0" yaml:"reconnect_interval"`
}

// ReconnectEnabled returns whether automatic reconnection is enabled.
// Defaults to true if not explicitly set.
func (c *ConnectionConfig) ReconnectEnabled() bool {
	if c.Reconnect == nil {
		return true
	}
	return *c.Reconnect
}

// CredentialsConfig optionally stores the login identity in the file.
type CredentialsConfig struct {
	// Username is the account name sent in the login frame
	Username string `mapstructure:"username" yaml:"username,omitempty"`

	// Password is the account password sent in the login frame.
	// Stored in clear text; protect the file (it is written 0600).
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// LoadClient loads the client configuration from file, environment, and defaults.
//
// Same precedence as the server Load: environment (COMPUTE_*) over file
// over defaults. A missing file is not an error; the defaults target
// localhost.
func LoadClient(configPath string) (*ClientConfig, error) {
	v := viper.New()

	setupViper(v, configPath, clientAppName)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultClientConfig()
		return cfg, nil
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}

	ApplyClientDefaults(&cfg)

	if err := ValidateClient(&cfg); err != nil {
		return nil, fmt.Errorf("client configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveClientConfig saves the client configuration to the specified file path.
func SaveClientConfig(cfg *ClientConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}

	// 0600 because the credentials section may hold a clear-text password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultClientConfigPath returns the default client configuration file path.
func GetDefaultClientConfigPath() string {
	return filepath.Join(getConfigDir(clientAppName), "config.yaml")
}

// DefaultClientConfigExists checks if a client config file exists at the default location.
func DefaultClientConfigExists() bool {
	path := GetDefaultClientConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

package config

import (
	"strings"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/bytesize"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/api"
)

// ApplyDefaults sets default values for any unspecified server configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyServerDefaults(&cfg.Server)
	applyComputeDefaults(&cfg.Compute)
	applyCacheDefaults(&cfg.Cache)
	applyAPIDefaults(&cfg.API)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyServerDefaults sets TCP listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 5555
	}
	// MaxConnections defaults to 0 (unlimited)
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = 64 * bytesize.MiB
	}
	if cfg.Timeouts.Auth == 0 {
		cfg.Timeouts.Auth = 3 * time.Second
	}
	if cfg.Timeouts.Write == 0 {
		cfg.Timeouts.Write = 1 * time.Second
	}
}

// applyComputeDefaults sets worker pool and chunk planning defaults.
func applyComputeDefaults(cfg *ComputeConfig) {
	// Workers defaults to 0 (resolved to runtime.NumCPU() by the pool)
	// QueueSize defaults to 0 (resolved by the pool)
	if cfg.MaxChunks == 0 {
		cfg.MaxChunks = 100
	}
	if cfg.MinChunkSize == 0 {
		cfg.MinChunkSize = 100
	}
}

// applyCacheDefaults sets result cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	// Default budget is 64MiB of encoded result frames
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 64 * bytesize.MiB
	}
}

// applyAPIDefaults sets operational API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// GetDefaultConfig returns a server Config with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Running without a configuration file
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyClientDefaults sets default values for any unspecified client configuration fields.
func ApplyClientDefaults(cfg *ClientConfig) {
	// The client prints task results on stdout, so diagnostics default to
	// stderr to keep piped output clean.
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	applyLoggingDefaults(&cfg.Logging)

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5555
	}
	// Local bind defaults to unset (OS chooses address and port)

	if cfg.Connection.ConnectTimeout == 0 {
		cfg.Connection.ConnectTimeout = 10 * time.Second
	}
	if cfg.Connection.WriteTimeout == 0 {
		cfg.Connection.WriteTimeout = 1 * time.Second
	}
	// Reconnect defaults to enabled via ReconnectEnabled()
	if cfg.Connection.ReconnectInterval == 0 {
		cfg.Connection.ReconnectInterval = 60 * time.Second
	}
}

// GetDefaultClientConfig returns a ClientConfig with all default values applied.
func GetDefaultClientConfig() *ClientConfig {
	cfg := &ClientConfig{}
	ApplyClientDefaults(cfg)
	return cfg
}

package commands

import (
	"os"
	"path/filepath"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/logger"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/config"
)

// InitLogger initializes the global logger from configuration.
func InitLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// GetDefaultStateDir returns the XDG state directory for runtime files
// (PID file, daemon log).
func GetDefaultStateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "/tmp/computeserver"
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "computeserver")
}

// GetDefaultPidFile returns the default PID file location.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "computeserver.pid")
}

// GetDefaultLogFile returns the default daemon log file location.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "computeserver.log")
}

// getConfigSource describes where configuration was loaded from, for
// startup logging.
func getConfigSource(path string) string {
	if path != "" {
		return path
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "built-in defaults"
}

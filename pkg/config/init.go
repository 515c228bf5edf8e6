package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configHeader is prepended to generated configuration files.
const configHeader = `# ComputeServer Configuration File
#
# Generated by 'computeserver config init'.
# Any value may be overridden with a COMPUTE_* environment variable
# (e.g. COMPUTE_LOGGING_LEVEL=DEBUG) or a CLI flag.
#
# Sizes accept human-readable values ("64MB", "1Gi"), durations accept
# Go syntax ("3s", "5m").

`

// configFooter documents the sections that are empty by default.
const configFooter = `
# Accounts are managed with 'computeserver user add|remove|list|passwd'.
# Example:
#
# users:
#   - username: alice
#     password_hash: $2a$10$N9qo8uLOickgx2ZMRZoMye...
#
# To restrict which client addresses may connect:
#
# allow_list:
#   enabled: true
#   addresses:
#     - 192.168.1.17
#     - 10.0.0.5
`

// InitConfig creates a default configuration file at the default location.
//
// Returns the path of the created file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath creates a default configuration file at the given path.
//
// The generated file carries the full default configuration plus commented
// examples for the sections that default to empty.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := renderDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// renderDefaultConfig produces the annotated YAML for a fresh config file.
func renderDefaultConfig() ([]byte, error) {
	body, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.Write(body)
	buf.WriteString(configFooter)
	return buf.Bytes(), nil
}

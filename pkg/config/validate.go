package config

import (
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
)

// structValidator drives the `validate` struct tags.
// A single instance is safe for concurrent use and caches struct metadata.
var structValidator = validator.New()

// Validate checks the server configuration for invalid values.
//
// Field-level constraints (ranges, oneof sets, required fields) are
// expressed as `validate` struct tags. Cross-field rules that tags cannot
// express are checked explicitly below.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}

	// Telemetry needs somewhere to export to once enabled.
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}

	// An enabled allow-list of malformed addresses would lock every client out.
	if cfg.AllowList.Enabled {
		for _, addr := range cfg.AllowList.Addresses {
			if net.ParseIP(addr) == nil {
				return fmt.Errorf("allow list address %q is not a valid IP address", addr)
			}
		}
	}

	// Duplicate usernames would make the file's intent ambiguous.
	seen := make(map[string]struct{}, len(cfg.Users))
	for _, u := range cfg.Users {
		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("duplicate user %q in users section", u.Username)
		}
		seen[u.Username] = struct{}{}
	}

	return nil
}

// ValidateClient checks the client configuration for invalid values.
func ValidateClient(cfg *ClientConfig) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}

	if cfg.Server.Host == "" {
		return fmt.Errorf("server host must not be empty")
	}

	return nil
}

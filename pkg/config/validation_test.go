package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidServerPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 70000 // Out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativeAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative port")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") && !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5 // Out of range (should be 0.0-1.0)

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_AllowListBadAddress(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.AllowList.Enabled = true
	cfg.AllowList.Addresses = []string{"192.168.1.17", "not-an-ip"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for malformed allow-list address")
	}
	if !strings.Contains(err.Error(), "allow list") {
		t.Errorf("Expected error about allow list, got: %v", err)
	}
}

func TestValidate_AllowListDisabledSkipsAddresses(t *testing.T) {
	// A disabled allow-list may carry junk without blocking startup.
	cfg := GetDefaultConfig()
	cfg.AllowList.Enabled = false
	cfg.AllowList.Addresses = []string{"not-an-ip"}

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected disabled allow-list to be ignored, got: %v", err)
	}
}

func TestValidate_UserMissingHash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Users = []UserConfig{{Username: "alice"}}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for user without password hash")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("Expected 'required' validation error, got: %v", err)
	}
}

func TestValidate_DuplicateUsers(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Users = []UserConfig{
		{Username: "alice", PasswordHash: "$2a$10$x"},
		{Username: "alice", PasswordHash: "$2a$10$y"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate users")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected 'duplicate' validation error, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Test that validation accepts both uppercase and lowercase log levels
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		err := Validate(cfg)
		if err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	// Test that normalization happens in ApplyDefaults
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestValidateClient_InvalidPort(t *testing.T) {
	cfg := GetDefaultClientConfig()
	cfg.Server.Port = 70000

	err := ValidateClient(cfg)
	if err == nil {
		t.Fatal("Expected validation error for client port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidateClient_EmptyHost(t *testing.T) {
	cfg := GetDefaultClientConfig()
	cfg.Server.Host = ""

	err := ValidateClient(cfg)
	if err == nil {
		t.Fatal("Expected validation error for empty server host")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadClient_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := LoadClient(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default client config, got: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 5555 {
		t.Errorf("Expected default server 127.0.0.1:5555, got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if !cfg.Connection.ReconnectEnabled() {
		t.Error("Expected reconnect enabled by default")
	}
}

func TestLoadClient_FileValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "192.168.1.2"
  port: 7000

local:
  host: "192.168.1.17"
  port: 40001

connection:
  connect_timeout: 2s
  reconnect: false
  reconnect_interval: 5s

credentials:
  username: alice
  password: secretpw
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadClient(configPath)
	if err != nil {
		t.Fatalf("Failed to load client config: %v", err)
	}

	if cfg.Server.Host != "192.168.1.2" || cfg.Server.Port != 7000 {
		t.Errorf("Unexpected server address %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Local.Host != "192.168.1.17" || cfg.Local.Port != 40001 {
		t.Errorf("Unexpected local bind %s:%d", cfg.Local.Host, cfg.Local.Port)
	}
	if cfg.Connection.ConnectTimeout != 2*time.Second {
		t.Errorf("Expected connect timeout 2s, got %v", cfg.Connection.ConnectTimeout)
	}
	if cfg.Connection.ReconnectEnabled() {
		t.Error("Expected reconnect explicitly disabled")
	}
	if cfg.Connection.ReconnectInterval != 5*time.Second {
		t.Errorf("Expected reconnect interval 5s, got %v", cfg.Connection.ReconnectInterval)
	}
	if cfg.Credentials.Username != "alice" || cfg.Credentials.Password != "secretpw" {
		t.Errorf("Unexpected credentials %+v", cfg.Credentials)
	}

	// Write timeout was not set and should default
	if cfg.Connection.WriteTimeout != 1*time.Second {
		t.Errorf("Expected default write timeout 1s, got %v", cfg.Connection.WriteTimeout)
	}
}

func TestSaveClientConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "client", "config.yaml")

	cfg := GetDefaultClientConfig()
	cfg.Server.Host = "10.0.0.9"
	reconnect := false
	cfg.Connection.Reconnect = &reconnect

	if err := SaveClientConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveClientConfig failed: %v", err)
	}

	loaded, err := LoadClient(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved client config: %v", err)
	}

	if loaded.Server.Host != "10.0.0.9" {
		t.Errorf("Expected saved host 10.0.0.9, got %q", loaded.Server.Host)
	}
	if loaded.Connection.ReconnectEnabled() {
		t.Error("Expected explicit reconnect=false to survive the round trip")
	}
}

func TestGetDefaultClientConfigPath(t *testing.T) {
	path := GetDefaultClientConfigPath()

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "computeclient" {
		t.Errorf("Expected directory name 'computeclient', got %q", filepath.Dir(path))
	}
}

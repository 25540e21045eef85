package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.ServerName != "formkey" {
		t.Errorf("Expected default server name to be 'formkey', got '%s'", cfg.ServerName)
	}

	if cfg.Inventory != "inventory.json" {
		t.Errorf("Expected default inventory to be 'inventory.json', got '%s'", cfg.Inventory)
	}

	if cfg.Index != "" || cfg.Ranges != "" || cfg.Aliases != "" || cfg.Metadata != "" {
		t.Errorf("Expected optional artifact paths to be empty, got %s", cfg.String())
	}

	if cfg.NameFallback {
		t.Error("Expected name fallback to be off by default")
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.Dir != currentDir {
		t.Errorf("Expected default directory to be '%s', got '%s'", currentDir, cfg.Dir)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config - stdio mode", mutate: func(*Config) {}},
		{name: "valid config - server mode", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "invalid" }, wantErr: "mode must be"},
		{
			name:    "invalid port - too low (server mode)",
			mutate:  func(c *Config) { c.Mode, c.Port = ModeServer, 0 },
			wantErr: "port must be",
		},
		{
			name:    "invalid port - too high (server mode)",
			mutate:  func(c *Config) { c.Mode, c.Port = ModeServer, 70000 },
			wantErr: "port must be",
		},
		{name: "invalid port ignored in stdio mode", mutate: func(c *Config) { c.Port = 0 }},
		{name: "empty directory", mutate: func(c *Config) { c.Dir = "" }, wantErr: "workspace directory"},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "invalid" }, wantErr: "invalid log level"},
		{name: "invalid max file size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "file size"},
		{name: "empty inventory", mutate: func(c *Config) { c.Inventory = "" }, wantErr: "inventory path"},
		{name: "negative label cache", mutate: func(c *Config) { c.LabelCache = -1 }, wantErr: "label cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateCreatesDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = filepath.Join(t.TempDir(), "nested", "workspace")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error = %v", err)
	}
	if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
		t.Errorf("Expected workspace %s to be created", cfg.Dir)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{
		Host: "192.168.1.1",
		Port: 9090,
	}

	expected := "192.168.1.1:9090"
	if got := cfg.Address(); got != expected {
		t.Errorf("Config.Address() = %v, want %v", got, expected)
	}
}

func TestConfigIsDebug(t *testing.T) {
	tests := []struct {
		logLevel string
		want     bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"error", false},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("Config.IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigModes(t *testing.T) {
	cfg := &Config{Mode: ModeServer}
	if !cfg.IsServerMode() || cfg.IsStdioMode() {
		t.Errorf("Expected server mode for %q", cfg.Mode)
	}
	cfg.Mode = ModeStdio
	if cfg.IsServerMode() || !cfg.IsStdioMode() {
		t.Errorf("Expected stdio mode for %q", cfg.Mode)
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index = "index.yaml"
	s := cfg.String()
	for _, want := range []string{"Mode: stdio", "Index: index.yaml", "Inventory: inventory.json", "NameFallback: false"} {
		if !strings.Contains(s, want) {
			t.Errorf("Config.String() = %s, missing %q", s, want)
		}
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = "/work"
	cfg.Index = "index.yaml"
	cfg.LogLevel = "debug"
	cfg.NameFallback = true
	logger := log.New(os.Stderr, "", 0)

	opts := cfg.ServiceOptions(logger)
	if opts.Dir != "/work" || opts.Index != "index.yaml" || opts.Inventory != "inventory.json" {
		t.Errorf("ServiceOptions() paths = %+v", opts)
	}
	if !opts.Debug || !opts.NameFallback {
		t.Errorf("ServiceOptions() flags = debug %t, namefallback %t", opts.Debug, opts.NameFallback)
	}
	if opts.Logger != logger {
		t.Error("ServiceOptions() did not carry the logger")
	}
	if opts.LabelCacheSize != cfg.LabelCache || opts.MaxFileSize != cfg.MaxFileSize {
		t.Errorf("ServiceOptions() sizes = %+v", opts)
	}
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/formkey/internal/semantic"
	"github.com/a3tai/formkey/internal/service"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultInventory   = "inventory.json"

	// EnvPrefix is prepended to every environment override, e.g. FORMKEY_DIR
	EnvPrefix = "FORMKEY"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the formkey CLI and MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Workspace directory; every artifact and document path stays inside it
	Dir string

	// Artifact paths, relative to Dir unless absolute. Empty Ranges,
	// Aliases and Metadata select the built-in tables.
	Index     string
	Ranges    string
	Aliases   string
	Metadata  string
	Inventory string

	// Engine configuration
	LabelCache   int
	NameFallback bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum input file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Dir:         currentDir,
		Inventory:   DefaultInventory,
		LabelCache:  semantic.DefaultLabelCacheSize,
		Version:     "1.0.0",
		ServerName:  "formkey",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// BindFlags defines every configuration flag on flags and binds it, plus its
// FORMKEY_ environment variable, into v.
func BindFlags(flags *pflag.FlagSet, v *viper.Viper) {
	cfg := DefaultConfig()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	flags.String("mode", cfg.Mode, "Server mode for serve: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("dir", cfg.Dir, "Workspace directory holding documents and artifacts")
	flags.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
	flags.String("index", cfg.Index, "Structural index (YAML or JSON)")
	flags.String("ranges", cfg.Ranges, "Page-range table (YAML or JSON); built-in table when empty")
	flags.String("aliases", cfg.Aliases, "Section/subsection alias table (YAML); built-in table when empty")
	flags.String("metadata", cfg.Metadata, "Selection option metadata (YAML or JSON)")
	flags.String("inventory", cfg.Inventory, "Inventory artifact path")
	flags.Int("labelcache", cfg.LabelCache, "Label cache size (entries)")
	flags.Bool("namefallback", cfg.NameFallback, "Resolve unindexed fields from their names (tagged name-pattern)")

	for _, key := range []string{
		"mode", "host", "port", "dir", "loglevel", "maxfilesize", "index", "ranges",
		"aliases", "metadata", "inventory", "labelcache", "namefallback",
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
}

// Load reads the configuration from v (flags, environment, defaults) and
// validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	populateConfigFromViper(cfg, v)

	if cfg.Dir != "" {
		if expandedPath, err := filepath.Abs(cfg.Dir); err == nil {
			cfg.Dir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// populateConfigFromViper fills the config struct with values from viper.
// Keys viper does not know keep their defaults.
func populateConfigFromViper(cfg *Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setString("mode", &cfg.Mode)
	setString("host", &cfg.Host)
	setString("dir", &cfg.Dir)
	setString("loglevel", &cfg.LogLevel)
	setString("index", &cfg.Index)
	setString("ranges", &cfg.Ranges)
	setString("aliases", &cfg.Aliases)
	setString("metadata", &cfg.Metadata)
	setString("inventory", &cfg.Inventory)

	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("maxfilesize") {
		cfg.MaxFileSize = v.GetInt64("maxfilesize")
	}
	if v.IsSet("labelcache") {
		cfg.LabelCache = v.GetInt("labelcache")
	}
	if v.IsSet("namefallback") {
		cfg.NameFallback = v.GetBool("namefallback")
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when serving over HTTP
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Dir == "" {
		return errors.New("workspace directory cannot be empty")
	}

	// Check if the workspace exists, create if it doesn't
	if _, err := os.Stat(c.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create workspace directory %s: %w", c.Dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access workspace directory %s: %w", c.Dir, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Inventory == "" {
		return errors.New("inventory path cannot be empty")
	}

	if c.LabelCache < 0 {
		return errors.New("label cache size cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ServiceOptions maps the configuration onto the service settings
func (c *Config) ServiceOptions(logger *log.Logger) service.Options {
	return service.Options{
		Dir:            c.Dir,
		MaxFileSize:    c.MaxFileSize,
		Index:          c.Index,
		Ranges:         c.Ranges,
		Aliases:        c.Aliases,
		Metadata:       c.Metadata,
		Inventory:      c.Inventory,
		LabelCacheSize: c.LabelCache,
		NameFallback:   c.NameFallback,
		Logger:         logger,
		Debug:          c.IsDebug(),
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Dir: %s, Index: %s, Ranges: %s, Inventory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, LabelCache: %d, NameFallback: %t}",
		c.Mode, c.Host, c.Port, c.Dir, c.Index, c.Ranges, c.Inventory,
		c.LogLevel, c.MaxFileSize, c.LabelCache, c.NameFallback)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

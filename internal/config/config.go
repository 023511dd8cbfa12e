// Package config provides configuration file and environment variable support for claimflow.
//
// Configuration priority (highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Config file (~/.claimflow/config.toml)
//  4. Built-in defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the claimflow configuration.
type Config struct {
	// DB is the path to the database file.
	// Default: ~/.claimflow/claimflow.db
	DB string `toml:"db"`

	// NoColor disables colored output.
	// Default: false
	NoColor bool `toml:"no_color"`

	// DefaultOrg is the default organization key for commands.
	// Used when --org/-o flag is not specified.
	DefaultOrg string `toml:"default_org"`

	// ActorID is the default acting identity for commands.
	// Used when --actor flag is not specified.
	ActorID string `toml:"actor_id"`

	// RoleLevel is the default actor role level for commands.
	// Used when --role-level flag is not specified.
	// Default: 10 (member)
	RoleLevel int `toml:"role_level"`

	// ServerPort is the HTTP API port for claimflow serve.
	// Default: 18440
	ServerPort int `toml:"server_port"`

	// Backup configures automatic database backups.
	Backup BackupConfig `toml:"backup"`
}

// BackupConfig controls automatic database backup behavior.
type BackupConfig struct {
	// Enabled turns automatic startup backups on or off.
	// Default: true
	Enabled bool `toml:"enabled"`

	// IntervalHours is the minimum age of the last backup before a new
	// one is taken. Default: 24
	IntervalHours int `toml:"interval_hours"`

	// MaxCount is the number of rotating backups to keep. Default: 3
	MaxCount int `toml:"max_count"`

	// Path is the backup directory. Empty means alongside the database.
	Path string `toml:"path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		DB:         "", // Empty means use db.DefaultDBPath
		NoColor:    false,
		RoleLevel:  10,
		ServerPort: 18440,
		Backup: BackupConfig{
			Enabled:       true,
			IntervalHours: 24,
			MaxCount:      3,
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claimflow", "config.toml")
}

// Load loads configuration from the config file and environment variables.
// Environment variables take precedence over file settings.
// Returns default config if the config file doesn't exist.
func Load() (*Config, error) {
	return LoadFromPath(DefaultConfigPath())
}

// LoadFromPath loads configuration from a specific file path.
// Environment variables take precedence over file settings.
// Returns default config if the config file doesn't exist.
func LoadFromPath(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if _, err := toml.DecodeFile(configPath, cfg); err != nil {
				return nil, err
			}
		}
		// If file doesn't exist, just continue with defaults
	}

	// Apply environment variable overrides
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv applies environment variable overrides to the config.
func (c *Config) applyEnv() {
	if db := os.Getenv("CLAIMFLOW_DB"); db != "" {
		c.DB = db
	}

	// CLAIMFLOW_NO_COLOR - any value means true
	if _, ok := os.LookupEnv("CLAIMFLOW_NO_COLOR"); ok {
		c.NoColor = true
	}

	if org := os.Getenv("CLAIMFLOW_DEFAULT_ORG"); org != "" {
		c.DefaultOrg = org
	}

	if actor := os.Getenv("CLAIMFLOW_ACTOR_ID"); actor != "" {
		c.ActorID = actor
	}

	if level := os.Getenv("CLAIMFLOW_ROLE_LEVEL"); level != "" {
		if n, err := strconv.Atoi(level); err == nil && n > 0 {
			c.RoleLevel = n
		}
	}

	if port := os.Getenv("CLAIMFLOW_SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			c.ServerPort = n
		}
	}
}

// GetDB returns the database path, using the default if not set.
func (c *Config) GetDB() string {
	if c.DB != "" {
		return c.DB
	}
	return "" // Return empty to signal use of db.DefaultDBPath
}

// SampleConfig returns a sample configuration file content.
func SampleConfig() string {
	return `# Claimflow Configuration File
# Location: ~/.claimflow/config.toml
#
# Configuration priority (highest to lowest):
#   1. Command-line flags
#   2. Environment variables (CLAIMFLOW_*)
#   3. This config file
#   4. Built-in defaults

# Path to the database file
# Default: ~/.claimflow/claimflow.db
# Environment: CLAIMFLOW_DB
# db = "/path/to/claimflow.db"

# Disable colored output
# Default: false
# Environment: CLAIMFLOW_NO_COLOR (any value = true)
# no_color = false

# Default organization key for commands
# Used when --org/-o flag is not specified
# Environment: CLAIMFLOW_DEFAULT_ORG
# default_org = "ACME"

# Default acting identity for commands
# Used when --actor flag is not specified
# Environment: CLAIMFLOW_ACTOR_ID
# actor_id = "steward-1"

# Default actor role level for commands
# member=10, steward=40, officer=60, admin=90
# Environment: CLAIMFLOW_ROLE_LEVEL
# role_level = 10

# HTTP API port for claimflow serve
# Default: 18440
# Environment: CLAIMFLOW_SERVER_PORT
# server_port = 18440

# Automatic database backups
# [backup]
# enabled = true
# interval_hours = 24
# max_count = 3
# path = ""
`
}

// WriteConfigFile writes the sample config file to the specified path.
// Creates parent directories if needed.
func WriteConfigFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(SampleConfig()), 0644)
}

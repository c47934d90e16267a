package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sha1n/mcp-orange-server/internal/exclusion"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeAPIKey = "apikey"
)

// envPrefix is the prefix of every environment variable read by the server.
const envPrefix = "ORANGE_MCP"

// AuthSettings configuration for authentication of the SSE transport
type AuthSettings struct {
	Type        string   `mapstructure:"type"` // AuthTypeNone or AuthTypeAPIKey
	APIKeys     []string `mapstructure:"api_keys"`
	AllowRemote bool     `mapstructure:"allow_remote"`
}

// IndexSettings configuration for the file index and the walk that feeds it
type IndexSettings struct {
	DataDir        string        `mapstructure:"data_dir"`
	HomeDir        string        `mapstructure:"home_dir"`
	ExcludePaths   []string      `mapstructure:"exclude_paths"`
	IgnorePatterns []string      `mapstructure:"ignore_patterns"`
	WalkOnStart    bool          `mapstructure:"walk_on_start"`
	SuggestLimit   int           `mapstructure:"suggest_limit"`
	SearchLimit    int           `mapstructure:"search_limit"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`
}

// Settings application settings
type Settings struct {
	Transport string        `mapstructure:"transport"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	LogLevel  string        `mapstructure:"log_level"`
	Auth      AuthSettings  `mapstructure:"auth"`
	Index     IndexSettings `mapstructure:"index"`
}

// flagBindings maps settings keys to CLI flag names.
var flagBindings = map[string]string{
	"transport":             "transport",
	"host":                  "host",
	"port":                  "port",
	"log_level":             "log-level",
	"auth.type":             "auth-type",
	"auth.api_keys":         "auth-api-keys",
	"auth.allow_remote":     "auth-allow-remote",
	"index.data_dir":        "data-dir",
	"index.home_dir":        "home-dir",
	"index.exclude_paths":   "exclude-paths",
	"index.ignore_patterns": "ignore-patterns",
	"index.walk_on_start":   "walk-on-start",
	"index.suggest_limit":   "suggest-limit",
	"index.search_limit":    "search-limit",
	"index.lock_timeout":    "lock-timeout",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("auth.type", AuthTypeNone)
	v.SetDefault("auth.allow_remote", false)

	// Index defaults
	v.SetDefault("index.data_dir", defaultDataDir())
	v.SetDefault("index.home_dir", "")
	v.SetDefault("index.walk_on_start", true)
	v.SetDefault("index.suggest_limit", 20)
	v.SetDefault("index.search_limit", 100)
	v.SetDefault("index.lock_timeout", 5*time.Second)

	// Environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested keys explicitly; AutomaticEnv only sees keys viper already knows
	for key := range flagBindings {
		_ = v.BindEnv(key, envName(key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Auth.APIKeys = splitList(settings.Auth.APIKeys, envName("auth.api_keys"))
	settings.Index.ExcludePaths = splitList(settings.Index.ExcludePaths, envName("index.exclude_paths"))
	settings.Index.IgnorePatterns = splitList(settings.Index.IgnorePatterns, envName("index.ignore_patterns"))

	settings.Index.DataDir = expandHomeDir(settings.Index.DataDir)
	settings.Index.HomeDir = expandHomeDir(settings.Index.HomeDir)
	for i := range settings.Index.ExcludePaths {
		settings.Index.ExcludePaths[i] = expandHomeDir(settings.Index.ExcludePaths[i])
	}

	return &settings, nil
}

// envName returns the environment variable bound to a settings key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// splitList handles list settings given as a comma-separated environment
// variable, trims every item and drops empty ones.
func splitList(values []string, env string) []string {
	if raw := os.Getenv(env); raw != "" {
		if len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ",")) {
			values = strings.Split(raw, ",")
		}
	}

	result := []string{}
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}
	return result
}

// defaultDataDir returns the default directory for the index and checkpoints
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".orange-mcp"
	}
	return filepath.Join(home, ".orange-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config,
// or index settings the walk cannot run with.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeAPIKey:
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if s.Transport == "sse" && s.Auth.AllowRemote && (s.Auth.Type == AuthTypeNone || s.Auth.Type == "") {
		return errors.New("auth-allow-remote requires auth-type 'apikey'")
	}

	return validateIndexSettings(&s.Index)
}

// validateIndexSettings validates the index configuration
func validateIndexSettings(idx *IndexSettings) error {
	if idx.DataDir == "" {
		return errors.New("data-dir cannot be empty")
	}

	if idx.HomeDir != "" && !filepath.IsAbs(idx.HomeDir) {
		return errors.New("home-dir must be an absolute path, got: " + idx.HomeDir)
	}

	for _, path := range idx.ExcludePaths {
		if _, err := exclusion.ValidatePrefix(path); err != nil {
			return fmt.Errorf("invalid exclude path %q: %w", path, err)
		}
	}

	if _, err := exclusion.NewPatterns(idx.IgnorePatterns); err != nil {
		return err
	}

	if idx.SuggestLimit <= 0 {
		return errors.New("suggest-limit must be positive")
	}

	if idx.SearchLimit <= 0 {
		return errors.New("search-limit must be positive")
	}

	if idx.LockTimeout <= 0 {
		return errors.New("lock-timeout must be positive")
	}

	return nil
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ParseLogLevel converts a log_level setting to a slog level.
// An empty value is info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level must be one of debug, info, warn, error, got: %s", level)
	}
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)

		logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
		if s.Auth.Type == AuthTypeAPIKey {
			logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
		}
		logger.InfoContext(ctx, "Config: auth.allow_remote", "value", s.Auth.AllowRemote)
	}
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)

	logger.InfoContext(ctx, "Config: index.data_dir", "value", s.Index.DataDir)
	if s.Index.HomeDir != "" {
		logger.InfoContext(ctx, "Config: index.home_dir", "value", s.Index.HomeDir)
	}
	logger.InfoContext(ctx, "Config: index.exclude_paths", "value", s.Index.ExcludePaths)
	if len(s.Index.IgnorePatterns) > 0 {
		logger.InfoContext(ctx, "Config: index.ignore_patterns", "value", s.Index.IgnorePatterns)
	}
	logger.InfoContext(ctx, "Config: index.walk_on_start", "value", s.Index.WalkOnStart)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("api_keys", keys),
		slog.Bool("allow_remote", s.AllowRemote),
	)
}

// IndexSettingsLogValue returns a slog.Value for IndexSettings
func IndexSettingsLogValue(s IndexSettings) slog.Value {
	return slog.GroupValue(
		slog.String("data_dir", s.DataDir),
		slog.String("home_dir", s.HomeDir),
		slog.Any("exclude_paths", s.ExcludePaths),
		slog.Any("ignore_patterns", s.IgnorePatterns),
		slog.Bool("walk_on_start", s.WalkOnStart),
		slog.Int("suggest_limit", s.SuggestLimit),
		slog.Int("search_limit", s.SearchLimit),
		slog.Duration("lock_timeout", s.LockTimeout),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.String("log_level", s.LogLevel),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("index", IndexSettingsLogValue(s.Index)),
	)
}

package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger_StdioTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Host = "localhost"
	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "transport") {
		t.Error("Expected 'transport' in log output")
	}
	// stdio transport should not log host/port or auth
	if strings.Contains(output, "Config: host") {
		t.Error("Expected no 'host' in log output for stdio transport")
	}
	if strings.Contains(output, "auth.type") {
		t.Error("Expected no auth settings in log output for stdio transport")
	}
	if !strings.Contains(output, "index.data_dir") {
		t.Error("Expected 'index.data_dir' in log output")
	}
}

func TestLogWithLogger_SSETransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Transport = "sse"
	s.Host = "localhost"
	s.Port = 8080
	LogWithLogger(s, logger)

	output := buf.String()
	for _, want := range []string{"transport", "host", "port", "auth.type", "auth.allow_remote"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output for SSE transport", want)
		}
	}
}

func TestLogWithLogger_APIKeyAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Transport = "sse"
	s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1", "key2", "secret3"}}
	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "count=3") {
		t.Errorf("Expected 'count=3' in log output, got: %s", output)
	}
	if strings.Contains(output, "secret3") {
		t.Error("API keys should not be logged")
	}
}

func TestSettingsLogValue(t *testing.T) {
	s := *validSettings()
	s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"secret"}}

	val := SettingsLogValue(s)
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("settings", "settings", val)
	if strings.Contains(buf.String(), "secret") {
		t.Error("API keys should be masked")
	}
	if !strings.Contains(buf.String(), "settings.index.data_dir=/var/lib/orange") {
		t.Errorf("Expected index group in output, got: %s", buf.String())
	}
}

func TestIndexSettingsLogValue(t *testing.T) {
	val := IndexSettingsLogValue(validSettings().Index)
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}
}

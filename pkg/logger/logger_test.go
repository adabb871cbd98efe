package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"nonsense", INFO},
		{" info ", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMaskSecrets(t *testing.T) {
	fields := map[string]any{
		"api_key":    "sk-12345",
		"auth_token": "tok",
		"secret":     "hush",
		"agent":      "researcher",
	}
	masked := maskSecrets(fields)

	for _, key := range []string{"api_key", "auth_token", "secret"} {
		if masked[key] != "***" {
			t.Errorf("%s = %v, want masked", key, masked[key])
		}
	}
	if masked["agent"] != "researcher" {
		t.Errorf("agent = %v", masked["agent"])
	}
	if fields["api_key"] != "sk-12345" {
		t.Error("input map must not be mutated")
	}
}

func TestFileLoggingWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.log")
	if err := EnableFileLogging(path); err != nil {
		t.Fatal(err)
	}
	defer DisableFileLogging()

	prev := GetLevel()
	SetLevel(INFO)
	defer SetLevel(prev)

	InfoCF("test", "hello", map[string]any{"agent": "researcher", "api_key": "sk-x"})
	DisableFileLogging()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if e.Message != "hello" || e.Component != "test" || e.Level != "INFO" {
		t.Errorf("entry = %+v", e)
	}
	if e.Fields["api_key"] != "***" {
		t.Errorf("api_key = %v, must be masked in the sink too", e.Fields["api_key"])
	}
}

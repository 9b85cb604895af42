package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("creating temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
db_path: "/var/lib/holidaysync/holidays.db"
listen_addr: "127.0.0.1:9090"
jwt_secret: "0123456789abcdef0123"
sync_hour: 4
timezone: "America/New_York"
http_timeout: 45s
default_limit: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBPath != "/var/lib/holidaysync/holidays.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ListenAddr != "127.0.0.1:9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, "127.0.0.1:9090")
	}
	if cfg.Hour() != 4 {
		t.Errorf("Hour = %d, want 4", cfg.Hour())
	}
	if cfg.Location().String() != "America/New_York" {
		t.Errorf("Location = %s, want America/New_York", cfg.Location())
	}
	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("HTTPTimeout = %v, want 45s", cfg.HTTPTimeout)
	}
	if cfg.DefaultLimit != 50 {
		t.Errorf("DefaultLimit = %d, want 50", cfg.DefaultLimit)
	}
	if err := cfg.RequireServe(); err != nil {
		t.Errorf("RequireServe: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
db_path: "holidays.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, want default %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Hour() != DefaultSyncHour {
		t.Errorf("Hour = %d, want default %d", cfg.Hour(), DefaultSyncHour)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location = %s, want UTC", cfg.Location())
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want default %v", cfg.HTTPTimeout, DefaultHTTPTimeout)
	}
	if cfg.DefaultLimit != DefaultLogLimit {
		t.Errorf("DefaultLimit = %d, want default %d", cfg.DefaultLimit, DefaultLogLimit)
	}
	if err := cfg.RequireServe(); err == nil {
		t.Error("RequireServe should fail without jwt_secret")
	}
}

func TestLoad_MidnightSyncHour(t *testing.T) {
	path := writeConfig(t, `
sync_hour: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hour() != 0 {
		t.Errorf("Hour = %d, want 0 (explicit midnight)", cfg.Hour())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"sync hour too large", "sync_hour: 24\n"},
		{"negative sync hour", "sync_hour: -1\n"},
		{"unknown timezone", "timezone: \"Mars/Olympus_Mons\"\n"},
		{"negative timeout", "http_timeout: -5s\n"},
		{"timeout too long", "http_timeout: 1h\n"},
		{"limit too large", "default_limit: 501\n"},
		{"short jwt secret", "jwt_secret: \"short\"\n"},
		{"telemetry without endpoint", "telemetry:\n  insecure: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":8080"
sync_hours: 3
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Error("DefaultPath returned empty string")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	hour := 5
	cfg := &Config{
		DBPath:    "/tmp/h.db",
		JWTSecret: "0123456789abcdef",
		SyncHour:  &hour,
		Timezone:  "Europe/Berlin",
		Telemetry: &TelemetryConfig{OTLPEndpoint: "localhost:4317", Insecure: true},
	}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Write: %v", err)
	}
	if got.JWTSecret != cfg.JWTSecret || got.Hour() != 5 || got.Timezone != "Europe/Berlin" {
		t.Errorf("round trip = %+v", got)
	}
	if got.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", got.HTTPTimeout, DefaultHTTPTimeout)
	}
	if got.Telemetry == nil || got.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("Telemetry = %+v", got.Telemetry)
	}
}

func TestWrite_RejectsInvalid(t *testing.T) {
	hour := 30
	cfg := &Config{SyncHour: &hour}
	if err := cfg.Write(filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoad_TelemetryValid(t *testing.T) {
	path := writeConfig(t, `
telemetry:
  otlp_endpoint: "localhost:4317"
  insecure: true
  service_name: "my-holidaysync"
  environment: "staging"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry == nil {
		t.Fatal("expected Telemetry to be non-nil")
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.Telemetry.OTLPEndpoint, "localhost:4317")
	}
	if !cfg.Telemetry.Insecure {
		t.Error("Insecure = false, want true")
	}
	if cfg.Telemetry.ServiceName != "my-holidaysync" {
		t.Errorf("ServiceName = %q, want %q", cfg.Telemetry.ServiceName, "my-holidaysync")
	}
	if cfg.Telemetry.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Telemetry.Environment)
	}
}

func TestLoad_TelemetryOmitted(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry != nil {
		t.Error("expected Telemetry to be nil when block is omitted")
	}
}

func TestLoad_TelemetryHeaders(t *testing.T) {
	path := writeConfig(t, `
telemetry:
  otlp_endpoint: "otelcol.example.com:4317"
  headers:
    Authorization: "Bearer secret"
    x-dataset: "test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Telemetry.Headers) != 2 {
		t.Fatalf("Headers len = %d, want 2", len(cfg.Telemetry.Headers))
	}
	if cfg.Telemetry.Headers["Authorization"] != "Bearer secret" {
		t.Errorf("Authorization header = %q, want %q", cfg.Telemetry.Headers["Authorization"], "Bearer secret")
	}
}

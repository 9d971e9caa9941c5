package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(body), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Port != 8080 || cfg.Remote.MaxRetries != 3 || cfg.Remote.LocatorNode != 13 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Schedule.BookAndCheckIn != "0 0 * * 1-5" || cfg.Schedule.AuthCheck != "0 1-23 * * *" {
		t.Fatalf("unexpected schedules %+v", cfg.Schedule)
	}
	if cfg.Storage.Driver != StorageFile {
		t.Fatalf("expected file storage, got %q", cfg.Storage.Driver)
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
remote:
  retry_delay: 250ms
  request_timeout: 5s
schedule:
  location: UTC
log:
  level: debug
`)
	t.Setenv("PORT", "9100")
	t.Setenv("DATA_PATH", "/var/lib/deskpilot/")
	t.Setenv("DATABASE_DSN", "file:deskpilot.db")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("expected env port, got %d", cfg.Server.Port)
	}
	if cfg.Remote.RetryDelay != 250*time.Millisecond || cfg.Remote.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected durations %+v", cfg.Remote)
	}
	if cfg.DataPath != "/var/lib/deskpilot" {
		t.Fatalf("unexpected data path %q", cfg.DataPath)
	}
	if cfg.Storage.Driver != StorageDatabase || cfg.Storage.DSN != "file:deskpilot.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Log.Level)
	}
	loc, errLoc := cfg.ScheduleLocation()
	if errLoc != nil || loc.String() != "UTC" {
		t.Fatalf("unexpected schedule location %v err=%v", loc, errLoc)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"port", func(c *AppConfig) { c.Server.Port = 0 }, "server.port"},
		{"retries", func(c *AppConfig) { c.Remote.MaxRetries = 0 }, "max_retries"},
		{"driver", func(c *AppConfig) { c.Storage.Driver = "s3" }, "storage.driver"},
		{"dsn", func(c *AppConfig) { c.Storage.Driver = StorageDatabase }, "storage.dsn"},
		{"zone", func(c *AppConfig) { c.Remote.TimeZone = "Mars/Olympus" }, "remote.time_zone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			errValidate := cfg.Validate()
			if errValidate == nil || !strings.Contains(errValidate.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, errValidate)
			}
		})
	}
	if errValidate := Default().Validate(); errValidate != nil {
		t.Fatalf("defaults should validate: %v", errValidate)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, errLoad := Load(writeConfig(t, "server: [")); errLoad == nil {
		t.Fatal("expected parse error")
	}
}

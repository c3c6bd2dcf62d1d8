package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Engine.MaxExecutionTimeSeconds != 120 {
		t.Errorf("Engine.MaxExecutionTimeSeconds = %d, want 120", cfg.Engine.MaxExecutionTimeSeconds)
	}
	if cfg.Engine.MaxExecutionTime() != 120*time.Second {
		t.Errorf("Engine.MaxExecutionTime() = %v, want 120s", cfg.Engine.MaxExecutionTime())
	}
	if cfg.Engine.ContinueOnFailureDefault {
		t.Error("Engine.ContinueOnFailureDefault should default to false")
	}
}

func TestDatabaseConfigConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5432, User: "svc", Password: "secret", Name: "scenarioflow", SSLMode: "disable",
	}
	got := cfg.ConnectionString()
	want := "host=db port=5432 user=svc password=secret dbname=scenarioflow sslmode=disable"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestApplyDatabaseURLOverride(t *testing.T) {
	old := os.Getenv("DATABASE_URL")
	defer os.Setenv("DATABASE_URL", old)

	os.Setenv("DATABASE_URL", "postgres://example")
	cfg := New()
	applyDatabaseURLOverride(cfg)

	if cfg.Database.DSN != "postgres://example" {
		t.Errorf("Database.DSN = %q, want postgres://example", cfg.Database.DSN)
	}
}

func TestLoadFileReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "server:\n  host: 127.0.0.1\n  port: 9090\nengine:\n  max_execution_time_seconds: 30\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Engine.MaxExecutionTimeSeconds != 30 {
		t.Errorf("Engine.MaxExecutionTimeSeconds = %d, want 30", cfg.Engine.MaxExecutionTimeSeconds)
	}
}

func TestLoadFileMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults to survive a missing file, got port %d", cfg.Server.Port)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("default addr: %q", c.Server.Addr)
	}
	if c.Throttle.Limit != 3 {
		t.Fatalf("default throttle limit: %d", c.Throttle.Limit)
	}
	ttl, err := c.VerifyTTL()
	if err != nil || ttl != 48*time.Hour {
		t.Fatalf("default verify ttl: %v (%v)", ttl, err)
	}
	if c.Notify.MaxRetries != 3 {
		t.Fatalf("default max retries: %d", c.Notify.MaxRetries)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9000"
tokens:
  verify_ttl: "24h"
throttle:
  limit: 5
  window: "1m"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	// env pisa yaml
	t.Setenv("VERIFY_TTL", "72h")
	t.Setenv("REGISTER_SELF_SERVICE", "true")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Server.Addr != ":9000" {
		t.Fatalf("yaml addr: %q", c.Server.Addr)
	}
	ttl, _ := c.VerifyTTL()
	if ttl != 72*time.Hour {
		t.Fatalf("env should override yaml: got %v", ttl)
	}
	if c.Throttle.Limit != 5 {
		t.Fatalf("throttle limit: %d", c.Throttle.Limit)
	}
	if !c.Register.SelfService {
		t.Fatal("expected self service enabled via env")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("VERIFY_TTL", "not-a-duration")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid verify_ttl")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-rubrics/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("CORS_ORIGINS_OFFLINE", " http://a , ,http://b")
	c := config.FromEnv()
	if c.Mode != config.ModeOffline || c.DBDriver != "sqlite" || c.NotifyDriver != "memory" {
		t.Fatalf("defaults: %+v", c)
	}
	if got := c.CORSOrigins(); len(got) != 2 || got[1] != "http://b" {
		t.Fatalf("cors: %v", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadOverlaysYAMLUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rubrics.yaml")
	yml := "DB_DRIVER: postgres\nHTTP_ADDR: \":9000\"\nTRACE_STDOUT: 1\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DRIVER", "")
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("TRACE_STDOUT", "")

	c, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DBDriver != "postgres" || c.HTTPAddr != ":7000" || !c.TraceStdout {
		t.Fatalf("config: %+v", c)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	c := config.FromEnv()
	c.DBDriver = "mysql"
	c.NotifyDriver = "kafka"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_DRIVER") || !strings.Contains(err.Error(), "NOTIFY_DRIVER") {
		t.Fatalf("validate: %v", err)
	}

	c = config.FromEnv()
	c.Mode = config.ModeOnline
	c.AuthHMACSecret = "dev-secret-change-me"
	if err := c.Validate(); err == nil {
		t.Fatalf("online mode needs a real secret")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cloud.MinWeight != 11 || cfg.Cloud.MaxWeight != 48 {
		t.Fatalf("weights = [%d, %d], want [11, 48]", cfg.Cloud.MinWeight, cfg.Cloud.MaxWeight)
	}
	if cfg.Cloud.DefaultWords != 100 {
		t.Fatalf("defaultWords = %d, want 100", cfg.Cloud.DefaultWords)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("store driver = %q, want postgres", cfg.Store.Driver)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
  requestTimeout: 5s
store:
  driver: sqlite
  sqlitePath: /tmp/clouds.db
cloud:
  defaultWords: 25
  maxWords: 200
  minWeight: 10
  maxWeight: 30
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("TC_LOGGING_FORMAT", "text")
	t.Setenv("TC_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.RequestTimeout != 5*time.Second {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.SQLitePath != "/tmp/clouds.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Cloud.DefaultWords != 25 || cfg.Cloud.MinWeight != 10 || cfg.Cloud.MaxWeight != 30 {
		t.Fatalf("cloud = %+v", cfg.Cloud)
	}
	if cfg.Cloud.MaxDocumentBytes != 16<<20 {
		t.Fatalf("unset field lost its default: %d", cfg.Cloud.MaxDocumentBytes)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"inverted weights", func(c *Config) { c.Cloud.MinWeight, c.Cloud.MaxWeight = 48, 11 }, "minWeight"},
		{"equal weights", func(c *Config) { c.Cloud.MaxWeight = c.Cloud.MinWeight }, "minWeight"},
		{"weights above limit", func(c *Config) { c.Cloud.MaxWeight = 5000 }, "maxWeight"},
		{"negative min weight", func(c *Config) { c.Cloud.MinWeight = -1 }, "minWeight"},
		{"zero words", func(c *Config) { c.Cloud.DefaultWords = 0 }, "defaultWords"},
		{"max below default", func(c *Config) { c.Cloud.MaxWords = 10 }, "maxWords"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Driver, c.Store.SQLitePath = "sqlite", "" }, "sqlitePath"},
		{"bad rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "rateLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pricing.MaxGirth != 100 {
		t.Errorf("expected default max girth 100, got %v", cfg.Pricing.MaxGirth)
	}
	if cfg.Pricing.MaxLength != 40 {
		t.Errorf("expected default max length 40, got %v", cfg.Pricing.MaxLength)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("expected file backend, got %q", cfg.Storage.Backend)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := Default()
			cfg.Storage.Backend = "memory"
			cfg.Pricing.MaxLength = 32
			cfg.Events.Brokers = []string{"kafka-1:9092", "kafka-2:9092"}
			if err := cfg.Save(path); err != nil {
				t.Fatalf("save: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Storage.Backend != "memory" {
				t.Errorf("expected memory backend, got %q", loaded.Storage.Backend)
			}
			if loaded.Pricing.MaxLength != 32 {
				t.Errorf("expected max length 32, got %v", loaded.Pricing.MaxLength)
			}
			if len(loaded.Events.Brokers) != 2 {
				t.Errorf("expected 2 brokers, got %v", loaded.Events.Brokers)
			}
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("TIMBERCALC_STORAGE_BACKEND", "redis")
	t.Setenv("TIMBERCALC_SERVER_PASSCODE", "1234")
	t.Setenv("TIMBERCALC_EVENTS_WEBHOOK_URL", "https://hooks.example.com/t")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("expected env override to redis, got %q", cfg.Storage.Backend)
	}
	if cfg.Server.Passcode != "1234" {
		t.Errorf("expected env passcode, got %q", cfg.Server.Passcode)
	}
	if cfg.Events.Webhook.URL != "https://hooks.example.com/t" || cfg.Events.Webhook.RetryCount != 2 {
		t.Errorf("unexpected webhook config %+v", cfg.Events.Webhook)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

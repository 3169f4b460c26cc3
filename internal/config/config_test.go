package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/HerbHall/narracode/internal/llm/hfhub"
	"github.com/HerbHall/narracode/internal/llm/together"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "narracode.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func load(t *testing.T, path string) *Config {
	t.Helper()
	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Parse(v)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := load(t, "")

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Database.Path != "./data/narracode.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if diff := cmp.Diff(together.DefaultConfig(), cfg.Services.Together); diff != "" {
		t.Errorf("together config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(hfhub.DefaultConfig(), cfg.Services.HuggingFace); diff != "" {
		t.Errorf("huggingface config mismatch (-want +got):\n%s", diff)
	}
	want := BatchConfig{Concurrency: 4, RequestsPerSecond: 2, Burst: 4}
	if cfg.Batch != want {
		t.Errorf("batch = %+v, want %+v", cfg.Batch, want)
	}
	if cfg.Audit.ReadTTL != 0 {
		t.Errorf("audit.read_ttl = %s, want 0", cfg.Audit.ReadTTL)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: console
database:
  path: /var/lib/narracode/log.db
services:
  together:
    timeout: 30s
    models:
      - mistralai/Mixtral-8x7B-Instruct-v0.1
  huggingface:
    base_url: https://hf.example.test/v1
defaults:
  service: HuggingFaceHub
  coding_task: Sentence-Coherence
  temperature: 0.3
batch:
  concurrency: 8
audit:
  read_ttl: 10m
`)
	cfg := load(t, path)

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Database.Path != "/var/lib/narracode/log.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Services.Together.Timeout != 30*time.Second {
		t.Errorf("together timeout = %s", cfg.Services.Together.Timeout)
	}
	if diff := cmp.Diff([]string{"mistralai/Mixtral-8x7B-Instruct-v0.1"}, cfg.Services.Together.Models); diff != "" {
		t.Errorf("together models mismatch (-want +got):\n%s", diff)
	}
	if cfg.Services.HuggingFace.BaseURL != "https://hf.example.test/v1" {
		t.Errorf("huggingface base_url = %q", cfg.Services.HuggingFace.BaseURL)
	}
	want := DefaultsConfig{Service: "HuggingFaceHub", CodingTask: "Sentence-Coherence", Temperature: 0.3}
	if cfg.Defaults != want {
		t.Errorf("defaults = %+v, want %+v", cfg.Defaults, want)
	}
	if cfg.Batch.Concurrency != 8 || cfg.Batch.Burst != 4 {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	if cfg.Audit.ReadTTL != 10*time.Minute {
		t.Errorf("audit.read_ttl = %s", cfg.Audit.ReadTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NC_LOGGING_LEVEL", "warn")
	t.Setenv("NC_BATCH_CONCURRENCY", "2")
	t.Setenv("TOGETHER_API_KEY", "tg-secret")
	t.Setenv("NC_SERVICES_HUGGINGFACE_API_KEY", "hf-secret")

	cfg := load(t, "")
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Batch.Concurrency != 2 {
		t.Errorf("batch.concurrency = %d, want 2", cfg.Batch.Concurrency)
	}
	if cfg.Services.Together.APIKey != "tg-secret" {
		t.Errorf("together api key = %q", cfg.Services.Together.APIKey)
	}
	if cfg.Services.HuggingFace.APIKey != "hf-secret" {
		t.Errorf("huggingface api key = %q", cfg.Services.HuggingFace.APIKey)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "logging: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no models", "services:\n  together:\n    models: []\n", "services.together.models"},
		{"blank model", "services:\n  huggingface:\n    models: [\"  \"]\n", "services.huggingface.models[0]"},
		{"zero concurrency", "batch:\n  concurrency: 0\n", "batch.concurrency"},
		{"negative ttl", "audit:\n  read_ttl: -1s\n", "audit.read_ttl"},
		{"negative temperature", "defaults:\n  temperature: -0.5\n", "defaults.temperature"},
		{"empty database", "database:\n  path: \"\"\n", "database.path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Load(writeConfig(t, tc.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			_, err = Parse(v)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Parse error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

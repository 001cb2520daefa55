package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "openai" {
		t.Errorf("default LLM provider = %q", cfg.Defaults.LLMProvider)
	}
	if cfg.Defaults.Locale != "en" {
		t.Errorf("default locale = %q", cfg.Defaults.Locale)
	}
	if cfg.Gateway.MaxAttempts != 3 {
		t.Errorf("gateway max attempts = %d", cfg.Gateway.MaxAttempts)
	}
	if cfg.Gateway.CallTimeout != 120*time.Second {
		t.Errorf("gateway call timeout = %v", cfg.Gateway.CallTimeout)
	}
	if cfg.Validation.RepairAttempts != 2 {
		t.Errorf("repair attempts = %d", cfg.Validation.RepairAttempts)
	}
	if cfg.Postgres.Image != "postgres:16" {
		t.Errorf("postgres image = %q", cfg.Postgres.Image)
	}
	if cfg.Server.Port != "8085" {
		t.Errorf("server port = %q", cfg.Server.Port)
	}

	llm, ok := cfg.GetLLMProvider("openai")
	if !ok || !llm.Enabled {
		t.Error("openai provider should exist and be enabled")
	}
	ocr, ok := cfg.GetOCRProvider("tesseract")
	if !ok || ocr.Languages != "eng" {
		t.Errorf("tesseract provider = %+v", ocr)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("SDX_TEST_KEY", "secret-value")

	tests := []struct {
		in   string
		want string
	}{
		{"${SDX_TEST_KEY}", "secret-value"},
		{"prefix-${SDX_TEST_KEY}-suffix", "prefix-secret-value-suffix"},
		{"no refs here", "no refs here"},
		{"${SDX_UNSET_VAR_XYZ}", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.in); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("SDX_TEST_API_KEY", "sk-resolved")

	cfg := DefaultConfig()
	llm := cfg.LLMProviders["openai"]
	llm.APIKey = "${SDX_TEST_API_KEY}"
	cfg.LLMProviders["openai"] = llm

	rc := cfg.ToProviderRegistryConfig()
	if rc.LLMProviders["openai"].APIKey != "sk-resolved" {
		t.Errorf("APIKey = %q, want resolved value", rc.LLMProviders["openai"].APIKey)
	}
	if rc.OCRProviders["tesseract"].Type != "tesseract" {
		t.Errorf("OCR type = %q", rc.OCRProviders["tesseract"].Type)
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("SDX_TEST_PG_PASS", "pgpass")

	cfg := DefaultConfig()
	cfg.Postgres.Password = "${SDX_TEST_PG_PASS}"

	dsn := cfg.PostgresDSN()
	want := "host=127.0.0.1 port=5432 user=sdx password=pgpass dbname=sdx sslmode=disable"
	if dsn != want {
		t.Errorf("PostgresDSN() = %q, want %q", dsn, want)
	}
}

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("config file is empty")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	cfg := mgr.Get()
	if cfg.Defaults.LLMProvider != "openai" {
		t.Errorf("loaded LLM provider = %q", cfg.Defaults.LLMProvider)
	}
	if cfg.Postgres.ContainerName != "sdx-postgres" {
		t.Errorf("loaded container name = %q", cfg.Postgres.ContainerName)
	}
}

package config

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.CacheTTL != 14*24*time.Hour {
		t.Errorf("CacheTTL = %v, want 336h", cfg.CacheTTL)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if cfg.SearchHost != "ebay-average-selling-price.p.rapidapi.com" {
		t.Errorf("SearchHost = %q", cfg.SearchHost)
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Errorf("EncryptionKey length = %d, want 32", len(cfg.EncryptionKey))
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "48h")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.CacheTTL != 48*time.Hour {
		t.Errorf("CacheTTL = %v, want 48h", cfg.CacheTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadExplicitEncryptionKey(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(cfg.EncryptionKey) != string(key) {
		t.Error("EncryptionKey does not match supplied key")
	}
}

func TestLoadRejectsBadEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "not-base64!!!")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid ENCRYPTION_KEY")
	}

	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short ENCRYPTION_KEY")
	}
}

func TestDeriveEncryptionKeyStable(t *testing.T) {
	a := deriveEncryptionKey("secret-one")
	b := deriveEncryptionKey("secret-one")
	c := deriveEncryptionKey("secret-two")

	if string(a) != string(b) {
		t.Error("same secret should derive the same key")
	}
	if string(a) == string(c) {
		t.Error("different secrets should derive different keys")
	}
}

func TestStorageEnabled(t *testing.T) {
	cfg := &Config{}
	if cfg.StorageEnabled() {
		t.Error("empty config should not enable storage")
	}
	cfg.StorageBucket = "b"
	cfg.StorageEndpoint = "https://s3.example"
	if !cfg.StorageEnabled() {
		t.Error("bucket and endpoint should enable storage")
	}
}

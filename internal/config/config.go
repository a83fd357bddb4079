// Package config handles application configuration.
package config

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// EncryptionKey is the 32-byte AES-256-GCM key protecting stored
	// upstream credentials.
	EncryptionKey []byte

	// Upstream service credentials. Values stored via the settings API
	// take precedence; these env-provided keys are the fallback.
	OpenAIKey   string
	RapidAPIKey string

	// Upstream endpoints (overridable for testing/self-hosting).
	OpenAIURL    string
	OpenAIModel  string
	SearchURL    string
	SearchHost   string

	// Lookup behavior
	CacheTTL        time.Duration // age past which cache entries are treated as absent
	CleanupEnabled  bool
	CleanupInterval time.Duration

	// CORS
	CORSOrigins []string

	// Remote configuration (S3-compatible object storage). When a bucket
	// is configured, the sanitizer policy and log filters refresh from it.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:compsight.db?_journal=WAL&_timeout=5000"),

		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		RapidAPIKey: getEnv("RAPIDAPI_KEY", ""),

		OpenAIURL:   getEnv("OPENAI_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SearchURL:   getEnv("SEARCH_URL", "https://ebay-average-selling-price.p.rapidapi.com/findCompletedItems"),
		SearchHost:  getEnv("SEARCH_HOST", "ebay-average-selling-price.p.rapidapi.com"),

		CacheTTL:        getEnvDuration("CACHE_TTL", 14*24*time.Hour),
		CleanupEnabled:  getEnvBool("CLEANUP_ENABLED", true),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnv("BUCKET_NAME", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive")
	}

	// Set up the encryption key: explicit base64 key, or derived from
	// ENCRYPTION_SECRET.
	encKeyStr := getEnv("ENCRYPTION_KEY", "")
	if encKeyStr != "" {
		decoded, err := base64.StdEncoding.DecodeString(encKeyStr)
		if err != nil || len(decoded) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be a base64-encoded 32-byte key")
		}
		cfg.EncryptionKey = decoded
	} else {
		cfg.EncryptionKey = deriveEncryptionKey(getEnv("ENCRYPTION_SECRET", "compsight-dev-secret"))
	}

	return cfg, nil
}

// StorageEnabled returns true when remote configuration is available.
func (c *Config) StorageEnabled() bool {
	return c.StorageBucket != "" && c.StorageEndpoint != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// deriveEncryptionKey creates a 32-byte AES-256 key from a secret string
// using HKDF with SHA-256. The salt and info strings bind the key to this
// application and purpose.
func deriveEncryptionKey(secret string) []byte {
	salt := []byte("compsight-api-encryption-key-v1")
	info := []byte("aes-256-gcm-credentials")

	hkdfReader := hkdf.New(sha256.New, []byte(secret), salt, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		panic("hkdf: failed to derive key: " + err.Error())
	}
	return key
}

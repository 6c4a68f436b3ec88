package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures all runtime configuration for the application.
type Config struct {
	Address     string
	DefaultTopK int
	Embed       EmbeddingConfig
}

// EmbeddingConfig describes the remote embedding provider settings: the
// service that turns chunk/query text into vectors.
type EmbeddingConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// FromEnv builds a Config by reading environment variables and applying
// sensible defaults. The resulting configuration is validated before it is
// returned.
func FromEnv() (Config, error) {
	cfg := Config{
		Address:     getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		DefaultTopK: getEnvInt("VECTORDB_DEFAULT_TOP_K", 6),
		Embed: EmbeddingConfig{
			Endpoint:  getEnv("VECTORDB_EMBEDDING_ENDPOINT", "http://localhost:11434/api/embeddings"),
			APIKey:    getEnv("VECTORDB_EMBEDDING_API_KEY", ""),
			Model:     getEnv("VECTORDB_EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("VECTORDB_EMBEDDING_DIMENSION", 768),
			Timeout:   time.Duration(getEnvInt("VECTORDB_EMBEDDING_TIMEOUT_SECONDS", 90)) * time.Second,
		},
	}

	if cfg.Embed.Model == "" {
		return Config{}, fmt.Errorf("VECTORDB_EMBEDDING_MODEL must not be empty")
	}

	if cfg.Embed.Dimension <= 0 {
		return Config{}, fmt.Errorf("VECTORDB_EMBEDDING_DIMENSION must be positive")
	}

	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 6
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

package ai

import (
	"errors"
	"time"

	"github.com/hrygo/vectornotes/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	// CacheRedisAddr enables the shared L2 embedding cache when set.
	CacheRedisAddr string
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // jina, openai, siliconflow, ollama
	Model      string // jina-embeddings-v3
	Dimensions int    // 1024
	APIKey     string
	BaseURL    string
	Timeout    time.Duration // per call, default 20s
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   p.EmbeddingProvider,
			Model:      p.EmbeddingModel,
			Dimensions: p.EmbeddingDimensions,
			APIKey:     p.EmbeddingAPIKey,
			BaseURL:    p.EmbeddingBaseURL,
			Timeout:    p.EmbeddingTimeout,
		},
		CacheRedisAddr: p.CacheRedisAddr,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return c.Embedding.Validate()
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	return nil
}

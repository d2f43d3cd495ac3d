package ai

import (
	"testing"
	"time"

	"github.com/hrygo/vectornotes/internal/profile"
)

// TestNewConfigFromProfile tests embedding configuration mapping.
func TestNewConfigFromProfile(t *testing.T) {
	prof := &profile.Profile{
		EmbeddingProvider:   "jina",
		EmbeddingModel:      "jina-embeddings-v3",
		EmbeddingAPIKey:     "test-key",
		EmbeddingBaseURL:    "https://api.jina.ai/v1",
		EmbeddingDimensions: 1024,
		EmbeddingTimeout:    20 * time.Second,
		CacheRedisAddr:      "localhost:6379",
	}

	cfg := NewConfigFromProfile(prof)

	if cfg.Embedding.Provider != "jina" {
		t.Errorf("Expected Embedding.Provider=jina, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "jina-embeddings-v3" {
		t.Errorf("Expected Embedding.Model=jina-embeddings-v3, got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.APIKey != "test-key" {
		t.Errorf("Expected Embedding.APIKey=test-key, got %s", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Dimensions != 1024 {
		t.Errorf("Expected Embedding.Dimensions=1024, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Timeout != 20*time.Second {
		t.Errorf("Expected Embedding.Timeout=20s, got %s", cfg.Embedding.Timeout)
	}
	if cfg.CacheRedisAddr != "localhost:6379" {
		t.Errorf("Expected CacheRedisAddr=localhost:6379, got %s", cfg.CacheRedisAddr)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmbeddingConfig
		wantErr bool
	}{
		{"valid", EmbeddingConfig{Provider: "jina", Model: "m", Dimensions: 1024, APIKey: "k"}, false},
		{"ollama without key", EmbeddingConfig{Provider: "ollama", Model: "m", Dimensions: 768}, false},
		{"missing provider", EmbeddingConfig{Model: "m", Dimensions: 1024, APIKey: "k"}, true},
		{"missing model", EmbeddingConfig{Provider: "jina", Dimensions: 1024, APIKey: "k"}, true},
		{"missing key", EmbeddingConfig{Provider: "openai", Model: "m", Dimensions: 1024}, true},
		{"zero dimensions", EmbeddingConfig{Provider: "jina", Model: "m", APIKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Embedding: tt.cfg}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

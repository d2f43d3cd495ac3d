package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
)

// DefaultEmbeddingTimeout bounds a single provider call.
const DefaultEmbeddingTimeout = 20 * time.Second

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Model returns the embedding model name.
	Model() string
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewEmbeddingService creates a new EmbeddingService.
// Every supported provider exposes an OpenAI compatible /embeddings endpoint.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	switch cfg.Provider {
	case "jina", "openai", "siliconflow", "ollama":
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions: %d", cfg.Dimensions)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultEmbeddingTimeout
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch sends the non-blank texts in one request. Blank texts get a zero vector.
func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperrors.InvalidArgument("no texts provided for embedding")
	}

	vectors := make([][]float32, len(texts))
	input, positions := []string{}, []int{}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			vectors[i] = make([]float32, s.dimensions)
			continue
		}
		input = append(input, text)
		positions = append(positions, i)
	}
	if len(input) == 0 {
		return vectors, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, providerError(ctx, err)
	}

	if len(resp.Data) != len(input) {
		return nil, apperrors.EmbeddingProvider(
			fmt.Sprintf("malformed embedding response: got %d vectors for %d inputs", len(resp.Data), len(input)), nil)
	}
	for i, data := range resp.Data {
		// Providers report the input position; fall back to response order without it.
		index := data.Index
		if index < 0 || index >= len(input) {
			index = i
		}
		if len(data.Embedding) != s.dimensions {
			return nil, apperrors.EmbeddingProvider(
				fmt.Sprintf("malformed embedding response: dimension %d, expected %d", len(data.Embedding), s.dimensions), nil)
		}
		vectors[positions[index]] = data.Embedding
	}
	for i, vector := range vectors {
		if vector == nil {
			return nil, apperrors.EmbeddingProvider(fmt.Sprintf("malformed embedding response: missing vector for input %d", i), nil)
		}
	}

	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) Model() string {
	return s.model
}

// providerError converts a go-openai failure into an EMBEDDING_PROVIDER error with the HTTP status when known.
func providerError(ctx context.Context, err error) *apperrors.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	e := apperrors.EmbeddingProvider("create embeddings failed", err)

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		e.WithContext(apperrors.ContextKeyStatus, apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		e.WithContext(apperrors.ContextKeyStatus, reqErr.HTTPStatusCode)
	}
	if e.Status() == http.StatusUnauthorized || e.Status() == http.StatusForbidden {
		e.Message = "embedding provider rejected the API key"
	}
	return e
}

package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where vectornotes stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Auth Configuration
	AuthJWTSecret   string // VECTORNOTES_AUTH_JWT_SECRET (legacy: SUPABASE_JWT_SECRET)
	AuthJWTAudience string // VECTORNOTES_AUTH_JWT_AUDIENCE (default: authenticated)

	// Embedding Configuration
	EmbeddingProvider   string        // VECTORNOTES_EMBEDDING_PROVIDER (default: jina)
	EmbeddingModel      string        // VECTORNOTES_EMBEDDING_MODEL (default: jina-embeddings-v3)
	EmbeddingAPIKey     string        // VECTORNOTES_EMBEDDING_API_KEY (legacy: JINA_API_KEY)
	EmbeddingBaseURL    string        // VECTORNOTES_EMBEDDING_BASE_URL (default depends on provider)
	EmbeddingDimensions int           // VECTORNOTES_EMBEDDING_DIMENSION (default: 1024)
	EmbeddingTimeout    time.Duration // VECTORNOTES_EMBEDDING_TIMEOUT (default: 20s)

	// Vector Index Configuration
	VectorBackend    string        // VECTORNOTES_VECTOR_BACKEND (qdrant, pgvector, memory; default: qdrant)
	VectorCollection string        // VECTORNOTES_VECTOR_COLLECTION (legacy: QDRANT_COLLECTION_NAME, default: vectornotes)
	VectorTimeout    time.Duration // VECTORNOTES_VECTOR_TIMEOUT (default: 10s)
	QdrantHost       string        // VECTORNOTES_QDRANT_HOST (default: localhost)
	QdrantPort       int           // VECTORNOTES_QDRANT_PORT (default: 6334)
	QdrantAPIKey     string        // VECTORNOTES_QDRANT_API_KEY (legacy: QDRANT_API_KEY)
	QdrantUseTLS     bool          // VECTORNOTES_QDRANT_USE_TLS

	// Cache & Background Configuration
	CacheRedisAddr     string        // VECTORNOTES_CACHE_REDIS_ADDR (empty disables Redis)
	RateLimitPerMinute int           // VECTORNOTES_RATE_LIMIT_PER_MINUTE (default: 60)
	ReindexInterval    time.Duration // VECTORNOTES_REINDEX_INTERVAL (default: 2m)
}

// Defaults for embedding providers that expose an OpenAI compatible API.
var defaultEmbeddingBaseURLs = map[string]string{
	"jina":        "https://api.jina.ai/v1",
	"openai":      "https://api.openai.com/v1",
	"siliconflow": "https://api.siliconflow.cn/v1",
	"ollama":      "http://localhost:11434/v1",
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the service configuration from environment variables.
// Supports both VECTORNOTES_* (new) and the original deployment names (legacy).
func (p *Profile) FromEnv() {
	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		if legacyKey != "" {
			if val := os.Getenv(legacyKey); val != "" {
				return val
			}
		}
		return defaultValue
	}

	getIntEnv := func(key string, defaultValue int) int {
		if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
			return val
		}
		return defaultValue
	}

	getDurationEnv := func(key string, defaultValue time.Duration) time.Duration {
		if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
			return val
		}
		return defaultValue
	}

	p.AuthJWTSecret = getEnvWithDefault("VECTORNOTES_AUTH_JWT_SECRET", "SUPABASE_JWT_SECRET", "")
	p.AuthJWTAudience = getEnvWithDefault("VECTORNOTES_AUTH_JWT_AUDIENCE", "", "authenticated")

	p.EmbeddingProvider = getEnvWithDefault("VECTORNOTES_EMBEDDING_PROVIDER", "", "jina")
	p.EmbeddingModel = getEnvWithDefault("VECTORNOTES_EMBEDDING_MODEL", "EMBEDDING_MODEL", "jina-embeddings-v3")
	p.EmbeddingAPIKey = getEnvWithDefault("VECTORNOTES_EMBEDDING_API_KEY", "JINA_API_KEY", "")
	p.EmbeddingBaseURL = getEnvWithDefault("VECTORNOTES_EMBEDDING_BASE_URL", "", defaultEmbeddingBaseURLs[p.EmbeddingProvider])
	p.EmbeddingDimensions = getIntEnv("VECTORNOTES_EMBEDDING_DIMENSION", getIntEnv("EMBEDDING_DIMENSION", 1024))
	p.EmbeddingTimeout = getDurationEnv("VECTORNOTES_EMBEDDING_TIMEOUT", 20*time.Second)

	p.VectorBackend = getEnvWithDefault("VECTORNOTES_VECTOR_BACKEND", "", "qdrant")
	p.VectorCollection = getEnvWithDefault("VECTORNOTES_VECTOR_COLLECTION", "QDRANT_COLLECTION_NAME", "vectornotes")
	p.VectorTimeout = getDurationEnv("VECTORNOTES_VECTOR_TIMEOUT", 10*time.Second)
	p.QdrantHost = getEnvWithDefault("VECTORNOTES_QDRANT_HOST", "", "localhost")
	p.QdrantPort = getIntEnv("VECTORNOTES_QDRANT_PORT", 6334)
	p.QdrantAPIKey = getEnvWithDefault("VECTORNOTES_QDRANT_API_KEY", "QDRANT_API_KEY", "")
	p.QdrantUseTLS = getEnvOrDefault("VECTORNOTES_QDRANT_USE_TLS", "false") == "true"

	p.CacheRedisAddr = os.Getenv("VECTORNOTES_CACHE_REDIS_ADDR")
	p.RateLimitPerMinute = getIntEnv("VECTORNOTES_RATE_LIMIT_PER_MINUTE", 60)
	p.ReindexInterval = getDurationEnv("VECTORNOTES_REINDEX_INTERVAL", 2*time.Minute)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "vectornotes")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/vectornotes"
		}
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		dbFile := fmt.Sprintf("vectornotes_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.VectorBackend == "pgvector" && p.Driver != "postgres" {
		return errors.New("pgvector backend requires the postgres driver")
	}
	if p.VectorBackend != "qdrant" && p.VectorBackend != "pgvector" && p.VectorBackend != "memory" {
		return errors.Errorf("unsupported vector backend %q", p.VectorBackend)
	}
	if p.EmbeddingDimensions <= 0 {
		return errors.Errorf("embedding dimension must be positive, got %d", p.EmbeddingDimensions)
	}
	if p.EmbeddingTimeout <= 0 || p.VectorTimeout <= 0 {
		return errors.New("embedding and vector timeouts must be positive")
	}
	if p.Mode == "prod" && p.AuthJWTSecret == "" {
		return errors.New("auth JWT secret is required in prod mode")
	}

	return nil
}

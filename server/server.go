package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/vectornotes/internal/profile"
	"github.com/hrygo/vectornotes/plugin/ai"
	"github.com/hrygo/vectornotes/plugin/ai/cache"
	"github.com/hrygo/vectornotes/plugin/ai/vector"
	"github.com/hrygo/vectornotes/server/auth"
	"github.com/hrygo/vectornotes/server/internal/observability"
	ratelimit "github.com/hrygo/vectornotes/server/middleware"
	apiv1 "github.com/hrygo/vectornotes/server/router/api/v1"
	"github.com/hrygo/vectornotes/server/runner/reindex"
	"github.com/hrygo/vectornotes/server/service/note"
	"github.com/hrygo/vectornotes/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	index       vector.Index
	redisCache  *cache.RedisService
	rateLimiter *ratelimit.RateLimiter
	runner      *reindex.Runner

	runnerCancelFuncs []context.CancelFunc
	runnerGroup       errgroup.Group
}

// NewServer constructs every client once and wires them into the HTTP API.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
	}

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid embedding configuration")
	}
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	var l2 cache.CacheService
	if aiConfig.CacheRedisAddr != "" {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = aiConfig.CacheRedisAddr
		s.redisCache, err = cache.NewRedisService(ctx, redisConfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to redis cache")
		}
		l2 = s.redisCache
	}
	embeddingCache := cache.NewTieredService(cache.NewMemoryCache(cache.DefaultMemoryConfig()), l2)
	cachedEmbedder := ai.NewCachedEmbeddingService(embedder, embeddingCache, ai.DefaultEmbeddingCacheTTL)

	s.index, err = vector.New(ctx, vector.NewConfigFromProfile(profile), store.GetDriver().GetDB())
	if err != nil {
		s.closeClients()
		return nil, errors.Wrap(err, "failed to initialize vector index")
	}

	secret := profile.AuthJWTSecret
	if secret == "" && profile.IsDev() {
		slog.Warn("no auth secret configured, using the development secret")
		secret = auth.DevSecret
	}
	authenticator, err := auth.NewAuthenticator(secret, profile.AuthJWTAudience)
	if err != nil {
		s.closeClients()
		return nil, err
	}

	noteService := note.NewService(store, cachedEmbedder, s.index)
	s.runner = reindex.NewRunner(store, noteService, s.index, profile.ReindexInterval)

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	s.echoServer = echoServer

	apiV1Service := apiv1.NewAPIV1Service(profile, noteService, authenticator, observability.NewMetrics(1000))
	apiV1Service.EmbeddingCache = embeddingCache
	apiV1Service.RegisterRoutes(echoServer)
	s.rateLimiter = apiV1Service.RateLimiter

	return s, nil
}

// Start begins serving HTTP and starts the background runners. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	s.echoServer.Listener = listener
	go func() {
		if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	s.StartBackgroundRunners(ctx)
	return nil
}

// Shutdown stops the runners and the HTTP server, then closes every client.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	for _, cancelFunc := range s.runnerCancelFuncs {
		if cancelFunc != nil {
			cancelFunc()
		}
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	_ = s.runnerGroup.Wait()

	s.closeClients()
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("vectornotes stopped properly")
}

// StartBackgroundRunners starts the reindex runner and the rate limiter cleanup.
func (s *Server) StartBackgroundRunners(ctx context.Context) {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, cancel)

	s.runnerGroup.Go(func() error {
		s.runner.Run(runnerCtx)
		return nil
	})
	s.runnerGroup.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.rateLimiter.Cleanup(time.Hour)
			case <-runnerCtx.Done():
				return nil
			}
		}
	})
}

func (s *Server) closeClients() {
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			slog.Error("failed to close vector index", slog.String("error", err.Error()))
		}
	}
	if s.redisCache != nil {
		if err := s.redisCache.Close(); err != nil {
			slog.Error("failed to close redis cache", slog.String("error", err.Error()))
		}
	}
}

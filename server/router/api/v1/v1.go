package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
	"github.com/hrygo/vectornotes/internal/profile"
	"github.com/hrygo/vectornotes/plugin/ai/cache"
	"github.com/hrygo/vectornotes/server/auth"
	"github.com/hrygo/vectornotes/server/internal/observability"
	ratelimit "github.com/hrygo/vectornotes/server/middleware"
	"github.com/hrygo/vectornotes/server/service/note"
	"github.com/hrygo/vectornotes/store"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// NoteService is the note orchestrator used by the HTTP handlers.
type NoteService interface {
	Create(ctx context.Context, userID string, create *note.CreateNote) (*store.Note, error)
	Get(ctx context.Context, id, userID string) (*store.Note, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]*store.Note, error)
	Update(ctx context.Context, id, userID string, update *note.UpdateNote) (*store.Note, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*store.Note, error)
}

// CacheStats reports embedding cache lookups.
type CacheStats interface {
	Stats() cache.Stats
}

type APIV1Service struct {
	Profile       *profile.Profile
	NoteService   NoteService
	Authenticator *auth.Authenticator
	RateLimiter   *ratelimit.RateLimiter
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	// EmbeddingCache is optional; metrics omit the cache section without it.
	EmbeddingCache CacheStats
}

func NewAPIV1Service(profile *profile.Profile, noteService NoteService, authenticator *auth.Authenticator, metrics *observability.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		NoteService:   noteService,
		Authenticator: authenticator,
		RateLimiter:   ratelimit.NewRateLimiter(profile.RateLimitPerMinute),
		Metrics:       metrics,
		Logger:        slog.Default(),
	}
}

// RegisterRoutes registers the HTTP API with the given Echo instance.
// Notes are served under /notes and, for older clients, under /api/notes.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.Use(middleware.Recover())
	echoServer.Use(s.requestContextMiddleware)
	echoServer.Use(middleware.CORS())

	echoServer.GET("/health", s.Health)

	// Auth is attached per route so unknown paths still answer 404.
	protected := []echo.MiddlewareFunc{s.authMiddleware, s.rateLimitMiddleware}
	for _, prefix := range []string{"", "/api"} {
		echoServer.POST(prefix+"/notes", s.instrument("note.create", s.CreateNote), protected...)
		echoServer.GET(prefix+"/notes", s.instrument("note.list", s.ListNotes), protected...)
		echoServer.GET(prefix+"/notes/search", s.instrument("note.search", s.SearchNotes), protected...)
		echoServer.GET(prefix+"/notes/:id", s.instrument("note.get", s.GetNote), protected...)
		echoServer.PUT(prefix+"/notes/:id", s.instrument("note.update", s.UpdateNote), protected...)
		echoServer.DELETE(prefix+"/notes/:id", s.instrument("note.delete", s.DeleteNote), protected...)
		echoServer.GET(prefix+"/system/metrics", s.GetMetricsOverview, protected...)
	}
}

// Health reports that the process is serving.
func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIV1Service) requestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		reqCtx := observability.NewRequestContextWithID(s.Logger, req.Header.Get(RequestIDHeader), "", "")
		c.Response().Header().Set(RequestIDHeader, reqCtx.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

		err := next(c)

		status := c.Response().Status
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}
		attrs := []slog.Attr{
			slog.String("method", req.Method),
			slog.String("path", c.Path()),
			slog.Int(observability.LogFieldStatus, status),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		}
		switch {
		case status >= http.StatusInternalServerError || (err != nil && httpErr == nil):
			reqCtx.Error("request failed", err, attrs...)
		case status >= http.StatusBadRequest:
			reqCtx.Warn("request rejected", attrs...)
		default:
			reqCtx.Info("request completed", attrs...)
		}
		return err
	}
}

func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims, err := s.Authenticator.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return writeError(c, err)
		}

		userID := claims.Subject
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.UserID = userID
		}
		c.SetRequest(c.Request().WithContext(auth.SetUserIDInContext(ctx, userID)))
		return next(c)
	}
}

func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.RateLimiter.Allow(auth.GetUserID(c.Request().Context())) {
			return writeError(c, apperrors.RateLimitExceeded("too many requests"))
		}
		return next(c)
	}
}

// instrument records the outcome of a note operation.
func (s *APIV1Service) instrument(operation string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.Operation = operation
		}

		start := time.Now()
		err := next(c)

		outcome := observability.OutcomeSuccess
		switch status := c.Response().Status; {
		case status >= http.StatusInternalServerError || (err != nil && httpErr == nil):
			outcome = observability.OutcomeFailure
		case status == http.StatusAccepted:
			outcome = observability.OutcomePending
		}
		s.Metrics.Record(operation, time.Since(start), outcome)
		return err
	}
}

package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
	"github.com/hrygo/vectornotes/server/internal/observability"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// HTTPStatus maps an error to its response status.
func HTTPStatus(err error) int {
	e, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeIndexPending:
		return http.StatusAccepted
	case apperrors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeEmbeddingProvider, apperrors.ErrCodeVectorIndex:
		if e.Timeout() {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error response. Internal causes are logged, not returned.
func writeError(c echo.Context, err error) error {
	status := HTTPStatus(err)
	resp := ErrorResponse{Code: "INTERNAL", Message: "internal error"}
	if e, ok := apperrors.As(err); ok {
		resp = ErrorResponse{Code: e.Code, Message: e.Message}
	}

	logger := observability.Logger(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String(observability.LogFieldErrorCode, string(resp.Code)), slog.String("error", err.Error()))
	} else if status != http.StatusNotFound {
		logger.Debug("request rejected", slog.String(observability.LogFieldErrorCode, string(resp.Code)), slog.String("error", err.Error()))
	}
	return c.JSON(status, resp)
}

// pendingWarning is the Warning header value of an accepted write whose index update is deferred.
func pendingWarning(err error) string {
	msg := "vector index update pending"
	if e, ok := apperrors.As(err); ok {
		msg = e.Message
	}
	return `199 vectornotes "` + msg + `"`
}

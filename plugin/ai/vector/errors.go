package vector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
)

// indexError converts a backend failure into a VECTOR_INDEX error.
// gRPC codes are translated to the closest HTTP status so callers can decide on retries.
func indexError(ctx context.Context, msg string, err error) *apperrors.Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}

	e := apperrors.VectorIndex(msg, err)
	if s, ok := status.FromError(err); ok && s.Code() != codes.OK && s.Code() != codes.Unknown {
		switch s.Code() {
		case codes.DeadlineExceeded:
			e.WithContext(apperrors.ContextKeyTimeout, true)
		case codes.InvalidArgument, codes.FailedPrecondition:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusBadRequest)
		case codes.NotFound:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusNotFound)
		case codes.Unauthenticated, codes.PermissionDenied:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusUnauthorized)
		case codes.ResourceExhausted:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusTooManyRequests)
		case codes.Unavailable:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusServiceUnavailable)
		default:
			e.WithContext(apperrors.ContextKeyStatus, http.StatusInternalServerError)
		}
	}
	return e
}

func checkDimensions(vector []float32, dimensions int) error {
	if len(vector) != dimensions {
		return apperrors.InvalidArgumentf("vector dimension %d, expected %d", len(vector), dimensions)
	}
	return nil
}

// sortMatches orders by descending score, then ascending id.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}

func matchIDs(matches []Match) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/vectornotes/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests  int64                                        `json:"total_requests"`
	SuccessRate    float64                                      `json:"success_rate"`
	P50LatencyMs   int64                                        `json:"p50_latency_ms"`
	P95LatencyMs   int64                                        `json:"p95_latency_ms"`
	ErrorCount     int64                                        `json:"error_count"`
	Operations     map[string]*observability.OperationSnapshot `json:"operations"`
	EmbeddingCache *EmbeddingCacheOverview                      `json:"embedding_cache,omitempty"`
}

// EmbeddingCacheOverview reports how many embeddings were served without the provider.
type EmbeddingCacheOverview struct {
	Entries int     `json:"entries"`
	L1Hits  int64   `json:"l1_hits"`
	L2Hits  int64   `json:"l2_hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// GetMetricsOverview returns per-operation counters since process start.
// GET /system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	response := MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		P50LatencyMs:  snapshot.P50LatencyMs,
		P95LatencyMs:  snapshot.P95LatencyMs,
		ErrorCount:    snapshot.RequestFailed,
		Operations:    snapshot.Operations,
	}
	if s.EmbeddingCache != nil {
		stats := s.EmbeddingCache.Stats()
		response.EmbeddingCache = &EmbeddingCacheOverview{
			Entries: stats.Entries,
			L1Hits:  stats.L1Hits,
			L2Hits:  stats.L2Hits,
			Misses:  stats.Misses,
			HitRate: stats.HitRate(),
		}
	}
	return c.JSON(http.StatusOK, response)
}

package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/infra/observability"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

// ============================================================
// Dashboard endpoint
// ============================================================

// dashboardHandler handles GET /v1/dashboard. Filters arrive as query
// parameters; the response is the full aggregated snapshot.
func dashboardHandler(svc *service.DashboardService, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		filters := parseFilters(r)

		data, err := svc.GetDashboard(r.Context(), filters)
		if err != nil {
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}

		metrics.IncrRequest("success")
		metrics.RecordRequestDuration("dashboard", time.Since(start))
		writeJSON(w, http.StatusOK, data)
	}
}

// serviceMetricsHandler handles GET /v1/metrics/service.
func serviceMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetServiceSnapshot())
	}
}

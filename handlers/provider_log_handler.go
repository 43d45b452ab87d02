package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/vehicle-valuation/middleware"
	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/utils"
	"go.uber.org/zap"
)

// DefaultSummaryWindow is used when no "since" query parameter is given
const DefaultSummaryWindow = 24 * time.Hour

// ProviderLogService reads the provider call audit trail
type ProviderLogService interface {
	ListProviderLogs(ctx context.Context, vrm string, limit, offset int) ([]*models.ProviderLog, error)
	SummarizeProviderLogs(ctx context.Context, window time.Duration) ([]*models.ProviderSummary, error)
}

// ProviderLogHandler handles provider log HTTP requests
type ProviderLogHandler struct {
	service ProviderLogService
	logger  *zap.Logger
}

// NewProviderLogHandler creates a new ProviderLogHandler
func NewProviderLogHandler(service ProviderLogService, logger *zap.Logger) *ProviderLogHandler {
	return &ProviderLogHandler{
		service: service,
		logger:  logger,
	}
}

// ProviderLogListResponse is a page of provider logs
type ProviderLogListResponse struct {
	VRM    string                `json:"vrm"`
	Logs   []*models.ProviderLog `json:"logs"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ProviderSummaryResponse pairs per-provider counts with their failure rate
type ProviderSummaryResponse struct {
	Provider       string  `json:"provider"`
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	FailureRate    float64 `json:"failure_rate"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
}

// HandleList handles GET /api/v1/provider-logs/{vrm}?limit=&offset=
func (h *ProviderLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)
	vrm := chi.URLParam(r, "vrm")

	if err := utils.ValidateVRM(vrm); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	logs, err := h.service.ListProviderLogs(r.Context(), vrm, limit, offset)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}
	if logs == nil {
		logs = []*models.ProviderLog{}
	}

	if err := utils.WriteOK(w, ProviderLogListResponse{
		VRM:    vrm,
		Logs:   logs,
		Limit:  limit,
		Offset: offset,
	}); err != nil {
		logger.Error("failed to write provider logs response", zap.Error(err))
	}
}

// HandleSummary handles GET /api/v1/provider-logs/summary?since=24h
func (h *ProviderLogHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)

	window, err := utils.QueryDuration(r, "since", DefaultSummaryWindow)
	if err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	summaries, err := h.service.SummarizeProviderLogs(r.Context(), window)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	response := make([]ProviderSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, ProviderSummaryResponse{
			Provider:       s.Provider,
			TotalRequests:  s.TotalRequests,
			FailedRequests: s.FailedRequests,
			FailureRate:    s.FailureRate(),
			AvgDurationMs:  s.AvgDurationMs,
		})
	}

	if err := utils.WriteOK(w, response); err != nil {
		logger.Error("failed to write provider summary response", zap.Error(err))
	}
}

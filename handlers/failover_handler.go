package handlers

import (
	"context"
	"net/http"

	"github.com/upb/vehicle-valuation/middleware"
	"github.com/upb/vehicle-valuation/services/valuation"
	"github.com/upb/vehicle-valuation/utils"
	"go.uber.org/zap"
)

// FailoverService exposes the failover tracker to operators
type FailoverService interface {
	FailoverStatus() valuation.FailoverStatus
	ResetFailover(ctx context.Context) valuation.FailoverStatus
}

// FailoverHandler handles failover status requests
type FailoverHandler struct {
	service FailoverService
	logger  *zap.Logger
}

// NewFailoverHandler creates a new FailoverHandler
func NewFailoverHandler(service FailoverService, logger *zap.Logger) *FailoverHandler {
	return &FailoverHandler{
		service: service,
		logger:  logger,
	}
}

// HandleStatus handles GET /api/v1/failover
func (h *FailoverHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.service.FailoverStatus()); err != nil {
		h.logger.Error("failed to write failover status", zap.Error(err))
	}
}

// HandleReset handles POST /api/v1/failover/reset
func (h *FailoverHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)

	status := h.service.ResetFailover(r.Context())
	logger.Info("failover reset requested", zap.String("remote_addr", r.RemoteAddr))

	if err := utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse{
		Data:    status,
		Message: "failover tracker reset",
	}); err != nil {
		logger.Error("failed to write failover reset response", zap.Error(err))
	}
}

package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/vehicle-valuation/middleware"
	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/utils"
	"go.uber.org/zap"
)

// CreateValuationRequest is the PUT /valuations/{vrm} body. Mileage is any
// positive JSON number and is rounded to whole miles before valuation.
type CreateValuationRequest struct {
	Mileage *float64 `json:"mileage" validate:"required,gt=0,lte=2147483647"`
}

// WholeMileage rounds Mileage half away from zero. Values that round to zero
// are rejected like any other non-positive mileage.
func (r *CreateValuationRequest) WholeMileage() (int, error) {
	mileage := int(math.Round(*r.Mileage))
	if mileage <= 0 {
		const msg = "mileage must be a positive number"
		return 0, &utils.ValidationError{
			Message: msg,
			Fields:  map[string]string{"mileage": msg},
		}
	}
	return mileage, nil
}

// ValuationService defines the valuation operations the HTTP layer needs
type ValuationService interface {
	// GetValuation returns a stored valuation
	GetValuation(ctx context.Context, vrm string) (*models.Valuation, error)

	// ResolveValuation returns the stored valuation or fetches a new one
	ResolveValuation(ctx context.Context, vrm string, mileage int) (*models.Valuation, error)
}

// ValuationHandler handles valuation HTTP requests
type ValuationHandler struct {
	service ValuationService
	logger  *zap.Logger
}

// NewValuationHandler creates a new ValuationHandler
func NewValuationHandler(service ValuationService, logger *zap.Logger) *ValuationHandler {
	return &ValuationHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetValuation handles GET /valuations/{vrm}
func (h *ValuationHandler) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)
	vrm := chi.URLParam(r, "vrm")

	if err := utils.ValidateVRM(vrm); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	valuation, err := h.service.GetValuation(r.Context(), vrm)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, valuation.ToResponse()); err != nil {
		logger.Error("failed to write valuation response", zap.Error(err))
	}
}

// HandleCreateValuation handles PUT /valuations/{vrm}
func (h *ValuationHandler) HandleCreateValuation(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)
	vrm := chi.URLParam(r, "vrm")

	if err := utils.ValidateVRM(vrm); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	var req CreateValuationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	mileage, err := req.WholeMileage()
	if err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	valuation, err := h.service.ResolveValuation(r.Context(), vrm, mileage)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, valuation.ToResponse()); err != nil {
		logger.Error("failed to write valuation response", zap.Error(err))
	}
}

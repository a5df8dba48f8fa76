package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/domain"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/service"
)

// PricingService is the behaviour the handlers need from the service layer
type PricingService interface {
	Quote(ctx context.Context, req *service.CalculateRequest) (pricing.PriceBreakdown, error)
	Settle(ctx context.Context, req *service.CalculateRequest) (pricing.PriceBreakdown, error)
}

// Handler serves the pricing endpoints
type Handler struct {
	svc PricingService
}

// NewHandler creates a pricing handler
func NewHandler(svc PricingService) *Handler {
	return &Handler{svc: svc}
}

// Calculate handles POST /pricing/calculate
func (h *Handler) Calculate(c *gin.Context) {
	h.handle(c, h.svc.Quote)
}

// Settle handles POST /pricing/settle
func (h *Handler) Settle(c *gin.Context) {
	h.handle(c, h.svc.Settle)
}

func (h *Handler) handle(c *gin.Context, op func(context.Context, *service.CalculateRequest) (pricing.PriceBreakdown, error)) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, decodeError(err))
		return
	}

	breakdown, err := op(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// decodeError keeps configuration errors raised while decoding and reports everything else as
// malformed input
func decodeError(err error) error {
	if errors.Is(err, pricing.ErrConfigInvalid) || errors.Is(err, pricing.ErrInvalidSession) {
		return err
	}
	return domain.NewInvalidInputError("Malformed request body", err.Error())
}

func writeError(c *gin.Context, err error) {
	derr := domain.SanitizeError(err)
	if derr.Code == domain.ErrCodeInternal {
		log.Error(c.Request.Context(), "Pricing request failed", zap.Error(err))
	}
	metrics.RecordError(derr.Code, "http")
	c.AbortWithStatusJSON(derr.HTTPStatus(), derr)
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
	"github.com/ridehail/control-plane/services/pricing-service/internal/engine"
)

// PricingHandler exposes the PricingEngine over the §6 CalculatePrice,
// GetFallbackConfig, and UpdateFallbackConfig operations.
type PricingHandler struct {
	engine *engine.Engine
	loader *engine.ConfigLoader
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(eng *engine.Engine, loader *engine.ConfigLoader) *PricingHandler {
	return &PricingHandler{engine: eng, loader: loader}
}

type calculatePriceRequest struct {
	TripRequestID            string          `json:"trip_request_id" binding:"required"`
	PassengerID              string          `json:"passenger_id" binding:"required"`
	MatchedDriverID          string          `json:"matched_driver_id" binding:"required"`
	Origin                   models.Location `json:"origin"`
	Destination              models.Location `json:"destination"`
	EstimatedDistanceMeters  float64         `json:"estimated_distance_meters"`
	EstimatedDurationSeconds float64         `json:"estimated_duration_seconds"`
	DemandMultiplier         float64         `json:"demand_multiplier"`
	SupplyMultiplier         float64         `json:"supply_multiplier"`
	DriverAcceptanceRate     float64         `json:"driver_acceptance_rate"`
	DriverRating             float64         `json:"driver_rating"`
	PricingSeed              int64           `json:"pricing_seed"`
	Zone                     string          `json:"zone"`
}

// CalculatePrice handles price calculation requests.
func (h *PricingHandler) CalculatePrice(c *gin.Context) {
	var req calculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if req.EstimatedDistanceMeters < 0 || req.EstimatedDurationSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "distance and duration must be non-negative"})
		return
	}

	result, err := h.engine.CalculatePrice(engine.CalculateRequest{
		TripRequestID:            req.TripRequestID,
		PassengerID:              req.PassengerID,
		MatchedDriverID:          req.MatchedDriverID,
		Origin:                   req.Origin,
		Destination:              req.Destination,
		EstimatedDistanceMeters:  req.EstimatedDistanceMeters,
		EstimatedDurationSeconds: req.EstimatedDurationSeconds,
		DemandMultiplier:         req.DemandMultiplier,
		SupplyMultiplier:         req.SupplyMultiplier,
		DriverAcceptanceRate:     req.DriverAcceptanceRate,
		DriverRating:             req.DriverRating,
		PricingSeed:              req.PricingSeed,
		Zone:                     req.Zone,
	})
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFallbackConfig returns the active snapshot's default rate sheet, the
// operator-facing view of what CalculatePrice falls back to absent a zone
// override.
func (h *PricingHandler) GetFallbackConfig(c *gin.Context) {
	cfg := h.loader.Snapshot()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "config_unavailable", "message": "no pricing config loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version": cfg.Version,
		"default": cfg.Default,
	})
}

// UpdateFallbackConfig lets an operator push an in-memory override of the
// default rate sheet; it survives until the next file-backed reload,
// matching the resolution order the background watcher otherwise drives.
func (h *PricingHandler) UpdateFallbackConfig(c *gin.Context) {
	var override models.RateSheet
	if err := c.ShouldBindJSON(&override); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if err := h.loader.OverrideDefault(override); err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "fallback config updated", "default": override})
}

func errorCode(err error) string {
	switch apierrors.Classify(err) {
	case apierrors.ClassConfig:
		return "config_unavailable"
	case apierrors.ClassPermanent:
		return "economic_guardrail"
	default:
		return "calculation_failed"
	}
}

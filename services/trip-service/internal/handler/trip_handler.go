package handler

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"

	"github.com/ridehail/control-plane/services/trip-service/internal/service"
)

// TripHandler exposes TripService's §4.5 operations.
type TripHandler struct {
	service *service.TripService
}

// NewTripHandler creates a new handler.
func NewTripHandler(svc *service.TripService) *TripHandler {
	return &TripHandler{service: svc}
}

type createTripRequest struct {
	TripRequestID            string          `json:"trip_request_id" binding:"required"`
	PassengerID              string          `json:"passenger_id" binding:"required"`
	DriverID                 string          `json:"driver_id" binding:"required"`
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

// CreateTrip handles trip creation.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	trip, err := h.service.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		TripRequestID:            req.TripRequestID,
		PassengerID:              req.PassengerID,
		DriverID:                 req.DriverID,
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
	c.JSON(http.StatusOK, trip)
}

type updateTripStatusRequest struct {
	NewStatus       models.TripStatus `json:"new_status" binding:"required"`
	ExpectedVersion int               `json:"expected_version" binding:"required"`
}

// UpdateTripStatus handles FSM transitions.
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	tripID := c.Param("trip_id")
	var req updateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	trip, err := h.service.UpdateTripStatus(c.Request.Context(), tripID, req.NewStatus, req.ExpectedVersion)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

type cancelTripRequest struct {
	Reason          models.TripStatus `json:"reason" binding:"required"`
	ExpectedVersion int               `json:"expected_version" binding:"required"`
}

// CancelTrip handles cancellation.
func (h *TripHandler) CancelTrip(c *gin.Context) {
	tripID := c.Param("trip_id")
	var req cancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	trip, err := h.service.CancelTrip(c.Request.Context(), tripID, req.Reason, req.ExpectedVersion)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

// GetTripByID handles lookups by trip id.
func (h *TripHandler) GetTripByID(c *gin.Context) {
	tripID := c.Param("trip_id")
	trip, err := h.service.GetTripByID(c.Request.Context(), tripID)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

// GetTripByRequestID handles lookups by trip_request_id.
func (h *TripHandler) GetTripByRequestID(c *gin.Context) {
	requestID := c.Param("request_id")
	trip, err := h.service.GetTripByRequestID(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

// RegisterRoutes wires trip-service's routes onto router.
func (h *TripHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "trip-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/trips", h.CreateTrip)
		v1.PUT("/trips/:trip_id/status", h.UpdateTripStatus)
		v1.POST("/trips/:trip_id/cancel", h.CancelTrip)
		v1.GET("/trips/:trip_id", h.GetTripByID)
		v1.GET("/trips/by-request/:request_id", h.GetTripByRequestID)
	}
}

func errorCode(err error) string {
	switch {
	case stderrors.Is(err, apierrors.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, apierrors.ErrVersionConflict):
		return "version_conflict"
	case stderrors.Is(err, apierrors.ErrIllegalTransition):
		return "illegal_transition"
	case stderrors.Is(err, apierrors.ErrPricingRejected):
		return "pricing_rejected"
	case stderrors.Is(err, apierrors.ErrValidation):
		return "invalid_request"
	default:
		return "internal_error"
	}
}

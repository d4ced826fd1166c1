package handler

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
	"github.com/ridehail/control-plane/services/trip-request-service/internal/store"
)

// TripRequestHandler exposes TripRequestService's §4.4 operations.
type TripRequestHandler struct {
	store *store.Store
}

// NewTripRequestHandler creates a new handler.
func NewTripRequestHandler(s *store.Store) *TripRequestHandler {
	return &TripRequestHandler{store: s}
}

type createTripRequestRequest struct {
	PassengerID string          `json:"passenger_id" binding:"required"`
	Origin      models.Location `json:"origin"`
	Destination models.Location `json:"destination"`
}

// CreateTripRequest handles request creation.
func (h *TripRequestHandler) CreateTripRequest(c *gin.Context) {
	var req createTripRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.store.CreateTripRequest(req.PassengerID, req.Origin, req.Destination)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelTripRequestRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"required"`
}

// CancelTripRequest handles cancellation.
func (h *TripRequestHandler) CancelTripRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	var req cancelTripRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.store.CancelTripRequest(requestID, req.ExpectedVersion)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type fulfillTripRequestRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"required"`
}

// FulfillTripRequest handles the OPEN -> FULFILLED transition a created
// Trip drives once it references this request.
func (h *TripRequestHandler) FulfillTripRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	var req fulfillTripRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.store.FulfillTripRequest(requestID, req.ExpectedVersion)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTripRequest handles lookups.
func (h *TripRequestHandler) GetTripRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	result, err := h.store.GetTripRequest(requestID)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes wires the trip-request-service's routes onto router.
func (h *TripRequestHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "trip-request-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/trip-requests", h.CreateTripRequest)
		v1.POST("/trip-requests/:request_id/cancel", h.CancelTripRequest)
		v1.POST("/trip-requests/:request_id/fulfill", h.FulfillTripRequest)
		v1.GET("/trip-requests/:request_id", h.GetTripRequest)
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
	default:
		return "internal_error"
	}
}

package handler

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/services/driver-status-service/internal/store"
)

// DriverStatusHandler exposes DriverStatusService's §4.2 operations.
type DriverStatusHandler struct {
	store *store.Store
}

// NewDriverStatusHandler creates a new handler.
func NewDriverStatusHandler(s *store.Store) *DriverStatusHandler {
	return &DriverStatusHandler{store: s}
}

type updateDriverStatusRequest struct {
	Available       bool   `json:"available"`
	ExpectedVersion int    `json:"expected_version" binding:"required"`
	IdempotencyKey  string `json:"idempotency_key" binding:"required"`
}

// UpdateDriverStatus handles reserve/release requests.
func (h *DriverStatusHandler) UpdateDriverStatus(c *gin.Context) {
	driverID := c.Param("driver_id")
	var req updateDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	result, err := h.store.UpdateDriverStatus(driverID, req.Available, req.ExpectedVersion, req.IdempotencyKey)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDriverStatus handles lookups.
func (h *DriverStatusHandler) GetDriverStatus(c *gin.Context) {
	driverID := c.Param("driver_id")
	result, err := h.store.GetDriverStatus(driverID)
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes wires the driver-status-service's routes onto router.
func (h *DriverStatusHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "driver-status-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.PUT("/drivers/:driver_id/status", h.UpdateDriverStatus)
		v1.GET("/drivers/:driver_id/status", h.GetDriverStatus)
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

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridehail/control-plane/services/matching-service/internal/service"
	"github.com/ridehail/control-plane/shared/models"
)

// MatchingHandler exposes MatchingService.GetCandidates over HTTP.
type MatchingHandler struct {
	service       *service.MatchingService
	maxCandidates int
}

// NewMatchingHandler creates a matching handler with the configured
// default max_candidates, overridable per request.
func NewMatchingHandler(svc *service.MatchingService, defaultMaxCandidates int) *MatchingHandler {
	return &MatchingHandler{service: svc, maxCandidates: defaultMaxCandidates}
}

type candidatePoolEntry struct {
	DriverID string          `json:"driver_id" binding:"required"`
	Location models.Location `json:"location"`
}

type getCandidatesRequest struct {
	TripRequestID string                `json:"trip_request_id" binding:"required"`
	Origin        models.Location       `json:"origin"`
	Destination   models.Location       `json:"destination"`
	Seed          int64                 `json:"seed"`
	MaxCandidates *int                  `json:"max_candidates"`
	Pool          []candidatePoolEntry  `json:"driver_pool"`
}

// GetCandidates handles matching requests.
func (h *MatchingHandler) GetCandidates(c *gin.Context) {
	var req getCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	maxCandidates := h.maxCandidates
	if req.MaxCandidates != nil {
		maxCandidates = *req.MaxCandidates
	}

	pool := make([]service.Candidate, len(req.Pool))
	for i, p := range req.Pool {
		pool[i] = service.Candidate{DriverID: p.DriverID, Location: p.Location}
	}

	result, err := h.service.GetCandidates(service.Request{
		TripRequestID: req.TripRequestID,
		Origin:        req.Origin,
		Destination:   req.Destination,
	}, req.Seed, pool, maxCandidates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "matching_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes wires the matching-service's routes onto router.
func (h *MatchingHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "matching-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/matching/candidates", h.GetCandidates)
	}
}

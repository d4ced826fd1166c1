package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridehail/control-plane/services/orchestrator-service/internal/clients"
	"github.com/ridehail/control-plane/services/orchestrator-service/internal/workflow"
	apierrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

// OrchestratorHandler exposes TripWorkflow.CreateTrip as the saga's one
// externally visible RPC: a caller either gets back a committed Trip or
// a single terminal error identifying the failed stage, per spec.md
// §4.6/§7.
type OrchestratorHandler struct {
	workflow             *workflow.Workflow
	defaultMaxCandidates int
}

// NewOrchestratorHandler creates a new handler.
func NewOrchestratorHandler(wf *workflow.Workflow, defaultMaxCandidates int) *OrchestratorHandler {
	return &OrchestratorHandler{workflow: wf, defaultMaxCandidates: defaultMaxCandidates}
}

type driverPoolEntry struct {
	DriverID string          `json:"driver_id" binding:"required"`
	Location models.Location `json:"location"`
}

type createTripRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	PassengerID    string          `json:"passenger_id" binding:"required"`
	Origin         models.Location `json:"origin"`
	Destination    models.Location `json:"destination"`
	DriverPool     []driverPoolEntry `json:"driver_pool"`
	Seed           int64           `json:"seed"`
	MaxCandidates  *int            `json:"max_candidates"`

	EstimatedDistanceMeters  float64 `json:"estimated_distance_meters"`
	EstimatedDurationSeconds float64 `json:"estimated_duration_seconds"`
	DemandMultiplier         float64 `json:"demand_multiplier"`
	SupplyMultiplier         float64 `json:"supply_multiplier"`
	DriverAcceptanceRate     float64 `json:"driver_acceptance_rate"`
	DriverRating             float64 `json:"driver_rating"`
	Zone                     string  `json:"zone"`
}

// CreateTrip handles the orchestrator's single public operation.
func (h *OrchestratorHandler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	maxCandidates := h.defaultMaxCandidates
	if req.MaxCandidates != nil {
		maxCandidates = *req.MaxCandidates
	}

	pool := make([]clients.PoolEntry, len(req.DriverPool))
	for i, p := range req.DriverPool {
		pool[i] = clients.PoolEntry{DriverID: p.DriverID, Location: p.Location}
	}

	trip, err := h.workflow.CreateTrip(c.Request.Context(), workflow.Request{
		IdempotencyKey:           req.IdempotencyKey,
		PassengerID:              req.PassengerID,
		Origin:                   req.Origin,
		Destination:              req.Destination,
		DriverPool:               pool,
		Seed:                     req.Seed,
		MaxCandidates:            maxCandidates,
		EstimatedDistanceMeters:  req.EstimatedDistanceMeters,
		EstimatedDurationSeconds: req.EstimatedDurationSeconds,
		DemandMultiplier:         req.DemandMultiplier,
		SupplyMultiplier:         req.SupplyMultiplier,
		DriverAcceptanceRate:     req.DriverAcceptanceRate,
		DriverRating:             req.DriverRating,
		Zone:                     req.Zone,
	})
	if err != nil {
		c.JSON(apierrors.HTTPStatus(err), gin.H{"error": errorCode(err), "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trip)
}

// RegisterRoutes wires the orchestrator's routes onto router.
func (h *OrchestratorHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "orchestrator-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/workflows/create-trip", h.CreateTrip)
	}
}

func errorCode(err error) string {
	switch apierrors.Classify(err) {
	case apierrors.ClassConcurrency:
		return "version_conflict"
	case apierrors.ClassPermanent:
		return "workflow_failed"
	case apierrors.ClassConfig:
		return "config_unavailable"
	default:
		return "unavailable"
	}
}

package clients

import (
	"context"

	"github.com/ridehail/control-plane/shared/httpclient"
	"github.com/ridehail/control-plane/shared/models"
)

// MatchingClient calls MatchingService.GetCandidates.
type MatchingClient struct {
	http *httpclient.Client
}

// NewMatchingClient creates a MatchingClient bound to http.
func NewMatchingClient(http *httpclient.Client) *MatchingClient {
	return &MatchingClient{http: http}
}

// PoolEntry is one driver the caller considers visible for matching.
type PoolEntry struct {
	DriverID string          `json:"driver_id"`
	Location models.Location `json:"location"`
}

type getCandidatesBody struct {
	TripRequestID string      `json:"trip_request_id"`
	Origin        models.Location `json:"origin"`
	Destination   models.Location `json:"destination"`
	Seed          int64       `json:"seed"`
	MaxCandidates int         `json:"max_candidates"`
	Pool          []PoolEntry `json:"driver_pool"`
}

// ScoredCandidate mirrors matching-service's ranked candidate shape.
type ScoredCandidate struct {
	DriverID    string  `json:"driver_id"`
	Score       float64 `json:"score"`
	Probability float64 `json:"probability"`
}

// CandidatesResult mirrors matching-service's GetCandidates result.
type CandidatesResult struct {
	Candidates []ScoredCandidate `json:"candidates"`
	ReasonCode string            `json:"reason_code,omitempty"`
}

// GetCandidates ranks pool deterministically under seed, the saga's
// step 2. The orchestrator picks candidates[0] on a non-empty result.
func (c *MatchingClient) GetCandidates(ctx context.Context, tripRequestID string, origin, destination models.Location, seed int64, maxCandidates int, pool []PoolEntry) (*CandidatesResult, error) {
	var result CandidatesResult
	err := c.http.CallWithRetry(ctx, func(ctx context.Context) error {
		return c.http.Do(ctx, "POST", "/api/v1/matching/candidates", getCandidatesBody{
			TripRequestID: tripRequestID,
			Origin:        origin,
			Destination:   destination,
			Seed:          seed,
			MaxCandidates: maxCandidates,
			Pool:          pool,
		}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

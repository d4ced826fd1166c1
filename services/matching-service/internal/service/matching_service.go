// Package service implements MatchingService: a deterministic selection
// of up to max_candidates driver candidates for a trip request, seeded
// by the caller per spec.md §4.3. The service is stateless — it scores
// whatever driver pool the caller passes in; it does not own a driver
// repository or talk to a geospatial index (both out of scope).
package service

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

const jitterEpsilon = 1e-6

// Reason codes surfaced on an empty candidate list.
const (
	ReasonNoDriversAvailable = "NO_DRIVERS_AVAILABLE"
	ReasonMaxCandidatesZero  = "MAX_CANDIDATES_ZERO"
)

// Candidate is one driver in the visible pool the caller supplies.
type Candidate struct {
	DriverID string
	Location models.Location
}

// Request is the trip request being matched.
type Request struct {
	TripRequestID string
	Origin        models.Location
	Destination   models.Location
}

// ScoredCandidate is one ranked driver in a MatchingService result.
type ScoredCandidate struct {
	DriverID    string  `json:"driver_id"`
	Score       float64 `json:"score"`
	Probability float64 `json:"probability"`
}

// Result is the outcome of one GetCandidates call.
type Result struct {
	Candidates []ScoredCandidate `json:"candidates"`
	ReasonCode string            `json:"reason_code,omitempty"`
}

// MatchingService implements the §4.3 GetCandidates contract.
type MatchingService struct{}

// New creates a MatchingService. It holds no state: every call is a pure
// function of its arguments, which is what makes the determinism
// contract trivial to satisfy.
func New() *MatchingService {
	return &MatchingService{}
}

// GetCandidates ranks pool by a distance-plus-seeded-jitter score and
// returns up to maxCandidates with normalized probabilities. Two calls
// with identical (req, seed, pool, maxCandidates) always return an
// identical ordered list: the scoring function has no hidden inputs,
// and ties are broken by driver_id ascending rather than map iteration
// order or slice order.
func (s *MatchingService) GetCandidates(req Request, seed int64, pool []Candidate, maxCandidates int) (*Result, error) {
	if maxCandidates <= 0 {
		return &Result{Candidates: []ScoredCandidate{}, ReasonCode: ReasonMaxCandidatesZero}, nil
	}
	if len(pool) == 0 {
		return &Result{Candidates: []ScoredCandidate{}, ReasonCode: ReasonNoDriversAvailable}, nil
	}

	type scored struct {
		driverID string
		score    float64
	}

	scoredPool := make([]scored, len(pool))
	for i, c := range pool {
		distanceKm := req.Origin.DistanceTo(&c.Location)
		scoredPool[i] = scored{
			driverID: c.DriverID,
			score:    distanceKm + seededJitter(seed, c.DriverID),
		}
	}

	sort.Slice(scoredPool, func(i, j int) bool {
		if scoredPool[i].score != scoredPool[j].score {
			return scoredPool[i].score < scoredPool[j].score
		}
		return scoredPool[i].driverID < scoredPool[j].driverID
	})

	if len(scoredPool) > maxCandidates {
		scoredPool = scoredPool[:maxCandidates]
	}

	weights := make([]float64, len(scoredPool))
	var total float64
	for i, c := range scoredPool {
		weights[i] = 1.0 / (1.0 + c.score)
		total += weights[i]
	}

	candidates := make([]ScoredCandidate, len(scoredPool))
	for i, c := range scoredPool {
		probability := 0.0
		if total > 0 {
			probability = weights[i] / total
		}
		candidates[i] = ScoredCandidate{
			DriverID:    c.driverID,
			Score:       c.score,
			Probability: probability,
		}
	}

	return &Result{Candidates: candidates}, nil
}

// seededJitter derives a small, deterministic per-driver perturbation
// from (seed, driverID): same pair always yields the same value, but
// distinct seeds can reorder otherwise-near-tied candidates, matching
// the spec's "seeded by caller" determinism contract the same way
// PricingEngine's A/B bucketing is seeded from pricing_seed.
func seededJitter(seed int64, driverID string) float64 {
	h := fnv.New64a()
	h.Write([]byte(driverID))
	r := rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
	return r.Float64() * jitterEpsilon
}

// ErrNoCandidates classifies an empty-pool result for callers (e.g. the
// orchestrator) that want to treat "no drivers" as a retryable-vs-fatal
// decision via errors.Classify rather than string-matching reason codes.
var ErrNoCandidates = errors.New(errors.ErrNoDriversAvailable, "matching_service", "no candidate drivers available")

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridehail/control-plane/shared/models"
)

func samplePool() []Candidate {
	return []Candidate{
		{DriverID: "D1", Location: models.Location{Latitude: 39.60, Longitude: 67.80}},
		{DriverID: "D2", Location: models.Location{Latitude: 39.61, Longitude: 67.81}},
		{DriverID: "D3", Location: models.Location{Latitude: 39.65, Longitude: 67.85}},
		{DriverID: "D4", Location: models.Location{Latitude: 39.70, Longitude: 67.90}},
		{DriverID: "D5", Location: models.Location{Latitude: 39.80, Longitude: 68.00}},
	}
}

func TestGetCandidates_Deterministic(t *testing.T) {
	svc := New()
	req := Request{
		TripRequestID: "tr-1",
		Origin:        models.Location{Latitude: 39.60, Longitude: 67.80},
	}

	r1, err := svc.GetCandidates(req, 42, samplePool(), 3)
	require.NoError(t, err)
	r2, err := svc.GetCandidates(req, 42, samplePool(), 3)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Len(t, r1.Candidates, 3)
}

func TestGetCandidates_ProbabilitiesSumToAtMostOne(t *testing.T) {
	svc := New()
	req := Request{Origin: models.Location{Latitude: 39.60, Longitude: 67.80}}

	result, err := svc.GetCandidates(req, 7, samplePool(), 5)
	require.NoError(t, err)

	var total float64
	for _, c := range result.Candidates {
		assert.GreaterOrEqual(t, c.Probability, 0.0)
		total += c.Probability
	}
	assert.LessOrEqual(t, total, 1.0+1e-9)
}

func TestGetCandidates_TieBreakByDriverIDAscending(t *testing.T) {
	svc := New()
	pool := []Candidate{
		{DriverID: "D2", Location: models.Location{Latitude: 39.60, Longitude: 67.80}},
		{DriverID: "D1", Location: models.Location{Latitude: 39.60, Longitude: 67.80}},
	}
	req := Request{Origin: models.Location{Latitude: 39.60, Longitude: 67.80}}

	// Both candidates are co-located, so their distances are equal and
	// their scores differ only by the per-driver jitter. The result must
	// be ordered by score ascending, with driver_id ascending deciding
	// only an exact score tie.
	result, err := svc.GetCandidates(req, 1, pool, 2)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	first, second := result.Candidates[0], result.Candidates[1]
	assert.True(t, first.Score < second.Score || (first.Score == second.Score && first.DriverID < second.DriverID),
		"candidates must be ordered by score, then driver_id ascending")
}

func TestGetCandidates_EmptyPoolReturnsReasonCode(t *testing.T) {
	svc := New()
	result, err := svc.GetCandidates(Request{}, 1, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, ReasonNoDriversAvailable, result.ReasonCode)
}

func TestGetCandidates_MaxCandidatesZero(t *testing.T) {
	svc := New()
	result, err := svc.GetCandidates(Request{}, 1, samplePool(), 0)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, ReasonMaxCandidatesZero, result.ReasonCode)
}

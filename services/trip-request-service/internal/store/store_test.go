package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

func TestCreateTripRequest_IdempotentOnOpenRequest(t *testing.T) {
	s := New()
	origin := models.Location{Latitude: 39.60, Longitude: 67.80}
	destination := models.Location{Latitude: 39.65, Longitude: 67.85}

	first, err := s.CreateTripRequest("P1", origin, destination)
	require.NoError(t, err)

	second, err := s.CreateTripRequest("P1", origin, destination)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Version)
}

func TestCreateTripRequest_DistinctPassengersGetDistinctRequests(t *testing.T) {
	s := New()
	loc := models.Location{}

	r1, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)
	r2, err := s.CreateTripRequest("P2", loc, loc)
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID, r2.ID)
}

func TestCreateTripRequest_NewRequestAllowedAfterCancellation(t *testing.T) {
	s := New()
	loc := models.Location{}

	first, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)

	_, err = s.CancelTripRequest(first.ID, first.Version)
	require.NoError(t, err)

	second, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestCancelTripRequest_IllegalTransitionFromTerminal(t *testing.T) {
	s := New()
	loc := models.Location{}

	req, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)

	cancelled, err := s.CancelTripRequest(req.ID, req.Version)
	require.NoError(t, err)

	_, err = s.CancelTripRequest(req.ID, cancelled.Version)
	require.Error(t, err)
	var illegal *models.IllegalTransitionError
	assert.True(t, errors.As(err, &illegal))
}

func TestFulfillTripRequest_RemovesOpenIndexEntry(t *testing.T) {
	s := New()
	loc := models.Location{}

	req, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)

	_, err = s.FulfillTripRequest(req.ID, req.Version)
	require.NoError(t, err)

	again, err := s.CreateTripRequest("P1", loc, loc)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, again.ID)
}

func TestGetTripRequest_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetTripRequest("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

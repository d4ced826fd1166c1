package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

func TestUpdateDriverStatus_ReserveThenRelease(t *testing.T) {
	s := New()

	reserved, err := s.UpdateDriverStatus("D1", false, 1, "key-reserve")
	require.NoError(t, err)
	assert.False(t, reserved.Available)
	assert.Equal(t, 2, reserved.Version)

	released, err := s.UpdateDriverStatus("D1", true, 2, "key-release")
	require.NoError(t, err)
	assert.True(t, released.Available)
	assert.Equal(t, 3, released.Version)
}

func TestUpdateDriverStatus_DuplicateIdempotencyKeyIsNoOp(t *testing.T) {
	s := New()

	first, err := s.UpdateDriverStatus("D1", false, 1, "key-1")
	require.NoError(t, err)

	replay, err := s.UpdateDriverStatus("D1", false, 1, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.Version, replay.Version)
	assert.Equal(t, first.Available, replay.Available)
}

func TestUpdateDriverStatus_VersionConflict(t *testing.T) {
	s := New()

	_, err := s.UpdateDriverStatus("D1", false, 99, "key-1")
	require.Error(t, err)
	var vcErr *models.VersionConflictError
	assert.True(t, errors.As(err, &vcErr))
	assert.Equal(t, apperrors.ClassConcurrency, apperrors.Classify(err))
}

func TestGetDriverStatus_NotFound(t *testing.T) {
	s := New()
	_, err := s.GetDriverStatus("unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

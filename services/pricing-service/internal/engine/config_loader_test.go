package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ridehail/control-plane/shared/errors"
	"github.com/ridehail/control-plane/shared/models"
)

const validConfigYAML = `
version: 1
default:
  base_fare: 2.0
  per_km_rate: 1.0
  per_min_rate: 0.2
  commission_percent: 20
  rounding_denominations: [0.5, 1, 3, 5]
  minimum_fare: 3.0
economic_constraints:
  min_driver_rate: 0.5
  max_driver_rate: 5.0
  operational_cost_floor: 1.0
`

const invalidConfigYAML = `
version: 2
default:
  base_fare: 2.0
  per_km_rate: 50.0
  per_min_rate: 0.2
  commission_percent: 20
  rounding_denominations: [0.5, 1, 3, 5]
  minimum_fare: 3.0
economic_constraints:
  min_driver_rate: 0.5
  max_driver_rate: 5.0
  operational_cost_floor: 1.0
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewConfigLoader_InitialLoadSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	snap := cl.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, 1.0, snap.Default.PerKmRate)
}

func TestNewConfigLoader_InitialLoadFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, invalidConfigYAML)

	_, err := NewConfigLoader(path, time.Hour, testLogger())
	require.Error(t, err)
}

func TestNewConfigLoader_MissingFileReturnsConfigUnavailable(t *testing.T) {
	_, err := NewConfigLoader(filepath.Join(t.TempDir(), "missing.yaml"), time.Hour, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigUnavailable)
}

func TestConfigLoader_ReloadWithInvalidConfigRetainsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	before := cl.Snapshot()

	// Rewrite with an invalid config and move its mtime one minute into
	// the future; reload() should detect the newer mtime, fail
	// validation, and leave the snapshot untouched.
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte(invalidConfigYAML), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	reloadErr := cl.reload()
	require.Error(t, reloadErr)

	after := cl.Snapshot()
	assert.Equal(t, before.Version, after.Version, "invalid reload must not replace the active snapshot")
	assert.Equal(t, before.Default.PerKmRate, after.Default.PerKmRate)
}

func TestConfigLoader_ReloadWithUnchangedMtimeIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	before := cl.Snapshot()
	require.NoError(t, cl.reload())
	after := cl.Snapshot()

	assert.Same(t, before, after, "reload without a newer mtime must not produce a new snapshot")
}

func TestConfigLoader_ReloadWithValidNewerConfigSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	updated := `
version: 2
default:
  base_fare: 3.0
  per_km_rate: 1.5
  per_min_rate: 0.25
  commission_percent: 25
  rounding_denominations: [1, 5]
  minimum_fare: 4.0
economic_constraints:
  min_driver_rate: 0.5
  max_driver_rate: 5.0
  operational_cost_floor: 1.0
`
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, cl.reload())
	after := cl.Snapshot()
	assert.Equal(t, 2, after.Version)
	assert.Equal(t, 1.5, after.Default.PerKmRate)
}

func TestConfigLoader_OverrideDefaultAppliesAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	next := cl.Snapshot().Default
	next.PerKmRate = 2.0

	require.NoError(t, cl.OverrideDefault(next))
	assert.Equal(t, 2.0, cl.Snapshot().Default.PerKmRate)
}

func TestConfigLoader_OverrideDefaultRejectsInvalidRate(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validConfigYAML)

	cl, err := NewConfigLoader(path, time.Hour, testLogger())
	require.NoError(t, err)
	defer cl.Stop()

	before := cl.Snapshot().Default.PerKmRate

	bad := cl.Snapshot().Default
	bad.PerKmRate = 999
	err = cl.OverrideDefault(bad)

	require.Error(t, err)
	assert.Equal(t, before, cl.Snapshot().Default.PerKmRate, "rejected override must not mutate the active snapshot")
}

func TestValidate_RejectsDisallowedRoundingDenomination(t *testing.T) {
	cfg := baseConfig()
	cfg.Default.RoundingDenominations = []float64{2}
	assert.Error(t, validate(&cfg))
}

func TestValidate_RejectsOutOfRangeTimeMultiplierHour(t *testing.T) {
	cfg := baseConfig()
	cfg.TimeBasedMultipliers = []models.TimeMultiplier{{StartHour: 24, EndHour: 25, SurgeMultiplier: 1.0}}
	assert.Error(t, validate(&cfg))
}

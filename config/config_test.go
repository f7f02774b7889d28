package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtransport-dispatch/internal/dispatch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: \"file::memory:\"\n  driver: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 60*time.Second, cfg.Fleet.Interval)
	assert.Equal(t, 100, cfg.Fleet.Request.PageSize)
	assert.Equal(t, "OFF_DUTY", cfg.Fleet.DefaultStatus)
	assert.Equal(t, 3, cfg.Scoring.DefaultLimit)
	assert.Equal(t, dispatch.DefaultFallbackMiles, cfg.Scoring.FallbackDistanceMiles)
	assert.Equal(t, dispatch.DefaultWeights(), cfg.Scoring.Weights)
	assert.Equal(t, dispatch.DefaultWeights(), cfg.Scoring.WeightsFor(uuid.New()))
}

func TestLoad_ExplicitZeroLimitIsUnbounded(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  dsn: postgres://localhost/dispatch
scoring:
  default_limit: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Scoring.DefaultLimit)
}

func TestLoad_OrganizationOverrides(t *testing.T) {
	org := uuid.MustParse("3f1b2a6e-8c1d-4a55-9d9e-2f7a7c1e0b11")
	cfg, err := Load(writeConfig(t, `
database:
  dsn: postgres://localhost/dispatch
scoring:
  weights:
    capability: 25
  organizations:
    3f1b2a6e-8c1d-4a55-9d9e-2f7a7c1e0b11:
      distance: 30
      max_distance_miles: 40
`))
	require.NoError(t, err)

	global := cfg.Scoring.WeightsFor(uuid.New())
	assert.Equal(t, 25.0, global.Capability)
	assert.Equal(t, 0.0, global.Distance)
	assert.Equal(t, 100.0, global.Base)

	w := cfg.Scoring.WeightsFor(org)
	assert.Equal(t, 30.0, w.Distance)
	assert.Equal(t, 40.0, w.MaxDistanceMiles)
	assert.Equal(t, 25.0, w.Capability, "overrides start from the global weights")
	assert.Equal(t, 0.30, w.OnTime)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Missing DSN", body: "database:\n  driver: postgres\n"},
		{name: "Unknown driver", body: "database:\n  driver: mysql\n  dsn: x\n"},
		{name: "Bad organization id", body: "database:\n  dsn: x\nscoring:\n  organizations:\n    acme:\n      distance: 1\n"},
		{name: "Max distance below optimal", body: "database:\n  dsn: x\nscoring:\n  weights:\n    max_distance_miles: 2\n"},
		{name: "Org override breaks distance band", body: "database:\n  dsn: x\nscoring:\n  organizations:\n    3f1b2a6e-8c1d-4a55-9d9e-2f7a7c1e0b11:\n      optimal_distance_miles: 60\n"},
		{name: "Fleet enabled without URL", body: "database:\n  dsn: x\nfleet:\n  enabled: true\n"},
		{name: "Unknown timezone", body: "database:\n  dsn: x\nfleet:\n  timezone: Mars/Olympus\n"},
		{name: "Unknown default status", body: "database:\n  dsn: x\nfleet:\n  default_status: PARKED\n"},
		{name: "Bad log format", body: "database:\n  dsn: x\nlog:\n  format: xml\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30.0, cfg.Scoring.WeightsFor(uuid.MustParse("3f1b2a6e-8c1d-4a55-9d9e-2f7a7c1e0b11")).Distance)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

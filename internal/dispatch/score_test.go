package dispatch

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// fixedEstimator reports the same distance for every lookup.
type fixedEstimator struct {
	miles float64
	known bool
}

func (f fixedEstimator) EstimateMiles(_, _ *Point) (float64, bool) {
	return f.miles, f.known
}

func cctIncident() Incident {
	return Incident{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		TransportType:  TransportCCT,
		Requirements:   CrewRequirements{RequiresCCT: true},
		Origin:         &Point{Lat: 39.95, Lon: -75.16},
	}
}

func TestCalculator_CCTScenario(t *testing.T) {
	inc := cctIncident()
	unit := Unit{
		ID:                   uuid.New(),
		OrganizationID:       inc.OrganizationID,
		DisplayID:            "M-12",
		Status:               UnitAvailable,
		Capabilities:         Capabilities{CanDoCCT: true},
		Fatigue:              FatigueLow,
		OnTimeArrivalPct:     ptr(95),
		ComplianceAuditScore: ptr(90),
	}

	score := NewCalculator(DefaultWeights(), nil).Score(inc, unit)

	// 100 + 10 + 28.5 + 20 + 20 + 18 = 196.5
	assert.Equal(t, 197, score.Total)
	assert.Equal(t, 1.0, score.CapabilityMatch)
	assert.Contains(t, score.Reasons, ReasonExcellentOnTime)
	assert.Contains(t, score.Reasons, ReasonWellRested)
	assert.Contains(t, score.Reasons, ReasonAllCapabilities)
	assert.NotContains(t, score.Reasons, ReasonDefault)

	assert.Equal(t, 100.0, score.Components.Qualification)
	assert.Equal(t, 100.0, score.Components.Fatigue)
	assert.InDelta(t, 93.0, score.Components.Performance, 1e-9)
	assert.Equal(t, 50.0, score.Components.Distance, "unit without a location scores neutral distance")
	assert.False(t, score.DistanceKnown)
	assert.Contains(t, score.Warnings, "location unknown; distance estimated")
}

func TestCalculator_FatigueOrdering(t *testing.T) {
	inc := cctIncident()
	calc := NewCalculator(DefaultWeights(), nil)
	base := Unit{
		ID:                   uuid.New(),
		OrganizationID:       inc.OrganizationID,
		Status:               UnitAvailable,
		Capabilities:         Capabilities{CanDoCCT: true},
		OnTimeArrivalPct:     ptr(80),
		ComplianceAuditScore: ptr(70),
	}

	totals := map[FatigueLevel]int{}
	for _, level := range []FatigueLevel{FatigueLow, FatigueModerate, "", FatigueHigh, FatigueCritical} {
		u := base
		u.Fatigue = level
		totals[level] = calc.Score(inc, u).Total
	}

	assert.Greater(t, totals[FatigueLow], totals[FatigueHigh])
	assert.Greater(t, totals[FatigueLow], totals[FatigueModerate])
	assert.Greater(t, totals[FatigueModerate], totals[""])
	assert.Greater(t, totals[""], totals[FatigueHigh])
	assert.Greater(t, totals[FatigueHigh], totals[FatigueCritical])
}

func TestCalculator_MissingDataContributesNothing(t *testing.T) {
	inc := Incident{ID: uuid.New(), OrganizationID: uuid.New()}
	unit := Unit{ID: uuid.New(), OrganizationID: inc.OrganizationID, Status: UnitAvailable}

	score := NewCalculator(DefaultWeights(), nil).Score(inc, unit)

	// base + availability + full capability match for an incident without requirements
	assert.Equal(t, 130, score.Total)
	assert.Equal(t, []string{ReasonAllCapabilities}, score.Reasons)
}

func TestCalculator_DefaultReason(t *testing.T) {
	inc := cctIncident()
	unit := Unit{ID: uuid.New(), OrganizationID: inc.OrganizationID, Status: UnitAvailable, Fatigue: FatigueHigh}

	score := NewCalculator(DefaultWeights(), nil).Score(inc, unit)

	assert.Equal(t, []string{ReasonDefault}, score.Reasons)
	// 100 + 10 - 20 + 0 capability
	assert.Equal(t, 90, score.Total)
	assert.Contains(t, score.Warnings, "missing 1 of 1 required capabilities")
	assert.Contains(t, score.Warnings, "crew fatigue risk high")
}

func TestCalculator_PartialCapabilityPenalty(t *testing.T) {
	inc := cctIncident()
	inc.Requirements = CrewRequirements{RequiresCCT: true, RequiresVentilator: true}
	calc := NewCalculator(DefaultWeights(), nil)

	none := calc.Score(inc, Unit{Status: UnitAvailable})
	half := calc.Score(inc, Unit{Status: UnitAvailable, Capabilities: Capabilities{CanDoCCT: true}})
	all := calc.Score(inc, Unit{Status: UnitAvailable, Capabilities: Capabilities{CanDoCCT: true, HasVentilator: true}})

	assert.Equal(t, 0.5, half.CapabilityMatch)
	assert.Equal(t, none.Total+10, half.Total)
	assert.Equal(t, half.Total+10, all.Total)
}

func TestCalculator_DistancePolicy(t *testing.T) {
	inc := cctIncident()
	unit := Unit{ID: uuid.New(), OrganizationID: inc.OrganizationID, Status: UnitAvailable}

	near := fixedEstimator{miles: 2, known: true}
	far := fixedEstimator{miles: 40, known: true}

	t.Run("default weights report distance without scoring it", func(t *testing.T) {
		w := DefaultWeights()
		nearScore := NewCalculator(w, near).Score(inc, unit)
		farScore := NewCalculator(w, far).Score(inc, unit)

		assert.Equal(t, nearScore.Total, farScore.Total)
		assert.Equal(t, 2.0, nearScore.DistanceMiles)
		assert.Equal(t, 40.0, farScore.DistanceMiles)
		assert.Equal(t, 100.0, nearScore.Components.Distance)
		assert.Contains(t, nearScore.Reasons, ReasonCloseToPickup)
	})

	t.Run("a distance weight folds distance into the total", func(t *testing.T) {
		w := DefaultWeights()
		w.Distance = 30
		nearScore := NewCalculator(w, near).Score(inc, unit)
		farScore := NewCalculator(w, far).Score(inc, unit)

		require.Greater(t, nearScore.Total, farScore.Total)
		// 40 mi sits 35 of the 45 mi between optimal and max: 100*(10/45)
		assert.InDelta(t, 22.222, farScore.Components.Distance, 0.01)
		// 110 without capabilities, plus 30 and 30*0.2222
		assert.Equal(t, 140, nearScore.Total)
		assert.Equal(t, 117, farScore.Total)
	})

	t.Run("beyond max distance warns and scores zero", func(t *testing.T) {
		score := NewCalculator(DefaultWeights(), fixedEstimator{miles: 80, known: true}).Score(inc, unit)
		assert.Equal(t, 0.0, score.Components.Distance)
		assert.Contains(t, score.Warnings, "80.0 mi from pickup exceeds 50 mi limit")
	})
}

func TestCalculator_ReasoningIsNotAnInput(t *testing.T) {
	inc := cctIncident()
	calc := NewCalculator(DefaultWeights(), nil)
	unit := Unit{Status: UnitAvailable, OnTimeArrivalPct: ptr(90), Capabilities: Capabilities{CanDoCCT: true}}
	justOver := unit
	justOver.OnTimeArrivalPct = ptr(90.1)

	a := calc.Score(inc, unit)
	b := calc.Score(inc, justOver)

	assert.NotContains(t, a.Reasons, ReasonExcellentOnTime)
	assert.Contains(t, b.Reasons, ReasonExcellentOnTime)
	assert.Equal(t, a.Total, b.Total, "crossing a reasoning threshold must not jump the score")
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 197, roundScore(196.5))
	assert.Equal(t, 197, roundScore(196.49999999999997))
	assert.Equal(t, 196, roundScore(196.4))
	assert.Equal(t, -21, roundScore(-20.5))
}

package dispatch

// Weights tunes the additive scoring model. Totals are points, not a normalised
// composite: they start at Base and routinely exceed 100 or drop below zero.
type Weights struct {
	Base              float64 `yaml:"base"`
	AvailabilityBonus float64 `yaml:"availability_bonus"`
	OnTime            float64 `yaml:"on_time"`
	Compliance        float64 `yaml:"compliance"`
	Capability        float64 `yaml:"capability"`

	FatigueLow      float64 `yaml:"fatigue_low"`
	FatigueModerate float64 `yaml:"fatigue_moderate"`
	FatigueHigh     float64 `yaml:"fatigue_high"`
	FatigueCritical float64 `yaml:"fatigue_critical"`

	// Distance scales the distance sub-score into points. Zero reports distance
	// for display without affecting the total.
	Distance             float64 `yaml:"distance"`
	OptimalDistanceMiles float64 `yaml:"optimal_distance_miles"`
	MaxDistanceMiles     float64 `yaml:"max_distance_miles"`

	ExcellentOnTimePct    float64 `yaml:"excellent_on_time_pct"`
	StrongComplianceScore float64 `yaml:"strong_compliance_score"`
	FastResponseMinutes   float64 `yaml:"fast_response_minutes"`
}

// DefaultWeights returns the stock weights used when an organization has no overrides.
func DefaultWeights() Weights {
	return Weights{
		Base:              100,
		AvailabilityBonus: 10,
		OnTime:            0.30,
		Compliance:        0.20,
		Capability:        20,

		FatigueLow:      20,
		FatigueModerate: 10,
		FatigueHigh:     -20,
		FatigueCritical: -40,

		Distance:             0,
		OptimalDistanceMiles: 5,
		MaxDistanceMiles:     50,

		ExcellentOnTimePct:    90,
		StrongComplianceScore: 90,
		FastResponseMinutes:   10,
	}
}

func (w Weights) fatiguePoints(level FatigueLevel) float64 {
	switch level {
	case FatigueLow:
		return w.FatigueLow
	case FatigueModerate:
		return w.FatigueModerate
	case FatigueHigh:
		return w.FatigueHigh
	case FatigueCritical:
		return w.FatigueCritical
	}
	return 0
}

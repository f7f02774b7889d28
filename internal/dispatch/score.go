package dispatch

import (
	"fmt"
	"math"
)

// Reasoning phrases surfaced to dispatchers.
const (
	ReasonExcellentOnTime  = "excellent on-time performance"
	ReasonWellRested       = "crew well-rested"
	ReasonAllCapabilities  = "all required capabilities available"
	ReasonStrongCompliance = "strong compliance record"
	ReasonFastResponse     = "fast average response time"
	ReasonCloseToPickup    = "close to pickup"
	ReasonDefault          = "Available unit"
)

// Calculator scores a single unit against an incident.
type Calculator struct {
	weights  Weights
	distance DistanceEstimator
}

// NewCalculator builds a Calculator. A nil estimator falls back to haversine with the
// default fallback distance.
func NewCalculator(weights Weights, estimator DistanceEstimator) *Calculator {
	if estimator == nil {
		estimator = NewHaversineEstimator(DefaultFallbackMiles)
	}
	return &Calculator{weights: weights, distance: estimator}
}

// Weights returns the weights the calculator was built with.
func (c *Calculator) Weights() Weights {
	return c.weights
}

// Score computes the UnitScore for unit. It never fails: missing optional data
// contributes nothing instead of aborting the recommendation.
func (c *Calculator) Score(inc Incident, unit Unit) UnitScore {
	w := c.weights

	miles, known := c.distance.EstimateMiles(unit.Location, inc.Origin)
	ratio := CapabilityMatch(inc.Requirements, unit.Capabilities)
	onTime := valueOrZero(unit.OnTimeArrivalPct)
	compliance := valueOrZero(unit.ComplianceAuditScore)

	components := ComponentScores{
		Distance:      c.distanceScore(miles, known),
		Qualification: ratio * 100,
		Performance:   c.performanceScore(onTime, compliance),
		Fatigue:       fatigueScore(unit.Fatigue),
	}

	total := w.Base
	total += w.AvailabilityBonus
	total += onTime * w.OnTime
	total += w.fatiguePoints(unit.Fatigue)
	total += ratio * w.Capability
	total += compliance * w.Compliance
	total += w.Distance * components.Distance / 100

	return UnitScore{
		Unit:            unit,
		Total:           roundScore(total),
		Components:      components,
		DistanceMiles:   miles,
		DistanceKnown:   known,
		CapabilityMatch: ratio,
		Reasons:         c.reasons(unit, ratio, miles, known),
		Warnings:        c.warnings(inc, unit, miles, known),
	}
}

func (c *Calculator) distanceScore(miles float64, known bool) float64 {
	if !known {
		return 50
	}
	optimal, limit := c.weights.OptimalDistanceMiles, c.weights.MaxDistanceMiles
	switch {
	case miles <= optimal:
		return 100
	case miles >= limit || limit <= optimal:
		return 0
	}
	return 100 * (limit - miles) / (limit - optimal)
}

func (c *Calculator) performanceScore(onTime, compliance float64) float64 {
	sum := c.weights.OnTime + c.weights.Compliance
	if sum <= 0 {
		return 0
	}
	return (onTime*c.weights.OnTime + compliance*c.weights.Compliance) / sum
}

func fatigueScore(level FatigueLevel) float64 {
	switch level {
	case FatigueLow:
		return 100
	case FatigueModerate:
		return 70
	case FatigueHigh:
		return 30
	case FatigueCritical:
		return 0
	}
	return 50
}

// reasons is derived from threshold checks only and must never feed back into the total.
func (c *Calculator) reasons(unit Unit, ratio, miles float64, known bool) []string {
	w := c.weights
	var out []string
	if unit.OnTimeArrivalPct != nil && *unit.OnTimeArrivalPct > w.ExcellentOnTimePct {
		out = append(out, ReasonExcellentOnTime)
	}
	if unit.Fatigue == FatigueLow {
		out = append(out, ReasonWellRested)
	}
	if ratio == 1 {
		out = append(out, ReasonAllCapabilities)
	}
	if unit.ComplianceAuditScore != nil && *unit.ComplianceAuditScore > w.StrongComplianceScore {
		out = append(out, ReasonStrongCompliance)
	}
	if unit.AvgResponseMinutes != nil && *unit.AvgResponseMinutes > 0 && *unit.AvgResponseMinutes <= w.FastResponseMinutes {
		out = append(out, ReasonFastResponse)
	}
	if known && miles <= w.OptimalDistanceMiles {
		out = append(out, ReasonCloseToPickup)
	}
	if len(out) == 0 {
		out = append(out, ReasonDefault)
	}
	return out
}

func (c *Calculator) warnings(inc Incident, unit Unit, miles float64, known bool) []string {
	var out []string
	if !known {
		out = append(out, "location unknown; distance estimated")
	} else if miles > c.weights.MaxDistanceMiles {
		out = append(out, fmt.Sprintf("%.1f mi from pickup exceeds %.0f mi limit", miles, c.weights.MaxDistanceMiles))
	}
	if matched, required := capabilityCounts(inc.Requirements, unit.Capabilities); matched < required {
		out = append(out, fmt.Sprintf("missing %d of %d required capabilities", required-matched, required))
	}
	switch unit.Fatigue {
	case FatigueHigh:
		out = append(out, "crew fatigue risk high")
	case FatigueCritical:
		out = append(out, "crew fatigue risk critical")
	}
	return out
}

func valueOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// roundScore rounds half away from zero. Totals are snapped to 1e-6 first so that
// fractional weights cannot turn an exact .5 into .4999999.
func roundScore(total float64) int {
	return int(math.Round(math.Round(total*1e6) / 1e6))
}

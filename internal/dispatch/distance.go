package dispatch

import (
	"math"

	"github.com/umahmood/haversine"
)

// DefaultFallbackMiles is substituted when either end of a distance lookup is unknown.
const DefaultFallbackMiles = 10.0

// DistanceEstimator computes the distance from a unit to an incident's origin.
// Implementations must always return a finite, non-negative value; known is false
// when the value is a fallback rather than a measurement.
type DistanceEstimator interface {
	EstimateMiles(from, to *Point) (miles float64, known bool)
}

// HaversineEstimator measures great-circle distance.
type HaversineEstimator struct {
	FallbackMiles float64
}

// NewHaversineEstimator returns an estimator that substitutes fallbackMiles for
// missing or unusable coordinates. Non-positive values select DefaultFallbackMiles.
func NewHaversineEstimator(fallbackMiles float64) *HaversineEstimator {
	if fallbackMiles <= 0 || math.IsNaN(fallbackMiles) || math.IsInf(fallbackMiles, 0) {
		fallbackMiles = DefaultFallbackMiles
	}
	return &HaversineEstimator{FallbackMiles: fallbackMiles}
}

// EstimateMiles implements DistanceEstimator.
func (e *HaversineEstimator) EstimateMiles(from, to *Point) (float64, bool) {
	if !usable(from) || !usable(to) {
		return e.FallbackMiles, false
	}
	mi, _ := haversine.Distance(
		haversine.Coord{Lat: from.Lat, Lon: from.Lon},
		haversine.Coord{Lat: to.Lat, Lon: to.Lon},
	)
	if math.IsNaN(mi) || math.IsInf(mi, 0) || mi < 0 {
		return e.FallbackMiles, false
	}
	return mi, true
}

func usable(p *Point) bool {
	if p == nil {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

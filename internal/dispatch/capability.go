package dispatch

import "strings"

// CapabilityMatch returns the fraction of the incident's requirements the unit satisfies.
// Only requirements that are actually set are counted, so a unit is never penalised for
// lacking a capability nobody asked for. An incident with no requirements matches every
// unit with 1.0.
func CapabilityMatch(req CrewRequirements, caps Capabilities) float64 {
	matched, required := capabilityCounts(req, caps)
	if required == 0 {
		return 1.0
	}
	return float64(matched) / float64(required)
}

func capabilityCounts(req CrewRequirements, caps Capabilities) (matched, required int) {
	flags := []struct {
		want bool
		have bool
	}{
		{req.RequiresParamedic, caps.HasParamedic},
		{req.RequiresCCT, caps.CanDoCCT},
		{req.RequiresVentilator, caps.HasVentilator},
		{req.RequiresBariatric, caps.CanDoBariatric},
	}
	for _, f := range flags {
		if !f.want {
			continue
		}
		required++
		if f.have {
			matched++
		}
	}

	for _, tag := range req.Specialties {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		required++
		if hasEquipment(caps.SpecialtyEquipment, tag) {
			matched++
		}
	}
	return matched, required
}

func hasEquipment(equipment []string, tag string) bool {
	for _, e := range equipment {
		if strings.EqualFold(strings.TrimSpace(e), tag) {
			return true
		}
	}
	return false
}

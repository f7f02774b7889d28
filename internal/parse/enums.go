package parse

import (
	"fmt"
	"regexp"
	"strings"

	"medtransport-dispatch/internal/dispatch"
)

var separatorRe = regexp.MustCompile(`[\s\-]+`)

// token upper-cases s and folds spaces and dashes into underscores, so "en route",
// "En-Route" and "EN_ROUTE" compare equal.
func token(s string) string {
	s = strings.TrimSpace(s)
	return strings.ToUpper(separatorRe.ReplaceAllString(s, "_"))
}

// FatigueLevel maps upstream fatigue labels onto the known tiers. MEDIUM is an alias
// for MODERATE; unknown labels map to the zero value.
func FatigueLevel(s string) dispatch.FatigueLevel {
	switch token(s) {
	case "LOW":
		return dispatch.FatigueLow
	case "MODERATE", "MEDIUM":
		return dispatch.FatigueModerate
	case "HIGH":
		return dispatch.FatigueHigh
	case "CRITICAL", "SEVERE":
		return dispatch.FatigueCritical
	}
	return ""
}

// UnitStatus parses a unit status label.
func UnitStatus(s string) (dispatch.UnitStatus, error) {
	st := dispatch.UnitStatus(token(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown unit status %q", s)
	}
	return st, nil
}

// IncidentStatus parses an incident status label.
func IncidentStatus(s string) (dispatch.IncidentStatus, error) {
	st := dispatch.IncidentStatus(token(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown incident status %q", s)
	}
	return st, nil
}

// TransportType parses a transport type label.
func TransportType(s string) (dispatch.TransportType, error) {
	switch t := dispatch.TransportType(token(s)); t {
	case dispatch.TransportBLS, dispatch.TransportALS, dispatch.TransportCCT,
		dispatch.TransportHEMS, dispatch.TransportBariatric, dispatch.TransportIFT:
		return t, nil
	}
	return "", fmt.Errorf("unknown transport type %q", s)
}

// Acuity parses an acuity label. An empty label is valid and means unset.
func Acuity(s string) (dispatch.Acuity, error) {
	switch a := dispatch.Acuity(token(s)); a {
	case "", dispatch.AcuityCritical, dispatch.AcuityUrgent, dispatch.AcuityStable, dispatch.AcuityRoutine:
		return a, nil
	}
	return "", fmt.Errorf("unknown acuity level %q", s)
}

package api

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"medtransport-dispatch/internal/dispatch"
)

type unitScoreResponse struct {
	UnitID             uuid.UUID `json:"unit_id"`
	DisplayID          string    `json:"display_id"`
	TotalScore         int       `json:"total_score"`
	DistanceScore      float64   `json:"distance_score"`
	QualificationScore float64   `json:"qualification_score"`
	PerformanceScore   float64   `json:"performance_score"`
	FatigueScore       float64   `json:"fatigue_score"`
	DistanceMiles      float64   `json:"distance_miles"`
	DistanceKnown      bool      `json:"distance_known"`
	CapabilityMatch    float64   `json:"capability_match"`
	FatigueLevel       string    `json:"fatigue_level"`
	OnTimeArrivalPct   *float64  `json:"on_time_arrival_pct"`
	Reasoning          string    `json:"reasoning"`
	Reasons            []string  `json:"reasons"`
	Warnings           []string  `json:"warnings"`
}

type recommendationResponse struct {
	IncidentID      uuid.UUID           `json:"incident_id"`
	GeneratedAt     time.Time           `json:"generated_at"`
	Recommendations []unitScoreResponse `json:"recommendations"`
	Message         string              `json:"message,omitempty"`
}

type incidentResponse struct {
	ID               uuid.UUID                `json:"id"`
	OrganizationID   uuid.UUID                `json:"organization_id"`
	TransportType    dispatch.TransportType   `json:"transport_type"`
	AcuityLevel      dispatch.Acuity          `json:"acuity_level,omitempty"`
	CrewRequirements crewRequirementsResponse `json:"crew_requirements"`
	OriginFacility   string                   `json:"origin_facility,omitempty"`
	OriginLatitude   *float64                 `json:"origin_latitude"`
	OriginLongitude  *float64                 `json:"origin_longitude"`
	Status           dispatch.IncidentStatus  `json:"status"`
	Locked           bool                     `json:"locked"`
	AssignedUnitID   *uuid.UUID               `json:"assigned_unit_id"`
	AssignedCrewIDs  []string                 `json:"assigned_crew_ids"`
	StatusChangedAt  *time.Time               `json:"status_changed_at"`
}

type crewRequirementsResponse struct {
	RequiresParamedic  bool     `json:"requires_paramedic"`
	RequiresCCT        bool     `json:"requires_cct"`
	RequiresVentilator bool     `json:"requires_ventilator"`
	RequiresBariatric  bool     `json:"requires_bariatric"`
	Specialties        []string `json:"specialties"`
}

type capabilitiesResponse struct {
	HasParamedic       bool     `json:"has_paramedic"`
	CanDoCCT           bool     `json:"can_do_cct"`
	HasVentilator      bool     `json:"has_ventilator"`
	CanDoBariatric     bool     `json:"can_do_bariatric"`
	MaxWeightLbs       *float64 `json:"max_weight_lbs"`
	SpecialtyEquipment []string `json:"specialty_equipment"`
}

type unitResponse struct {
	ID                   uuid.UUID             `json:"id"`
	OrganizationID       uuid.UUID             `json:"organization_id"`
	DisplayID            string                `json:"display_id"`
	Status               dispatch.UnitStatus   `json:"status"`
	Capabilities         capabilitiesResponse  `json:"capabilities"`
	Latitude             *float64              `json:"latitude"`
	Longitude            *float64              `json:"longitude"`
	FatigueLevel         dispatch.FatigueLevel `json:"fatigue_level,omitempty"`
	OnTimeArrivalPct     *float64              `json:"on_time_arrival_pct"`
	AvgResponseMinutes   *float64              `json:"avg_response_minutes"`
	ComplianceAuditScore *float64              `json:"compliance_audit_score"`
	CrewIDs              []string              `json:"crew_ids"`
	CurrentIncidentID    *uuid.UUID            `json:"current_incident_id"`
}

type timelineEventResponse struct {
	ID         uuid.UUID                  `json:"id"`
	IncidentID uuid.UUID                  `json:"incident_id"`
	UnitID     *uuid.UUID                 `json:"unit_id"`
	ActorID    uuid.UUID                  `json:"actor_id"`
	Type       dispatch.TimelineEventType `json:"type"`
	Message    string                     `json:"message"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

type assignmentResponse struct {
	Incident incidentResponse        `json:"incident"`
	Unit     unitResponse            `json:"unit"`
	Events   []timelineEventResponse `json:"events"`
}

func newRecommendationResponse(rec dispatch.Recommendation) recommendationResponse {
	out := recommendationResponse{
		IncidentID:      rec.IncidentID,
		GeneratedAt:     rec.GeneratedAt,
		Recommendations: make([]unitScoreResponse, 0, len(rec.Scores)),
		Message:         rec.Message,
	}
	for _, s := range rec.Scores {
		out.Recommendations = append(out.Recommendations, unitScoreResponse{
			UnitID:             s.Unit.ID,
			DisplayID:          s.Unit.DisplayID,
			TotalScore:         s.Total,
			DistanceScore:      round1(s.Components.Distance),
			QualificationScore: round1(s.Components.Qualification),
			PerformanceScore:   round1(s.Components.Performance),
			FatigueScore:       round1(s.Components.Fatigue),
			DistanceMiles:      round1(s.DistanceMiles),
			DistanceKnown:      s.DistanceKnown,
			CapabilityMatch:    s.CapabilityMatch,
			FatigueLevel:       string(s.Unit.Fatigue),
			OnTimeArrivalPct:   s.Unit.OnTimeArrivalPct,
			Reasoning:          strings.Join(s.Reasons, ", "),
			Reasons:            nonNil(s.Reasons),
			Warnings:           nonNil(s.Warnings),
		})
	}
	return out
}

func newIncidentResponse(inc dispatch.Incident) incidentResponse {
	out := incidentResponse{
		ID:             inc.ID,
		OrganizationID: inc.OrganizationID,
		TransportType:  inc.TransportType,
		AcuityLevel:    inc.Acuity,
		CrewRequirements: crewRequirementsResponse{
			RequiresParamedic:  inc.Requirements.RequiresParamedic,
			RequiresCCT:        inc.Requirements.RequiresCCT,
			RequiresVentilator: inc.Requirements.RequiresVentilator,
			RequiresBariatric:  inc.Requirements.RequiresBariatric,
			Specialties:        nonNil(inc.Requirements.Specialties),
		},
		OriginFacility:  inc.OriginFacility,
		Status:          inc.Status,
		Locked:          inc.Locked,
		AssignedUnitID:  inc.AssignedUnitID,
		AssignedCrewIDs: nonNil(inc.AssignedCrewIDs),
		StatusChangedAt: inc.StatusChangedAt,
	}
	if inc.Origin != nil {
		out.OriginLatitude, out.OriginLongitude = &inc.Origin.Lat, &inc.Origin.Lon
	}
	return out
}

func newUnitResponse(u dispatch.Unit) unitResponse {
	out := unitResponse{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		DisplayID:      u.DisplayID,
		Status:         u.Status,
		Capabilities: capabilitiesResponse{
			HasParamedic:       u.Capabilities.HasParamedic,
			CanDoCCT:           u.Capabilities.CanDoCCT,
			HasVentilator:      u.Capabilities.HasVentilator,
			CanDoBariatric:     u.Capabilities.CanDoBariatric,
			MaxWeightLbs:       u.Capabilities.MaxWeightLbs,
			SpecialtyEquipment: nonNil(u.Capabilities.SpecialtyEquipment),
		},
		FatigueLevel:         u.Fatigue,
		OnTimeArrivalPct:     u.OnTimeArrivalPct,
		AvgResponseMinutes:   u.AvgResponseMinutes,
		ComplianceAuditScore: u.ComplianceAuditScore,
		CrewIDs:              nonNil(u.CrewIDs),
		CurrentIncidentID:    u.CurrentIncidentID,
	}
	if u.Location != nil {
		out.Latitude, out.Longitude = &u.Location.Lat, &u.Location.Lon
	}
	return out
}

func newTimelineResponse(events []dispatch.TimelineEvent) []timelineEventResponse {
	out := make([]timelineEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, timelineEventResponse{
			ID:         ev.ID,
			IncidentID: ev.IncidentID,
			UnitID:     ev.UnitID,
			ActorID:    ev.ActorID,
			Type:       ev.Type,
			Message:    ev.Message,
			OccurredAt: ev.OccurredAt,
		})
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

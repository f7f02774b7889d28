package store

import (
	"github.com/google/uuid"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/model"
	"medtransport-dispatch/internal/parse"
)

func toIncident(m model.Incident) dispatch.Incident {
	return dispatch.Incident{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		TransportType:   dispatch.TransportType(m.TransportType),
		Acuity:          dispatch.Acuity(m.AcuityLevel),
		Requirements:    parse.CrewRequirements([]byte(m.CrewRequirements)),
		OriginFacility:  m.OriginFacility,
		Origin:          point(m.OriginLatitude, m.OriginLongitude),
		Status:          dispatch.IncidentStatus(m.Status),
		Locked:          m.Locked,
		AssignedUnitID:  m.AssignedUnitID,
		AssignedCrewIDs: m.AssignedCrewIDs,
		StatusChangedAt: m.StatusChangedAt,
	}
}

func toUnit(m model.Unit) dispatch.Unit {
	return dispatch.Unit{
		ID:                   m.ID,
		OrganizationID:       m.OrganizationID,
		DisplayID:            m.DisplayID,
		Status:               dispatch.UnitStatus(m.Status),
		Capabilities:         parse.Capabilities([]byte(m.Capabilities)),
		Location:             point(m.Latitude, m.Longitude),
		Fatigue:              parse.FatigueLevel(m.FatigueLevel),
		OnTimeArrivalPct:     m.OnTimeArrivalPct,
		AvgResponseMinutes:   m.AvgResponseMinutes,
		ComplianceAuditScore: m.ComplianceAuditScore,
		CrewIDs:              m.CrewIDs,
		CurrentIncidentID:    m.CurrentIncidentID,
	}
}

func toEvent(m model.TimelineEvent) dispatch.TimelineEvent {
	return dispatch.TimelineEvent{
		ID:         m.ID,
		IncidentID: m.IncidentID,
		UnitID:     m.UnitID,
		ActorID:    m.ActorID,
		Type:       dispatch.TimelineEventType(m.EventType),
		Message:    m.Message,
		OccurredAt: m.OccurredAt,
	}
}

func fromEvent(ev dispatch.TimelineEvent) model.TimelineEvent {
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return model.TimelineEvent{
		ID:         id,
		IncidentID: ev.IncidentID,
		UnitID:     ev.UnitID,
		ActorID:    ev.ActorID,
		EventType:  string(ev.Type),
		Message:    ev.Message,
		OccurredAt: ev.OccurredAt,
	}
}

// point returns nil unless both coordinates are present.
func point(lat, lon *float64) *dispatch.Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &dispatch.Point{Lat: *lat, Lon: *lon}
}

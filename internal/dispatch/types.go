package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// TransportType is the level of care an incident requires.
type TransportType string

const (
	TransportBLS       TransportType = "BLS"
	TransportALS       TransportType = "ALS"
	TransportCCT       TransportType = "CCT"
	TransportHEMS      TransportType = "HEMS"
	TransportBariatric TransportType = "BARIATRIC"
	TransportIFT       TransportType = "IFT"
)

// Acuity is the clinical urgency recorded at intake. The zero value means unset.
type Acuity string

const (
	AcuityCritical Acuity = "CRITICAL"
	AcuityUrgent   Acuity = "URGENT"
	AcuityStable   Acuity = "STABLE"
	AcuityRoutine  Acuity = "ROUTINE"
)

// UnitStatus is the operational state of a transport unit.
type UnitStatus string

const (
	UnitAvailable    UnitStatus = "AVAILABLE"
	UnitEnRoute      UnitStatus = "EN_ROUTE"
	UnitAtFacility   UnitStatus = "AT_FACILITY"
	UnitTransporting UnitStatus = "TRANSPORTING"
	UnitOutOfService UnitStatus = "OUT_OF_SERVICE"
	UnitOffDuty      UnitStatus = "OFF_DUTY"
)

// Valid reports whether s is one of the known unit statuses.
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitAvailable, UnitEnRoute, UnitAtFacility, UnitTransporting, UnitOutOfService, UnitOffDuty:
		return true
	}
	return false
}

// IncidentStatus tracks an incident through the dispatch lifecycle.
type IncidentStatus string

const (
	IncidentPending      IncidentStatus = "PENDING"
	IncidentAssigned     IncidentStatus = "ASSIGNED"
	IncidentEnRoute      IncidentStatus = "EN_ROUTE"
	IncidentOnScene      IncidentStatus = "ON_SCENE"
	IncidentTransporting IncidentStatus = "TRANSPORTING"
	IncidentCompleted    IncidentStatus = "COMPLETED"
	IncidentCancelled    IncidentStatus = "CANCELLED"
)

// Valid reports whether s is one of the known incident statuses.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentPending, IncidentAssigned, IncidentEnRoute, IncidentOnScene,
		IncidentTransporting, IncidentCompleted, IncidentCancelled:
		return true
	}
	return false
}

// Closed reports whether the incident has finished and accepts no further changes.
func (s IncidentStatus) Closed() bool {
	return s == IncidentCompleted || s == IncidentCancelled
}

// FatigueLevel is the crew fatigue risk tier, computed upstream from hours worked.
// The zero value means unknown.
type FatigueLevel string

const (
	FatigueLow      FatigueLevel = "LOW"
	FatigueModerate FatigueLevel = "MODERATE"
	FatigueHigh     FatigueLevel = "HIGH"
	FatigueCritical FatigueLevel = "CRITICAL"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// CrewRequirements are the crew and equipment needs declared for an incident.
type CrewRequirements struct {
	RequiresParamedic  bool
	RequiresCCT        bool
	RequiresVentilator bool
	RequiresBariatric  bool
	Specialties        []string
}

// Capabilities mirror CrewRequirements from the unit side.
type Capabilities struct {
	HasParamedic       bool
	CanDoCCT           bool
	HasVentilator      bool
	CanDoBariatric     bool
	MaxWeightLbs       *float64
	SpecialtyEquipment []string
}

// Incident is the subset of an incident record used for recommendation and assignment.
type Incident struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	TransportType   TransportType
	Acuity          Acuity
	Requirements    CrewRequirements
	OriginFacility  string
	Origin          *Point
	Status          IncidentStatus
	Locked          bool
	AssignedUnitID  *uuid.UUID
	AssignedCrewIDs []string
	StatusChangedAt *time.Time
}

// Unit is a snapshot of a transport unit at recommendation or assignment time.
type Unit struct {
	ID                   uuid.UUID
	OrganizationID       uuid.UUID
	DisplayID            string
	Status               UnitStatus
	Capabilities         Capabilities
	Location             *Point
	Fatigue              FatigueLevel
	OnTimeArrivalPct     *float64
	AvgResponseMinutes   *float64
	ComplianceAuditScore *float64
	CrewIDs              []string
	CurrentIncidentID    *uuid.UUID
}

// ComponentScores are the per-factor sub-scores, each on a 0-100 scale.
type ComponentScores struct {
	Distance      float64
	Qualification float64
	Performance   float64
	Fatigue       float64
}

// UnitScore is the scored view of one candidate unit. It is never persisted.
type UnitScore struct {
	Unit            Unit
	Total           int
	Components      ComponentScores
	DistanceMiles   float64
	DistanceKnown   bool
	CapabilityMatch float64
	Reasons         []string
	Warnings        []string
}

// Recommendation is the ranked candidate list for one incident.
type Recommendation struct {
	IncidentID  uuid.UUID
	GeneratedAt time.Time
	Scores      []UnitScore
	Message     string
}

// TimelineEventType names an audit event on an incident's timeline.
type TimelineEventType string

const (
	EventUnitAssigned   TimelineEventType = "unit_assigned"
	EventUnitReleased   TimelineEventType = "unit_released"
	EventIncidentLocked TimelineEventType = "incident_locked"
	EventStatusChanged  TimelineEventType = "incident_status_changed"
)

// TimelineEvent is an audit record appended alongside state changes.
type TimelineEvent struct {
	ID         uuid.UUID
	IncidentID uuid.UUID
	UnitID     *uuid.UUID
	ActorID    uuid.UUID
	Type       TimelineEventType
	Message    string
	OccurredAt time.Time
}

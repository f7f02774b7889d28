package model

import (
	"time"

	"github.com/google/uuid"
)

// TimelineEvent is an append-only audit entry on an incident.
type TimelineEvent struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	IncidentID uuid.UUID  `gorm:"type:uuid;index:idx_timeline_incident_time,priority:1;not null"`
	UnitID     *uuid.UUID `gorm:"type:uuid"`
	ActorID    uuid.UUID  `gorm:"type:uuid"`
	EventType  string     `gorm:"size:32;not null"`
	Message    string     `gorm:"not null"`
	OccurredAt time.Time  `gorm:"index:idx_timeline_incident_time,priority:2;not null"`
}

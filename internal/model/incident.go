package model

import (
	"time"

	"github.com/google/uuid"
)

// Incident is a transport request row.
type Incident struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID   uuid.UUID `gorm:"type:uuid;index;not null"`
	TransportType    string    `gorm:"size:16;not null"`
	AcuityLevel      string    `gorm:"size:16"`
	CrewRequirements string    `gorm:"type:text"`
	OriginFacility   string    `gorm:"size:256"`
	OriginLatitude   *float64
	OriginLongitude  *float64
	Status           string     `gorm:"size:32;index;not null"`
	Locked           bool       `gorm:"not null;default:false"`
	AssignedUnitID   *uuid.UUID `gorm:"type:uuid;index"`
	AssignedCrewIDs  []string   `gorm:"serializer:json"`
	StatusChangedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Unit is a transport unit row. Capabilities holds the upstream JSON document as-is and
// is normalised when read.
type Unit struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID       uuid.UUID `gorm:"type:uuid;index;not null"`
	DisplayID            string    `gorm:"size:64;not null"`
	Status               string    `gorm:"size:32;index;not null"`
	Capabilities         string    `gorm:"type:text"`
	Latitude             *float64
	Longitude            *float64
	LocationUpdatedAt    *time.Time
	FatigueLevel         string `gorm:"size:16"`
	OnTimeArrivalPct     *float64
	AvgResponseMinutes   *float64
	ComplianceAuditScore *float64
	CrewIDs              []string   `gorm:"serializer:json"`
	CurrentIncidentID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

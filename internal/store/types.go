package store

import (
	"errors"

	"github.com/google/uuid"

	"medtransport-dispatch/internal/dispatch"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// UnitFilter narrows ListUnits. Zero values match everything.
type UnitFilter struct {
	OrganizationID uuid.UUID
	Status         dispatch.UnitStatus
}

package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssignmentTx is the transactional view of incidents and units used while an
// assignment or status change is committed. Every method must run inside the same
// transaction.
type AssignmentTx interface {
	FindIncident(ctx context.Context, id uuid.UUID) (Incident, bool, error)
	FindUnit(ctx context.Context, id uuid.UUID) (Unit, bool, error)
	// ClaimUnit moves the unit from AVAILABLE to EN_ROUTE for incidentID, reporting
	// false when the unit was no longer AVAILABLE.
	ClaimUnit(ctx context.Context, unitID, incidentID uuid.UUID) (bool, error)
	// ReleaseUnit returns a unit to AVAILABLE if it is still attached to incidentID.
	ReleaseUnit(ctx context.Context, unitID, incidentID uuid.UUID) error
	// SaveAssignment writes the incident's assignment fields, reporting false when the
	// incident became locked or its assigned unit no longer equals previous.
	SaveAssignment(ctx context.Context, inc Incident, previous *uuid.UUID) (bool, error)
	// SaveStatus writes the incident's status fields, reporting false when the
	// incident became locked or its status no longer equals previous.
	SaveStatus(ctx context.Context, inc Incident, previous IncidentStatus) (bool, error)
	// MoveUnit sets the status of a unit still attached to incidentID. Moving to
	// AVAILABLE detaches it.
	MoveUnit(ctx context.Context, unitID, incidentID uuid.UUID, status UnitStatus) error
	AppendTimeline(ctx context.Context, ev TimelineEvent) error
}

// AssignmentStore runs fn in a single transaction, rolling back when fn returns an error.
type AssignmentStore interface {
	WithinTx(ctx context.Context, fn func(tx AssignmentTx) error) error
}

// AssignRequest identifies the assignment to commit.
type AssignRequest struct {
	IncidentID uuid.UUID
	UnitID     uuid.UUID
	AssignedBy uuid.UUID
}

// Assignment is the committed result.
type Assignment struct {
	Incident Incident
	Unit     Unit
	Events   []TimelineEvent
}

// Assigner validates and commits unit assignments and incident status changes. It
// is the only component that mutates dispatch state on incidents or units.
type Assigner struct {
	store AssignmentStore
	now   func() time.Time
}

// NewAssigner creates an Assigner backed by store.
func NewAssigner(store AssignmentStore) *Assigner {
	return &Assigner{store: store, now: time.Now}
}

// Assign attaches req.UnitID to req.IncidentID. Preconditions are checked in order
// and each failure is terminal: missing incident (ErrNotFound), locked incident
// (ErrForbidden), closed incident (ErrConflict), missing unit (ErrNotFound), unit
// not AVAILABLE (ErrConflict).
// Nothing is written unless every step succeeds.
func (a *Assigner) Assign(ctx context.Context, req AssignRequest) (Assignment, error) {
	var out Assignment
	err := a.store.WithinTx(ctx, func(tx AssignmentTx) error {
		inc, ok, err := tx.FindIncident(ctx, req.IncidentID)
		if err != nil {
			return fmt.Errorf("load incident %s: %w", req.IncidentID, err)
		}
		if !ok {
			return notFound("incident %s not found", req.IncidentID)
		}
		if inc.Locked {
			return forbidden("incident is locked and cannot be modified")
		}
		if inc.Status.Closed() {
			return &Error{Kind: ErrConflict, Message: fmt.Sprintf("incident is %s and cannot be assigned", inc.Status)}
		}

		unit, ok, err := tx.FindUnit(ctx, req.UnitID)
		if err != nil {
			return fmt.Errorf("load unit %s: %w", req.UnitID, err)
		}
		if !ok {
			return notFound("unit %s not found", req.UnitID)
		}
		if unit.Status != UnitAvailable {
			return unitConflict(unit.Status)
		}

		claimed, err := tx.ClaimUnit(ctx, unit.ID, inc.ID)
		if err != nil {
			return fmt.Errorf("claim unit %s: %w", unit.ID, err)
		}
		if !claimed {
			// Lost the race to another assignment; report what the unit is now.
			current, ok, err := tx.FindUnit(ctx, unit.ID)
			if err != nil {
				return fmt.Errorf("reload unit %s: %w", unit.ID, err)
			}
			if !ok {
				return notFound("unit %s not found", req.UnitID)
			}
			return unitConflict(current.Status)
		}

		now := a.now().UTC()
		previous := inc.AssignedUnitID
		inc.AssignedUnitID = &unit.ID
		inc.AssignedCrewIDs = append([]string(nil), unit.CrewIDs...)
		inc.Status = IncidentAssigned
		inc.StatusChangedAt = &now

		saved, err := tx.SaveAssignment(ctx, inc, previous)
		if err != nil {
			return fmt.Errorf("save incident %s: %w", inc.ID, err)
		}
		if !saved {
			return &Error{Kind: ErrConflict, Message: "incident was modified concurrently"}
		}

		var events []TimelineEvent
		if previous != nil && *previous != unit.ID {
			if err := tx.ReleaseUnit(ctx, *previous, inc.ID); err != nil {
				return fmt.Errorf("release unit %s: %w", *previous, err)
			}
			events = append(events, TimelineEvent{
				ID:         uuid.New(),
				IncidentID: inc.ID,
				UnitID:     previous,
				ActorID:    req.AssignedBy,
				Type:       EventUnitReleased,
				Message:    "unit released by reassignment",
				OccurredAt: now,
			})
		}
		events = append(events, TimelineEvent{
			ID:         uuid.New(),
			IncidentID: inc.ID,
			UnitID:     &unit.ID,
			ActorID:    req.AssignedBy,
			Type:       EventUnitAssigned,
			Message:    fmt.Sprintf("unit %s assigned", unit.DisplayID),
			OccurredAt: now,
		})
		for _, ev := range events {
			if err := tx.AppendTimeline(ctx, ev); err != nil {
				return fmt.Errorf("append timeline for incident %s: %w", inc.ID, err)
			}
		}

		unit.Status = UnitEnRoute
		unit.CurrentIncidentID = &inc.ID
		out = Assignment{Incident: inc, Unit: unit, Events: events}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return out, nil
}

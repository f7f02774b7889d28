package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// incidentTransitions lists the statuses an incident may move to from each status.
// COMPLETED and CANCELLED are final.
var incidentTransitions = map[IncidentStatus][]IncidentStatus{
	IncidentPending:      {IncidentCancelled},
	IncidentAssigned:     {IncidentEnRoute, IncidentCancelled},
	IncidentEnRoute:      {IncidentOnScene, IncidentCancelled},
	IncidentOnScene:      {IncidentTransporting, IncidentCompleted, IncidentCancelled},
	IncidentTransporting: {IncidentCompleted},
}

// unitStatusFor is the status the assigned unit takes when its incident moves.
// Missing entries leave the unit alone.
var unitStatusFor = map[IncidentStatus]UnitStatus{
	IncidentOnScene:      UnitAtFacility,
	IncidentTransporting: UnitTransporting,
	IncidentCompleted:    UnitAvailable,
	IncidentCancelled:    UnitAvailable,
}

// CanTransition reports whether an incident may move from one status to another.
func CanTransition(from, to IncidentStatus) bool {
	for _, next := range incidentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusRequest moves an incident along its lifecycle.
type StatusRequest struct {
	IncidentID uuid.UUID
	Status     IncidentStatus
	ChangedBy  uuid.UUID
}

// StatusChange is the committed result of a status request.
type StatusChange struct {
	Incident Incident
	Events   []TimelineEvent
}

// Transition moves an incident to req.Status and carries its assigned unit along
// per unitStatusFor. Missing incident is ErrNotFound, locked is ErrForbidden, and a
// move the lifecycle does not allow is ErrConflict.
func (a *Assigner) Transition(ctx context.Context, req StatusRequest) (StatusChange, error) {
	var out StatusChange
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
		if !CanTransition(inc.Status, req.Status) {
			return &Error{
				Kind:    ErrConflict,
				Message: fmt.Sprintf("incident cannot move from %s to %s", inc.Status, req.Status),
			}
		}

		now := a.now().UTC()
		previous := inc.Status
		inc.Status = req.Status
		inc.StatusChangedAt = &now

		saved, err := tx.SaveStatus(ctx, inc, previous)
		if err != nil {
			return fmt.Errorf("save incident %s: %w", inc.ID, err)
		}
		if !saved {
			return &Error{Kind: ErrConflict, Message: "incident was modified concurrently"}
		}

		if unitStatus, ok := unitStatusFor[req.Status]; ok && inc.AssignedUnitID != nil {
			if err := tx.MoveUnit(ctx, *inc.AssignedUnitID, inc.ID, unitStatus); err != nil {
				return fmt.Errorf("move unit %s: %w", *inc.AssignedUnitID, err)
			}
		}

		ev := TimelineEvent{
			ID:         uuid.New(),
			IncidentID: inc.ID,
			UnitID:     inc.AssignedUnitID,
			ActorID:    req.ChangedBy,
			Type:       EventStatusChanged,
			Message:    fmt.Sprintf("status %s -> %s", previous, req.Status),
			OccurredAt: now,
		}
		if err := tx.AppendTimeline(ctx, ev); err != nil {
			return fmt.Errorf("append timeline for incident %s: %w", inc.ID, err)
		}

		out = StatusChange{Incident: inc, Events: []TimelineEvent{ev}}
		return nil
	})
	if err != nil {
		return StatusChange{}, err
	}
	return out, nil
}

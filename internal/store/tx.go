package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/model"
)

// gormTx implements dispatch.AssignmentTx on an open transaction. The guarded
// updates below are what make concurrent assignments safe.
type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) FindIncident(ctx context.Context, id uuid.UUID) (dispatch.Incident, bool, error) {
	var m model.Incident
	if err := t.tx.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dispatch.Incident{}, false, nil
		}
		return dispatch.Incident{}, false, err
	}
	return toIncident(m), true, nil
}

func (t *gormTx) FindUnit(ctx context.Context, id uuid.UUID) (dispatch.Unit, bool, error) {
	var m model.Unit
	if err := t.tx.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dispatch.Unit{}, false, nil
		}
		return dispatch.Unit{}, false, err
	}
	return toUnit(m), true, nil
}

func (t *gormTx) ClaimUnit(ctx context.Context, unitID, incidentID uuid.UUID) (bool, error) {
	res := t.tx.WithContext(ctx).Model(&model.Unit{}).
		Where("id = ? AND status = ?", unitID, string(dispatch.UnitAvailable)).
		Updates(map[string]any{
			"status":              string(dispatch.UnitEnRoute),
			"current_incident_id": incidentID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) ReleaseUnit(ctx context.Context, unitID, incidentID uuid.UUID) error {
	return t.MoveUnit(ctx, unitID, incidentID, dispatch.UnitAvailable)
}

func (t *gormTx) MoveUnit(ctx context.Context, unitID, incidentID uuid.UUID, status dispatch.UnitStatus) error {
	updates := map[string]any{"status": string(status)}
	if status == dispatch.UnitAvailable {
		updates["current_incident_id"] = nil
	}
	return t.tx.WithContext(ctx).Model(&model.Unit{}).
		Where("id = ? AND current_incident_id = ?", unitID, incidentID).
		Updates(updates).Error
}

func (t *gormTx) SaveStatus(ctx context.Context, inc dispatch.Incident, previous dispatch.IncidentStatus) (bool, error) {
	res := t.tx.WithContext(ctx).Model(&model.Incident{}).
		Where("id = ? AND locked = ? AND status = ?", inc.ID, false, string(previous)).
		Updates(map[string]any{
			"status":            string(inc.Status),
			"status_changed_at": inc.StatusChangedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) SaveAssignment(ctx context.Context, inc dispatch.Incident, previous *uuid.UUID) (bool, error) {
	q := t.tx.WithContext(ctx).Model(&model.Incident{}).
		Where("id = ? AND locked = ?", inc.ID, false)
	if previous == nil {
		q = q.Where("assigned_unit_id IS NULL")
	} else {
		q = q.Where("assigned_unit_id = ?", *previous)
	}

	res := q.Select("assigned_unit_id", "assigned_crew_ids", "status", "status_changed_at").
		Updates(&model.Incident{
			AssignedUnitID:  inc.AssignedUnitID,
			AssignedCrewIDs: inc.AssignedCrewIDs,
			Status:          string(inc.Status),
			StatusChangedAt: inc.StatusChangedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("conditional update failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) AppendTimeline(ctx context.Context, ev dispatch.TimelineEvent) error {
	row := fromEvent(ev)
	return t.tx.WithContext(ctx).Create(&row).Error
}

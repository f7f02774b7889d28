package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medtransport-dispatch/internal/dispatch"
	"medtransport-dispatch/internal/logging"
	"medtransport-dispatch/internal/model"
)

// snapshotColumns are overwritten when a unit is upserted. Status and current incident
// belong to dispatch and are only ever set on insert.
var snapshotColumns = []string{
	"organization_id", "display_id", "capabilities", "latitude", "longitude",
	"location_updated_at", "fatigue_level", "on_time_arrival_pct", "avg_response_minutes",
	"compliance_audit_score", "crew_ids", "updated_at",
}

const upsertBatchSize = 200

// Store defines the interface for all database operations.
type Store interface {
	dispatch.AssignmentStore

	CreateIncident(ctx context.Context, inc *model.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (dispatch.Incident, error)
	LockIncident(ctx context.Context, id, actor uuid.UUID) (dispatch.Incident, error)
	ListTimeline(ctx context.Context, incidentID uuid.UUID) ([]dispatch.TimelineEvent, error)

	GetUnit(ctx context.Context, id uuid.UUID) (dispatch.Unit, error)
	ListUnits(ctx context.Context, filter UnitFilter) ([]dispatch.Unit, error)
	UpdateUnitStatus(ctx context.Context, id uuid.UUID, status dispatch.UnitStatus) (dispatch.Unit, error)
	UpsertUnits(ctx context.Context, units []model.Unit) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// CreateIncident inserts a new incident.
func (s *gormStore) CreateIncident(ctx context.Context, inc *model.Incident) error {
	if err := s.db.WithContext(ctx).Create(inc).Error; err != nil {
		return fmt.Errorf("failed to create incident %s: %w", inc.ID, err)
	}
	return nil
}

// GetIncident loads one incident.
func (s *gormStore) GetIncident(ctx context.Context, id uuid.UUID) (dispatch.Incident, error) {
	var m model.Incident
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dispatch.Incident{}, ErrNotFound
		}
		return dispatch.Incident{}, fmt.Errorf("failed to load incident %s: %w", id, err)
	}
	return toIncident(m), nil
}

// LockIncident marks an incident as finalized for billing and records who did it.
// Locking an already locked incident is a no-op.
func (s *gormStore) LockIncident(ctx context.Context, id, actor uuid.UUID) (dispatch.Incident, error) {
	var out dispatch.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Incident
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load incident %s: %w", id, err)
		}
		if m.Locked {
			out = toIncident(m)
			return nil
		}

		if err := tx.Model(&model.Incident{}).Where("id = ?", id).Update("locked", true).Error; err != nil {
			return fmt.Errorf("failed to lock incident %s: %w", id, err)
		}
		ev := model.TimelineEvent{
			ID:         uuid.New(),
			IncidentID: id,
			ActorID:    actor,
			EventType:  string(dispatch.EventIncidentLocked),
			Message:    "incident locked",
			OccurredAt: s.now().UTC(),
		}
		if err := tx.Create(&ev).Error; err != nil {
			return fmt.Errorf("failed to record lock of incident %s: %w", id, err)
		}

		m.Locked = true
		out = toIncident(m)
		return nil
	})
	return out, err
}

// ListTimeline returns an incident's events oldest first.
func (s *gormStore) ListTimeline(ctx context.Context, incidentID uuid.UUID) ([]dispatch.TimelineEvent, error) {
	var rows []model.TimelineEvent
	if err := s.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list timeline for incident %s: %w", incidentID, err)
	}
	events := make([]dispatch.TimelineEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, toEvent(r))
	}
	return events, nil
}

// GetUnit loads one unit.
func (s *gormStore) GetUnit(ctx context.Context, id uuid.UUID) (dispatch.Unit, error) {
	var m model.Unit
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dispatch.Unit{}, ErrNotFound
		}
		return dispatch.Unit{}, fmt.Errorf("failed to load unit %s: %w", id, err)
	}
	return toUnit(m), nil
}

// ListUnits returns units matching filter ordered by display id.
func (s *gormStore) ListUnits(ctx context.Context, filter UnitFilter) ([]dispatch.Unit, error) {
	q := s.db.WithContext(ctx)
	if filter.OrganizationID != uuid.Nil {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var rows []model.Unit
	if err := q.Order("display_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	units := make([]dispatch.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, toUnit(r))
	}
	return units, nil
}

// UpdateUnitStatus sets a unit's status. Returning a unit to AVAILABLE detaches it
// from its incident.
func (s *gormStore) UpdateUnitStatus(ctx context.Context, id uuid.UUID, status dispatch.UnitStatus) (dispatch.Unit, error) {
	updates := map[string]any{"status": string(status)}
	if status == dispatch.UnitAvailable {
		updates["current_incident_id"] = nil
	}

	var out dispatch.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Unit{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update status of unit %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var m model.Unit
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to reload unit %s: %w", id, err)
		}
		out = toUnit(m)
		return nil
	})
	return out, err
}

// UpsertUnits inserts new units and refreshes snapshot columns of existing ones.
func (s *gormStore) UpsertUnits(ctx context.Context, units []model.Unit) error {
	if len(units) == 0 {
		return nil
	}
	logging.Logger.Debugf("Batch upserting %d units...", len(units))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(snapshotColumns),
		}).CreateInBatches(&units, upsertBatchSize).Error
	})
}

// WithinTx runs fn inside a database transaction.
func (s *gormStore) WithinTx(ctx context.Context, fn func(tx dispatch.AssignmentTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}

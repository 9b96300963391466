package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-calendar-api/core/database"
	"go-calendar-api/core/logger"
	"go-calendar-api/modules/event/entity"
	"go-calendar-api/modules/event/recurrence"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrStaleRevision signals an optimistic-concurrency miss: the row exists
// but its revision moved past the one the caller observed.
var ErrStaleRevision = errors.New("stale revision")

const eventColumns = `id, tenant_id, schedule_id, title, time_zone, start_utc, end_utc,
	transparency, location, resources, total_capacity, conferencing_details, notes,
	extended_fields, status, revision, recurrence_type, rule_interval, rule_day,
	rule_until_utc, rule_until_tz, recurring_event_id, occurrence_start,
	inherited_fields, created_at, updated_at`

// EventRepository handles event and participant database operations.
type EventRepository struct {
	DB database.IDatabase
}

func NewEventRepository(db database.IDatabase) *EventRepository {
	return &EventRepository{DB: db}
}

// EventRepositoryInterface defines the repository contract.
type EventRepositoryInterface interface {
	CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error)
	GetEventByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Event, error)
	ListOccurrences(ctx context.Context, masterID uuid.UUID) ([]*entity.Event, error)
	ListMasters(ctx context.Context, tenantID uuid.UUID) ([]*entity.Event, error)
	UpdateEventGuarded(ctx context.Context, event *entity.Event, expectedRevision int64) error
	CancelEvents(ctx context.Context, ids []uuid.UUID) error
	CancelFutureBySchedule(ctx context.Context, scheduleID uuid.UUID) error
	Query(ctx context.Context, spec QuerySpec) ([]*entity.Event, error)

	ApplyMaterialization(ctx context.Context, plan *recurrence.MaterializationPlan) error
	ApplySplit(ctx context.Context, plan *recurrence.SplitPlan) error

	AddParticipant(ctx context.Context, p *entity.Participant) error
	RemoveParticipant(ctx context.Context, eventID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]entity.Participant, error)
	ListParticipantsByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]entity.Participant, error)
	DeleteParticipants(ctx context.Context, eventID uuid.UUID) error
}

// ===================== Event CRUD =====================

func (r *EventRepository) CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	query := `
		INSERT INTO events (id, tenant_id, schedule_id, title, time_zone, start_utc, end_utc,
			transparency, location, resources, total_capacity, conferencing_details, notes,
			extended_fields, status, revision, recurrence_type, rule_interval, rule_day,
			rule_until_utc, rule_until_tz, recurring_event_id, occurrence_start, inherited_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24)
		RETURNING ` + eventColumns

	var created entity.Event
	err := r.DB.GetContext(ctx, &created, query,
		event.ID, event.TenantID, event.ScheduleID, event.Title, event.TimeZone,
		event.StartUTC, event.EndUTC, event.Transparency, event.Location, event.Resources,
		event.TotalCapacity, event.ConferencingDetails, event.Notes, event.ExtendedFields,
		event.Status, event.Revision, event.RecurrenceType, event.RuleInterval, event.RuleDay,
		event.RuleUntilUTC, event.RuleUntilTZ, event.RecurringEventID, event.OccurrenceStart,
		event.InheritedFields)
	if err != nil {
		logger.Error("EventRepository:CreateEvent", err)
		return nil, err
	}

	return &created, nil
}

func (r *EventRepository) GetEventByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE tenant_id = $1 AND id = $2`

	var event entity.Event
	err := r.DB.GetContext(ctx, &event, query, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EventRepository:GetEventByID", err)
		return nil, err
	}

	return &event, nil
}

func (r *EventRepository) ListOccurrences(ctx context.Context, masterID uuid.UUID) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE recurring_event_id = $1
		ORDER BY start_utc ASC`

	var events []*entity.Event
	err := r.DB.SelectContext(ctx, &events, query, masterID)
	if err != nil {
		logger.Error("EventRepository:ListOccurrences", err)
		return nil, err
	}

	return events, nil
}

func (r *EventRepository) ListMasters(ctx context.Context, tenantID uuid.UUID) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE tenant_id = $1 AND recurrence_type = 'MASTER' AND status != 'CANCELLED'
		ORDER BY start_utc ASC`

	var events []*entity.Event
	err := r.DB.SelectContext(ctx, &events, query, tenantID)
	if err != nil {
		logger.Error("EventRepository:ListMasters", err)
		return nil, err
	}

	return events, nil
}

// UpdateEventGuarded writes every mutable column, bumping the revision, but
// only if the stored revision still matches the one the caller observed.
// Returns ErrStaleRevision otherwise; the caller must re-fetch and resubmit.
func (r *EventRepository) UpdateEventGuarded(ctx context.Context, event *entity.Event, expectedRevision int64) error {
	query := `
		UPDATE events
		SET title = $3, time_zone = $4, start_utc = $5, end_utc = $6, transparency = $7,
		    location = $8, resources = $9, total_capacity = $10, conferencing_details = $11,
		    notes = $12, extended_fields = $13, status = $14, recurrence_type = $15,
		    rule_interval = $16, rule_day = $17, rule_until_utc = $18, rule_until_tz = $19,
		    recurring_event_id = $20, inherited_fields = $21,
		    revision = revision + 1, updated_at = NOW()
		WHERE id = $1 AND revision = $2
	`

	res, err := r.DB.ExecContext(ctx, query,
		event.ID, expectedRevision, event.Title, event.TimeZone, event.StartUTC, event.EndUTC,
		event.Transparency, event.Location, event.Resources, event.TotalCapacity,
		event.ConferencingDetails, event.Notes, event.ExtendedFields, event.Status,
		event.RecurrenceType, event.RuleInterval, event.RuleDay, event.RuleUntilUTC,
		event.RuleUntilTZ, event.RecurringEventID, event.InheritedFields)
	if err != nil {
		logger.Error("EventRepository:UpdateEventGuarded", err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleRevision
	}
	return nil
}

func (r *EventRepository) CancelEvents(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE events
		SET status = 'CANCELLED', revision = revision + 1, updated_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := r.DB.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		logger.Error("EventRepository:CancelEvents", err)
		return err
	}
	return nil
}

// CancelFutureBySchedule cancels every not-yet-started event of a schedule.
// Used when the schedule itself is cancelled.
func (r *EventRepository) CancelFutureBySchedule(ctx context.Context, scheduleID uuid.UUID) error {
	query := `
		UPDATE events
		SET status = 'CANCELLED', revision = revision + 1, updated_at = NOW()
		WHERE schedule_id = $1 AND status != 'CANCELLED'
		  AND (start_utc >= NOW() OR recurrence_type = 'MASTER')
	`
	if _, err := r.DB.ExecContext(ctx, query, scheduleID); err != nil {
		logger.Error("EventRepository:CancelFutureBySchedule", err)
		return err
	}
	return nil
}

func (r *EventRepository) Query(ctx context.Context, spec QuerySpec) ([]*entity.Event, error) {
	where, args := spec.build()
	query := `SELECT ` + eventColumns + ` FROM events ` + where

	var events []*entity.Event
	err := r.DB.SelectContext(ctx, &events, query, args...)
	if err != nil {
		logger.Error("EventRepository:Query", err)
		return nil, err
	}

	return events, nil
}

// ===================== Materialization =====================

// ApplyMaterialization applies a plan. Inserts go through the occurrence
// unique index with ON CONFLICT DO NOTHING, so a retried plan never
// duplicates an occurrence and never overwrites an EXCEPTION that appeared
// concurrently for the same slot.
func (r *EventRepository) ApplyMaterialization(ctx context.Context, plan *recurrence.MaterializationPlan) error {
	if plan.Empty() {
		return nil
	}

	return r.DB.Transact(ctx, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO events (id, tenant_id, schedule_id, start_utc, end_utc, transparency,
				status, revision, recurrence_type, recurring_event_id, occurrence_start,
				inherited_fields)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (recurring_event_id, occurrence_start) DO NOTHING
		`
		for _, ev := range plan.ToInsert {
			if _, err := tx.ExecContext(ctx, insert,
				ev.ID, ev.TenantID, ev.ScheduleID, ev.StartUTC, ev.EndUTC, ev.Transparency,
				ev.Status, ev.Revision, ev.RecurrenceType, ev.RecurringEventID,
				ev.OccurrenceStart, ev.InheritedFields); err != nil {
				logger.Error("EventRepository:ApplyMaterialization insert", err)
				return err
			}
		}

		realign := `
			UPDATE events
			SET start_utc = $2, end_utc = $3, revision = revision + 1, updated_at = NOW()
			WHERE id = $1 AND recurrence_type = 'INSTANCE'
		`
		for _, ev := range plan.ToUpdate {
			if _, err := tx.ExecContext(ctx, realign, ev.ID, ev.StartUTC, ev.EndUTC); err != nil {
				logger.Error("EventRepository:ApplyMaterialization realign", err)
				return err
			}
		}

		if len(plan.ToDeleteIDs) > 0 {
			del := `DELETE FROM events WHERE id = ANY($1) AND recurrence_type = 'INSTANCE'`
			if _, err := tx.ExecContext(ctx, del, pq.Array(plan.ToDeleteIDs)); err != nil {
				logger.Error("EventRepository:ApplyMaterialization delete", err)
				return err
			}
		}

		return nil
	})
}

// ===================== Split =====================

// ApplySplit applies a split plan in one transaction: shorten the original
// master's until, insert the new master, re-parent the tail occurrences.
// Any failure rolls the whole operation back.
func (r *EventRepository) ApplySplit(ctx context.Context, plan *recurrence.SplitPlan) error {
	return r.DB.Transact(ctx, func(tx *sqlx.Tx) error {
		shorten := `
			UPDATE events
			SET rule_until_utc = $3, rule_until_tz = $4, revision = revision + 1, updated_at = NOW()
			WHERE id = $1 AND revision = $2 AND recurrence_type = 'MASTER'
		`
		res, err := tx.ExecContext(ctx, shorten,
			plan.MasterID, plan.ExpectedRevision, plan.OriginalUntil.UTC, plan.OriginalUntil.TimeZone)
		if err != nil {
			logger.Error("EventRepository:ApplySplit shorten", err)
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStaleRevision
		}

		nm := plan.NewMaster
		insert := `
			INSERT INTO events (id, tenant_id, schedule_id, title, time_zone, start_utc, end_utc,
				transparency, location, resources, total_capacity, conferencing_details, notes,
				extended_fields, status, revision, recurrence_type, rule_interval, rule_day,
				rule_until_utc, rule_until_tz, inherited_fields)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22)
		`
		if _, err := tx.ExecContext(ctx, insert,
			nm.ID, nm.TenantID, nm.ScheduleID, nm.Title, nm.TimeZone, nm.StartUTC, nm.EndUTC,
			nm.Transparency, nm.Location, nm.Resources, nm.TotalCapacity, nm.ConferencingDetails,
			nm.Notes, nm.ExtendedFields, nm.Status, nm.Revision, nm.RecurrenceType,
			nm.RuleInterval, nm.RuleDay, nm.RuleUntilUTC, nm.RuleUntilTZ, nm.InheritedFields); err != nil {
			logger.Error("EventRepository:ApplySplit insert master", err)
			return err
		}

		if len(plan.ReparentIDs) > 0 {
			reparent := `
				UPDATE events
				SET recurring_event_id = $2, revision = revision + 1, updated_at = NOW()
				WHERE id = ANY($1)
			`
			res, err := tx.ExecContext(ctx, reparent, pq.Array(plan.ReparentIDs), nm.ID)
			if err != nil {
				logger.Error("EventRepository:ApplySplit reparent", err)
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected != int64(len(plan.ReparentIDs)) {
				// Someone deleted a tail occurrence mid-split; applying the
				// rest would leave the series half re-parented.
				return fmt.Errorf("split reparent touched %d of %d occurrences", affected, len(plan.ReparentIDs))
			}
		}

		return nil
	})
}

// ===================== Participants =====================

func (r *EventRepository) AddParticipant(ctx context.Context, p *entity.Participant) error {
	query := `
		INSERT INTO event_participants (event_id, user_id, status, party_size)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO UPDATE SET status = $3, party_size = $4
	`
	if _, err := r.DB.ExecContext(ctx, query, p.EventID, p.UserID, p.Status, p.PartySize); err != nil {
		logger.Error("EventRepository:AddParticipant", err)
		return err
	}
	return nil
}

func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID uuid.UUID) error {
	query := `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`
	if _, err := r.DB.ExecContext(ctx, query, eventID, userID); err != nil {
		logger.Error("EventRepository:RemoveParticipant", err)
		return err
	}
	return nil
}

func (r *EventRepository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]entity.Participant, error) {
	query := `
		SELECT event_id, user_id, status, party_size, created_at
		FROM event_participants
		WHERE event_id = $1
		ORDER BY created_at
	`
	var participants []entity.Participant
	if err := r.DB.SelectContext(ctx, &participants, query, eventID); err != nil {
		logger.Error("EventRepository:ListParticipants", err)
		return nil, err
	}
	return participants, nil
}

func (r *EventRepository) ListParticipantsByEventIDs(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]entity.Participant, error) {
	if len(eventIDs) == 0 {
		return map[uuid.UUID][]entity.Participant{}, nil
	}
	query := `
		SELECT event_id, user_id, status, party_size, created_at
		FROM event_participants
		WHERE event_id = ANY($1)
		ORDER BY created_at
	`
	var participants []entity.Participant
	if err := r.DB.SelectContext(ctx, &participants, query, pq.Array(eventIDs)); err != nil {
		logger.Error("EventRepository:ListParticipantsByEventIDs", err)
		return nil, err
	}

	out := make(map[uuid.UUID][]entity.Participant, len(eventIDs))
	for _, p := range participants {
		out[p.EventID] = append(out[p.EventID], p)
	}
	return out, nil
}

func (r *EventRepository) DeleteParticipants(ctx context.Context, eventID uuid.UUID) error {
	query := `DELETE FROM event_participants WHERE event_id = $1`
	if _, err := r.DB.ExecContext(ctx, query, eventID); err != nil {
		logger.Error("EventRepository:DeleteParticipants", err)
		return err
	}
	return nil
}

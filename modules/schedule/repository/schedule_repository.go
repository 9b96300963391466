package repository

import (
	"context"
	"database/sql"
	"errors"

	"go-calendar-api/core/database"
	"go-calendar-api/core/logger"
	"go-calendar-api/modules/schedule/entity"

	"github.com/google/uuid"
)

// ErrStaleRevision signals an optimistic-concurrency miss on a schedule row.
var ErrStaleRevision = errors.New("stale revision")

const scheduleColumns = `id, tenant_id, name, default_title, default_location, default_capacity,
	default_conferencing_details, time_zone, status, revision, created_at, updated_at`

// ScheduleRepository handles schedule database operations.
type ScheduleRepository struct {
	DB database.IDatabase
}

func NewScheduleRepository(db database.IDatabase) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

type ScheduleRepositoryInterface interface {
	Create(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Schedule, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]entity.Schedule, error)
	UpdateGuarded(ctx context.Context, schedule *entity.Schedule, expectedRevision int64) error
	CancelGuarded(ctx context.Context, tenantID, id uuid.UUID, expectedRevision int64) error
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *entity.Schedule) (*entity.Schedule, error) {
	query := `
		INSERT INTO schedules (id, tenant_id, name, default_title, default_location,
			default_capacity, default_conferencing_details, time_zone, status, revision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + scheduleColumns

	var created entity.Schedule
	err := r.DB.GetContext(ctx, &created, query,
		schedule.ID, schedule.TenantID, schedule.Name, schedule.DefaultTitle,
		schedule.DefaultLocation, schedule.DefaultCapacity, schedule.DefaultConferencingDetails,
		schedule.TimeZone, schedule.Status, schedule.Revision)
	if err != nil {
		logger.Error("ScheduleRepository:Create", err)
		return nil, err
	}

	return &created, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE tenant_id = $1 AND id = $2`

	var schedule entity.Schedule
	err := r.DB.GetContext(ctx, &schedule, query, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ScheduleRepository:GetByID", err)
		return nil, err
	}

	return &schedule, nil
}

func (r *ScheduleRepository) List(ctx context.Context, tenantID uuid.UUID) ([]entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE tenant_id = $1 ORDER BY created_at DESC`

	var schedules []entity.Schedule
	if err := r.DB.SelectContext(ctx, &schedules, query, tenantID); err != nil {
		logger.Error("ScheduleRepository:List", err)
		return nil, err
	}

	return schedules, nil
}

func (r *ScheduleRepository) UpdateGuarded(ctx context.Context, schedule *entity.Schedule, expectedRevision int64) error {
	query := `
		UPDATE schedules
		SET name = $3, default_title = $4, default_location = $5, default_capacity = $6,
		    default_conferencing_details = $7, time_zone = $8,
		    revision = revision + 1, updated_at = NOW()
		WHERE id = $1 AND revision = $2
	`

	res, err := r.DB.ExecContext(ctx, query,
		schedule.ID, expectedRevision, schedule.Name, schedule.DefaultTitle,
		schedule.DefaultLocation, schedule.DefaultCapacity, schedule.DefaultConferencingDetails,
		schedule.TimeZone)
	if err != nil {
		logger.Error("ScheduleRepository:UpdateGuarded", err)
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

// CancelGuarded marks a schedule cancelled. CANCELLED is terminal; the event
// cascade is the service's responsibility.
func (r *ScheduleRepository) CancelGuarded(ctx context.Context, tenantID, id uuid.UUID, expectedRevision int64) error {
	query := `
		UPDATE schedules
		SET status = 'CANCELLED', revision = revision + 1, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND revision = $3 AND status = 'ACTIVE'
	`

	res, err := r.DB.ExecContext(ctx, query, tenantID, id, expectedRevision)
	if err != nil {
		logger.Error("ScheduleRepository:CancelGuarded", err)
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

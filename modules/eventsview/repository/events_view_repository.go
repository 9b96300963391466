package repository

import (
	"context"
	"database/sql"
	"time"

	"go-calendar-api/core/database"
	"go-calendar-api/core/logger"
	"go-calendar-api/modules/eventsview/entity"

	"github.com/google/uuid"
)

// EventsViewRepository handles events-view window rows.
type EventsViewRepository struct {
	DB database.IDatabase
}

func NewEventsViewRepository(db database.IDatabase) *EventsViewRepository {
	return &EventsViewRepository{DB: db}
}

type EventsViewRepositoryInterface interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*entity.EventsView, error)
	Ensure(ctx context.Context, tenantID uuid.UUID, endDate time.Time) (*entity.EventsView, error)
	Extend(ctx context.Context, tenantID uuid.UUID, newEndDate time.Time) (bool, error)
	ListAll(ctx context.Context) ([]entity.EventsView, error)
}

func (r *EventsViewRepository) Get(ctx context.Context, tenantID uuid.UUID) (*entity.EventsView, error) {
	query := `SELECT tenant_id, end_date, created_at, updated_at FROM events_views WHERE tenant_id = $1`

	var view entity.EventsView
	err := r.DB.GetContext(ctx, &view, query, tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EventsViewRepository:Get", err)
		return nil, err
	}

	return &view, nil
}

// Ensure creates the tenant's view row if it does not exist yet. An existing
// row is returned untouched, whatever its end date: the window never moves
// backwards, not even through initialization races.
func (r *EventsViewRepository) Ensure(ctx context.Context, tenantID uuid.UUID, endDate time.Time) (*entity.EventsView, error) {
	query := `
		INSERT INTO events_views (tenant_id, end_date)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		RETURNING tenant_id, end_date, created_at, updated_at
	`

	var view entity.EventsView
	err := r.DB.GetContext(ctx, &view, query, tenantID, endDate)
	if err != nil {
		logger.Error("EventsViewRepository:Ensure", err)
		return nil, err
	}

	return &view, nil
}

// Extend moves the window end forward. The guard in the WHERE clause makes
// the monotonic invariant hold under concurrent extension: a newEndDate at
// or before the stored one changes nothing and reports false.
func (r *EventsViewRepository) Extend(ctx context.Context, tenantID uuid.UUID, newEndDate time.Time) (bool, error) {
	query := `
		UPDATE events_views
		SET end_date = $2, updated_at = NOW()
		WHERE tenant_id = $1 AND end_date < $2
	`

	res, err := r.DB.ExecContext(ctx, query, tenantID, newEndDate)
	if err != nil {
		logger.Error("EventsViewRepository:Extend", err)
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *EventsViewRepository) ListAll(ctx context.Context) ([]entity.EventsView, error) {
	query := `SELECT tenant_id, end_date, created_at, updated_at FROM events_views ORDER BY tenant_id`

	var views []entity.EventsView
	if err := r.DB.SelectContext(ctx, &views, query); err != nil {
		logger.Error("EventsViewRepository:ListAll", err)
		return nil, err
	}

	return views, nil
}

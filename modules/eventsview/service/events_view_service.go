package service

import (
	"context"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/core/logger"
	"go-calendar-api/core/worker"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/eventsview/dto"
	"go-calendar-api/modules/eventsview/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const endDateLayout = "2006-01-02"

// EventsViewService maintains each tenant's materialization window. Extending
// the window enqueues one materialization task per active series, so the
// guarantee "occurrence rows exist up to the window end" is restored
// asynchronously after the end date moves.
type EventsViewService struct {
	repo        repository.EventsViewRepositoryInterface
	eventRepo   eventrepository.EventRepositoryInterface
	client      *asynq.Client
	horizonDays int
}

func NewEventsViewService(repo repository.EventsViewRepositoryInterface, eventRepo eventrepository.EventRepositoryInterface, client *asynq.Client, horizonDays int) *EventsViewService {
	return &EventsViewService{
		repo:        repo,
		eventRepo:   eventRepo,
		client:      client,
		horizonDays: horizonDays,
	}
}

type EventsViewServiceInterface interface {
	GetView(ctx context.Context, tenantID uuid.UUID) (*dto.EventsViewResponse, *errors.AppError)
	ExtendView(ctx context.Context, tenantID uuid.UUID, req *dto.ExtendViewRequest) (*dto.EventsViewResponse, *errors.AppError)
	ExtendAll(ctx context.Context) error
}

// GetView returns the tenant's window, creating it at the default horizon on
// first touch.
func (s *EventsViewService) GetView(ctx context.Context, tenantID uuid.UUID) (*dto.EventsViewResponse, *errors.AppError) {
	view, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load events view", err)
	}
	if view == nil {
		view, err = s.repo.Ensure(ctx, tenantID, s.defaultEnd())
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to initialize events view", err)
		}
	}
	return dto.ToEventsViewResponse(view), nil
}

// ExtendView moves the window end forward explicitly. A date at or before the
// current end is rejected: shrinking the window would break the guarantee
// already given for rows inside it.
func (s *EventsViewService) ExtendView(ctx context.Context, tenantID uuid.UUID, req *dto.ExtendViewRequest) (*dto.EventsViewResponse, *errors.AppError) {
	newEnd, err := time.Parse(endDateLayout, req.NewEndDate)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid end date, expected YYYY-MM-DD", err)
	}
	newEnd = endOfDayUTC(newEnd)

	view, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load events view", err)
	}
	if view == nil {
		view, err = s.repo.Ensure(ctx, tenantID, s.defaultEnd())
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to initialize events view", err)
		}
	}
	if !newEnd.After(view.EndDate) {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed,
			"new end date must be after the current window end", nil)
	}

	moved, err := s.repo.Extend(ctx, tenantID, newEnd)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to extend events view", err)
	}
	if moved {
		if aerr := s.enqueueTenantMaterialization(ctx, tenantID); aerr != nil {
			return nil, aerr
		}
	}

	view, err = s.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load events view", err)
	}
	return dto.ToEventsViewResponse(view), nil
}

// ExtendAll is the periodic sweep: every tenant window closer than the
// configured horizon is pushed back out to it, and the tenant's series are
// queued for backfill. Implements the worker's horizon extender.
func (s *EventsViewService) ExtendAll(ctx context.Context) error {
	views, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	target := s.defaultEnd()
	for _, view := range views {
		if !view.EndDate.Before(target) {
			continue
		}
		moved, err := s.repo.Extend(ctx, view.TenantID, target)
		if err != nil {
			return err
		}
		if !moved {
			continue
		}
		if aerr := s.enqueueTenantMaterialization(ctx, view.TenantID); aerr != nil {
			return aerr
		}
		logger.Info("events view extended", "tenantId", view.TenantID, "endDate", target)
	}
	return nil
}

func (s *EventsViewService) enqueueTenantMaterialization(ctx context.Context, tenantID uuid.UUID) *errors.AppError {
	masters, err := s.eventRepo.ListMasters(ctx, tenantID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to list series masters", err)
	}
	for _, master := range masters {
		task, err := worker.NewEventMaterializeTask(tenantID, master.ID)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to build materialization task", err)
		}
		if _, err := s.client.EnqueueContext(ctx, task); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to enqueue materialization task", err)
		}
	}
	return nil
}

func (s *EventsViewService) defaultEnd() time.Time {
	return endOfDayUTC(time.Now().UTC().AddDate(0, 0, s.horizonDays))
}

func endOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

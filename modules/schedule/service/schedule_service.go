package service

import (
	"context"
	stderrors "errors"
	"time"

	"go-calendar-api/core/errors"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/schedule/dto"
	"go-calendar-api/modules/schedule/entity"
	"go-calendar-api/modules/schedule/repository"

	"github.com/google/uuid"
)

// ScheduleService manages schedules, the inheritance roots events resolve
// their defaults against.
type ScheduleService struct {
	repo      repository.ScheduleRepositoryInterface
	eventRepo eventrepository.EventRepositoryInterface
}

func NewScheduleService(repo repository.ScheduleRepositoryInterface, eventRepo eventrepository.EventRepositoryInterface) *ScheduleService {
	return &ScheduleService{repo: repo, eventRepo: eventRepo}
}

type ScheduleServiceInterface interface {
	CreateSchedule(ctx context.Context, tenantID uuid.UUID, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, *errors.AppError)
	GetSchedule(ctx context.Context, tenantID, id uuid.UUID) (*dto.ScheduleResponse, *errors.AppError)
	ListSchedules(ctx context.Context, tenantID uuid.UUID) ([]dto.ScheduleResponse, *errors.AppError)
	UpdateSchedule(ctx context.Context, tenantID, id uuid.UUID, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, *errors.AppError)
	CancelSchedule(ctx context.Context, tenantID, id uuid.UUID, req *dto.CancelScheduleRequest) *errors.AppError
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, tenantID uuid.UUID, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, *errors.AppError) {
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
	}

	schedule := &entity.Schedule{
		ID:                         uuid.New(),
		TenantID:                   tenantID,
		Name:                       req.Name,
		DefaultTitle:               req.DefaultTitle,
		DefaultLocation:            req.DefaultLocation,
		DefaultCapacity:            req.DefaultCapacity,
		DefaultConferencingDetails: req.DefaultConferencing,
		TimeZone:                   req.TimeZone,
		Status:                     entity.ScheduleStatusActive,
		Revision:                   1,
	}

	created, err := s.repo.Create(ctx, schedule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create schedule", err)
	}
	return dto.ToScheduleResponse(created), nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, tenantID, id uuid.UUID) (*dto.ScheduleResponse, *errors.AppError) {
	schedule, aerr := s.get(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	return dto.ToScheduleResponse(schedule), nil
}

func (s *ScheduleService) ListSchedules(ctx context.Context, tenantID uuid.UUID) ([]dto.ScheduleResponse, *errors.AppError) {
	schedules, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list schedules", err)
	}

	out := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, *dto.ToScheduleResponse(&schedules[i]))
	}
	return out, nil
}

func (s *ScheduleService) UpdateSchedule(ctx context.Context, tenantID, id uuid.UUID, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, *errors.AppError) {
	schedule, aerr := s.get(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	if schedule.Status == entity.ScheduleStatusCancelled {
		return nil, errors.NewAppError(errors.ErrConflict, "cancelled schedules cannot be updated", nil)
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.DefaultTitle != nil {
		schedule.DefaultTitle = *req.DefaultTitle
	}
	if req.DefaultLocation != nil {
		schedule.DefaultLocation = req.DefaultLocation
	}
	if req.DefaultCapacity != nil {
		schedule.DefaultCapacity = req.DefaultCapacity
	}
	if req.DefaultConferencing != nil {
		schedule.DefaultConferencingDetails = req.DefaultConferencing
	}
	if req.TimeZone != nil {
		if _, err := time.LoadLocation(*req.TimeZone); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
		}
		schedule.TimeZone = *req.TimeZone
	}

	if err := s.repo.UpdateGuarded(ctx, schedule, req.Revision); err != nil {
		return nil, guardError(err, "failed to update schedule")
	}

	updated, aerr := s.get(ctx, tenantID, id)
	if aerr != nil {
		return nil, aerr
	}
	return dto.ToScheduleResponse(updated), nil
}

// CancelSchedule cancels the schedule and every future event it owns,
// series masters included. Past events keep their history.
func (s *ScheduleService) CancelSchedule(ctx context.Context, tenantID, id uuid.UUID, req *dto.CancelScheduleRequest) *errors.AppError {
	schedule, aerr := s.get(ctx, tenantID, id)
	if aerr != nil {
		return aerr
	}
	if schedule.Status == entity.ScheduleStatusCancelled {
		return nil
	}

	if err := s.repo.CancelGuarded(ctx, tenantID, id, req.Revision); err != nil {
		return guardError(err, "failed to cancel schedule")
	}
	if err := s.eventRepo.CancelFutureBySchedule(ctx, id); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to cancel schedule events", err)
	}
	return nil
}

func (s *ScheduleService) get(ctx context.Context, tenantID, id uuid.UUID) (*entity.Schedule, *errors.AppError) {
	schedule, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load schedule", err)
	}
	if schedule == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "schedule not found", nil)
	}
	return schedule, nil
}

func guardError(err error, msg string) *errors.AppError {
	if stderrors.Is(err, repository.ErrStaleRevision) {
		return errors.NewAppError(errors.ErrConflict,
			"schedule was modified concurrently, re-fetch and retry", err)
	}
	return errors.NewAppError(errors.ErrInternalServer, msg, err)
}

package service

import (
	"context"
	"testing"

	"go-calendar-api/core/errors"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/schedule/dto"
	"go-calendar-api/modules/schedule/entity"
	"go-calendar-api/modules/schedule/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduleRepo struct {
	schedules map[uuid.UUID]*entity.Schedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: map[uuid.UUID]*entity.Schedule{}}
}

func (f *fakeScheduleRepo) Create(_ context.Context, s *entity.Schedule) (*entity.Schedule, error) {
	cp := *s
	f.schedules[s.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeScheduleRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeScheduleRepo) List(_ context.Context, tenantID uuid.UUID) ([]entity.Schedule, error) {
	var out []entity.Schedule
	for _, s := range f.schedules {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) UpdateGuarded(_ context.Context, s *entity.Schedule, expectedRevision int64) error {
	stored, ok := f.schedules[s.ID]
	if !ok || stored.Revision != expectedRevision {
		return repository.ErrStaleRevision
	}
	cp := *s
	cp.Revision = expectedRevision + 1
	f.schedules[s.ID] = &cp
	return nil
}

func (f *fakeScheduleRepo) CancelGuarded(_ context.Context, tenantID, id uuid.UUID, expectedRevision int64) error {
	stored, ok := f.schedules[id]
	if !ok || stored.TenantID != tenantID || stored.Revision != expectedRevision || stored.Status != entity.ScheduleStatusActive {
		return repository.ErrStaleRevision
	}
	stored.Status = entity.ScheduleStatusCancelled
	stored.Revision++
	return nil
}

type fakeEventRepo struct {
	eventrepository.EventRepositoryInterface
	cancelledSchedules []uuid.UUID
}

func (f *fakeEventRepo) CancelFutureBySchedule(_ context.Context, scheduleID uuid.UUID) error {
	f.cancelledSchedules = append(f.cancelledSchedules, scheduleID)
	return nil
}

func createSchedule(t *testing.T, svc *ScheduleService, tenantID uuid.UUID) *dto.ScheduleResponse {
	t.Helper()
	created, aerr := svc.CreateSchedule(context.Background(), tenantID, &dto.CreateScheduleRequest{
		Name:         "Team calendar",
		DefaultTitle: "Team meeting",
		TimeZone:     "Europe/Berlin",
	})
	require.Nil(t, aerr)
	return created
}

func TestCreateScheduleValidatesTimeZone(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleRepo(), &fakeEventRepo{})

	_, aerr := svc.CreateSchedule(context.Background(), uuid.New(), &dto.CreateScheduleRequest{
		Name:         "Bad",
		DefaultTitle: "Meeting",
		TimeZone:     "Not/AZone",
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrInvalidInput, aerr.Code)
}

func TestUpdateScheduleStaleRevision(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleRepo(), &fakeEventRepo{})
	tenantID := uuid.New()
	created := createSchedule(t, svc, tenantID)

	name := "Renamed"
	_, aerr := svc.UpdateSchedule(context.Background(), tenantID, uuid.MustParse(created.ID), &dto.UpdateScheduleRequest{
		Revision: created.Revision + 5,
		Name:     &name,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)
}

func TestUpdateSchedulePatchesDefaults(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleRepo(), &fakeEventRepo{})
	tenantID := uuid.New()
	created := createSchedule(t, svc, tenantID)

	title := "All hands"
	updated, aerr := svc.UpdateSchedule(context.Background(), tenantID, uuid.MustParse(created.ID), &dto.UpdateScheduleRequest{
		Revision:     created.Revision,
		DefaultTitle: &title,
	})
	require.Nil(t, aerr)

	assert.Equal(t, "All hands", updated.DefaultTitle)
	assert.Equal(t, "Team calendar", updated.Name)
	assert.Equal(t, created.Revision+1, updated.Revision)
}

func TestCancelScheduleCascadesToFutureEvents(t *testing.T) {
	eventRepo := &fakeEventRepo{}
	svc := NewScheduleService(newFakeScheduleRepo(), eventRepo)
	tenantID := uuid.New()
	created := createSchedule(t, svc, tenantID)
	scheduleID := uuid.MustParse(created.ID)

	aerr := svc.CancelSchedule(context.Background(), tenantID, scheduleID, &dto.CancelScheduleRequest{Revision: created.Revision})
	require.Nil(t, aerr)
	assert.Equal(t, []uuid.UUID{scheduleID}, eventRepo.cancelledSchedules)

	// Cancelling again is a no-op, not an error.
	aerr = svc.CancelSchedule(context.Background(), tenantID, scheduleID, &dto.CancelScheduleRequest{Revision: created.Revision + 1})
	require.Nil(t, aerr)
	assert.Len(t, eventRepo.cancelledSchedules, 1)

	// Updates are rejected once cancelled.
	name := "Zombie"
	_, aerr = svc.UpdateSchedule(context.Background(), tenantID, scheduleID, &dto.UpdateScheduleRequest{
		Revision: created.Revision + 1,
		Name:     &name,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)
}

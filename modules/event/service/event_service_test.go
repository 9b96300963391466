package service

import (
	"context"
	"testing"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/dto"
	"go-calendar-api/modules/event/entity"
	"go-calendar-api/modules/event/repository"
	scheduleentity "go-calendar-api/modules/schedule/entity"
	schedulerepository "go-calendar-api/modules/schedule/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo stores events in memory; only what the tested paths reach is
// implemented, the embedded interface covers the rest.
type fakeEventRepo struct {
	repository.EventRepositoryInterface
	events       map[uuid.UUID]*entity.Event
	participants map[uuid.UUID][]entity.Participant
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:       map[uuid.UUID]*entity.Event{},
		participants: map[uuid.UUID][]entity.Participant{},
	}
}

func (f *fakeEventRepo) CreateEvent(_ context.Context, ev *entity.Event) (*entity.Event, error) {
	cp := ev.Clone()
	cp.CreatedAt = time.Now()
	f.events[ev.ID] = cp
	return cp.Clone(), nil
}

func (f *fakeEventRepo) GetEventByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Event, error) {
	ev, ok := f.events[id]
	if !ok || ev.TenantID != tenantID {
		return nil, nil
	}
	return ev.Clone(), nil
}

func (f *fakeEventRepo) UpdateEventGuarded(_ context.Context, ev *entity.Event, expectedRevision int64) error {
	stored, ok := f.events[ev.ID]
	if !ok || stored.Revision != expectedRevision {
		return repository.ErrStaleRevision
	}
	cp := ev.Clone()
	cp.Revision = expectedRevision + 1
	f.events[ev.ID] = cp
	return nil
}

func (f *fakeEventRepo) ListParticipants(_ context.Context, eventID uuid.UUID) ([]entity.Participant, error) {
	return f.participants[eventID], nil
}

func (f *fakeEventRepo) AddParticipant(_ context.Context, p *entity.Participant) error {
	rows := f.participants[p.EventID]
	for i := range rows {
		if rows[i].UserID == p.UserID {
			rows[i].Status = p.Status
			rows[i].PartySize = p.PartySize
			return nil
		}
	}
	f.participants[p.EventID] = append(rows, *p)
	return nil
}

func (f *fakeEventRepo) RemoveParticipant(_ context.Context, eventID, userID uuid.UUID) error {
	rows := f.participants[eventID]
	for i := range rows {
		if rows[i].UserID == userID {
			f.participants[eventID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeScheduleRepo struct {
	schedulerepository.ScheduleRepositoryInterface
	schedules map[uuid.UUID]*scheduleentity.Schedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: map[uuid.UUID]*scheduleentity.Schedule{}}
}

func (f *fakeScheduleRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*scheduleentity.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

type fixture struct {
	svc       *EventService
	events    *fakeEventRepo
	schedules *fakeScheduleRepo
	tenantID  uuid.UUID
	schedule  *scheduleentity.Schedule
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	events := newFakeEventRepo()
	schedules := newFakeScheduleRepo()
	tenantID := uuid.New()

	location := "Room A"
	sch := &scheduleentity.Schedule{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Name:            "Team calendar",
		DefaultTitle:    "Team meeting",
		DefaultLocation: &location,
		TimeZone:        "America/New_York",
		Status:          scheduleentity.ScheduleStatusActive,
		Revision:        1,
	}
	schedules.schedules[sch.ID] = sch

	return &fixture{
		svc:       NewEventService(events, schedules, nil, nil, 90),
		events:    events,
		schedules: schedules,
		tenantID:  tenantID,
		schedule:  sch,
	}
}

func createRequest(fx *fixture) *dto.CreateEventRequest {
	return &dto.CreateEventRequest{
		ScheduleID: fx.schedule.ID.String(),
		Start:      dto.ZonedDateTimeInput{DateTime: "2025-01-06T09:00:00"},
		End:        dto.ZonedDateTimeInput{DateTime: "2025-01-06T10:00:00"},
	}
}

func TestCreateEventInheritsScheduleDefaults(t *testing.T) {
	fx := newFixture(t)

	resp, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)

	assert.Equal(t, "Team meeting", resp.Title)
	assert.Equal(t, "America/New_York", resp.TimeZone)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "Room A", *resp.Location)
	assert.Equal(t, string(entity.RecurrenceNone), resp.RecurrenceType)
	assert.Equal(t, int64(1), resp.Revision)
	assert.Contains(t, resp.InheritedFields, string(entity.FieldTitle))
	assert.Contains(t, resp.InheritedFields, string(entity.FieldLocation))

	// 09:00 New York in January is 14:00 UTC.
	assert.Equal(t, 14, resp.Start.UTC.Hour())
}

func TestCreateEventValidation(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name     string
		mutate   func(*dto.CreateEventRequest)
		wantCode errors.ErrorCode
	}{
		{
			name:     "malformed schedule id",
			mutate:   func(r *dto.CreateEventRequest) { r.ScheduleID = "not-a-uuid" },
			wantCode: errors.ErrInvalidInput,
		},
		{
			name:     "unknown schedule",
			mutate:   func(r *dto.CreateEventRequest) { r.ScheduleID = uuid.NewString() },
			wantCode: errors.ErrNotFound,
		},
		{
			name: "end before start",
			mutate: func(r *dto.CreateEventRequest) {
				r.End = dto.ZonedDateTimeInput{DateTime: "2025-01-06T08:00:00"}
			},
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "rule without master type",
			mutate: func(r *dto.CreateEventRequest) {
				r.RecurrenceRule = &dto.RecurrenceRuleInput{Frequency: "WEEKLY", Days: []string{"MONDAY"}}
			},
			wantCode: errors.ErrInvalidInput,
		},
		{
			name:     "master without rule",
			mutate:   func(r *dto.CreateEventRequest) { r.RecurrenceType = "MASTER" },
			wantCode: errors.ErrInvalidInput,
		},
		{
			name:     "unknown recurrence type",
			mutate:   func(r *dto.CreateEventRequest) { r.RecurrenceType = "YEARLY" },
			wantCode: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createRequest(fx)
			tt.mutate(req)

			_, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, req)
			require.NotNil(t, aerr)
			assert.Equal(t, tt.wantCode, aerr.Code)
		})
	}
}

func TestCreateEventRejectsCancelledSchedule(t *testing.T) {
	fx := newFixture(t)
	fx.schedule.Status = scheduleentity.ScheduleStatusCancelled

	_, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)
}

func TestUpdateEventStaleRevision(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)

	title := "Renamed"
	_, aerr = fx.svc.UpdateEvent(context.Background(), fx.tenantID, uuid.MustParse(created.ID), &dto.UpdateEventRequest{
		Revision: created.Revision + 3,
		Title:    &title,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)
}

func TestUpdateEventOverridesInheritedField(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)

	title := "One-off review"
	updated, aerr := fx.svc.UpdateEvent(context.Background(), fx.tenantID, uuid.MustParse(created.ID), &dto.UpdateEventRequest{
		Revision: created.Revision,
		Title:    &title,
	})
	require.Nil(t, aerr)

	assert.Equal(t, "One-off review", updated.Title)
	assert.NotContains(t, updated.InheritedFields, string(entity.FieldTitle))
	assert.Contains(t, updated.InheritedFields, string(entity.FieldLocation))
	assert.Equal(t, created.Revision+1, updated.Revision)
}

func TestRestoreDefaultsOnStandalone(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)
	id := uuid.MustParse(created.ID)

	title := "One-off review"
	updated, aerr := fx.svc.UpdateEvent(context.Background(), fx.tenantID, id, &dto.UpdateEventRequest{
		Revision: created.Revision,
		Title:    &title,
	})
	require.Nil(t, aerr)

	restored, aerr := fx.svc.RestoreDefaults(context.Background(), fx.tenantID, id, &dto.RestoreDefaultsRequest{
		Revision: updated.Revision,
		Fields:   []string{"TITLE"},
	})
	require.Nil(t, aerr)

	assert.Equal(t, "Team meeting", restored.Title)
	assert.Contains(t, restored.InheritedFields, string(entity.FieldTitle))
}

func TestParticipantCapacityEnforcement(t *testing.T) {
	fx := newFixture(t)
	capacity := 3
	req := createRequest(fx)
	req.TotalCapacity = &capacity
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, req)
	require.Nil(t, aerr)
	eventID := uuid.MustParse(created.ID)

	first := uuid.NewString()
	resp, aerr := fx.svc.AddParticipant(context.Background(), fx.tenantID, eventID, &dto.ParticipantInput{
		UserID: first, Status: "CONFIRMED", PartySize: 2,
	})
	require.Nil(t, aerr)
	require.NotNil(t, resp.RemainingCapacity)
	assert.Equal(t, 1, *resp.RemainingCapacity)

	// A confirmed party of two no longer fits.
	_, aerr = fx.svc.AddParticipant(context.Background(), fx.tenantID, eventID, &dto.ParticipantInput{
		UserID: uuid.NewString(), Status: "CONFIRMED", PartySize: 2,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)

	// A pending one does: capacity only counts confirmed parties.
	_, aerr = fx.svc.AddParticipant(context.Background(), fx.tenantID, eventID, &dto.ParticipantInput{
		UserID: uuid.NewString(), Status: "PENDING", PartySize: 2,
	})
	require.Nil(t, aerr)

	// Growing the first party past the remaining seats is rejected too.
	four := 4
	_, aerr = fx.svc.UpdateParticipant(context.Background(), fx.tenantID, eventID, uuid.MustParse(first), &dto.UpdateParticipantRequest{
		PartySize: &four,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConflict, aerr.Code)

	// Growing within capacity works; the check excludes the party's own seats.
	three := 3
	resp, aerr = fx.svc.UpdateParticipant(context.Background(), fx.tenantID, eventID, uuid.MustParse(first), &dto.UpdateParticipantRequest{
		PartySize: &three,
	})
	require.Nil(t, aerr)
	require.NotNil(t, resp.RemainingCapacity)
	assert.Equal(t, 0, *resp.RemainingCapacity)
}

func TestUpdateParticipantNotFound(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)

	status := "CONFIRMED"
	_, aerr = fx.svc.UpdateParticipant(context.Background(), fx.tenantID, uuid.MustParse(created.ID), uuid.New(), &dto.UpdateParticipantRequest{
		Status: &status,
	})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrNotFound, aerr.Code)
}

func TestRemoveParticipant(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)
	eventID := uuid.MustParse(created.ID)

	userID := uuid.New()
	_, aerr = fx.svc.AddParticipant(context.Background(), fx.tenantID, eventID, &dto.ParticipantInput{UserID: userID.String()})
	require.Nil(t, aerr)

	resp, aerr := fx.svc.RemoveParticipant(context.Background(), fx.tenantID, eventID, userID)
	require.Nil(t, aerr)
	assert.Empty(t, resp.Participants)
}

func TestGetEventNotFound(t *testing.T) {
	fx := newFixture(t)

	_, aerr := fx.svc.GetEvent(context.Background(), fx.tenantID, uuid.New(), "")
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrNotFound, aerr.Code)
}

func TestGetEventDisplayZone(t *testing.T) {
	fx := newFixture(t)
	created, aerr := fx.svc.CreateEvent(context.Background(), fx.tenantID, createRequest(fx))
	require.Nil(t, aerr)

	resp, aerr := fx.svc.GetEvent(context.Background(), fx.tenantID, uuid.MustParse(created.ID), "Asia/Tokyo")
	require.Nil(t, aerr)

	require.NotNil(t, resp.AdjustedStart)
	assert.Equal(t, "Asia/Tokyo", resp.AdjustedStart.TimeZone)
	// The adjusted projection is the same instant.
	assert.True(t, resp.AdjustedStart.UTC.Equal(resp.Start.UTC))
}

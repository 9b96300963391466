package recurrence

import (
	"testing"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"
	scheduleentity "go-calendar-api/modules/schedule/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule() *scheduleentity.Schedule {
	location := "Room A"
	capacity := 20
	return &scheduleentity.Schedule{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		Name:            "Team calendar",
		DefaultTitle:    "Team meeting",
		DefaultLocation: &location,
		DefaultCapacity: &capacity,
		TimeZone:        "America/New_York",
		Status:          scheduleentity.ScheduleStatusActive,
		Revision:        1,
	}
}

func TestResolveFromScheduleInheritsDefaults(t *testing.T) {
	r := NewInheritanceResolver()
	sch := testSchedule()

	ev := &entity.Event{
		ID:             uuid.New(),
		ScheduleID:     sch.ID,
		StartUTC:       utc(t, "2025-01-06T14:00:00"),
		EndUTC:         utc(t, "2025-01-06T15:00:00"),
		RecurrenceType: entity.RecurrenceNone,
	}

	eff, aerr := r.ResolveFromSchedule(ev, sch)
	require.Nil(t, aerr)

	assert.Equal(t, "Team meeting", eff.Title)
	assert.Equal(t, "America/New_York", eff.TimeZone)
	require.NotNil(t, eff.Location)
	assert.Equal(t, "Room A", *eff.Location)
	require.NotNil(t, eff.TotalCapacity)
	assert.Equal(t, 20, *eff.TotalCapacity)

	// The start projects into the inherited zone: 14:00 UTC is 09:00 in
	// New York in January.
	assert.Equal(t, 9, eff.Start.Local.Hour())

	assert.Contains(t, eff.InheritedTags, entity.FieldTitle)
	assert.Contains(t, eff.InheritedTags, entity.FieldTimeZone)
	assert.Contains(t, eff.InheritedTags, entity.FieldLocation)
	assert.Contains(t, eff.InheritedTags, entity.FieldCapacity)
	assert.NotContains(t, eff.InheritedTags, entity.FieldTime)
}

func TestResolveOverrideWins(t *testing.T) {
	r := NewInheritanceResolver()
	sch := testSchedule()

	title := "One-off review"
	ev := &entity.Event{
		ID:             uuid.New(),
		ScheduleID:     sch.ID,
		Title:          &title,
		StartUTC:       utc(t, "2025-01-06T14:00:00"),
		EndUTC:         utc(t, "2025-01-06T15:00:00"),
		RecurrenceType: entity.RecurrenceNone,
	}

	eff, aerr := r.ResolveFromSchedule(ev, sch)
	require.Nil(t, aerr)

	assert.Equal(t, "One-off review", eff.Title)
	assert.NotContains(t, eff.InheritedTags, entity.FieldTitle)
}

func TestResolveFromScheduleRejectsOccurrence(t *testing.T) {
	r := NewInheritanceResolver()
	master := newWeeklyMaster(t, 1)
	inst := instanceAt(t, master, "2025-01-13T09:00:00")

	_, aerr := r.ResolveFromSchedule(inst, testSchedule())
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConsistencyFault, aerr.Code)
}

func TestResolveFromMaster(t *testing.T) {
	r := NewInheritanceResolver()
	sch := testSchedule()
	master := newWeeklyMaster(t, 1)
	master.ScheduleID = sch.ID

	masterEff, aerr := r.ResolveFromSchedule(master, sch)
	require.Nil(t, aerr)

	inst := instanceAt(t, master, "2025-01-13T09:00:00")
	eff, aerr := r.ResolveFromMaster(inst, masterEff)
	require.Nil(t, aerr)

	// Inheritable fields come from the master; TIME stays the slot's own.
	assert.Equal(t, "Weekly sync", eff.Title)
	assert.Equal(t, utc(t, "2025-01-13T09:00:00"), eff.Start.UTC)
	assert.Contains(t, eff.InheritedTags, entity.FieldTitle)
	assert.Contains(t, eff.InheritedTags, entity.FieldParticipants)
}

func TestResolveFromMasterWrongParent(t *testing.T) {
	r := NewInheritanceResolver()
	sch := testSchedule()
	master := newWeeklyMaster(t, 1)
	other := newWeeklyMaster(t, 1)
	master.ScheduleID = sch.ID

	masterEff, aerr := r.ResolveFromSchedule(master, sch)
	require.Nil(t, aerr)

	inst := instanceAt(t, other, "2025-01-13T09:00:00")
	_, aerr = r.ResolveFromMaster(inst, masterEff)
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrConsistencyFault, aerr.Code)
}

func TestRestoreDefaultsRoundTrip(t *testing.T) {
	r := NewInheritanceResolver()
	sch := testSchedule()

	title := "Override"
	location := "Room B"
	ev := &entity.Event{
		ID:             uuid.New(),
		ScheduleID:     sch.ID,
		Title:          &title,
		Location:       &location,
		StartUTC:       utc(t, "2025-01-06T14:00:00"),
		EndUTC:         utc(t, "2025-01-06T15:00:00"),
		RecurrenceType: entity.RecurrenceNone,
	}

	aerr := r.RestoreDefaults(ev, nil, []entity.FieldTag{entity.FieldTitle, entity.FieldLocation})
	require.Nil(t, aerr)

	assert.Nil(t, ev.Title)
	assert.Nil(t, ev.Location)
	assert.True(t, ev.HasInherited(entity.FieldTitle))
	assert.True(t, ev.HasInherited(entity.FieldLocation))

	eff, aerr2 := r.ResolveFromSchedule(ev, sch)
	require.Nil(t, aerr2)
	assert.Equal(t, "Team meeting", eff.Title)
	require.NotNil(t, eff.Location)
	assert.Equal(t, "Room A", *eff.Location)
}

func TestRestoreDefaultsTime(t *testing.T) {
	r := NewInheritanceResolver()
	master := newWeeklyMaster(t, 1)

	// Exception moved a day later; restoring TIME snaps it back to the rule
	// slot with the master's current duration.
	exc := instanceAt(t, master, "2025-01-13T09:00:00")
	exc.RecurrenceType = entity.RecurrenceException
	exc.StartUTC = utc(t, "2025-01-14T11:00:00")
	exc.EndUTC = utc(t, "2025-01-14T12:30:00")

	aerr := r.RestoreDefaults(exc, master, []entity.FieldTag{entity.FieldTime})
	require.Nil(t, aerr)

	assert.Equal(t, utc(t, "2025-01-13T09:00:00"), exc.StartUTC)
	assert.Equal(t, utc(t, "2025-01-13T10:00:00"), exc.EndUTC)
	assert.False(t, exc.HasInherited(entity.FieldTime))
}

func TestRestoreDefaultsTimeOnRootRejected(t *testing.T) {
	r := NewInheritanceResolver()
	ev := &entity.Event{
		ID:             uuid.New(),
		StartUTC:       utc(t, "2025-01-06T14:00:00"),
		EndUTC:         utc(t, "2025-01-06T15:00:00"),
		RecurrenceType: entity.RecurrenceNone,
	}

	aerr := r.RestoreDefaults(ev, nil, []entity.FieldTag{entity.FieldTime})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrInvalidInput, aerr.Code)
}

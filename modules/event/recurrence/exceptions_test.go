package recurrence

import (
	"testing"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatchTransitionsInstance(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)
	inst := instanceAt(t, master, "2025-01-13T09:00:00")

	title := "Moved standup"
	changed, aerr := tracker.ApplyPatch(inst, EventPatch{Title: &title})
	require.Nil(t, aerr)

	assert.Equal(t, entity.RecurrenceException, inst.RecurrenceType)
	assert.Equal(t, []entity.FieldTag{entity.FieldTitle}, changed)
	require.NotNil(t, inst.Title)
	assert.Equal(t, "Moved standup", *inst.Title)
	assert.False(t, inst.HasInherited(entity.FieldTitle))
	// Untouched fields stay inherited.
	assert.True(t, inst.HasInherited(entity.FieldLocation))
}

func TestApplyPatchEmptyKeepsInstance(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)
	inst := instanceAt(t, master, "2025-01-13T09:00:00")

	changed, aerr := tracker.ApplyPatch(inst, EventPatch{})
	require.Nil(t, aerr)
	assert.Empty(t, changed)
	assert.Equal(t, entity.RecurrenceInstance, inst.RecurrenceType)
}

func TestApplyPatchTimeKeepsSlotIdentity(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)
	inst := instanceAt(t, master, "2025-01-13T09:00:00")

	start := mustZoned(t, "2025-01-14T11:00:00", "UTC")
	end := mustZoned(t, "2025-01-14T12:00:00", "UTC")
	changed, aerr := tracker.ApplyPatch(inst, EventPatch{Start: &start, End: &end})
	require.Nil(t, aerr)

	assert.Contains(t, changed, entity.FieldTime)
	assert.Equal(t, utc(t, "2025-01-14T11:00:00"), inst.StartUTC)
	require.NotNil(t, inst.OccurrenceStart)
	assert.Equal(t, utc(t, "2025-01-13T09:00:00"), *inst.OccurrenceStart)
}

func TestApplyPatchRejectsInvertedTimes(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)
	inst := instanceAt(t, master, "2025-01-13T09:00:00")

	start := mustZoned(t, "2025-01-14T12:00:00", "UTC")
	end := mustZoned(t, "2025-01-14T11:00:00", "UTC")
	_, aerr := tracker.ApplyPatch(inst, EventPatch{Start: &start, End: &end})
	require.NotNil(t, aerr)
	assert.Equal(t, errors.ErrInvalidInput, aerr.Code)
}

func TestPlanMasterCascadeFreezesPast(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)

	past := instanceAt(t, master, "2025-01-06T09:00:00")
	future := instanceAt(t, master, "2025-01-13T09:00:00")

	oldEff := &EffectiveEvent{
		Event:    master,
		Title:    "Weekly sync",
		TimeZone: "UTC",
	}
	now := utc(t, "2025-01-10T00:00:00")

	cascade := tracker.PlanMasterCascade(oldEff, []*entity.Event{past, future},
		[]entity.FieldTag{entity.FieldTitle}, false, now)

	assert.False(t, cascade.TimeChanged)
	require.Len(t, cascade.FreezePast, 1)

	frozen := cascade.FreezePast[0]
	assert.Equal(t, past.ID, frozen.ID)
	require.NotNil(t, frozen.Title)
	assert.Equal(t, "Weekly sync", *frozen.Title)
	assert.False(t, frozen.HasInherited(entity.FieldTitle))

	// The stored rows are never mutated by planning.
	assert.Nil(t, past.Title)
	assert.True(t, past.HasInherited(entity.FieldTitle))
}

func TestPlanMasterCascadeSkipsOverriddenPast(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)

	past := instanceAt(t, master, "2025-01-06T09:00:00")
	past.RecurrenceType = entity.RecurrenceException
	title := "Pinned title"
	past.Title = &title
	past.ClearInherited(entity.FieldTitle)

	oldEff := &EffectiveEvent{Event: master, Title: "Weekly sync", TimeZone: "UTC"}
	now := utc(t, "2025-01-10T00:00:00")

	cascade := tracker.PlanMasterCascade(oldEff, []*entity.Event{past},
		[]entity.FieldTag{entity.FieldTitle}, false, now)
	assert.Empty(t, cascade.FreezePast)
}

func TestCancelCascadeIDs(t *testing.T) {
	tracker := NewExceptionTracker()
	master := newWeeklyMaster(t, 1)

	past := instanceAt(t, master, "2025-01-06T09:00:00")
	future := instanceAt(t, master, "2025-01-13T09:00:00")
	booked := instanceAt(t, master, "2025-01-20T09:00:00")
	gone := instanceAt(t, master, "2025-01-27T09:00:00")
	gone.Status = entity.EventStatusCancelled

	participants := map[uuid.UUID][]entity.Participant{
		booked.ID: {
			{EventID: booked.ID, UserID: uuid.New(), Status: entity.ParticipantStatusConfirmed, PartySize: 2},
		},
		future.ID: {
			{EventID: future.ID, UserID: uuid.New(), Status: entity.ParticipantStatusDeclined, PartySize: 1},
		},
	}
	now := utc(t, "2025-01-10T00:00:00")
	all := []*entity.Event{past, future, booked, gone}

	ids := tracker.CancelCascadeIDs(all, participants, now, true)
	assert.Equal(t, []uuid.UUID{future.ID}, ids)

	ids = tracker.CancelCascadeIDs(all, participants, now, false)
	assert.Equal(t, []uuid.UUID{future.ID, booked.ID}, ids)
}

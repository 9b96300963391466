package recurrence

import (
	"testing"
	"time"

	"go-calendar-api/modules/event/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func mustZoned(t *testing.T, local, tz string) entity.ZonedDate {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04:05", local)
	require.NoError(t, err)
	zd, err := entity.NewZonedDate(parsed, tz)
	require.NoError(t, err)
	return zd
}

func utc(t *testing.T, local string) time.Time {
	t.Helper()
	return mustZoned(t, local, "UTC").UTC
}

func weeklyRule(interval int, day string, until *entity.ZonedDate) entity.RecurrenceRule {
	return entity.RecurrenceRule{
		Frequency: entity.FrequencyWeekly,
		Interval:  interval,
		Day:       day,
		Until:     until,
	}
}

// newWeeklyMaster builds a Monday 09:00-10:00 UTC master starting 2025-01-06.
func newWeeklyMaster(t *testing.T, interval int) *entity.Event {
	t.Helper()
	title := "Weekly sync"
	tz := "UTC"
	master := &entity.Event{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		ScheduleID:     uuid.New(),
		Title:          &title,
		TimeZone:       &tz,
		StartUTC:       utc(t, "2025-01-06T09:00:00"),
		EndUTC:         utc(t, "2025-01-06T10:00:00"),
		Transparency:   entity.TransparencyOpaque,
		Status:         entity.EventStatusActive,
		Revision:       1,
		RecurrenceType: entity.RecurrenceMaster,
	}
	master.SetRule(weeklyRule(interval, "MONDAY", nil))
	return master
}

// instanceAt builds a materialized INSTANCE of master at the given slot.
func instanceAt(t *testing.T, master *entity.Event, slot string) *entity.Event {
	t.Helper()
	start := utc(t, slot)
	masterID := master.ID
	inst := &entity.Event{
		ID:               uuid.New(),
		TenantID:         master.TenantID,
		ScheduleID:       master.ScheduleID,
		StartUTC:         start,
		EndUTC:           start.Add(master.Duration()),
		Transparency:     master.Transparency,
		Status:           entity.EventStatusActive,
		Revision:         1,
		RecurrenceType:   entity.RecurrenceInstance,
		RecurringEventID: &masterID,
		OccurrenceStart:  &start,
	}
	for _, tag := range entity.OccurrenceInheritedTags() {
		inst.MarkInherited(tag)
	}
	return inst
}

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRuleRoundTrip(t *testing.T) {
	until, err := NewZonedDate(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "Europe/Berlin")
	require.NoError(t, err)

	ev := &Event{RecurrenceType: RecurrenceMaster}
	ev.SetRule(RecurrenceRule{Frequency: FrequencyWeekly, Interval: 2, Day: "TUESDAY", Until: &until})

	rule, ok := ev.Rule()
	require.True(t, ok)
	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, "TUESDAY", rule.Day)
	require.NotNil(t, rule.Until)
	assert.True(t, rule.Until.UTC.Equal(until.UTC))
	assert.Equal(t, "Europe/Berlin", rule.Until.TimeZone)
}

func TestEventRuleOnlyOnMasters(t *testing.T) {
	interval := 1
	day := "MONDAY"
	ev := &Event{RecurrenceType: RecurrenceInstance, RuleInterval: &interval, RuleDay: &day}

	_, ok := ev.Rule()
	assert.False(t, ok)
}

func TestInheritedTagSet(t *testing.T) {
	ev := &Event{}

	ev.MarkInherited(FieldTitle)
	ev.MarkInherited(FieldTitle)
	ev.MarkInherited(FieldLocation)
	assert.Len(t, ev.InheritedFields, 2)
	assert.True(t, ev.HasInherited(FieldTitle))

	ev.ClearInherited(FieldTitle)
	assert.False(t, ev.HasInherited(FieldTitle))
	assert.True(t, ev.HasInherited(FieldLocation))
}

func TestCloneIsDeep(t *testing.T) {
	title := "Original"
	ev := &Event{Title: &title, Resources: []string{"projector"}}
	ev.MarkInherited(FieldLocation)

	cp := ev.Clone()
	*cp.Title = "Changed"
	cp.Resources[0] = "whiteboard"
	cp.ClearInherited(FieldLocation)

	assert.Equal(t, "Original", *ev.Title)
	assert.Equal(t, "projector", ev.Resources[0])
	assert.True(t, ev.HasInherited(FieldLocation))
}

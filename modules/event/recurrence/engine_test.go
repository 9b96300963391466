package recurrence

import (
	"testing"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStarts(t *testing.T, e *Engine, rule entity.RecurrenceRule, start, end entity.ZonedDate, n int) []time.Time {
	t.Helper()
	next, err := e.Iterate(rule, start, end)
	require.NoError(t, err)

	var starts []time.Time
	for len(starts) < n {
		occ, ok := next()
		if !ok {
			break
		}
		starts = append(starts, occ.Start.UTC)
	}
	return starts
}

func TestEngineBiweeklyMonday(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:00:00", "UTC")

	starts := collectStarts(t, e, weeklyRule(2, "MONDAY", nil), start, end, 5)

	want := []string{
		"2025-01-06T09:00:00",
		"2025-01-20T09:00:00",
		"2025-02-03T09:00:00",
		"2025-02-17T09:00:00",
		"2025-03-03T09:00:00",
	}
	require.Len(t, starts, 5)
	for i, w := range want {
		assert.Equal(t, utc(t, w), starts[i])
	}
}

func TestEngineAnchorsOnRuleWeekday(t *testing.T) {
	// Series start is a Wednesday; the first occurrence is the next Monday
	// at the same wall-clock time.
	e := NewEngine()
	start := mustZoned(t, "2025-01-01T10:00:00", "America/New_York")
	end := mustZoned(t, "2025-01-01T11:00:00", "America/New_York")

	starts := collectStarts(t, e, weeklyRule(1, "MONDAY", nil), start, end, 2)

	require.Len(t, starts, 2)
	assert.Equal(t, mustZoned(t, "2025-01-06T10:00:00", "America/New_York").UTC, starts[0])
	assert.Equal(t, mustZoned(t, "2025-01-13T10:00:00", "America/New_York").UTC, starts[1])
}

func TestEngineUntilBound(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:00:00", "UTC")
	until := mustZoned(t, "2025-02-01T00:00:00", "UTC")

	starts := collectStarts(t, e, weeklyRule(2, "MONDAY", &until), start, end, 10)

	// Biweekly Mondays before 2025-02-01: Jan 6 and Jan 20 only.
	require.Len(t, starts, 2)
	assert.Equal(t, utc(t, "2025-01-06T09:00:00"), starts[0])
	assert.Equal(t, utc(t, "2025-01-20T09:00:00"), starts[1])
}

func TestEnginePreservesDuration(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:30:00", "UTC")

	next, err := e.Iterate(weeklyRule(1, "MONDAY", nil), start, end)
	require.NoError(t, err)

	occ, ok := next()
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, occ.End.UTC.Sub(occ.Start.UTC))
}

func TestEngineExpandWindow(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:00:00", "UTC")

	occs, err := e.ExpandWindow(weeklyRule(1, "MONDAY", nil), start, end, utc(t, "2025-02-02T00:00:00"))
	require.NoError(t, err)

	// Mondays with a start at or before Feb 2: Jan 6, 13, 20, 27.
	require.Len(t, occs, 4)
	assert.Equal(t, utc(t, "2025-01-27T09:00:00"), occs[3].Start.UTC)
}

func TestEngineValidateRule(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:00:00", "UTC")
	earlyUntil := mustZoned(t, "2025-01-05T00:00:00", "UTC")

	tests := []struct {
		name     string
		rule     entity.RecurrenceRule
		start    entity.ZonedDate
		end      entity.ZonedDate
		wantCode errors.ErrorCode
	}{
		{
			name:  "valid weekly rule",
			rule:  weeklyRule(1, "MONDAY", nil),
			start: start, end: end,
		},
		{
			name: "unsupported frequency",
			rule: entity.RecurrenceRule{Frequency: "DAILY", Interval: 1, Day: "MONDAY"},
			start: start, end: end,
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "interval too small",
			rule: weeklyRule(0, "MONDAY", nil),
			start: start, end: end,
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "interval too large",
			rule: weeklyRule(5, "MONDAY", nil),
			start: start, end: end,
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "unknown weekday",
			rule: weeklyRule(1, "FUNDAY", nil),
			start: start, end: end,
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "end not after start",
			rule: weeklyRule(1, "MONDAY", nil),
			start: end, end: start,
			wantCode: errors.ErrInvalidInput,
		},
		{
			name: "until before first occurrence",
			rule: weeklyRule(1, "MONDAY", &earlyUntil),
			start: start, end: end,
			wantCode: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aerr := e.ValidateRule(tt.rule, tt.start, tt.end)
			if tt.wantCode == "" {
				assert.Nil(t, aerr)
				return
			}
			require.NotNil(t, aerr)
			assert.Equal(t, tt.wantCode, aerr.Code)
		})
	}
}

func TestEngineIterateIsRestartable(t *testing.T) {
	e := NewEngine()
	start := mustZoned(t, "2025-01-06T09:00:00", "UTC")
	end := mustZoned(t, "2025-01-06T10:00:00", "UTC")
	rule := weeklyRule(1, "MONDAY", nil)

	first := collectStarts(t, e, rule, start, end, 3)
	second := collectStarts(t, e, rule, start, end, 3)
	assert.Equal(t, first, second)
}

package recurrence

import (
	"fmt"
	"time"

	"go-calendar-api/core/constants"
	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/teambition/rrule-go"
)

// Occurrence is one candidate start/end pair produced by rule expansion. Both
// ends carry the master's effective time zone.
type Occurrence struct {
	Start entity.ZonedDate
	End   entity.ZonedDate
}

// Engine expands the constrained weekly rule into occurrence pairs.
// Expansion is a pure function of the rule and bounds: every call builds a
// fresh iterator, so sequences are restartable and no cursor state survives
// between calls.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

var weekdayToRRule = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// ValidateRule checks a rule at creation time. Expansion never re-validates:
// a malformed rule is rejected before it is ever stored.
func (e *Engine) ValidateRule(rule entity.RecurrenceRule, seriesStart, seriesEnd entity.ZonedDate) *errors.AppError {
	if rule.Frequency != entity.FrequencyWeekly {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("unsupported recurrence frequency %q, only WEEKLY is supported", rule.Frequency), nil)
	}
	if rule.Interval < constants.RuleIntervalMin || rule.Interval > constants.RuleIntervalMax {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("recurrence interval must be between %d and %d", constants.RuleIntervalMin, constants.RuleIntervalMax), nil)
	}
	if _, ok := rule.Weekday(); !ok {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("unknown recurrence weekday %q", rule.Day), nil)
	}
	if !seriesEnd.After(seriesStart) {
		return errors.NewAppError(errors.ErrInvalidInput, "event end must be after start", nil)
	}
	if rule.Bounded() {
		first, ok := e.firstOccurrenceStart(rule, seriesStart)
		if !ok || first.After(rule.Until.UTC) {
			return errors.NewAppError(errors.ErrInvalidInput,
				"recurrence rule produces no occurrence before its until bound", nil)
		}
	}
	return nil
}

// Iterate returns a lazy iterator over the rule's occurrences starting at the
// series start. The sequence is infinite when the rule has no until bound;
// the caller stops pulling once past its horizon. Each occurrence preserves
// the duration of the master's own start/end pair.
func (e *Engine) Iterate(rule entity.RecurrenceRule, seriesStart, seriesEnd entity.ZonedDate) (func() (Occurrence, bool), error) {
	wd, ok := rule.Weekday()
	if !ok {
		return nil, fmt.Errorf("unknown recurrence weekday %q", rule.Day)
	}

	// Anchor on the rule weekday: if the master's own start does not fall on
	// it, the first occurrence is the next matching weekday at or after the
	// start, keeping the start's time of day.
	anchor := seriesStart.Local
	for anchor.Weekday() != wd {
		anchor = anchor.AddDate(0, 0, 1)
	}

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  rule.Interval,
		Byweekday: []rrule.Weekday{weekdayToRRule[wd]},
		Dtstart:   anchor,
	}
	if rule.Bounded() {
		opt.Until = rule.Until.UTC
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	duration := seriesEnd.UTC.Sub(seriesStart.UTC)
	tz := seriesStart.TimeZone
	next := r.Iterator()

	return func() (Occurrence, bool) {
		start, ok := next()
		if !ok {
			return Occurrence{}, false
		}
		startZD, err := entity.NewZonedDate(start, tz)
		if err != nil {
			return Occurrence{}, false
		}
		endZD, err := entity.ZonedDateFromUTC(startZD.UTC.Add(duration), tz)
		if err != nil {
			return Occurrence{}, false
		}
		return Occurrence{Start: startZD, End: endZD}, true
	}, nil
}

// ExpandWindow collects the occurrences whose start falls within
// [seriesStart, horizonEnd].
func (e *Engine) ExpandWindow(rule entity.RecurrenceRule, seriesStart, seriesEnd entity.ZonedDate, horizonEnd time.Time) ([]Occurrence, error) {
	next, err := e.Iterate(rule, seriesStart, seriesEnd)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for {
		occ, ok := next()
		if !ok {
			break
		}
		if occ.Start.UTC.After(horizonEnd) {
			break
		}
		out = append(out, occ)
	}
	return out, nil
}

func (e *Engine) firstOccurrenceStart(rule entity.RecurrenceRule, seriesStart entity.ZonedDate) (time.Time, bool) {
	wd, ok := rule.Weekday()
	if !ok {
		return time.Time{}, false
	}
	anchor := seriesStart.Local
	for anchor.Weekday() != wd {
		anchor = anchor.AddDate(0, 0, 1)
	}
	zd, err := entity.NewZonedDate(anchor, seriesStart.TimeZone)
	if err != nil {
		return time.Time{}, false
	}
	return zd.UTC, true
}

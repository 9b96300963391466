package entity

import (
	"strings"
	"time"
)

// Frequency of a recurrence rule. Only weekly recurrence is supported.
type Frequency string

const FrequencyWeekly Frequency = "WEEKLY"

// RecurrenceRule is the constrained rule a MASTER event carries: weekly
// frequency, an interval of 1-4 weeks, exactly one weekday, and an optional
// until bound. Absent until means an unbounded series.
type RecurrenceRule struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	Day       string     `json:"day"`
	Until     *ZonedDate `json:"until,omitempty"`
}

var weekdayNames = map[string]time.Weekday{
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SUNDAY":    time.Sunday,
}

// Weekday resolves the rule's day name to a time.Weekday.
func (r RecurrenceRule) Weekday() (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToUpper(r.Day)]
	return d, ok
}

// Bounded reports whether the rule carries an until bound.
func (r RecurrenceRule) Bounded() bool {
	return r.Until != nil && !r.Until.IsZero()
}

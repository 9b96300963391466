package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RecurrenceType is a closed variant. NONE and MASTER are roots; INSTANCE and
// EXCEPTION always point back to a MASTER via RecurringEventID. Callers can
// only create NONE or MASTER events; INSTANCE rows are system-generated and
// the INSTANCE -> EXCEPTION transition is one-way and system-triggered.
type RecurrenceType string

const (
	RecurrenceNone      RecurrenceType = "NONE"
	RecurrenceMaster    RecurrenceType = "MASTER"
	RecurrenceInstance  RecurrenceType = "INSTANCE"
	RecurrenceException RecurrenceType = "EXCEPTION"
)

type EventStatus string

const (
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCancelled EventStatus = "CANCELLED"
)

type Transparency string

const (
	TransparencyOpaque      Transparency = "OPAQUE"
	TransparencyTransparent Transparency = "TRANSPARENT"
)

// Event is one row of the events table. All four recurrence types share the
// table; rule columns are only populated for MASTER rows and the occurrence
// back-reference columns only for INSTANCE/EXCEPTION rows, which the
// constructors and validation enforce.
//
// Inheritable fields are pointers: nil means the field takes its value from
// the inheritance source and its tag sits in InheritedFields. An authored
// value and a tag for the same field never coexist.
type Event struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	ScheduleID uuid.UUID `db:"schedule_id" json:"schedule_id"`

	Title    *string `db:"title" json:"title,omitempty"`
	TimeZone *string `db:"time_zone" json:"time_zone,omitempty"`

	StartUTC time.Time `db:"start_utc" json:"start_utc"`
	EndUTC   time.Time `db:"end_utc" json:"end_utc"`

	Transparency        Transparency   `db:"transparency" json:"transparency"`
	Location            *string        `db:"location" json:"location,omitempty"`
	Resources           pq.StringArray `db:"resources" json:"resources,omitempty"`
	TotalCapacity       *int           `db:"total_capacity" json:"total_capacity,omitempty"`
	ConferencingDetails *string        `db:"conferencing_details" json:"conferencing_details,omitempty"`
	Notes               *string        `db:"notes" json:"notes,omitempty"`
	ExtendedFields      *string        `db:"extended_fields" json:"extended_fields,omitempty"` // JSONB as string

	Status   EventStatus `db:"status" json:"status"`
	Revision int64       `db:"revision" json:"revision"`

	RecurrenceType RecurrenceType `db:"recurrence_type" json:"recurrence_type"`

	// Rule columns, MASTER only.
	RuleInterval *int       `db:"rule_interval" json:"-"`
	RuleDay      *string    `db:"rule_day" json:"-"`
	RuleUntilUTC *time.Time `db:"rule_until_utc" json:"-"`
	RuleUntilTZ  *string    `db:"rule_until_tz" json:"-"`

	// Occurrence columns, INSTANCE/EXCEPTION only. OccurrenceStart is the
	// UTC instant of the rule slot this occurrence was generated for; it is
	// the stable identity of the occurrence within its series and does not
	// move when an EXCEPTION's actual start is edited.
	RecurringEventID *uuid.UUID `db:"recurring_event_id" json:"recurring_event_id,omitempty"`
	OccurrenceStart  *time.Time `db:"occurrence_start" json:"occurrence_start,omitempty"`

	InheritedFields pq.StringArray `db:"inherited_fields" json:"inherited_fields"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (e *Event) IsMaster() bool {
	return e.RecurrenceType == RecurrenceMaster
}

func (e *Event) IsOccurrence() bool {
	return e.RecurrenceType == RecurrenceInstance || e.RecurrenceType == RecurrenceException
}

// Duration is end minus start of the event's own times.
func (e *Event) Duration() time.Duration {
	return e.EndUTC.Sub(e.StartUTC)
}

// Rule reconstructs the recurrence rule from the rule columns. Only MASTER
// rows carry one.
func (e *Event) Rule() (RecurrenceRule, bool) {
	if !e.IsMaster() || e.RuleInterval == nil || e.RuleDay == nil {
		return RecurrenceRule{}, false
	}
	r := RecurrenceRule{
		Frequency: FrequencyWeekly,
		Interval:  *e.RuleInterval,
		Day:       *e.RuleDay,
	}
	if e.RuleUntilUTC != nil {
		tz := "UTC"
		if e.RuleUntilTZ != nil {
			tz = *e.RuleUntilTZ
		}
		if zd, err := ZonedDateFromUTC(*e.RuleUntilUTC, tz); err == nil {
			r.Until = &zd
		}
	}
	return r, true
}

// SetRule writes the rule columns from a rule value.
func (e *Event) SetRule(r RecurrenceRule) {
	interval := r.Interval
	day := r.Day
	e.RuleInterval = &interval
	e.RuleDay = &day
	if r.Until != nil {
		utc := r.Until.UTC
		tz := r.Until.TimeZone
		e.RuleUntilUTC = &utc
		e.RuleUntilTZ = &tz
	} else {
		e.RuleUntilUTC = nil
		e.RuleUntilTZ = nil
	}
}

// HasInherited reports whether the tag is in the inherited set.
func (e *Event) HasInherited(tag FieldTag) bool {
	for _, t := range e.InheritedFields {
		if t == string(tag) {
			return true
		}
	}
	return false
}

// MarkInherited adds the tag to the inherited set.
func (e *Event) MarkInherited(tag FieldTag) {
	if e.HasInherited(tag) {
		return
	}
	e.InheritedFields = append(e.InheritedFields, string(tag))
}

// ClearInherited removes the tag from the inherited set; this pins whatever
// explicit value the caller set for the field.
func (e *Event) ClearInherited(tag FieldTag) {
	out := e.InheritedFields[:0]
	for _, t := range e.InheritedFields {
		if t != string(tag) {
			out = append(out, t)
		}
	}
	e.InheritedFields = out
}

// Clone returns a deep copy. Planners mutate copies, never stored rows.
func (e *Event) Clone() *Event {
	c := *e
	c.Resources = append(pq.StringArray(nil), e.Resources...)
	c.InheritedFields = append(pq.StringArray(nil), e.InheritedFields...)
	c.Title = clonePtr(e.Title)
	c.TimeZone = clonePtr(e.TimeZone)
	c.Location = clonePtr(e.Location)
	c.TotalCapacity = clonePtr(e.TotalCapacity)
	c.ConferencingDetails = clonePtr(e.ConferencingDetails)
	c.Notes = clonePtr(e.Notes)
	c.ExtendedFields = clonePtr(e.ExtendedFields)
	c.RuleInterval = clonePtr(e.RuleInterval)
	c.RuleDay = clonePtr(e.RuleDay)
	c.RuleUntilUTC = clonePtr(e.RuleUntilUTC)
	c.RuleUntilTZ = clonePtr(e.RuleUntilTZ)
	c.RecurringEventID = clonePtr(e.RecurringEventID)
	c.OccurrenceStart = clonePtr(e.OccurrenceStart)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

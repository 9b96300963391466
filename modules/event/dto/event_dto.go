package dto

import (
	"fmt"
	"time"

	"go-calendar-api/modules/event/entity"
	"go-calendar-api/modules/event/recurrence"
)

// LocalDateTimeLayout is the wire format for local (zone-less) date-times.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// LocalDateLayout is the wire format for plain dates in query ranges.
const LocalDateLayout = "2006-01-02"

// ===================== Request DTOs =====================

// ZonedDateTimeInput is a local date-time plus an optional IANA zone. An
// empty zone falls back to the event's (or schedule's) effective zone.
type ZonedDateTimeInput struct {
	DateTime string `json:"date_time" validate:"required"`
	TimeZone string `json:"time_zone"`
}

// Resolve interprets the input in its own zone, or in fallbackTZ when the
// input has none.
func (z *ZonedDateTimeInput) Resolve(fallbackTZ string) (entity.ZonedDate, error) {
	local, err := time.Parse(LocalDateTimeLayout, z.DateTime)
	if err != nil {
		return entity.ZonedDate{}, fmt.Errorf("invalid date-time %q: %w", z.DateTime, err)
	}
	tz := z.TimeZone
	if tz == "" {
		tz = fallbackTZ
	}
	return entity.NewZonedDate(local, tz)
}

// RecurrenceRuleInput mirrors the wire shape of a rule. Days must contain
// exactly one weekday; the list form exists so a multi-day request fails
// validation rather than silently dropping days.
type RecurrenceRuleInput struct {
	Frequency string              `json:"frequency" validate:"required"`
	Interval  int                 `json:"interval"`
	Days      []string            `json:"days" validate:"required"`
	Until     *ZonedDateTimeInput `json:"until"`
}

// ToRule converts the input to a rule entity, applying the interval default.
func (r *RecurrenceRuleInput) ToRule(fallbackTZ string) (entity.RecurrenceRule, error) {
	if len(r.Days) != 1 {
		return entity.RecurrenceRule{}, fmt.Errorf("recurrence rule must name exactly one weekday, got %d", len(r.Days))
	}
	interval := r.Interval
	if interval == 0 {
		interval = 1
	}
	rule := entity.RecurrenceRule{
		Frequency: entity.Frequency(r.Frequency),
		Interval:  interval,
		Day:       r.Days[0],
	}
	if r.Until != nil {
		until, err := r.Until.Resolve(fallbackTZ)
		if err != nil {
			return entity.RecurrenceRule{}, err
		}
		rule.Until = &until
	}
	return rule, nil
}

// CreateEventRequest creates a standalone event or a MASTER series.
type CreateEventRequest struct {
	ScheduleID     string              `json:"schedule_id" validate:"required"`
	Title          *string             `json:"title"`
	TimeZone       *string             `json:"time_zone"`
	Start          ZonedDateTimeInput  `json:"start" validate:"required"`
	End            ZonedDateTimeInput  `json:"end" validate:"required"`
	Transparency   *string             `json:"transparency"`
	Location       *string             `json:"location"`
	Resources      *[]string           `json:"resources"`
	TotalCapacity  *int                `json:"total_capacity"`
	Conferencing   *string             `json:"conferencing_details"`
	Notes          *string             `json:"notes"`
	ExtendedFields *string             `json:"extended_fields"`
	RecurrenceType string              `json:"recurrence_type"` // NONE (default) or MASTER
	RecurrenceRule *RecurrenceRuleInput `json:"recurrence_rule"`
	Participants   []ParticipantInput  `json:"participants"`
}

// UpdateEventRequest patches an event. Absent fields stay untouched; a
// provided field becomes an explicit override on the target. Updating a rule
// is only valid when the target is a MASTER.
type UpdateEventRequest struct {
	Revision       int64                `json:"revision" validate:"required"`
	Title          *string              `json:"title"`
	TimeZone       *string              `json:"time_zone"`
	Start          *ZonedDateTimeInput  `json:"start"`
	End            *ZonedDateTimeInput  `json:"end"`
	Transparency   *string              `json:"transparency"`
	Location       *string              `json:"location"`
	Resources      *[]string            `json:"resources"`
	TotalCapacity  *int                 `json:"total_capacity"`
	Conferencing   *string              `json:"conferencing_details"`
	Notes          *string              `json:"notes"`
	ExtendedFields *string              `json:"extended_fields"`
	RecurrenceRule *RecurrenceRuleInput `json:"recurrence_rule"`
}

// SplitSeriesRequest splits a MASTER at a future local date-time.
type SplitSeriesRequest struct {
	SplitAt ZonedDateTimeInput `json:"split_at" validate:"required"`
}

type CancelEventRequest struct {
	Revision int64 `json:"revision" validate:"required"`
	// PreserveWithParticipants keeps future occurrences that already have
	// confirmed participants when cancelling a series.
	PreserveWithParticipants bool `json:"preserve_with_participants"`
}

type RestoreDefaultsRequest struct {
	Revision int64    `json:"revision" validate:"required"`
	Fields   []string `json:"fields" validate:"required"`
}

// QueryOccurrencesRequest selects occurrences overlapping [From, To), both
// plain dates interpreted in TimeZone (UTC when empty). TimeZone doubles as
// the display zone for adjusted projections.
type QueryOccurrencesRequest struct {
	ScheduleID       string `query:"schedule_id"`
	SeriesID         string `query:"series_id"`
	From             string `query:"from" validate:"required"`
	To               string `query:"to" validate:"required"`
	TimeZone         string `query:"time_zone"`
	IncludeCancelled bool   `query:"include_cancelled"`
	Limit            int    `query:"limit"`
	Offset           int    `query:"offset"`
}

type ParticipantInput struct {
	UserID    string `json:"user_id" validate:"required"`
	Status    string `json:"status"`
	PartySize int    `json:"party_size"`
}

// UpdateParticipantRequest patches a participant's RSVP. Absent fields stay
// untouched.
type UpdateParticipantRequest struct {
	Status    *string `json:"status"`
	PartySize *int    `json:"party_size"`
}

// ===================== Response DTOs =====================

// ZonedDateTimeDTO carries both the local representation and the UTC instant.
type ZonedDateTimeDTO struct {
	DateTime string    `json:"date_time"`
	TimeZone string    `json:"time_zone"`
	UTC      time.Time `json:"utc"`
}

func toZonedDTO(z entity.ZonedDate) ZonedDateTimeDTO {
	return ZonedDateTimeDTO{
		DateTime: z.Local.Format(LocalDateTimeLayout),
		TimeZone: z.TimeZone,
		UTC:      z.UTC,
	}
}

type RecurrenceRuleDTO struct {
	Frequency string            `json:"frequency"`
	Interval  int               `json:"interval"`
	Days      []string          `json:"days"`
	Until     *ZonedDateTimeDTO `json:"until,omitempty"`
}

type ParticipantResponse struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	PartySize int    `json:"party_size"`
}

// EventResponse is an event with inheritance resolved. AdjustedStart and
// AdjustedEnd are only present when the caller asked for a display zone.
type EventResponse struct {
	ID         string `json:"id"`
	ScheduleID string `json:"schedule_id"`

	Title    string `json:"title"`
	TimeZone string `json:"time_zone"`

	Start         ZonedDateTimeDTO  `json:"start"`
	End           ZonedDateTimeDTO  `json:"end"`
	AdjustedStart *ZonedDateTimeDTO `json:"adjusted_start,omitempty"`
	AdjustedEnd   *ZonedDateTimeDTO `json:"adjusted_end,omitempty"`

	Transparency      string                `json:"transparency"`
	Location          *string               `json:"location,omitempty"`
	Resources         []string              `json:"resources,omitempty"`
	TotalCapacity     *int                  `json:"total_capacity,omitempty"`
	RemainingCapacity *int                  `json:"remaining_capacity,omitempty"`
	Conferencing      *string               `json:"conferencing_details,omitempty"`
	Notes             *string               `json:"notes,omitempty"`
	ExtendedFields    *string               `json:"extended_fields,omitempty"`
	Participants      []ParticipantResponse `json:"participants,omitempty"`

	Status   string `json:"status"`
	Revision int64  `json:"revision"`

	RecurrenceType   string             `json:"recurrence_type"`
	RecurrenceRule   *RecurrenceRuleDTO `json:"recurrence_rule,omitempty"`
	RecurringEventID *string            `json:"recurring_event_id,omitempty"`

	InheritedFields []string `json:"inherited_fields"`

	CreatedAt time.Time `json:"created_at"`
}

// QueryOccurrencesResponse lists materialized occurrences in a range. When
// the requested range reaches past the events-view window end the result may
// be incomplete beyond it, which Complete=false signals.
type QueryOccurrencesResponse struct {
	Items     []EventResponse `json:"items"`
	WindowEnd time.Time       `json:"window_end"`
	Complete  bool            `json:"complete"`
}

type SplitSeriesResponse struct {
	OriginalMaster EventResponse `json:"original_master"`
	NewMaster      EventResponse `json:"new_master"`
}

// ===================== Mapper Functions =====================

// ToEventResponse maps a resolved event. displayTZ may be empty.
func ToEventResponse(eff *recurrence.EffectiveEvent, participants []entity.Participant, displayTZ string) *EventResponse {
	ev := eff.Event

	resp := &EventResponse{
		ID:             ev.ID.String(),
		ScheduleID:     ev.ScheduleID.String(),
		Title:          eff.Title,
		TimeZone:       eff.TimeZone,
		Start:          toZonedDTO(eff.Start),
		End:            toZonedDTO(eff.End),
		Transparency:   string(ev.Transparency),
		Location:       eff.Location,
		Resources:      eff.Resources,
		TotalCapacity:  eff.TotalCapacity,
		Conferencing:   eff.ConferencingDetails,
		Notes:          ev.Notes,
		ExtendedFields: ev.ExtendedFields,
		Status:         string(ev.Status),
		Revision:       ev.Revision,
		RecurrenceType: string(ev.RecurrenceType),
		CreatedAt:      ev.CreatedAt,
	}

	resp.RemainingCapacity = entity.RemainingCapacity(eff.TotalCapacity, participants)
	for _, p := range participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:    p.UserID.String(),
			Status:    string(p.Status),
			PartySize: p.PartySize,
		})
	}

	resp.InheritedFields = make([]string, 0, len(eff.InheritedTags))
	for _, tag := range eff.InheritedTags {
		resp.InheritedFields = append(resp.InheritedFields, string(tag))
	}

	if rule, ok := ev.Rule(); ok {
		ruleDTO := &RecurrenceRuleDTO{
			Frequency: string(rule.Frequency),
			Interval:  rule.Interval,
			Days:      []string{rule.Day},
		}
		if rule.Until != nil {
			until := toZonedDTO(*rule.Until)
			ruleDTO.Until = &until
		}
		resp.RecurrenceRule = ruleDTO
	}
	if ev.RecurringEventID != nil {
		id := ev.RecurringEventID.String()
		resp.RecurringEventID = &id
	}

	if displayTZ != "" {
		if adjStart, err := eff.Start.Adjusted(displayTZ); err == nil {
			dto := toZonedDTO(adjStart)
			resp.AdjustedStart = &dto
		}
		if adjEnd, err := eff.End.Adjusted(displayTZ); err == nil {
			dto := toZonedDTO(adjEnd)
			resp.AdjustedEnd = &dto
		}
	}

	return resp
}

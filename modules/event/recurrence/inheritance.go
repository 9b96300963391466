package recurrence

import (
	"fmt"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"
	scheduleentity "go-calendar-api/modules/schedule/entity"
)

// EffectiveEvent is an event with inheritance resolved: every inheritable
// field carries its effective value, and InheritedTags records which of them
// came from the source rather than the event itself.
type EffectiveEvent struct {
	Event *entity.Event

	Title               string
	TimeZone            string
	Start               entity.ZonedDate
	End                 entity.ZonedDate
	Location            *string
	Resources           []string
	TotalCapacity       *int
	ConferencingDetails *string
	Participants        []entity.Participant

	InheritedTags []entity.FieldTag
}

// sourceValues is the per-tag value set an event resolves against: the
// schedule's defaults for roots, the resolved master for occurrences.
type sourceValues struct {
	title               string
	timeZone            string
	location            *string
	resources           []string
	capacity            *int
	conferencingDetails *string
	participants        []entity.Participant
}

// InheritanceResolver computes effective field values. Resolution is an
// explicit step executed on read: events store nothing for inherited fields,
// so an EXCEPTION's pinned overrides are never disturbed by later master
// edits, while its still-inherited fields always reflect the current source.
type InheritanceResolver struct{}

func NewInheritanceResolver() *InheritanceResolver {
	return &InheritanceResolver{}
}

// ResolveFromSchedule resolves a standalone or MASTER event against its
// schedule's defaults.
func (r *InheritanceResolver) ResolveFromSchedule(ev *entity.Event, sch *scheduleentity.Schedule) (*EffectiveEvent, *errors.AppError) {
	if ev.IsOccurrence() {
		return nil, errors.NewAppError(errors.ErrConsistencyFault,
			"occurrence resolved against a schedule instead of its master", nil)
	}
	return r.resolve(ev, sourceValues{
		title:               sch.DefaultTitle,
		timeZone:            sch.TimeZone,
		location:            sch.DefaultLocation,
		capacity:            sch.DefaultCapacity,
		conferencingDetails: sch.DefaultConferencingDetails,
	})
}

// ResolveFromMaster resolves an INSTANCE or EXCEPTION against its master,
// which must itself already be resolved against the schedule.
func (r *InheritanceResolver) ResolveFromMaster(ev *entity.Event, master *EffectiveEvent) (*EffectiveEvent, *errors.AppError) {
	if !ev.IsOccurrence() {
		return nil, errors.NewAppError(errors.ErrConsistencyFault,
			"non-occurrence resolved against a master", nil)
	}
	if ev.RecurringEventID == nil || *ev.RecurringEventID != master.Event.ID {
		return nil, errors.NewAppError(errors.ErrConsistencyFault,
			fmt.Sprintf("occurrence %s does not belong to master %s", ev.ID, master.Event.ID), nil)
	}
	return r.resolve(ev, sourceValues{
		title:               master.Title,
		timeZone:            master.TimeZone,
		location:            master.Location,
		resources:           master.Resources,
		capacity:            master.TotalCapacity,
		conferencingDetails: master.ConferencingDetails,
		participants:        master.Participants,
	})
}

func (r *InheritanceResolver) resolve(ev *entity.Event, src sourceValues) (*EffectiveEvent, *errors.AppError) {
	eff := &EffectiveEvent{Event: ev}

	if ev.Title != nil {
		eff.Title = *ev.Title
	} else {
		eff.Title = src.title
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldTitle)
	}

	if ev.TimeZone != nil {
		eff.TimeZone = *ev.TimeZone
	} else {
		eff.TimeZone = src.timeZone
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldTimeZone)
	}

	// TIME is never substituted from the source: a root's times are its own
	// and an occurrence's times belong to its rule slot.
	start, err := entity.ZonedDateFromUTC(ev.StartUTC, eff.TimeZone)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault, "event carries an unresolvable time zone", err)
	}
	end, err := entity.ZonedDateFromUTC(ev.EndUTC, eff.TimeZone)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault, "event carries an unresolvable time zone", err)
	}
	eff.Start = start
	eff.End = end

	if ev.Location != nil {
		eff.Location = ev.Location
	} else {
		eff.Location = src.location
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldLocation)
	}

	if ev.Resources != nil {
		eff.Resources = ev.Resources
	} else {
		eff.Resources = src.resources
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldResources)
	}

	if ev.TotalCapacity != nil {
		eff.TotalCapacity = ev.TotalCapacity
	} else {
		eff.TotalCapacity = src.capacity
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldCapacity)
	}

	if ev.ConferencingDetails != nil {
		eff.ConferencingDetails = ev.ConferencingDetails
	} else {
		eff.ConferencingDetails = src.conferencingDetails
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldConferencingDetails)
	}

	if ev.HasInherited(entity.FieldParticipants) {
		eff.Participants = src.participants
		eff.InheritedTags = append(eff.InheritedTags, entity.FieldParticipants)
	}

	return eff, nil
}

// RestoreDefaults clears explicit overrides for the named tags and re-marks
// them inherited. This is the only path back to inheritance once a field has
// been overridden. For TIME on an occurrence the start/end are recomputed
// from the occurrence's rule slot and the master's current duration, not
// copied from the master's own start/end.
func (r *InheritanceResolver) RestoreDefaults(ev *entity.Event, master *entity.Event, tags []entity.FieldTag) *errors.AppError {
	for _, tag := range tags {
		switch tag {
		case entity.FieldTitle:
			ev.Title = nil
		case entity.FieldTimeZone:
			ev.TimeZone = nil
		case entity.FieldLocation:
			ev.Location = nil
		case entity.FieldResources:
			ev.Resources = nil
		case entity.FieldCapacity:
			ev.TotalCapacity = nil
		case entity.FieldConferencingDetails:
			ev.ConferencingDetails = nil
		case entity.FieldParticipants:
			// Participant rows are removed by the caller; the tag flip is
			// recorded here.
		case entity.FieldTime:
			if !ev.IsOccurrence() {
				return errors.NewAppError(errors.ErrInvalidInput,
					"TIME can only be restored on an occurrence", nil)
			}
			if master == nil || ev.OccurrenceStart == nil {
				return errors.NewAppError(errors.ErrConsistencyFault,
					"occurrence is missing its master or rule slot", nil)
			}
			ev.StartUTC = *ev.OccurrenceStart
			ev.EndUTC = ev.StartUTC.Add(master.Duration())
			// TIME stays out of the inherited set: slot times are
			// occurrence-specific, not source-resolved.
			continue
		default:
			return errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("unknown field tag %q", tag), nil)
		}
		ev.MarkInherited(tag)
	}
	return nil
}

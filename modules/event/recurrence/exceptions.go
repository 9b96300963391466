package recurrence

import (
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventPatch is the set of field changes carried by an update call. Nil
// means "not provided"; a provided field becomes an explicit override on the
// target and leaves the inherited set.
type EventPatch struct {
	Title               *string
	TimeZone            *string
	Start               *entity.ZonedDate
	End                 *entity.ZonedDate
	Transparency        *entity.Transparency
	Location            *string
	Resources           *[]string
	TotalCapacity       *int
	ConferencingDetails *string
	Notes               *string
	ExtendedFields      *string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.TimeZone == nil && p.Start == nil && p.End == nil &&
		p.Transparency == nil && p.Location == nil && p.Resources == nil &&
		p.TotalCapacity == nil && p.ConferencingDetails == nil && p.Notes == nil &&
		p.ExtendedFields == nil
}

// MasterCascade is what a master update does to its existing occurrences.
// Future occurrences need no writes: their inherited fields resolve
// dynamically against the updated master on read. Past occurrences are
// frozen instead, so history keeps the values it had when it happened.
type MasterCascade struct {
	// FreezePast holds past occurrences whose still-inherited changed
	// fields were pinned to the pre-update source values.
	FreezePast []*entity.Event

	// TimeChanged is set when the master's start/end or rule changed, which
	// requires rematerializing the series' future instances.
	TimeChanged bool
}

// ExceptionTracker governs the one-way INSTANCE -> EXCEPTION transition and
// the bookkeeping between an exception's pinned overrides and the values the
// rule would otherwise supply.
type ExceptionTracker struct{}

func NewExceptionTracker() *ExceptionTracker {
	return &ExceptionTracker{}
}

// ApplyPatch writes the patch's fields onto the event as explicit overrides
// and returns the inheritable tags that changed. A targeted INSTANCE
// transitions to EXCEPTION; the transition never runs the other way.
func (t *ExceptionTracker) ApplyPatch(ev *entity.Event, patch EventPatch) ([]entity.FieldTag, *errors.AppError) {
	var changed []entity.FieldTag

	if patch.Title != nil {
		ev.Title = patch.Title
		ev.ClearInherited(entity.FieldTitle)
		changed = append(changed, entity.FieldTitle)
	}
	if patch.TimeZone != nil {
		if _, err := entity.ZonedDateFromUTC(ev.StartUTC, *patch.TimeZone); err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown time zone", err)
		}
		ev.TimeZone = patch.TimeZone
		ev.ClearInherited(entity.FieldTimeZone)
		changed = append(changed, entity.FieldTimeZone)
	}
	if patch.Start != nil || patch.End != nil {
		start := ev.StartUTC
		end := ev.EndUTC
		if patch.Start != nil {
			start = patch.Start.UTC
		}
		if patch.End != nil {
			end = patch.End.UTC
		}
		if !end.After(start) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "event end must be after start", nil)
		}
		ev.StartUTC = start
		ev.EndUTC = end
		changed = append(changed, entity.FieldTime)
	}
	if patch.Transparency != nil {
		ev.Transparency = *patch.Transparency
	}
	if patch.Location != nil {
		ev.Location = patch.Location
		ev.ClearInherited(entity.FieldLocation)
		changed = append(changed, entity.FieldLocation)
	}
	if patch.Resources != nil {
		ev.Resources = pq.StringArray(*patch.Resources)
		ev.ClearInherited(entity.FieldResources)
		changed = append(changed, entity.FieldResources)
	}
	if patch.TotalCapacity != nil {
		ev.TotalCapacity = patch.TotalCapacity
		ev.ClearInherited(entity.FieldCapacity)
		changed = append(changed, entity.FieldCapacity)
	}
	if patch.ConferencingDetails != nil {
		ev.ConferencingDetails = patch.ConferencingDetails
		ev.ClearInherited(entity.FieldConferencingDetails)
		changed = append(changed, entity.FieldConferencingDetails)
	}
	if patch.Notes != nil {
		ev.Notes = patch.Notes
	}
	if patch.ExtendedFields != nil {
		ev.ExtendedFields = patch.ExtendedFields
	}

	if ev.RecurrenceType == entity.RecurrenceInstance && !patch.Empty() {
		ev.RecurrenceType = entity.RecurrenceException
	}

	return changed, nil
}

// PlanMasterCascade computes the occurrence-side effects of a master update.
// oldMaster carries the master's pre-update effective values.
//
// Rules per occurrence:
//   - past (start before now): frozen. Every changed tag the occurrence
//     still inherits gets the old effective value written in and the tag
//     cleared, so later reads resolve to what history looked like;
//   - future INSTANCE: nothing stored, the new values flow through
//     resolution (a time/rule change is handled by rematerialization);
//   - future EXCEPTION: nothing stored either. Still-inherited tags pick
//     up the new values on read, pinned overrides are untouched.
func (t *ExceptionTracker) PlanMasterCascade(oldMaster *EffectiveEvent, occurrences []*entity.Event, changed []entity.FieldTag, timeChanged bool, now time.Time) MasterCascade {
	cascade := MasterCascade{TimeChanged: timeChanged}

	for _, occ := range occurrences {
		if !occ.StartUTC.Before(now) {
			continue
		}
		frozen := false
		cp := occ.Clone()
		for _, tag := range changed {
			if !cp.HasInherited(tag) {
				continue
			}
			switch tag {
			case entity.FieldTitle:
				title := oldMaster.Title
				cp.Title = &title
			case entity.FieldTimeZone:
				tz := oldMaster.TimeZone
				cp.TimeZone = &tz
			case entity.FieldLocation:
				cp.Location = clonePtrValue(oldMaster.Location)
			case entity.FieldResources:
				cp.Resources = pq.StringArray(append([]string(nil), oldMaster.Resources...))
			case entity.FieldCapacity:
				cp.TotalCapacity = clonePtrValue(oldMaster.TotalCapacity)
			case entity.FieldConferencingDetails:
				cp.ConferencingDetails = clonePtrValue(oldMaster.ConferencingDetails)
			case entity.FieldTime, entity.FieldParticipants:
				// Slot times are already stored per occurrence and
				// participant rows are copied by the caller when needed.
				continue
			}
			cp.ClearInherited(tag)
			frozen = true
		}
		if frozen {
			cascade.FreezePast = append(cascade.FreezePast, cp)
		}
	}

	return cascade
}

// CancelCascadeIDs returns the occurrences a series cancellation reaches:
// future and not already cancelled. When preserveWithParticipants is set,
// occurrences with confirmed participants are kept.
func (t *ExceptionTracker) CancelCascadeIDs(occurrences []*entity.Event, participants map[uuid.UUID][]entity.Participant, now time.Time, preserveWithParticipants bool) []uuid.UUID {
	var ids []uuid.UUID
	for _, occ := range occurrences {
		if occ.Status == entity.EventStatusCancelled {
			continue
		}
		if occ.StartUTC.Before(now) {
			continue
		}
		if preserveWithParticipants && hasConfirmed(participants[occ.ID]) {
			continue
		}
		ids = append(ids, occ.ID)
	}
	return ids
}

func hasConfirmed(parts []entity.Participant) bool {
	for _, p := range parts {
		if p.Status == entity.ParticipantStatusConfirmed {
			return true
		}
	}
	return false
}

func clonePtrValue[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

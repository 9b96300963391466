package recurrence

import (
	"fmt"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MaterializationPlan is the set of row changes that brings a series' stored
// occurrences in line with its rule inside the window. Applying an empty
// plan is a no-op, which is what re-running against an unchanged master and
// window produces.
type MaterializationPlan struct {
	ToInsert []*entity.Event

	// ToUpdate holds existing INSTANCEs whose slot times drifted from the
	// rule (master duration or start time edited).
	ToUpdate []*entity.Event

	// ToDeleteIDs holds future INSTANCEs whose slot the rule no longer
	// produces. EXCEPTIONs are never deleted here: an exception whose slot
	// disappeared is orphaned but retained.
	ToDeleteIDs []uuid.UUID
}

func (p *MaterializationPlan) Empty() bool {
	return len(p.ToInsert) == 0 && len(p.ToUpdate) == 0 && len(p.ToDeleteIDs) == 0
}

// Materializer derives the concrete INSTANCE rows a master's rule
// implies within the events-view window. Planning is pure; the repository
// applies plans, and the occurrence unique index keeps application
// idempotent under retries.
type Materializer struct {
	engine *Engine
}

func NewMaterializer(engine *Engine) *Materializer {
	return &Materializer{engine: engine}
}

// Plan expands the master's rule over [master start, windowEnd] and diffs the
// result against the series' existing occurrence rows. effectiveTZ is the
// master's resolved time zone (its own, or the schedule's).
func (m *Materializer) Plan(master *entity.Event, effectiveTZ string, existing []*entity.Event, windowEnd, now time.Time) (*MaterializationPlan, *errors.AppError) {
	rule, ok := master.Rule()
	if !ok {
		return nil, errors.NewAppError(errors.ErrConsistencyFault,
			fmt.Sprintf("event %s is not a master with a rule", master.ID), nil)
	}

	seriesStart, err := entity.ZonedDateFromUTC(master.StartUTC, effectiveTZ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault, "master carries an unresolvable time zone", err)
	}
	seriesEnd, err := entity.ZonedDateFromUTC(master.EndUTC, effectiveTZ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault, "master carries an unresolvable time zone", err)
	}

	generated, genErr := m.engine.ExpandWindow(rule, seriesStart, seriesEnd, windowEnd)
	if genErr != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "rule expansion failed", genErr)
	}

	bySlot := make(map[int64]*entity.Event, len(existing))
	for _, occ := range existing {
		if occ.RecurringEventID == nil || *occ.RecurringEventID != master.ID {
			return nil, errors.NewAppError(errors.ErrConsistencyFault,
				fmt.Sprintf("occurrence %s does not resolve to master %s", occ.ID, master.ID), nil)
		}
		if occ.OccurrenceStart == nil {
			return nil, errors.NewAppError(errors.ErrConsistencyFault,
				fmt.Sprintf("occurrence %s has no rule slot", occ.ID), nil)
		}
		bySlot[occ.OccurrenceStart.Unix()] = occ
	}

	plan := &MaterializationPlan{}
	generatedSlots := make(map[int64]struct{}, len(generated))

	for _, occ := range generated {
		slot := occ.Start.UTC.Unix()
		generatedSlots[slot] = struct{}{}

		existing, found := bySlot[slot]
		if !found {
			plan.ToInsert = append(plan.ToInsert, m.newInstance(master, occ))
			continue
		}

		// EXCEPTIONs are left byte-identical; INSTANCEs follow the rule, so
		// a drifted duration or start is realigned.
		if existing.RecurrenceType != entity.RecurrenceInstance {
			continue
		}
		if !existing.StartUTC.Equal(occ.Start.UTC) || !existing.EndUTC.Equal(occ.End.UTC) {
			cp := existing.Clone()
			cp.StartUTC = occ.Start.UTC
			cp.EndUTC = occ.End.UTC
			plan.ToUpdate = append(plan.ToUpdate, cp)
		}
	}

	// Future INSTANCEs for slots the rule no longer produces are discarded.
	// Past rows are history and EXCEPTIONs are orphaned but retained.
	for slot, occ := range bySlot {
		if _, stillGenerated := generatedSlots[slot]; stillGenerated {
			continue
		}
		if occ.RecurrenceType != entity.RecurrenceInstance {
			continue
		}
		if occ.StartUTC.Before(now) {
			continue
		}
		if occ.OccurrenceStart.After(windowEnd) {
			// Outside the window nothing is guaranteed either way.
			continue
		}
		plan.ToDeleteIDs = append(plan.ToDeleteIDs, occ.ID)
	}

	return plan, nil
}

// newInstance builds a fully inheriting INSTANCE for one rule slot. Only the
// slot's start/end are its own; every inheritable field resolves from the
// master on read.
func (m *Materializer) newInstance(master *entity.Event, occ Occurrence) *entity.Event {
	slot := occ.Start.UTC
	masterID := master.ID
	inherited := make(pq.StringArray, 0, len(entity.InheritableTags))
	for _, tag := range entity.OccurrenceInheritedTags() {
		inherited = append(inherited, string(tag))
	}
	return &entity.Event{
		ID:               uuid.New(),
		TenantID:         master.TenantID,
		ScheduleID:       master.ScheduleID,
		StartUTC:         occ.Start.UTC,
		EndUTC:           occ.End.UTC,
		Transparency:     master.Transparency,
		Status:           entity.EventStatusActive,
		Revision:         1,
		RecurrenceType:   entity.RecurrenceInstance,
		RecurringEventID: &masterID,
		OccurrenceStart:  &slot,
		InheritedFields:  inherited,
	}
}

package recurrence

import (
	"sort"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/modules/event/entity"

	"github.com/google/uuid"
)

// SplitPlan is the atomic outcome of splitting a series: the original master
// keeps everything strictly before the boundary under a shortened until, and
// a new master takes over from the first occurrence at or after it. The
// repository applies the whole plan in one transaction; a half-applied split
// must never be observable.
type SplitPlan struct {
	MasterID         uuid.UUID
	OriginalUntil    entity.ZonedDate
	NewMaster        *entity.Event
	ReparentIDs      []uuid.UUID
	ExpectedRevision int64
}

// SplitOperator restructures one MASTER series into two independent series
// at a caller-chosen future boundary.
type SplitOperator struct{}

func NewSplitOperator() *SplitOperator {
	return &SplitOperator{}
}

// PlanSplit validates the boundary and computes the plan.
//
// lastBeforeSplit is the latest occurrence starting before the boundary; if
// it straddles the boundary it stays with the original series, whose until
// becomes its end even though that is later than the requested instant. The
// split is rejected unless there is a next occurrence at/after the boundary
// and at least one more after that: a split affecting zero or one terminal
// occurrence restructures nothing.
func (s *SplitOperator) PlanSplit(master *entity.Event, effectiveTZ string, occurrences []*entity.Event, splitAt entity.ZonedDate, now time.Time) (*SplitPlan, *errors.AppError) {
	rule, ok := master.Rule()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "only a recurring series can be split", nil)
	}
	if !splitAt.UTC.After(now) {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed, "split point must be in the future", nil)
	}

	occs := make([]*entity.Event, len(occurrences))
	copy(occs, occurrences)
	sort.Slice(occs, func(i, j int) bool {
		return occs[i].StartUTC.Before(occs[j].StartUTC)
	})

	var lastBefore *entity.Event
	var tail []*entity.Event
	for _, occ := range occs {
		if occ.StartUTC.Before(splitAt.UTC) {
			lastBefore = occ
			continue
		}
		tail = append(tail, occ)
	}

	if lastBefore == nil {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed,
			"split point precedes the first occurrence of the series", nil)
	}
	if len(tail) < 2 {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed,
			"no occurrence follows the one at the split point", nil)
	}

	next := tail[0]

	originalUntil, err := entity.ZonedDateFromUTC(lastBefore.EndUTC, effectiveTZ)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrConsistencyFault, "master carries an unresolvable time zone", err)
	}

	// The new master's pattern anchors on the next occurrence's rule slot,
	// not its possibly-moved actual times, so an EXCEPTION at the boundary
	// does not skew the series.
	newStart := next.StartUTC
	if next.OccurrenceStart != nil {
		newStart = *next.OccurrenceStart
	}

	newMaster := master.Clone()
	newMaster.ID = uuid.New()
	newMaster.StartUTC = newStart
	newMaster.EndUTC = newStart.Add(master.Duration())
	newMaster.Revision = 1
	newMaster.SetRule(entity.RecurrenceRule{
		Frequency: rule.Frequency,
		Interval:  rule.Interval,
		Day:       rule.Day,
		Until:     rule.Until,
	})

	reparent := make([]uuid.UUID, 0, len(tail))
	for _, occ := range tail {
		reparent = append(reparent, occ.ID)
	}

	return &SplitPlan{
		MasterID:         master.ID,
		OriginalUntil:    originalUntil,
		NewMaster:        newMaster,
		ReparentIDs:      reparent,
		ExpectedRevision: master.Revision,
	}, nil
}

package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuerySpec is an immutable description of an occurrence query: filters,
// ordering and paging are fixed up front and handed to the executor as one
// value, instead of being accumulated on mutable chained state.
type QuerySpec struct {
	TenantID         uuid.UUID
	ScheduleID       *uuid.UUID
	RecurringEventID *uuid.UUID

	// FromUTC/ToUTC select events overlapping [FromUTC, ToUTC).
	FromUTC time.Time
	ToUTC   time.Time

	IncludeCancelled bool
	Limit            int
	Offset           int
}

// WithLimit returns a copy with paging applied; the receiver is unchanged.
func (q QuerySpec) WithLimit(limit, offset int) QuerySpec {
	q.Limit = limit
	q.Offset = offset
	return q
}

// build renders the spec into a WHERE clause and argument list.
func (q QuerySpec) build() (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{q.TenantID}

	if q.ScheduleID != nil {
		args = append(args, *q.ScheduleID)
		conds = append(conds, fmt.Sprintf("schedule_id = $%d", len(args)))
	}
	if q.RecurringEventID != nil {
		args = append(args, *q.RecurringEventID)
		conds = append(conds, fmt.Sprintf("recurring_event_id = $%d", len(args)))
	}
	if !q.FromUTC.IsZero() {
		args = append(args, q.FromUTC)
		conds = append(conds, fmt.Sprintf("end_utc > $%d", len(args)))
	}
	if !q.ToUTC.IsZero() {
		args = append(args, q.ToUTC)
		conds = append(conds, fmt.Sprintf("start_utc < $%d", len(args)))
	}
	if !q.IncludeCancelled {
		conds = append(conds, "status != 'CANCELLED'")
	}
	// Masters are rule definitions, not occurrences.
	conds = append(conds, "recurrence_type != 'MASTER'")

	sql := "WHERE " + strings.Join(conds, " AND ") + " ORDER BY start_utc ASC"
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", q.Offset)
	}
	return sql, args
}

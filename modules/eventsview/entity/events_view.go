package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventsView is a tenant's rolling materialization horizon: occurrences are
// guaranteed to exist as rows up to EndDate and no further. The horizon only
// ever moves forward.
type EventsView struct {
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

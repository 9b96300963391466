package entity

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "ACTIVE"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED" // terminal
)

// Schedule owns events and is the inheritance root for standalone and MASTER
// events: its defaults supply any field those events do not author themselves.
type Schedule struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name     string    `db:"name" json:"name"`

	DefaultTitle               string  `db:"default_title" json:"default_title"`
	DefaultLocation            *string `db:"default_location" json:"default_location,omitempty"`
	DefaultCapacity            *int    `db:"default_capacity" json:"default_capacity,omitempty"`
	DefaultConferencingDetails *string `db:"default_conferencing_details" json:"default_conferencing_details,omitempty"`

	// TimeZone is the IANA zone events fall back to when they do not set
	// their own.
	TimeZone string `db:"time_zone" json:"time_zone"`

	Status   ScheduleStatus `db:"status" json:"status"`
	Revision int64          `db:"revision" json:"revision"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

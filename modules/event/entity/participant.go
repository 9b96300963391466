package entity

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantStatus string

const (
	ParticipantStatusPending   ParticipantStatus = "PENDING"
	ParticipantStatusConfirmed ParticipantStatus = "CONFIRMED"
	ParticipantStatusDeclined  ParticipantStatus = "DECLINED"
)

// Participant is one row of event_participants.
type Participant struct {
	EventID   uuid.UUID         `db:"event_id" json:"event_id"`
	UserID    uuid.UUID         `db:"user_id" json:"user_id"`
	Status    ParticipantStatus `db:"status" json:"status"`
	PartySize int               `db:"party_size" json:"party_size"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// RemainingCapacity derives the free capacity: total minus the confirmed
// party sizes, clamped at zero. Nil total means capacity is not tracked and
// the result is undefined (nil).
func RemainingCapacity(total *int, participants []Participant) *int {
	if total == nil {
		return nil
	}
	confirmed := 0
	for _, p := range participants {
		if p.Status == ParticipantStatusConfirmed {
			confirmed += p.PartySize
		}
	}
	remaining := *total - confirmed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

package dto

import (
	"time"

	"go-calendar-api/modules/eventsview/entity"
)

// ===================== Request DTOs =====================

// ExtendViewRequest moves the tenant's window end forward to NewEndDate
// (YYYY-MM-DD, interpreted as end of day UTC). The window never moves back.
type ExtendViewRequest struct {
	NewEndDate string `json:"new_end_date" validate:"required"`
}

// ===================== Response DTOs =====================

type EventsViewResponse struct {
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===================== Mapper Functions =====================

func ToEventsViewResponse(v *entity.EventsView) *EventsViewResponse {
	return &EventsViewResponse{
		EndDate:   v.EndDate,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

package dto

import (
	"time"

	"go-calendar-api/modules/schedule/entity"
)

// ===================== Request DTOs =====================

type CreateScheduleRequest struct {
	Name                string  `json:"name" validate:"required"`
	DefaultTitle        string  `json:"default_title" validate:"required"`
	DefaultLocation     *string `json:"default_location"`
	DefaultCapacity     *int    `json:"default_capacity"`
	DefaultConferencing *string `json:"default_conferencing_details"`
	TimeZone            string  `json:"time_zone" validate:"required"`
}

// UpdateScheduleRequest patches schedule defaults. Events that inherit a
// changed default pick the new value up on their next read.
type UpdateScheduleRequest struct {
	Revision            int64   `json:"revision" validate:"required"`
	Name                *string `json:"name"`
	DefaultTitle        *string `json:"default_title"`
	DefaultLocation     *string `json:"default_location"`
	DefaultCapacity     *int    `json:"default_capacity"`
	DefaultConferencing *string `json:"default_conferencing_details"`
	TimeZone            *string `json:"time_zone"`
}

type CancelScheduleRequest struct {
	Revision int64 `json:"revision" validate:"required"`
}

// ===================== Response DTOs =====================

type ScheduleResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	DefaultTitle        string  `json:"default_title"`
	DefaultLocation     *string `json:"default_location,omitempty"`
	DefaultCapacity     *int    `json:"default_capacity,omitempty"`
	DefaultConferencing *string `json:"default_conferencing_details,omitempty"`
	TimeZone            string  `json:"time_zone"`
	Status              string  `json:"status"`
	Revision            int64   `json:"revision"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===================== Mapper Functions =====================

func ToScheduleResponse(s *entity.Schedule) *ScheduleResponse {
	return &ScheduleResponse{
		ID:                  s.ID.String(),
		Name:                s.Name,
		DefaultTitle:        s.DefaultTitle,
		DefaultLocation:     s.DefaultLocation,
		DefaultCapacity:     s.DefaultCapacity,
		DefaultConferencing: s.DefaultConferencingDetails,
		TimeZone:            s.TimeZone,
		Status:              string(s.Status),
		Revision:            s.Revision,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

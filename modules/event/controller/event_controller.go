package controller

import (
	"go-calendar-api/core/controller"
	"go-calendar-api/core/errors"
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/event/dto"
	"go-calendar-api/modules/event/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// EventController handles event HTTP requests
type EventController struct {
	controller.BaseController
	EventService service.EventServiceInterface
}

// NewEventController creates a new controller
func NewEventController(svc service.EventServiceInterface) *EventController {
	return &EventController{
		BaseController: controller.NewBaseController(),
		EventService:   svc,
	}
}

// CreateEvent handles POST /events
// @Summary Create an event
// @Description Create a standalone event or a recurring series master
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateEventRequest true "Event payload"
// @Success 200 {object} dto.EventResponse
// @Failure 400 {object} errors.AppError
// @Failure 401 {object} errors.AppError
// @Router /private/events [post]
func (c *EventController) CreateEvent(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.CreateEvent(ctx.Request().Context(), tenantID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Event created successfully")
}

// GetEvent handles GET /events/:id
// @Summary Get an event
// @Description Get one event with inheritance resolved; time_zone adds adjusted projections
// @Tags Event
// @Security BearerAuth
// @Produce json
// @Param id path string true "Event ID"
// @Param time_zone query string false "Display time zone"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} errors.AppError
// @Router /private/events/{id} [get]
func (c *EventController) GetEvent(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	result, appErr := c.EventService.GetEvent(ctx.Request().Context(), tenantID, eventID, ctx.QueryParam("time_zone"))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// QueryOccurrences handles GET /events
// @Summary Query occurrences
// @Description List occurrences overlapping a date range, inheritance resolved
// @Tags Event
// @Security BearerAuth
// @Produce json
// @Param from query string true "Range start date (YYYY-MM-DD)"
// @Param to query string true "Range end date (YYYY-MM-DD)"
// @Param schedule_id query string false "Filter by schedule"
// @Param series_id query string false "Filter by series master"
// @Param time_zone query string false "Range and display time zone"
// @Success 200 {object} dto.QueryOccurrencesResponse
// @Failure 400 {object} errors.AppError
// @Router /private/events [get]
func (c *EventController) QueryOccurrences(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.QueryOccurrencesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid query parameters")
	}

	result, appErr := c.EventService.QueryOccurrences(ctx.Request().Context(), tenantID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// UpdateEvent handles PUT /events/:id
// @Summary Update an event
// @Description Patch an event; provided fields become explicit overrides
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body dto.UpdateEventRequest true "Patch payload with expected revision"
// @Success 200 {object} dto.EventResponse
// @Failure 409 {object} errors.AppError
// @Router /private/events/{id} [put]
func (c *EventController) UpdateEvent(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	var req dto.UpdateEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.UpdateEvent(ctx.Request().Context(), tenantID, eventID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Event updated successfully")
}

// CancelEvent handles DELETE /events/:id
// @Summary Cancel an event
// @Description Cancel an event; cancelling a master cascades to future occurrences
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body dto.CancelEventRequest true "Expected revision"
// @Success 200 {object} controller.SuccessResponse
// @Failure 409 {object} errors.AppError
// @Router /private/events/{id} [delete]
func (c *EventController) CancelEvent(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	var req dto.CancelEventRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	if appErr := c.EventService.CancelEvent(ctx.Request().Context(), tenantID, eventID, &req); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Event cancelled successfully")
}

// SplitSeries handles POST /events/:id/split
// @Summary Split a series
// @Description Split a recurring series into two at a future point
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Series master ID"
// @Param request body dto.SplitSeriesRequest true "Split point"
// @Success 200 {object} dto.SplitSeriesResponse
// @Failure 412 {object} errors.AppError
// @Router /private/events/{id}/split [post]
func (c *EventController) SplitSeries(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	var req dto.SplitSeriesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.SplitSeries(ctx.Request().Context(), tenantID, eventID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Series split successfully")
}

// RestoreDefaults handles POST /events/:id/restore-defaults
// @Summary Restore inherited defaults
// @Description Clear explicit overrides on the named fields and re-inherit them
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body dto.RestoreDefaultsRequest true "Fields to restore"
// @Success 200 {object} dto.EventResponse
// @Failure 400 {object} errors.AppError
// @Router /private/events/{id}/restore-defaults [post]
func (c *EventController) RestoreDefaults(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	var req dto.RestoreDefaultsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.RestoreDefaults(ctx.Request().Context(), tenantID, eventID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Defaults restored successfully")
}

// AddParticipant handles POST /events/:id/participants
// @Summary Add a participant
// @Description Add or update a participant on an event
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body dto.ParticipantInput true "Participant"
// @Success 200 {object} dto.EventResponse
// @Failure 409 {object} errors.AppError
// @Router /private/events/{id}/participants [post]
func (c *EventController) AddParticipant(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	var req dto.ParticipantInput
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.AddParticipant(ctx.Request().Context(), tenantID, eventID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Participant added successfully")
}

// UpdateParticipant handles PUT /events/:id/participants/:userId
// @Summary Update a participant
// @Description Change a participant's status or party size
// @Tags Event
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param userId path string true "User ID"
// @Param request body dto.UpdateParticipantRequest true "Participant patch"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/events/{id}/participants/{userId} [put]
func (c *EventController) UpdateParticipant(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	userID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid user ID")
	}

	var req dto.UpdateParticipantRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventService.UpdateParticipant(ctx.Request().Context(), tenantID, eventID, userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Participant updated successfully")
}

// RemoveParticipant handles DELETE /events/:id/participants/:userId
// @Summary Remove a participant
// @Tags Event
// @Security BearerAuth
// @Produce json
// @Param id path string true "Event ID"
// @Param userId path string true "User ID"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} errors.AppError
// @Router /private/events/{id}/participants/{userId} [delete]
func (c *EventController) RemoveParticipant(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event ID")
	}

	userID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid user ID")
	}

	result, appErr := c.EventService.RemoveParticipant(ctx.Request().Context(), tenantID, eventID, userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Participant removed successfully")
}

package controller

import (
	"go-calendar-api/core/controller"
	"go-calendar-api/core/errors"
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/schedule/dto"
	"go-calendar-api/modules/schedule/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ScheduleController handles schedule HTTP requests
type ScheduleController struct {
	controller.BaseController
	ScheduleService service.ScheduleServiceInterface
}

// NewScheduleController creates a new controller
func NewScheduleController(svc service.ScheduleServiceInterface) *ScheduleController {
	return &ScheduleController{
		BaseController:  controller.NewBaseController(),
		ScheduleService: svc,
	}
}

// CreateSchedule handles POST /schedules
// @Summary Create a schedule
// @Description Create a schedule with defaults its events inherit
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateScheduleRequest true "Schedule payload"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 400 {object} errors.AppError
// @Router /private/schedules [post]
func (c *ScheduleController) CreateSchedule(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateScheduleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.ScheduleService.CreateSchedule(ctx.Request().Context(), tenantID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Schedule created successfully")
}

// GetSchedule handles GET /schedules/:id
// @Summary Get a schedule
// @Tags Schedule
// @Security BearerAuth
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 404 {object} errors.AppError
// @Router /private/schedules/{id} [get]
func (c *ScheduleController) GetSchedule(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	scheduleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid schedule ID")
	}

	result, appErr := c.ScheduleService.GetSchedule(ctx.Request().Context(), tenantID, scheduleID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// ListSchedules handles GET /schedules
// @Summary List schedules
// @Tags Schedule
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.ScheduleResponse
// @Failure 401 {object} errors.AppError
// @Router /private/schedules [get]
func (c *ScheduleController) ListSchedules(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.ScheduleService.ListSchedules(ctx.Request().Context(), tenantID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// UpdateSchedule handles PUT /schedules/:id
// @Summary Update a schedule
// @Description Patch schedule defaults; inheriting events see new values on read
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body dto.UpdateScheduleRequest true "Patch payload with expected revision"
// @Success 200 {object} dto.ScheduleResponse
// @Failure 409 {object} errors.AppError
// @Router /private/schedules/{id} [put]
func (c *ScheduleController) UpdateSchedule(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	scheduleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid schedule ID")
	}

	var req dto.UpdateScheduleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.ScheduleService.UpdateSchedule(ctx.Request().Context(), tenantID, scheduleID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Schedule updated successfully")
}

// CancelSchedule handles DELETE /schedules/:id
// @Summary Cancel a schedule
// @Description Cancel a schedule and its future events
// @Tags Schedule
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body dto.CancelScheduleRequest true "Expected revision"
// @Success 200 {object} controller.SuccessResponse
// @Failure 409 {object} errors.AppError
// @Router /private/schedules/{id} [delete]
func (c *ScheduleController) CancelSchedule(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	scheduleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid schedule ID")
	}

	var req dto.CancelScheduleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	if appErr := c.ScheduleService.CancelSchedule(ctx.Request().Context(), tenantID, scheduleID, &req); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Schedule cancelled successfully")
}

package controller

import (
	"go-calendar-api/core/controller"
	"go-calendar-api/core/errors"
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/eventsview/dto"
	"go-calendar-api/modules/eventsview/service"

	"github.com/labstack/echo/v4"
)

// EventsViewController handles events-view HTTP requests
type EventsViewController struct {
	controller.BaseController
	EventsViewService service.EventsViewServiceInterface
}

// NewEventsViewController creates a new controller
func NewEventsViewController(svc service.EventsViewServiceInterface) *EventsViewController {
	return &EventsViewController{
		BaseController:    controller.NewBaseController(),
		EventsViewService: svc,
	}
}

// GetView handles GET /events-view
// @Summary Get the materialization window
// @Description Occurrence rows are guaranteed to exist up to the returned end date
// @Tags EventsView
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.EventsViewResponse
// @Failure 401 {object} errors.AppError
// @Router /private/events-view [get]
func (c *EventsViewController) GetView(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.EventsViewService.GetView(ctx.Request().Context(), tenantID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// ExtendView handles POST /events-view/extend
// @Summary Extend the materialization window
// @Description Move the window end forward; series are backfilled asynchronously
// @Tags EventsView
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ExtendViewRequest true "New end date"
// @Success 200 {object} dto.EventsViewResponse
// @Failure 412 {object} errors.AppError
// @Router /private/events-view/extend [post]
func (c *EventsViewController) ExtendView(ctx echo.Context) error {
	tenantID, err := middleware.TenantID(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.ExtendViewRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.EventsViewService.ExtendView(ctx.Request().Context(), tenantID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Events view extended successfully")
}

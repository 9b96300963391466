package router

import (
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/schedule/controller"

	"github.com/labstack/echo/v4"
)

// ScheduleRouter handles schedule routes
type ScheduleRouter struct {
	ScheduleController *controller.ScheduleController
}

// NewScheduleRouter creates a new router
func NewScheduleRouter(scheduleController *controller.ScheduleController) *ScheduleRouter {
	return &ScheduleRouter{
		ScheduleController: scheduleController,
	}
}

// Setup registers schedule routes
func (r *ScheduleRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	scheduleRoutes := privateRoutes.Group("/schedules", mw.AuthMiddleware())

	scheduleRoutes.POST("", r.ScheduleController.CreateSchedule)
	scheduleRoutes.GET("", r.ScheduleController.ListSchedules)
	scheduleRoutes.GET("/:id", r.ScheduleController.GetSchedule)
	scheduleRoutes.PUT("/:id", r.ScheduleController.UpdateSchedule)
	scheduleRoutes.DELETE("/:id", r.ScheduleController.CancelSchedule)
}

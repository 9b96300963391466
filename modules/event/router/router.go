package router

import (
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/event/controller"

	"github.com/labstack/echo/v4"
)

// EventRouter handles event routes
type EventRouter struct {
	EventController *controller.EventController
}

// NewEventRouter creates a new router
func NewEventRouter(eventController *controller.EventController) *EventRouter {
	return &EventRouter{
		EventController: eventController,
	}
}

// Setup registers event routes
func (r *EventRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	eventRoutes := privateRoutes.Group("/events", mw.AuthMiddleware())

	// CRUD
	eventRoutes.POST("", r.EventController.CreateEvent)
	eventRoutes.GET("", r.EventController.QueryOccurrences)
	eventRoutes.GET("/:id", r.EventController.GetEvent)
	eventRoutes.PUT("/:id", r.EventController.UpdateEvent)
	eventRoutes.DELETE("/:id", r.EventController.CancelEvent)

	// Series operations
	eventRoutes.POST("/:id/split", r.EventController.SplitSeries)
	eventRoutes.POST("/:id/restore-defaults", r.EventController.RestoreDefaults)

	// Participants
	eventRoutes.POST("/:id/participants", r.EventController.AddParticipant)
	eventRoutes.PUT("/:id/participants/:userId", r.EventController.UpdateParticipant)
	eventRoutes.DELETE("/:id/participants/:userId", r.EventController.RemoveParticipant)
}

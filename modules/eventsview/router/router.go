package router

import (
	"go-calendar-api/core/middleware"
	"go-calendar-api/modules/eventsview/controller"

	"github.com/labstack/echo/v4"
)

// EventsViewRouter handles events-view routes
type EventsViewRouter struct {
	EventsViewController *controller.EventsViewController
}

// NewEventsViewRouter creates a new router
func NewEventsViewRouter(eventsViewController *controller.EventsViewController) *EventsViewRouter {
	return &EventsViewRouter{
		EventsViewController: eventsViewController,
	}
}

// Setup registers events-view routes
func (r *EventsViewRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	viewRoutes := privateRoutes.Group("/events-view", mw.AuthMiddleware())

	viewRoutes.GET("", r.EventsViewController.GetView)
	viewRoutes.POST("/extend", r.EventsViewController.ExtendView)
}

package eventsview

import (
	"go-calendar-api/core/database"
	"go-calendar-api/core/middleware"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/eventsview/controller"
	"go-calendar-api/modules/eventsview/repository"
	"go-calendar-api/modules/eventsview/router"
	"go-calendar-api/modules/eventsview/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init initializes the events-view module and registers routes. The returned
// service doubles as the worker's horizon extender.
func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware, client *asynq.Client, horizonDays int) *service.EventsViewService {
	repo := repository.NewEventsViewRepository(db)
	eventRepo := eventrepository.NewEventRepository(db)
	svc := service.NewEventsViewService(repo, eventRepo, client, horizonDays)
	ctrl := controller.NewEventsViewController(svc)
	rtr := router.NewEventsViewRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}

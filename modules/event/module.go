package event

import (
	"go-calendar-api/core/database"
	"go-calendar-api/core/middleware"
	"go-calendar-api/core/worker"
	"go-calendar-api/modules/event/controller"
	"go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/event/router"
	"go-calendar-api/modules/event/service"
	viewrepository "go-calendar-api/modules/eventsview/repository"
	schedulerepository "go-calendar-api/modules/schedule/repository"

	"github.com/labstack/echo/v4"
)

// Init initializes the event module and registers routes. The returned
// service doubles as the worker's series materializer.
func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware, locker *worker.SeriesLocker, horizonDays int) *service.EventService {
	repo := repository.NewEventRepository(db)
	scheduleRepo := schedulerepository.NewScheduleRepository(db)
	viewRepo := viewrepository.NewEventsViewRepository(db)
	svc := service.NewEventService(repo, scheduleRepo, viewRepo, locker, horizonDays)
	ctrl := controller.NewEventController(svc)
	rtr := router.NewEventRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}

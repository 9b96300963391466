package schedule

import (
	"go-calendar-api/core/database"
	"go-calendar-api/core/middleware"
	eventrepository "go-calendar-api/modules/event/repository"
	"go-calendar-api/modules/schedule/controller"
	"go-calendar-api/modules/schedule/repository"
	"go-calendar-api/modules/schedule/router"
	"go-calendar-api/modules/schedule/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the schedule module and registers routes
func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware) {
	repo := repository.NewScheduleRepository(db)
	eventRepo := eventrepository.NewEventRepository(db)
	svc := service.NewScheduleService(repo, eventRepo)
	ctrl := controller.NewScheduleController(svc)
	rtr := router.NewScheduleRouter(ctrl)

	rtr.Setup(e, mw)
}

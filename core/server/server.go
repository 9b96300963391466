package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-calendar-api/core/config"
	"go-calendar-api/core/database"
	"go-calendar-api/core/logger"
	"go-calendar-api/core/middleware"
	"go-calendar-api/core/worker"
	"go-calendar-api/modules/event"
	"go-calendar-api/modules/eventsview"
	"go-calendar-api/modules/schedule"

	"github.com/labstack/echo/v4"
)

// Run boots the whole service: configuration, database, the background
// worker, and the HTTP server with every module registered. It blocks until
// SIGINT/SIGTERM and then shuts the pieces down in reverse order.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.SQLx().Close()

	w := worker.New(cfg)
	defer w.Shutdown()

	e := echo.New()
	e.HideBanner = true

	mw := middleware.NewMiddleware(cfg)
	e.Use(mw.RequestLogger())
	e.Use(mw.Recover())

	horizonDays := cfg.EventsView.HorizonDays
	eventSvc := event.Init(e, &db, mw, w.Locker(), horizonDays)
	schedule.Init(e, &db, mw)
	viewSvc := eventsview.Init(e, &db, mw, w.Client(), horizonDays)

	if err := w.Start(eventSvc, viewSvc); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil {
			logger.Info("http server stopped", "reason", err.Error())
		}
	}()
	logger.Info("server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

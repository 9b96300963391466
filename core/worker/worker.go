package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go-calendar-api/core/config"
	"go-calendar-api/core/constants"
	"go-calendar-api/core/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// EventMaterializer backfills one series inside its tenant's window.
type EventMaterializer interface {
	MaterializeSeries(ctx context.Context, tenantID, masterID uuid.UUID) error
}

// HorizonExtender keeps every tenant's events-view window ahead of now.
type HorizonExtender interface {
	ExtendAll(ctx context.Context) error
}

// Worker owns the asynq server, the periodic scheduler and the shared client
// used to enqueue tasks from the request path.
type Worker struct {
	cfg       *config.Config
	server    *asynq.Server
	scheduler *asynq.Scheduler
	client    *asynq.Client
	rdb       *redis.Client
}

func New(cfg *config.Config) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	return &Worker{
		cfg: cfg,
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 4,
			Queues:      map[string]int{constants.QueueDefault: 1},
		}),
		scheduler: asynq.NewScheduler(redisOpt, nil),
		client:    asynq.NewClient(redisOpt),
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
	}
}

func (w *Worker) Client() *asynq.Client {
	return w.client
}

func (w *Worker) Locker() *SeriesLocker {
	return NewSeriesLocker(w.rdb)
}

// Start registers handlers and the periodic horizon sweep, then runs the
// server and scheduler in the background.
func (w *Worker) Start(materializer EventMaterializer, extender HorizonExtender) error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(constants.TaskEventMaterialize, func(ctx context.Context, t *asynq.Task) error {
		var payload EventMaterializePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", constants.TaskEventMaterialize, err)
		}
		return NewSeriesLocker(w.rdb).WithSeriesLock(ctx, payload.MasterID, func() error {
			return materializer.MaterializeSeries(ctx, payload.TenantID, payload.MasterID)
		})
	})

	mux.HandleFunc(constants.TaskEventsViewExtend, func(ctx context.Context, t *asynq.Task) error {
		return extender.ExtendAll(ctx)
	})

	if _, err := w.scheduler.Register(w.cfg.EventsView.ExtendCron, NewEventsViewExtendTask()); err != nil {
		return fmt.Errorf("register horizon extension schedule: %w", err)
	}

	// Start, not Run: signal handling stays with the HTTP server.
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info("Worker started", "extendCron", w.cfg.EventsView.ExtendCron)
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	_ = w.client.Close()
	_ = w.rdb.Close()
}

package worker

import (
	"encoding/json"

	"go-calendar-api/core/constants"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// EventMaterializePayload asks the worker to backfill one series inside its
// tenant's current window.
type EventMaterializePayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
	MasterID uuid.UUID `json:"master_id"`
}

func NewEventMaterializeTask(tenantID, masterID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(EventMaterializePayload{TenantID: tenantID, MasterID: masterID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskEventMaterialize, payload,
		asynq.Queue(constants.QueueDefault), asynq.MaxRetry(5)), nil
}

// NewEventsViewExtendTask is the periodic sweep that keeps every tenant's
// window at least the configured horizon ahead of now.
func NewEventsViewExtendTask() *asynq.Task {
	return asynq.NewTask(constants.TaskEventsViewExtend, nil, asynq.Queue(constants.QueueDefault))
}

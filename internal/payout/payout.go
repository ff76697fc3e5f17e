package payout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeSettlementPayout is the asynq task type for seller payout transfers.
const TypeSettlementPayout = "settlement:payout"

// Payload carries the settlement a payout task should disburse.
type Payload struct {
	SettlementID uuid.UUID `json:"settlement_id"`
}

// Enqueuer schedules payout tasks on the shared asynq client.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Delay  time.Duration
}

// SchedulePayout enqueues a payout task for the settlement. Task IDs are
// derived from the settlement ID so redelivered webhooks cannot enqueue the
// same payout twice.
func (e *Enqueuer) SchedulePayout(ctx context.Context, settlementID uuid.UUID) error {
	raw, err := json.Marshal(Payload{SettlementID: settlementID})
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = "default"
	}
	opts := []asynq.Option{
		asynq.TaskID("payout:" + settlementID.String()),
		asynq.Queue(queue),
		asynq.MaxRetry(5),
	}
	if e.Delay > 0 {
		opts = append(opts, asynq.ProcessIn(e.Delay))
	}
	task := asynq.NewTask(TypeSettlementPayout, raw)
	_, err = e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil && err != asynq.ErrTaskIDConflict {
		return err
	}
	return nil
}

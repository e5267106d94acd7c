package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/metrics"
)

// Dispatcher turns consumed events into queued tasks with tracked results.
type Dispatcher struct {
	queue *Queue
	store ResultStore
	log   *zap.SugaredLogger
}

// NewDispatcher wires a dispatcher to its queue and result store.
func NewDispatcher(queue *Queue, store ResultStore, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{queue: queue, store: store, log: log}
}

// Dispatch assigns a task ID, records the pending status, and enqueues the
// task. The returned ID can be used to query the task's outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, kind event.Kind, payload event.Payload) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown event kind %q", string(kind))
	}
	if err := kind.ValidatePayload(payload); err != nil {
		return "", err
	}

	taskID := uuid.NewString()

	task := &Task{
		ID:        taskID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if err := d.store.Set(ctx, taskID, Result{Status: StatusPending}); err != nil {
		d.log.Warnw("failed to record pending task",
			"id", taskID, "kind", string(kind), "error", err)
	}

	if err := d.queue.Enqueue(task); err != nil {
		d.setFailed(ctx, taskID, err)
		return "", err
	}

	metrics.TasksDispatched.WithLabelValues(string(kind)).Inc()
	d.log.Infow("task dispatched",
		"id", taskID,
		"kind", string(kind),
		"email", payload.String("email", ""))

	return taskID, nil
}

func (d *Dispatcher) setFailed(ctx context.Context, taskID string, cause error) {
	err := d.store.Set(ctx, taskID, Result{Status: StatusFailed, Message: cause.Error()})
	if err != nil {
		d.log.Warnw("failed to record dropped task",
			"id", taskID, "error", err)
	}
}

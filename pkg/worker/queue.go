/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/metrics"
)

// Queue executes tasks asynchronously with bounded, fixed-delay retries.
// A task that keeps failing moves to the terminal failed status after
// maxAttempts executions and is never retried again.
type Queue struct {
	executors    map[event.Kind]Executor
	store        ResultStore
	queue        chan *Task
	log          *zap.SugaredLogger
	maxAttempts  int
	retryDelay   time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	maxQueueSize int
}

// NewQueue creates a task queue. Zero values pick the defaults: 3 attempts,
// 60s retry delay, 1000 queued tasks.
func NewQueue(executors map[event.Kind]Executor, store ResultStore, log *zap.SugaredLogger, maxAttempts int, retryDelay time.Duration, maxQueueSize int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryDelay <= 0 {
		retryDelay = 60 * time.Second
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	log.Infow("Initializing task queue",
		"maxAttempts", maxAttempts,
		"retryDelay", retryDelay,
		"maxQueueSize", maxQueueSize)

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		executors:    executors,
		store:        store,
		queue:        make(chan *Task, maxQueueSize),
		log:          log,
		maxAttempts:  maxAttempts,
		retryDelay:   retryDelay,
		maxQueueSize: maxQueueSize,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the background worker for processing tasks.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
	q.log.Info("Task queue worker started")
}

// Enqueue adds a task to the queue. A full queue drops the task.
func (q *Queue) Enqueue(task *Task) error {
	if _, ok := q.executors[task.Kind]; !ok {
		metrics.TasksDropped.WithLabelValues(string(task.Kind)).Inc()
		return fmt.Errorf("no executor for task kind %q", string(task.Kind))
	}

	select {
	case <-q.ctx.Done():
		q.log.Errorw("Cannot enqueue, queue is shutting down", "id", task.ID)
		metrics.TasksDropped.WithLabelValues(string(task.Kind)).Inc()
		return fmt.Errorf("queue is shutting down")
	default:
	}

	select {
	case q.queue <- task:
		q.log.Debugw("Task queued",
			"id", task.ID,
			"kind", string(task.Kind))
		return nil
	case <-q.ctx.Done():
		q.log.Errorw("Cannot enqueue, queue is shutting down", "id", task.ID)
		metrics.TasksDropped.WithLabelValues(string(task.Kind)).Inc()
		return fmt.Errorf("queue is shutting down")
	default:
		metrics.TasksDropped.WithLabelValues(string(task.Kind)).Inc()
		q.log.Errorw("Task queue is full, dropping task",
			"id", task.ID,
			"kind", string(task.Kind),
			"queueSize", q.maxQueueSize)
		return fmt.Errorf("task queue is full (capacity: %d)", q.maxQueueSize)
	}
}

// worker processes tasks from the queue.
func (q *Queue) worker() {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("panic in task queue worker recovered",
				"panic", r)
			// Restart the worker to maintain processing capacity
			q.wg.Add(1)
			go q.worker()
		}
	}()

	pendingTasks := make([]*Task, 0)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.log.Info("Task queue worker shutting down")
			// Process remaining tasks
			q.processPending(pendingTasks)
			return

		case task := <-q.queue:
			if task != nil {
				q.processTask(task)
				// Track pending tasks only if not succeeded and we have attempts left
				if !task.Succeeded && task.Attempt < q.maxAttempts {
					pendingTasks = append(pendingTasks, task)
				}
			}

		case <-ticker.C:
			// Check for tasks ready for retry every 50ms
			now := time.Now()
			remainingPending := make([]*Task, 0)

			for _, task := range pendingTasks {
				if !task.Succeeded && now.After(task.NextRetry) {
					q.processTask(task)
				}
				if !task.Succeeded && task.Attempt < q.maxAttempts {
					remainingPending = append(remainingPending, task)
				}
			}
			pendingTasks = remainingPending
		}
	}
}

// processTask runs the executor once and schedules a retry if needed.
func (q *Queue) processTask(task *Task) {
	task.Attempt++

	q.log.Infow("Processing task",
		"id", task.ID,
		"kind", string(task.Kind),
		"attempt", task.Attempt,
		"maxAttempts", q.maxAttempts)

	q.setResult(task, StatusExecuting, "")

	exec := q.executors[task.Kind]
	message, err := exec(task)
	if err == nil {
		q.log.Infow("Task succeeded",
			"id", task.ID,
			"kind", string(task.Kind),
			"attempt", task.Attempt)
		metrics.TasksSucceeded.WithLabelValues(string(task.Kind)).Inc()
		task.Succeeded = true
		q.setResult(task, StatusSucceeded, message)
		return
	}

	if task.Attempt < q.maxAttempts {
		task.NextRetry = time.Now().Add(q.retryDelay)

		q.log.Warnw("Task failed, scheduling retry",
			"id", task.ID,
			"kind", string(task.Kind),
			"attempt", task.Attempt,
			"error", err,
			"nextRetry", task.NextRetry.Format(time.RFC3339))
		metrics.TaskRetries.WithLabelValues(string(task.Kind)).Inc()
		q.setResult(task, StatusRetrying, err.Error())
	} else {
		// All attempts exhausted, the failure is terminal
		q.log.Errorw("Task failed after all attempts",
			"id", task.ID,
			"kind", string(task.Kind),
			"attempts", task.Attempt,
			"error", err)
		metrics.TasksExhausted.WithLabelValues(string(task.Kind)).Inc()
		q.setResult(task, StatusFailed, err.Error())
	}
}

// processPending gives pending tasks one last run on shutdown.
func (q *Queue) processPending(tasks []*Task) {
	q.log.Infow("Processing pending tasks on shutdown", "count", len(tasks))
	for _, task := range tasks {
		if task.Attempt < q.maxAttempts {
			q.log.Infow("Attempting final run for pending task before shutdown",
				"id", task.ID,
				"attempt", task.Attempt)
			q.processTask(task)
		}
	}
}

func (q *Queue) setResult(task *Task, status Status, message string) {
	err := q.store.Set(q.ctx, task.ID, Result{
		Status:  status,
		Message: message,
		Attempt: task.Attempt,
	})
	if err != nil {
		q.log.Warnw("failed to store task result",
			"id", task.ID,
			"status", string(status),
			"error", err)
	}
}

// Stop gracefully shuts down the queue and waits for the worker to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.log.Info("Stopping task queue")
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Task queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.log.Warnw("Task queue shutdown timeout, some tasks may not have been processed")
		return ctx.Err()
	}
}

// Length returns the current number of tasks waiting in the channel.
func (q *Queue) Length() int {
	return len(q.queue)
}

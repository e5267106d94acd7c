// Package worker is the consumer side of the notifier: it reads events from
// the broker, dispatches them as tasks to a bounded queue, and executes them
// with templated email sends and fixed-delay retries.
package worker

import (
	"time"

	"github.com/userhub/notifier/pkg/event"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status will not change again.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Task is one unit of notification work with retry bookkeeping.
type Task struct {
	ID        string
	Kind      event.Kind
	Payload   event.Payload
	Attempt   int
	CreatedAt time.Time
	NextRetry time.Time
	Succeeded bool
}

// Result is the externally visible outcome of a task, kept in the result
// store for status queries.
type Result struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Attempt   int       `json:"attempt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

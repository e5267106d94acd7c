package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/userhub/notifier/pkg/event"
)

func TestDispatcher_DispatchesValidEvent(t *testing.T) {
	store := NewMemoryResultStore()
	sender := &fakeSender{}
	q := NewQueue(Executors(sender, "http://localhost:8000"), store, zaptest.NewLogger(t).Sugar(), 3, 10*time.Millisecond, 10)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	d := NewDispatcher(q, store, zaptest.NewLogger(t).Sugar())

	taskID, err := d.Dispatch(context.Background(), event.KindAccountLocked, event.Payload{
		"id":         "u1",
		"email":      "ada@example.com",
		"first_name": "Ada",
	})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	res := waitForStatus(t, store, taskID, StatusSucceeded)
	assert.Equal(t, "Account locked email sent to ada@example.com", res.Message)

	sends := sender.all()
	require.Len(t, sends, 1)
	assert.Equal(t, "ada@example.com", sends[0].recipient)
}

func TestDispatcher_UniqueTaskIDs(t *testing.T) {
	store := NewMemoryResultStore()
	q := NewQueue(Executors(&fakeSender{}, "http://localhost:8000"), store, zaptest.NewLogger(t).Sugar(), 3, 10*time.Millisecond, 10)
	q.Start()
	defer func() { _ = q.Stop(context.Background()) }()

	d := NewDispatcher(q, store, zaptest.NewLogger(t).Sugar())
	payload := event.Payload{
		"id":         "u1",
		"email":      "ada@example.com",
		"first_name": "Ada",
	}

	id1, err := d.Dispatch(context.Background(), event.KindAccountLocked, payload)
	require.NoError(t, err)
	id2, err := d.Dispatch(context.Background(), event.KindAccountLocked, payload)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestDispatcher_RejectsUnknownKind(t *testing.T) {
	store := NewMemoryResultStore()
	q := NewQueue(Executors(&fakeSender{}, "http://localhost:8000"), store, zaptest.NewLogger(t).Sugar(), 3, time.Second, 10)
	d := NewDispatcher(q, store, zaptest.NewLogger(t).Sugar())

	_, err := d.Dispatch(context.Background(), event.Kind("password_reset"), event.Payload{
		"id":         "u1",
		"email":      "ada@example.com",
		"first_name": "Ada",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event kind")
}

func TestDispatcher_RejectsInvalidPayload(t *testing.T) {
	store := NewMemoryResultStore()
	q := NewQueue(Executors(&fakeSender{}, "http://localhost:8000"), store, zaptest.NewLogger(t).Sugar(), 3, time.Second, 10)
	d := NewDispatcher(q, store, zaptest.NewLogger(t).Sugar())

	_, err := d.Dispatch(context.Background(), event.KindEmailVerification, event.Payload{
		"id":         "u1",
		"email":      "ada@example.com",
		"first_name": "Ada",
		// verification_token missing
	})
	require.Error(t, err)
}

func TestDispatcher_RecordsFailureWhenQueueFull(t *testing.T) {
	store := NewMemoryResultStore()
	// Capacity 1 and not started, so the second dispatch is dropped.
	q := NewQueue(Executors(&fakeSender{}, "http://localhost:8000"), store, zaptest.NewLogger(t).Sugar(), 3, time.Second, 1)
	d := NewDispatcher(q, store, zaptest.NewLogger(t).Sugar())
	payload := event.Payload{
		"id":         "u1",
		"email":      "ada@example.com",
		"first_name": "Ada",
	}
	ctx := context.Background()

	_, err := d.Dispatch(ctx, event.KindAccountLocked, payload)
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, event.KindAccountLocked, payload)
	require.Error(t, err)
}

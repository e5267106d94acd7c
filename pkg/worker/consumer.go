package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/config"
	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/metrics"
)

// Consumer reads notification events from the broker, one reader per kind
// topic, and hands them to the dispatcher. Offsets are committed only after
// the event is dispatched (or rejected as poison), so a crash re-delivers
// unprocessed events to the consumer group.
type Consumer struct {
	readers    []*kafka.Reader
	dispatcher *Dispatcher
	log        *zap.SugaredLogger
	wg         sync.WaitGroup
}

// NewConsumer builds group readers for every kind in the catalog.
func NewConsumer(cfg config.Broker, dispatcher *Dispatcher, log *zap.SugaredLogger) *Consumer {
	readers := make([]*kafka.Reader, 0, len(event.Kinds()))
	for _, kind := range event.Kinds() {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Addresses,
			GroupID:  cfg.GroupID,
			Topic:    kind.Topic(),
			MinBytes: 1,    // Read even small messages immediately
			MaxBytes: 10e6, // 10MB
			MaxWait:  500 * time.Millisecond,
		}))
	}

	log.Infow("consumer initialized",
		"brokers", cfg.Addresses,
		"groupID", cfg.GroupID,
		"topics", len(readers))

	return &Consumer{
		readers:    readers,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Start launches one consume loop per topic. The loops stop when ctx is
// cancelled; call Close afterwards to release the readers.
func (c *Consumer) Start(ctx context.Context) {
	for _, r := range c.readers {
		c.wg.Add(1)
		go c.consume(ctx, r)
	}
}

func (c *Consumer) consume(ctx context.Context, r *kafka.Reader) {
	defer c.wg.Done()

	topic := r.Config().Topic
	log := c.log.With("topic", topic)
	log.Info("consume loop started")

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info("consume loop stopped")
				return
			}
			log.Warnw("failed to fetch message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		metrics.EventsConsumed.WithLabelValues(msg.Topic).Inc()
		if !c.handle(ctx, log, msg) {
			// Not dispatched and not poison: leave the offset uncommitted
			// so the group redelivers the event.
			continue
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warnw("failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
		}
	}
}

// handle dispatches one message and reports whether its offset may be
// committed. Messages that cannot be decoded or fail validation are poison:
// they are logged, counted, and acknowledged so they never wedge the
// partition. A valid event the queue could not accept (full, shutting down)
// is not acknowledged, so the group redelivers it.
func (c *Consumer) handle(ctx context.Context, log *zap.SugaredLogger, msg kafka.Message) bool {
	kind := event.Kind(msg.Topic)

	payload, err := event.DecodePayload(msg.Value)
	if err != nil {
		metrics.PoisonMessages.WithLabelValues(string(kind)).Inc()
		log.Errorw("poison message: undecodable value, skipping",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err)
		return true
	}

	taskID, err := c.dispatcher.Dispatch(ctx, kind, payload)
	if err != nil {
		if !kind.Valid() || kind.ValidatePayload(payload) != nil {
			metrics.PoisonMessages.WithLabelValues(string(kind)).Inc()
			log.Errorw("poison message: invalid payload, skipping",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
			return true
		}
		log.Errorw("failed to dispatch event, leaving offset uncommitted",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err)
		return false
	}

	log.Debugw("event dispatched",
		"taskID", taskID,
		"offset", msg.Offset)
	return true
}

// Close waits for the consume loops and releases the readers.
func (c *Consumer) Close() error {
	c.wg.Wait()

	var lastErr error
	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

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

package sink

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/event"
)

// BreakerConfig tunes the circuit breaker around a sink.
type BreakerConfig struct {
	// ConsecutiveFailures before the circuit opens.
	// Default: 5
	ConsecutiveFailures uint32

	// OpenTimeout is how long the circuit stays open before probing again.
	// Default: 30s
	OpenTimeout time.Duration
}

// BreakerSink wraps a Sink with circuit breaker protection so a dead broker
// fails fast instead of stalling every caller on the write timeout.
type BreakerSink struct {
	sink    Sink
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

// NewBreakerSink wraps a sink with a circuit breaker.
func NewBreakerSink(s Sink, cfg BreakerConfig, logger *zap.Logger) *BreakerSink {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	log := logger.Named("breaker-sink").With(zap.String("sink", s.Name()))

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BreakerSink{sink: s, breaker: cb, logger: log}
}

// Publish delivers through the circuit breaker. When the circuit is open the
// event is rejected immediately with gobreaker.ErrOpenState.
func (s *BreakerSink) Publish(ctx context.Context, kind event.Kind, payload event.Payload) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.sink.Publish(ctx, kind, payload)
	})
	return err
}

// State returns the current breaker state.
func (s *BreakerSink) State() gobreaker.State {
	return s.breaker.State()
}

// Close closes the underlying sink.
func (s *BreakerSink) Close() error {
	s.logger.Info("closing breaker sink",
		zap.String("state", s.breaker.State().String()))
	return s.sink.Close()
}

// Name returns the sink identifier.
func (s *BreakerSink) Name() string {
	return s.sink.Name()
}

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

	"go.uber.org/zap"

	"github.com/userhub/notifier/pkg/event"
)

// GatedSink routes events to a primary sink, or to a capture recorder when
// the gate says to bypass the broker. The gate is consulted on every
// publish, so a mid-run toggle applies to the very next event.
type GatedSink struct {
	primary Sink
	capture *RecorderSink
	gate    *Gate
	logger  *zap.Logger
}

// NewGatedSink wires a primary sink, a capture recorder, and a gate.
func NewGatedSink(primary Sink, capture *RecorderSink, gate *Gate, logger *zap.Logger) *GatedSink {
	return &GatedSink{
		primary: primary,
		capture: capture,
		gate:    gate,
		logger:  logger.Named("gated-sink"),
	}
}

// Publish delivers to the capture recorder when bypassing, otherwise to the
// primary sink. Captured events count as accepted.
func (s *GatedSink) Publish(ctx context.Context, kind event.Kind, payload event.Payload) error {
	if s.gate.Bypass() {
		s.logger.Debug("broker bypassed, capturing event",
			zap.String("kind", string(kind)))
		return s.capture.Publish(ctx, kind, payload)
	}
	return s.primary.Publish(ctx, kind, payload)
}

// Captured exposes the capture recorder for inspection.
func (s *GatedSink) Captured() *RecorderSink {
	return s.capture
}

// Close closes the primary sink. The recorder holds no resources.
func (s *GatedSink) Close() error {
	return s.primary.Close()
}

// Name returns the sink identifier.
func (s *GatedSink) Name() string {
	return "gated(" + s.primary.Name() + ")"
}

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
	"sync"

	"github.com/userhub/notifier/pkg/event"
	"github.com/userhub/notifier/pkg/metrics"
)

// Record is one captured event. Unlike the broker path, captured events are
// stored exactly as handed in, without a publish timestamp.
type Record struct {
	Kind    event.Kind
	Payload event.Payload
}

// RecorderSink captures events in memory instead of delivering them.
// It backs capture mode and is safe for concurrent use.
type RecorderSink struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorderSink creates an empty recorder.
func NewRecorderSink() *RecorderSink {
	return &RecorderSink{}
}

// Publish validates and captures the event. Capture counts as acceptance.
func (s *RecorderSink) Publish(_ context.Context, kind event.Kind, payload event.Payload) error {
	if err := kind.ValidatePayload(payload); err != nil {
		metrics.EventPublishErrors.WithLabelValues(string(kind), "validation").Inc()
		return err
	}

	s.mu.Lock()
	s.records = append(s.records, Record{Kind: kind, Payload: payload.Clone()})
	s.mu.Unlock()

	metrics.EventsCaptured.WithLabelValues(string(kind)).Inc()
	return nil
}

// All returns a copy of every captured record, in capture order.
func (s *RecorderSink) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Last returns the most recently captured record, or false when empty.
func (s *RecorderSink) Last() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// OfKind returns the captured records matching kind.
func (s *RecorderSink) OfKind(kind event.Kind) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of captured records.
func (s *RecorderSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Clear discards all captured records.
func (s *RecorderSink) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Close is a no-op for RecorderSink.
func (s *RecorderSink) Close() error {
	return nil
}

// Name returns the sink identifier.
func (s *RecorderSink) Name() string {
	return "recorder"
}

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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/userhub/notifier/pkg/event"
)

// stubSink counts publishes and returns a configurable error.
type stubSink struct {
	publishes atomic.Int64
	err       error
}

func (s *stubSink) Publish(context.Context, event.Kind, event.Payload) error {
	s.publishes.Add(1)
	return s.err
}

func (s *stubSink) Close() error { return nil }

func (s *stubSink) Name() string { return "stub" }

func TestGatedSink_RoutesToPrimaryWhenOpen(t *testing.T) {
	primary := &stubSink{}
	capture := NewRecorderSink()
	g := NewGatedSink(primary, capture, NewGate(nil), zaptest.NewLogger(t))

	require.NoError(t, g.Publish(context.Background(), event.KindAccountLocked, validPayload("u1")))

	assert.Equal(t, int64(1), primary.publishes.Load())
	assert.Equal(t, 0, capture.Len())
}

func TestGatedSink_CapturesWhenBypassed(t *testing.T) {
	primary := &stubSink{}
	capture := NewRecorderSink()
	gate := NewGate(func() bool { return true })
	g := NewGatedSink(primary, capture, gate, zaptest.NewLogger(t))

	require.NoError(t, g.Publish(context.Background(), event.KindAccountLocked, validPayload("u1")))

	assert.Equal(t, int64(0), primary.publishes.Load())
	assert.Equal(t, 1, capture.Len())
	assert.Equal(t, 1, g.Captured().Len())
}

func TestGatedSink_MidRunToggle(t *testing.T) {
	primary := &stubSink{}
	capture := NewRecorderSink()
	var bypass atomic.Bool
	g := NewGatedSink(primary, capture, NewGate(bypass.Load), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, g.Publish(ctx, event.KindAccountLocked, validPayload("u1")))

	bypass.Store(true)
	require.NoError(t, g.Publish(ctx, event.KindAccountLocked, validPayload("u2")))

	bypass.Store(false)
	require.NoError(t, g.Publish(ctx, event.KindAccountLocked, validPayload("u3")))

	assert.Equal(t, int64(2), primary.publishes.Load())
	require.Equal(t, 1, capture.Len())
	last, _ := capture.Last()
	assert.Equal(t, "u2", last.Payload.String("id", ""))
}

func TestGatedSink_Name(t *testing.T) {
	g := NewGatedSink(&stubSink{}, NewRecorderSink(), NewGate(nil), zaptest.NewLogger(t))
	assert.Equal(t, "gated(stub)", g.Name())
}

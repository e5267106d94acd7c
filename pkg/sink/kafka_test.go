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
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/userhub/notifier/pkg/event"
)

func TestNewKafkaSink_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("no brokers", func(t *testing.T) {
		_, err := NewKafkaSink(KafkaSinkConfig{}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker")
	})

	t.Run("valid minimal config", func(t *testing.T) {
		s, err := NewKafkaSink(KafkaSinkConfig{
			Brokers: []string{"localhost:9092"},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, "kafka", s.Name())
		assert.True(t, s.IsConnected())
		assert.NoError(t, s.Close())
	})

	t.Run("custom name", func(t *testing.T) {
		s, err := NewKafkaSink(KafkaSinkConfig{
			Name:    "events-primary",
			Brokers: []string{"localhost:9092"},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, "events-primary", s.Name())
		assert.NoError(t, s.Close())
	})

	t.Run("invalid SASL mechanism", func(t *testing.T) {
		_, err := NewKafkaSink(KafkaSinkConfig{
			Brokers: []string{"localhost:9092"},
			SASL:    &KafkaSASLConfig{Mechanism: "GSSAPI"},
		}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported SASL mechanism")
	})

	t.Run("invalid CA cert", func(t *testing.T) {
		_, err := NewKafkaSink(KafkaSinkConfig{
			Brokers: []string{"localhost:9092"},
			TLS: &KafkaTLSConfig{
				Enabled: true,
				CACert:  []byte("not a pem block"),
			},
		}, logger)
		require.Error(t, err)
	})
}

func TestKafkaSink_CloseTwice(t *testing.T) {
	s, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestKafkaSink_PublishAfterClose(t *testing.T) {
	s, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Publish(context.Background(), event.KindAccountLocked, event.Payload{
		"id":         "u1",
		"email":      "user@example.com",
		"first_name": "Ada",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestKafkaSink_PublishRejectsInvalidPayload(t *testing.T) {
	s, err := NewKafkaSink(KafkaSinkConfig{
		Brokers: []string{"localhost:9092"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// Missing verification_token; must fail before touching the network.
	err = s.Publish(context.Background(), event.KindEmailVerification, event.Payload{
		"id":         "u1",
		"email":      "user@example.com",
		"first_name": "Ada",
	})
	require.Error(t, err)

	_, failed := s.MessageStats()
	assert.Equal(t, int64(1), failed)
}

func TestBuildMessage(t *testing.T) {
	payload := event.Payload{
		"id":         "u1",
		"email":      "user@example.com",
		"first_name": "Ada",
	}
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	msg, err := buildMessage(event.KindAccountLocked, payload, now)
	require.NoError(t, err)

	assert.Equal(t, "account_locked", msg.Topic)
	assert.Equal(t, []byte("u1"), msg.Key)

	var onWire map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &onWire))
	assert.Equal(t, "2026-03-14T09:26:53Z", onWire["timestamp"])
	assert.Equal(t, "user@example.com", onWire["email"])

	// The caller's payload must not be mutated by the stamp.
	_, stamped := payload["timestamp"]
	assert.False(t, stamped)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("account_locked"), msg.Headers[0].Value)
	assert.Equal(t, "timestamp", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-03-14T09:26:53Z"), msg.Headers[1].Value)
}

func TestClassifyKafkaError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"deadline exceeded", context.DeadlineExceeded, "timeout"},
		{"cancelled", context.Canceled, "cancelled"},
		// *net.DNSError satisfies net.Error, so it classifies as network
		{"dns error", &net.DNSError{Err: "no such host", Name: "kafka"}, "network"},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, "network"},
		{"sasl failure", fmt.Errorf("SASL handshake failed"), "auth"},
		{"acl failure", fmt.Errorf("ACL check rejected request"), "authorization"},
		{"timed out", fmt.Errorf("request timed out"), "timeout"},
		{"connection refused", fmt.Errorf("connection refused"), "network"},
		{"leader election", fmt.Errorf("leader not available"), "broker"},
		{"unknown topic", fmt.Errorf("unknown topic or partition"), "topic"},
		{"certificate", fmt.Errorf("x509: certificate signed by unknown authority"), "tls"},
		{"anything else", fmt.Errorf("kaboom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyKafkaError(tt.err))
		})
	}
}

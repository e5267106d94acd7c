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

	"github.com/userhub/notifier/pkg/event"
)

// Sink is a destination for notification events.
type Sink interface {
	// Publish validates the payload and delivers the event for the given
	// kind. A nil error means the event was accepted by the destination.
	Publish(ctx context.Context, kind event.Kind, payload event.Payload) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

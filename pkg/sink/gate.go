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

import "sync/atomic"

// Gate decides whether events should bypass the broker and be captured
// instead. The probe is re-evaluated on every call, so environment-driven
// toggles take effect without restarting the process.
type Gate struct {
	probe  func() bool
	forced atomic.Bool
}

// NewGate builds a gate around a bypass probe. A nil probe never bypasses.
func NewGate(probe func() bool) *Gate {
	if probe == nil {
		probe = func() bool { return false }
	}
	return &Gate{probe: probe}
}

// Bypass reports whether events should skip the broker right now.
func (g *Gate) Bypass() bool {
	return g.forced.Load() || g.probe()
}

// SetUnavailable forces the bypass on or off, independent of the probe.
func (g *Gate) SetUnavailable(unavailable bool) {
	g.forced.Store(unavailable)
}

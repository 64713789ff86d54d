// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package breaker maintains one circuit breaker per backend name, gating
// dispatch to backends that have recently failed repeatedly (spec §4.B).
package breaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

const (
	failureThreshold = 3
	resetTimeout     = 5 * time.Minute
)

// errProbe is the sentinel error Execute is fed when recording a failure
// outcome observed outside of Execute itself (the dispatcher runs the
// backend subprocess directly, for streaming and audit reasons, rather than
// inside the breaker's own call).
var errProbe = errors.New("breaker: recorded failure")

// Stats summarizes one backend's breaker for observability tools.
type Stats struct {
	Backend             string `json:"backend"`
	State               string `json:"state"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
	Requests            uint32 `json:"requests"`
}

// Registry lazily creates one *gobreaker.CircuitBreaker[string] per backend
// name and exposes the isAvailable/onSuccess/onFailure operations spec §4.B
// names.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
	logger   *slog.Logger
}

// NewRegistry constructs an empty Registry. logger may be nil, in which
// case slog.Default() is used.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
		logger:   logger,
	}
}

func (r *Registry) get(name string) *gobreaker.CircuitBreaker[string] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			r.logger.Info("circuit breaker state change",
				slog.String("backend", breakerName),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	r.breakers[name] = cb
	return cb
}

// IsAvailable reports whether name may currently be dispatched to. Calling
// State() on the underlying breaker silently performs the OPEN→HALF_OPEN
// transition once Timeout has elapsed, matching the probe-after-resetTimeout
// semantics spec §4.B describes.
func (r *Registry) IsAvailable(name string) bool {
	return r.get(name).State() != gobreaker.StateOpen
}

// RecordSuccess feeds a successful outcome into name's breaker.
func (r *Registry) RecordSuccess(name string) {
	cb := r.get(name)
	_, _ = cb.Execute(func() (string, error) {
		return "", nil
	})
}

// RecordFailure feeds a failed outcome into name's breaker.
func (r *Registry) RecordFailure(name string) {
	cb := r.get(name)
	_, _ = cb.Execute(func() (string, error) {
		return "", errProbe
	})
}

// GetAllStats returns a snapshot of every breaker this registry has created,
// for the observability dashboard tools.
func (r *Registry) GetAllStats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]Stats, 0, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		stats = append(stats, Stats{
			Backend:             name,
			State:               cb.State().String(),
			ConsecutiveFailures: counts.ConsecutiveFailures,
			Requests:            counts.Requests,
		})
	}
	return stats
}

// Reset clears the breaker for name, or every breaker when name is empty.
// Used by tests and by an operator-invoked recovery tool.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.breakers = make(map[string]*gobreaker.CircuitBreaker[string])
		return
	}
	delete(r.breakers, name)
}

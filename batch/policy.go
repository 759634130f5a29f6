// Copyright 2025 Google LLC
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

// Package batch repeatedly issues the same request under bounded concurrency
// with a classification-driven retry, backoff, and abandonment policy.
package batch

import "time"

const (
	// DefaultMaxAttempts is the total attempt budget per request before a
	// still-throttled request is abandoned.
	DefaultMaxAttempts = 3

	// DefaultInterRequestDelay spaces out request starts. Concurrency 1 with
	// a fixed gap deliberately respects endpoint rate limits over
	// throughput.
	DefaultInterRequestDelay = 2 * time.Second

	// DefaultTimeoutStep is the linear backoff increment after a timeout.
	DefaultTimeoutStep = 2 * time.Second

	// DefaultTimeoutCap bounds linear timeout backoff.
	DefaultTimeoutCap = 10 * time.Second
)

// defaultThrottleSchedule is the exponential backoff ladder for throttling.
// Attempts beyond the ladder reuse its last entry.
func defaultThrottleSchedule() []time.Duration {
	return []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
}

// Policy controls retry, backoff, pacing, and concurrency for one batch.
// The zero value is usable; unset fields take the defaults above.
type Policy struct {
	// MaxAttempts is the total attempt budget per request (first try
	// included). Exhausting it on a retryable classification abandons the
	// request instead of failing the batch.
	MaxAttempts int

	// Concurrency bounds in-flight requests. Defaults to 1.
	Concurrency int

	// InterRequestDelay is the pause between request starts. Zero takes the
	// default; a negative value disables pacing.
	InterRequestDelay time.Duration

	// ThrottleSchedule overrides the exponential backoff ladder.
	ThrottleSchedule []time.Duration

	// TimeoutStep and TimeoutCap shape linear backoff after timeouts.
	TimeoutStep time.Duration
	TimeoutCap  time.Duration

	// TickInterval is the cadence of observational countdown ticks during
	// backoff waits. Zero disables ticks.
	TickInterval time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}
	if p.InterRequestDelay == 0 {
		p.InterRequestDelay = DefaultInterRequestDelay
	}
	if p.InterRequestDelay < 0 {
		p.InterRequestDelay = 0
	}
	if len(p.ThrottleSchedule) == 0 {
		p.ThrottleSchedule = defaultThrottleSchedule()
	}
	if p.TimeoutStep <= 0 {
		p.TimeoutStep = DefaultTimeoutStep
	}
	if p.TimeoutCap <= 0 {
		p.TimeoutCap = DefaultTimeoutCap
	}
	return p
}

// throttleBackoff returns the wait after the given 1-based throttled attempt.
func (p Policy) throttleBackoff(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.ThrottleSchedule) {
		idx = len(p.ThrottleSchedule) - 1
	}
	return p.ThrottleSchedule[idx]
}

// timeoutBackoff returns the linear wait after the given timed-out attempt.
func (p Policy) timeoutBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * p.TimeoutStep
	if d > p.TimeoutCap {
		d = p.TimeoutCap
	}
	return d
}

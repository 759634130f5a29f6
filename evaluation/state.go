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

// Package evaluation orchestrates a full determinism evaluation: a batch of
// repeated model invocations followed by consistency grading, accumulating
// into an exportable state.
package evaluation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
)

// Phase is the lifecycle stage of an evaluation run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseEvaluating Phase = "evaluating"
	PhaseCompleted  Phase = "completed"
	PhaseCancelled  Phase = "cancelled"
	PhaseError      Phase = "error"
)

// Progress is delivered to listeners as a run advances.
type Progress struct {
	Phase     Phase `json:"phase"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
	Throttled int   `json:"throttled"`
	Total     int   `json:"total"`
}

// Listener receives progress updates. Listeners are invoked synchronously,
// in registration order, from the goroutine driving the run.
type Listener func(Progress)

// ThrottlingStats aggregates rate-limiting observations across a run.
type ThrottlingStats struct {
	ThrottleEvents    int `json:"throttle_events"`
	AbandonedRequests int `json:"abandoned_requests"`
	TotalRetries      int `json:"total_retries"`
}

// State is the accumulating record of one evaluation run. Responses are
// append-only; a single goroutine owns the run while listeners and
// late readers see consistent snapshots through the lock.
type State struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ModelID   string    `json:"model_id"`
	StartedAt time.Time `json:"started_at"`

	mu         sync.RWMutex
	phase      Phase
	responses  []*batch.ResponseRecord
	throttling ThrottlingStats
}

func newState(prompt, modelID string) *State {
	return &State{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		ModelID:   modelID,
		StartedAt: time.Now().UTC(),
		phase:     PhaseIdle,
	}
}

// Phase returns the current lifecycle stage.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *State) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// Responses returns a snapshot of the collected records in submission order.
func (s *State) Responses() []*batch.ResponseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*batch.ResponseRecord, len(s.responses))
	copy(out, s.responses)
	return out
}

// Throttling returns the accumulated rate-limiting stats.
func (s *State) Throttling() ThrottlingStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.throttling
}

func (s *State) recordThrottle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttling.ThrottleEvents++
}

// absorb appends a finished batch's records. Called once per run.
func (s *State) absorb(b *batch.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range b.Responses {
		s.responses = append(s.responses, r)
		s.throttling.TotalRetries += r.RetryCount
		if r.Status == batch.RecordAbandoned {
			s.throttling.AbandonedRequests++
		}
	}
}

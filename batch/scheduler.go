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

package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andmoredev/promptatron-3000-sub001/conversation"
	"github.com/andmoredev/promptatron-3000-sub001/internal/telemetry"
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Task produces one response. The scheduler calls it once per attempt;
// typically it routes through a conversation.Driver run.
type Task func(ctx context.Context) (*conversation.FinalResult, error)

// Phase labels progress events.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseWaiting    Phase = "waiting"
	PhaseDone       Phase = "done"
)

// ProgressEvent is emitted after every request resolution.
type ProgressEvent struct {
	Phase     Phase
	Completed int
	Failed    int
	Throttled int
	Total     int
}

// ThrottlingEvent is emitted whenever an attempt is rejected for rate
// limiting, before the corresponding backoff wait starts.
type ThrottlingEvent struct {
	RequestIndex int
	Attempt      int
	Backoff      time.Duration
	Err          string
}

// Scheduler issues K repeated tasks under a Policy. Listeners are invoked
// synchronously; they must not block.
type Scheduler struct {
	policy Policy

	OnProgress   func(ProgressEvent)
	OnThrottling func(ThrottlingEvent)
	OnCountdown  func(remaining time.Duration)
}

// NewScheduler builds a scheduler with the given policy, filling defaults.
func NewScheduler(policy Policy) *Scheduler {
	return &Scheduler{policy: policy.withDefaults()}
}

// Execute runs the task count times. Per-request failures never abort the
// batch: retryable classifications are retried up to the attempt budget and
// then recorded as abandoned, non-retryable ones are recorded as failed.
// Cancellation is observed before each request start and during every delay;
// records collected before the flag was seen remain in the returned batch.
func (s *Scheduler) Execute(ctx context.Context, task Task, count int) *Batch {
	start := time.Now()
	records := make([]*ResponseRecord, count)

	var (
		mu        sync.Mutex
		completed int
		failed    int
		throttled int
	)

	g := &errgroup.Group{}
	g.SetLimit(s.policy.Concurrency)

	cancelled := false
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if i > 0 {
			if err := wait(ctx, s.policy.InterRequestDelay, s.policy.TickInterval, s.OnCountdown); err != nil {
				cancelled = true
				break
			}
		}

		index := i
		g.Go(func() error {
			rec := s.runOne(ctx, task, index)
			if rec == nil {
				// Cancellation observed before the first attempt; the
				// request was never issued.
				return nil
			}

			mu.Lock()
			records[index] = rec
			switch rec.Status {
			case RecordSucceeded:
				completed++
			default:
				failed++
			}
			if rec.WasThrottled {
				throttled++
			}
			ev := ProgressEvent{
				Phase:     PhaseCollecting,
				Completed: completed,
				Failed:    failed,
				Throttled: throttled,
				Total:     count,
			}
			mu.Unlock()

			if s.OnProgress != nil {
				s.OnProgress(ev)
			}
			return nil
		})
	}
	g.Wait()

	batch := &Batch{Cancelled: cancelled || ctx.Err() != nil}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		batch.Responses = append(batch.Responses, rec)
		switch rec.Status {
		case RecordSucceeded:
			batch.Summary.Succeeded++
		case RecordAbandoned:
			batch.Summary.Abandoned++
		case RecordFailed:
			batch.Summary.Failed++
		}
		batch.Summary.TotalRetries += rec.RetryCount
	}
	batch.Summary.Requested = count
	batch.Summary.ThrottleEvents = s.throttleEventCount(batch.Responses)
	batch.Summary.Duration = time.Since(start)

	if s.OnProgress != nil {
		s.OnProgress(ProgressEvent{
			Phase:     PhaseDone,
			Completed: batch.Summary.Succeeded,
			Failed:    batch.Summary.Abandoned + batch.Summary.Failed,
			Throttled: batch.Summary.ThrottleEvents,
			Total:     count,
		})
	}
	return batch
}

// runOne drives the retry loop for a single request. It returns nil when
// cancellation was observed before the first attempt was issued.
func (s *Scheduler) runOne(ctx context.Context, task Task, index int) *ResponseRecord {
	rec := &ResponseRecord{Index: index, Timestamp: time.Now().UTC()}

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			if attempt == 0 {
				return nil
			}
			if rec.LastError == "" {
				rec.LastError = err.Error()
			}
			reason := model.ErrorTypeTimeout
			if rec.WasThrottled {
				reason = model.ErrorTypeThrottling
			}
			return s.abandon(rec, attempt, reason)
		}
		attempt++

		res, err := task(ctx)
		if err == nil {
			out := normalizeResult(index, res)
			out.Timestamp = rec.Timestamp
			out.WasThrottled = rec.WasThrottled
			out.RetryCount = attempt - 1
			return out
		}

		rec.LastError = err.Error()
		switch model.Classify(err) {
		case model.ErrorTypeThrottling:
			rec.WasThrottled = true
			if attempt >= s.policy.MaxAttempts {
				return s.abandon(rec, attempt, model.ErrorTypeThrottling)
			}
			backoff := s.policy.throttleBackoff(attempt)
			s.emitThrottling(ctx, index, attempt, backoff, err)
			if werr := wait(ctx, backoff, s.policy.TickInterval, s.OnCountdown); werr != nil {
				return s.abandon(rec, attempt, model.ErrorTypeThrottling)
			}

		case model.ErrorTypeTimeout:
			if attempt >= s.policy.MaxAttempts {
				return s.abandon(rec, attempt, model.ErrorTypeTimeout)
			}
			if werr := wait(ctx, s.policy.timeoutBackoff(attempt), s.policy.TickInterval, s.OnCountdown); werr != nil {
				return s.abandon(rec, attempt, model.ErrorTypeTimeout)
			}

		default:
			// Auth/validation failures retry nothing and fail only this
			// request.
			rec.Status = RecordFailed
			rec.RetryCount = attempt - 1
			return rec
		}
	}
}

func (s *Scheduler) abandon(rec *ResponseRecord, attempts int, reason model.ErrorType) *ResponseRecord {
	rec.Status = RecordAbandoned
	rec.WasAbandoned = true
	rec.AbandonReason = reason
	rec.RetryCount = attempts
	return rec
}

func (s *Scheduler) emitThrottling(ctx context.Context, index, attempt int, backoff time.Duration, err error) {
	telemetry.LogThrottling(ctx, index, attempt, backoff)
	if s.OnThrottling != nil {
		s.OnThrottling(ThrottlingEvent{
			RequestIndex: index,
			Attempt:      attempt,
			Backoff:      backoff,
			Err:          err.Error(),
		})
	}
}

func (s *Scheduler) throttleEventCount(records []*ResponseRecord) int {
	n := 0
	for _, rec := range records {
		if rec.WasThrottled {
			n++
		}
	}
	return n
}

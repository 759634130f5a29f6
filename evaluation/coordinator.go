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

package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/consistency"
	"github.com/andmoredev/promptatron-3000-sub001/conversation"
	"github.com/andmoredev/promptatron-3000-sub001/internal/telemetry"
	"github.com/andmoredev/promptatron-3000-sub001/model"
	"github.com/andmoredev/promptatron-3000-sub001/tool"
)

// DefaultCount is the number of repeated invocations when none is configured.
const DefaultCount = 10

// Config assembles the collaborators for a Coordinator.
type Config struct {
	// Invoker issues the repeated model calls. Required.
	Invoker model.Invoker

	// ModelID names the model under evaluation. Required.
	ModelID string

	// Tools, when set, enables the tool-calling conversation loop.
	Tools *tool.Registry

	SystemPrompt string
	Content      []string

	// Mode and Streaming follow the conversation mode matrix.
	Mode      conversation.Mode
	Streaming bool

	MaxIterations int
	InvokeTimeout time.Duration

	// Count is the number of repeated invocations. Zero means DefaultCount.
	Count int

	// Policy shapes retry, backoff, and pacing. Zero value uses defaults.
	Policy batch.Policy

	// Grader produces the consistency report. Nil means a local-only grader.
	Grader *consistency.Grader

	// MinValidResponses gates partial completion: a cancelled or degraded
	// run still grades when at least this many valid responses were
	// collected. Zero means consistency.DefaultMinValidResponses.
	MinValidResponses int

	// OnThrottling, when set, observes every throttling backoff during
	// collection. Called from collection goroutines.
	OnThrottling func(batch.ThrottlingEvent)

	// OnToolExecution, when set, observes every tool run inside the
	// conversation loop. Called from collection goroutines.
	OnToolExecution func(conversation.ToolExecutionEvent)
}

// Result is the outcome of one evaluation run.
type Result struct {
	State  *State
	Batch  *batch.Batch
	Report *consistency.Report

	Duration time.Duration
}

// Coordinator runs evaluations. Listeners registered before Run observe
// phase transitions and per-request progress.
type Coordinator struct {
	cfg       Config
	grader    *consistency.Grader
	listeners []Listener
}

// NewCoordinator validates the configuration, including the conversation
// mode matrix, so incompatible setups fail before any model traffic.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("evaluation: invoker is required")
	}
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("evaluation: model id is required")
	}
	if cfg.Count < 0 {
		return nil, fmt.Errorf("evaluation: count must not be negative, got %d", cfg.Count)
	}
	if cfg.Count == 0 {
		cfg.Count = DefaultCount
	}
	if cfg.MinValidResponses == 0 {
		cfg.MinValidResponses = consistency.DefaultMinValidResponses
	}
	if cfg.Mode == "" && cfg.Tools == nil {
		// No tools to execute; record without executing.
		cfg.Mode = conversation.ModeDetect
	}
	if _, err := conversation.NewDriver(driverConfig(cfg)); err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}

	grader := cfg.Grader
	if grader == nil {
		grader = consistency.NewGrader(consistency.WithMinValidResponses(cfg.MinValidResponses))
	}
	return &Coordinator{cfg: cfg, grader: grader}, nil
}

func driverConfig(cfg Config) conversation.Config {
	return conversation.Config{
		Invoker:         cfg.Invoker,
		Tools:           cfg.Tools,
		ModelID:         cfg.ModelID,
		SystemPrompt:    cfg.SystemPrompt,
		Content:         strings.Join(cfg.Content, "\n\n"),
		MaxIterations:   cfg.MaxIterations,
		InvokeTimeout:   cfg.InvokeTimeout,
		Mode:            cfg.Mode,
		Streaming:       cfg.Streaming,
		OnToolExecution: cfg.OnToolExecution,
	}
}

// AddListener registers a progress listener. Must be called before Run.
func (c *Coordinator) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Coordinator) emit(p Progress) {
	for _, l := range c.listeners {
		l(p)
	}
}

// Run executes the full evaluation: collect Count responses for prompt,
// then grade their consistency. Cancellation stops collection at the next
// safe point; a cancelled run with enough valid responses still grades and
// the result carries the cancelled phase.
func (c *Coordinator) Run(ctx context.Context, prompt string) (*Result, error) {
	state := newState(prompt, c.cfg.ModelID)
	ctx, span := telemetry.StartEvaluation(ctx, state.ID, c.cfg.Count)
	defer span.End()

	state.setPhase(PhaseCollecting)
	c.emit(Progress{Phase: PhaseCollecting, Total: c.cfg.Count})

	scheduler := batch.NewScheduler(c.cfg.Policy)
	scheduler.OnProgress = func(ev batch.ProgressEvent) {
		if ev.Phase == batch.PhaseDone {
			return
		}
		c.emit(Progress{
			Phase:     PhaseCollecting,
			Completed: ev.Completed,
			Failed:    ev.Failed,
			Throttled: ev.Throttled,
			Total:     ev.Total,
		})
	}
	scheduler.OnThrottling = func(ev batch.ThrottlingEvent) {
		state.recordThrottle()
		if c.cfg.OnThrottling != nil {
			c.cfg.OnThrottling(ev)
		}
	}

	task := func(ctx context.Context) (*conversation.FinalResult, error) {
		driver, err := conversation.NewDriver(driverConfig(c.cfg))
		if err != nil {
			return nil, err
		}
		return driver.Run(ctx, prompt)
	}

	start := time.Now()
	b := scheduler.Execute(ctx, task, c.cfg.Count)
	state.absorb(b)

	valid := 0
	for _, r := range b.Responses {
		if r.Valid() {
			valid++
		}
	}

	result := &Result{State: state, Batch: b, Duration: time.Since(start)}

	if b.Cancelled && valid < c.cfg.MinValidResponses {
		state.setPhase(PhaseCancelled)
		c.emit(Progress{Phase: PhaseCancelled, Completed: valid, Total: c.cfg.Count})
		return result, nil
	}
	if valid == 0 {
		state.setPhase(PhaseError)
		c.emit(Progress{Phase: PhaseError, Total: c.cfg.Count})
		return result, fmt.Errorf("evaluation: no valid responses collected out of %d requests", c.cfg.Count)
	}

	state.setPhase(PhaseEvaluating)
	c.emit(Progress{Phase: PhaseEvaluating, Completed: valid, Total: c.cfg.Count})

	result.Report = c.grader.Grade(ctx, prompt, b)

	final := PhaseCompleted
	if b.Cancelled {
		final = PhaseCancelled
	}
	state.setPhase(final)
	c.emit(Progress{Phase: final, Completed: valid, Total: c.cfg.Count})
	return result, nil
}

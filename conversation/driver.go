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

package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/andmoredev/promptatron-3000-sub001/internal/telemetry"
	"github.com/andmoredev/promptatron-3000-sub001/model"
	"github.com/andmoredev/promptatron-3000-sub001/tool"
)

const (
	// DefaultMaxIterations caps the tool-calling loop when no explicit cap
	// is configured, protecting against a model that requests tools forever.
	DefaultMaxIterations = 10

	// DefaultInvokeTimeout is the hard per-call deadline.
	DefaultInvokeTimeout = 60 * time.Second
)

// ToolExecutionEvent is delivered to the OnToolExecution listener after each
// tool run.
type ToolExecutionEvent struct {
	Name      string
	CallID    string
	Iteration int
	Success   bool
	Error     string
}

// Config configures a Driver.
type Config struct {
	Invoker model.Invoker
	Tools   *tool.Registry

	ModelID      string
	SystemPrompt string

	// Content is appended to the first user turn, after the prompt.
	Content string

	MaxIterations int
	InvokeTimeout time.Duration

	Mode Mode

	// Streaming requests token streaming from the invoker. Only valid with
	// ModeDetect; tool execution requires complete turns.
	Streaming bool

	MaxTokens   int32
	Temperature *float32

	// OnToolExecution, when set, is called synchronously after every tool
	// run, in execution order.
	OnToolExecution func(ToolExecutionEvent)
}

// Driver runs tool-calling conversations. A Driver is immutable after
// construction and safe for concurrent Run calls; each call owns its own
// conversation state.
type Driver struct {
	cfg Config
}

// NewDriver validates the mode compatibility matrix and builds a driver.
//
//	             streaming=false  streaming=true
//	ModeExecute  ok               rejected
//	ModeDetect   ok               ok
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("conversation: invoker is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeExecute
	}
	if cfg.Mode == ModeExecute && cfg.Streaming {
		return nil, fmt.Errorf("conversation: streaming is incompatible with tool execution mode")
	}
	if cfg.Mode == ModeExecute && cfg.Tools == nil {
		return nil, fmt.Errorf("conversation: execution mode requires a tool registry")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = DefaultInvokeTimeout
	}
	return &Driver{cfg: cfg}, nil
}

// Run drives the conversation for the given prompt until the model completes
// a turn without requesting tools, the iteration cap is reached, or the
// invoker fails. Tool failures never abort the run; they are fed back to the
// model as structured error results. Invoker errors abort the conversation
// and propagate to the caller.
func (d *Driver) Run(ctx context.Context, prompt string) (*FinalResult, error) {
	st := &state{status: StatusAwaitingModel}

	var declarations []*model.ToolDeclaration
	if d.cfg.Tools != nil {
		declarations = d.cfg.Tools.Declarations()
	}

	for st.iteration < d.cfg.MaxIterations {
		st.iteration++

		resp, err := d.invoke(ctx, prompt, st, declarations)
		if err != nil {
			return nil, fmt.Errorf("conversation iteration %d: %w", st.iteration, err)
		}
		st.addUsage(resp.Usage)
		st.text += resp.Text

		modelTurn := model.Message{Role: model.RoleModel, Text: resp.Text, ToolCalls: resp.ToolCalls}
		st.history = append(st.history, modelTurn)

		switch resp.StopReason {
		case model.StopEndTurn, model.StopMaxTokens:
			st.status = StatusCompleted
			return d.finish(st, resp.StopReason), nil

		case model.StopToolUse:
			if d.cfg.Mode == ModeDetect {
				d.recordDetectedCalls(st, resp.ToolCalls)
				st.status = StatusCompleted
				return d.finish(st, resp.StopReason), nil
			}
			st.status = StatusExecutingTools
			results := d.executeTools(ctx, st, resp.ToolCalls)
			st.history = append(st.history, model.Message{Role: model.RoleTool, ToolResults: results})
			st.status = StatusAwaitingModel

		default:
			// Unrecognized stop signal: terminal, but not an invoker error.
			st.status = StatusFailed
			return d.finish(st, resp.StopReason), nil
		}
	}

	st.status = StatusMaxIterationsReached
	return d.finish(st, model.StopToolUse), nil
}

func (d *Driver) invoke(ctx context.Context, prompt string, st *state, declarations []*model.ToolDeclaration) (*model.Response, error) {
	req := &model.Request{
		ModelID:      d.cfg.ModelID,
		SystemPrompt: d.cfg.SystemPrompt,
		Tools:        declarations,
		MaxTokens:    d.cfg.MaxTokens,
		Temperature:  d.cfg.Temperature,
	}
	if st.iteration == 1 {
		req.UserPrompt = prompt
		req.Content = d.cfg.Content
	} else {
		// Later iterations replay the accumulated history; the original
		// prompt is already its first turn.
		req.History = append([]model.Message{{Role: model.RoleUser, Text: prompt}}, st.history...)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.InvokeTimeout)
	defer cancel()

	ctx, span := telemetry.StartInvocation(ctx, d.cfg.ModelID, st.iteration)
	defer span.End()

	telemetry.LogRequest(ctx, req)
	resp, err := d.generate(ctx, req)
	telemetry.LogResponse(ctx, resp, err)
	return resp, err
}

func (d *Driver) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	if d.cfg.Streaming {
		if streamer, ok := d.cfg.Invoker.(model.StreamingInvoker); ok {
			return streamer.InvokeStream(ctx, req, nil)
		}
		// Invoker has no streaming support; a unary call is equivalent for
		// detection mode.
	}
	return d.cfg.Invoker.Invoke(ctx, req)
}

func (d *Driver) recordDetectedCalls(st *state, calls []model.ToolCall) {
	for _, call := range calls {
		st.records = append(st.records, ToolCallRecord{
			Name:      call.Name,
			CallID:    call.ID,
			Input:     call.Input,
			Iteration: st.iteration,
			Executed:  false,
		})
	}
}

func (d *Driver) executeTools(ctx context.Context, st *state, calls []model.ToolCall) []model.ToolResult {
	results := make([]model.ToolResult, 0, len(calls))
	for _, call := range calls {
		toolCtx, span := telemetry.StartToolExecution(ctx, call.Name, call.ID)
		res := d.cfg.Tools.Execute(toolCtx, call)
		telemetry.LogToolExecution(toolCtx, call.Name, call.ID, res.Success)
		span.End()

		st.records = append(st.records, ToolCallRecord{
			Name:      call.Name,
			CallID:    call.ID,
			Input:     call.Input,
			Iteration: st.iteration,
			Executed:  true,
			Success:   res.Success,
			Output:    res.Content,
			Error:     res.Error,
		})

		if d.cfg.OnToolExecution != nil {
			d.cfg.OnToolExecution(ToolExecutionEvent{
				Name:      call.Name,
				CallID:    call.ID,
				Iteration: st.iteration,
				Success:   res.Success,
				Error:     res.Error,
			})
		}

		results = append(results, res.ToModel())
	}
	return results
}

func (d *Driver) finish(st *state, stop model.StopReason) *FinalResult {
	usage := st.usage
	return &FinalResult{
		Text:       st.text,
		Status:     st.status,
		StopReason: stop,
		Iterations: st.iteration,
		ToolCalls:  st.records,
		Usage:      &usage,
	}
}

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

// Package conversation drives multi-turn tool-calling conversations against
// a model invoker until the model stops requesting tools or an iteration cap
// is reached.
package conversation

import (
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Status is the terminal (or in-flight) state of a conversation run.
type Status string

const (
	StatusAwaitingModel        Status = "awaiting_model"
	StatusExecutingTools       Status = "executing_tools"
	StatusCompleted            Status = "completed"
	StatusMaxIterationsReached Status = "max_iterations_reached"
	StatusFailed               Status = "failed"
)

// Mode selects how tool requests are handled.
type Mode string

const (
	// ModeExecute runs requested tools and feeds results back to the model.
	ModeExecute Mode = "execute"

	// ModeDetect records requested tool calls without executing them and
	// ends the conversation after the first tool-request turn.
	ModeDetect Mode = "detect"
)

// ToolCallRecord captures one tool call requested during the conversation.
// Records are immutable once appended.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	CallID    string         `json:"call_id"`
	Input     map[string]any `json:"input,omitempty"`
	Iteration int            `json:"iteration"`

	// Executed is false in detection mode, where calls are proposed only.
	Executed bool           `json:"executed"`
	Success  bool           `json:"success"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// FinalResult is the terminal outcome of a conversation run. A run that hits
// the iteration cap still produces a FinalResult; only invoker failures are
// reported as errors.
type FinalResult struct {
	Text       string           `json:"text"`
	Status     Status           `json:"status"`
	StopReason model.StopReason `json:"stop_reason"`
	Iterations int              `json:"iterations"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	Usage      *model.Usage     `json:"usage,omitempty"`
}

// state is the accumulating conversation state. It is owned by exactly one
// Run call and discarded when the run terminates.
type state struct {
	history   []model.Message
	iteration int
	records   []ToolCallRecord
	status    Status
	text      string
	usage     model.Usage
}

func (s *state) addUsage(u *model.Usage) {
	if u == nil {
		return
	}
	s.usage.InputTokens += u.InputTokens
	s.usage.OutputTokens += u.OutputTokens
	s.usage.TotalTokens += u.TotalTokens
}

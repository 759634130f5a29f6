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

// Package model defines the invoker abstraction over a hosted inference
// endpoint, the normalized request/response shapes used by the rest of the
// module, and the invocation error taxonomy.
package model

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Invoker performs a single request/response call against an inference
// endpoint. Implementations map their vendor wire format onto the normalized
// Request and Response types.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// StreamingInvoker is an optional extension that delivers text tokens through
// a callback as they arrive. The final aggregated Response is still returned.
type StreamingInvoker interface {
	Invoker
	InvokeStream(ctx context.Context, req *Request, onToken func(text string)) (*Response, error)
}

// ToolDeclaration describes a callable tool advertised to the model.
type ToolDeclaration struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	InputSchema  *jsonschema.Schema `json:"input_schema,omitempty"`
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"`
}

// Request is a normalized single-turn request.
type Request struct {
	ModelID      string
	SystemPrompt string
	UserPrompt   string

	// Content carries additional document or dataset text appended to the
	// user turn, kept separate so the prompt itself stays stable across runs.
	Content string

	// History holds prior turns of a multi-turn conversation, oldest first.
	// The user turn built from UserPrompt/Content is appended after it.
	History []Message

	Tools []*ToolDeclaration

	MaxTokens   int32
	Temperature *float32
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Message is one turn of conversation history.
type Message struct {
	Role Role `json:"role"`

	// Text is the plain-text body for user and model turns.
	Text string `json:"text,omitempty"`

	// ToolCalls carries the tool requests emitted in a model turn.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResults carries the serialized results fed back in a tool turn.
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolCall is a structured request by the model to invoke a named tool.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult is the outcome of one tool call, fed back to the model.
// Execution failures are carried in Error rather than aborting the turn.
type ToolResult struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Content map[string]any `json:"content,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// StopReason is the normalized reason the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopError     StopReason = "error"
	StopOther     StopReason = "other"
)

// Usage reports token accounting for one invocation.
type Usage struct {
	InputTokens  int32 `json:"input_tokens,omitempty"`
	OutputTokens int32 `json:"output_tokens,omitempty"`
	TotalTokens  int32 `json:"total_tokens,omitempty"`

	// FromCache marks responses served by a CachingInvoker without reaching
	// the endpoint.
	FromCache bool `json:"from_cache,omitempty"`
}

// Response is a normalized single-turn response.
type Response struct {
	Text       string     `json:"text"`
	Usage      *Usage     `json:"usage,omitempty"`
	StopReason StopReason `json:"stop_reason"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Clone returns a deep copy of the response. Cached responses are cloned
// before being handed out so callers cannot mutate shared state.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{
		Text:       r.Text,
		StopReason: r.StopReason,
	}
	if r.Usage != nil {
		u := *r.Usage
		out.Usage = &u
	}
	if len(r.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(r.ToolCalls))
		for i, tc := range r.ToolCalls {
			cp := ToolCall{ID: tc.ID, Name: tc.Name}
			if tc.Input != nil {
				cp.Input = make(map[string]any, len(tc.Input))
				for k, v := range tc.Input {
					cp.Input[k] = v
				}
			}
			out.ToolCalls[i] = cp
		}
	}
	return out
}

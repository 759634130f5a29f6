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

// Package tool provides the executor capability consumed by conversation
// runs: a registry of named tools and a typed function-tool implementation.
package tool

import (
	"context"
	"fmt"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Tool is a callable capability the model may request by name.
type Tool interface {
	// Name returns the name of the tool.
	Name() string
	// Description returns a description of the tool.
	Description() string
	// Declaration returns the catalog entry advertised to the model.
	Declaration() *model.ToolDeclaration
	// Run executes the tool with the model-supplied parameters.
	Run(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Result is the terminal outcome of one tool execution. Handler failures are
// folded into Error; a Result never carries a Go error that could abort the
// surrounding conversation.
type Result struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Content map[string]any `json:"content,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ToModel converts the result to the message form fed back to the endpoint.
func (r *Result) ToModel() model.ToolResult {
	out := model.ToolResult{CallID: r.CallID, Name: r.Name}
	if r.Success {
		out.Content = r.Content
	} else {
		out.Error = r.Error
	}
	return out
}

// UnknownToolError reports a model request for a name with no registered
// handler.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

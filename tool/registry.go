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

package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Registry maps tool names to implementations. It is injected once at
// construction of a conversation driver; lookups of unregistered names
// produce a typed UnknownToolError instead of dynamic dispatch failures.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Declarations returns the catalog entries for all registered tools, sorted
// by name so advertised catalogs are stable across runs.
func (r *Registry) Declarations() []*model.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]*model.ToolDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, t.Declaration())
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the tool named in the call and folds any failure, including
// an unknown tool name, into the returned Result.
func (r *Registry) Execute(ctx context.Context, call model.ToolCall) *Result {
	res := &Result{CallID: call.ID, Name: call.Name}

	t, err := r.Get(call.Name)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	content, err := t.Run(ctx, call.Input)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Content = content
	return res
}

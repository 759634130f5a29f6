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
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Handler is the typed implementation of a function tool.
type Handler[TArgs, TResults any] func(ctx context.Context, args TArgs) (TResults, error)

// FunctionTool wraps a typed handler as a Tool. Input and output schemas are
// derived from the type parameters by reflection and included in the
// declaration advertised to the model.
type FunctionTool[TArgs, TResults any] struct {
	name        string
	description string

	inputSchema  *jsonschema.Schema
	outputSchema *jsonschema.Schema

	handler Handler[TArgs, TResults]
}

var _ Tool = (*FunctionTool[any, any])(nil)

// NewFunctionTool builds a FunctionTool from a typed handler. It panics when
// a schema cannot be derived from the type parameters, which is a programming
// error caught at construction.
func NewFunctionTool[TArgs, TResults any](name, description string, handler Handler[TArgs, TResults]) *FunctionTool[TArgs, TResults] {
	t, err := newFunctionToolErr(name, description, handler)
	if err != nil {
		panic(fmt.Errorf("NewFunctionTool(%q): %w", name, err))
	}
	return t
}

func newFunctionToolErr[TArgs, TResults any](name, description string, handler Handler[TArgs, TResults]) (*FunctionTool[TArgs, TResults], error) {
	ischema, err := jsonschema.For[TArgs](nil)
	if err != nil {
		return nil, err
	}
	oschema, err := jsonschema.For[TResults](nil)
	if err != nil {
		return nil, err
	}
	return &FunctionTool[TArgs, TResults]{
		name:         name,
		description:  description,
		inputSchema:  ischema,
		outputSchema: oschema,
		handler:      handler,
	}, nil
}

// Name implements Tool.
func (f *FunctionTool[TArgs, TResults]) Name() string {
	return f.name
}

// Description implements Tool.
func (f *FunctionTool[TArgs, TResults]) Description() string {
	return f.description
}

// Declaration implements Tool.
func (f *FunctionTool[TArgs, TResults]) Declaration() *model.ToolDeclaration {
	return &model.ToolDeclaration{
		Name:         f.name,
		Description:  f.description,
		InputSchema:  f.inputSchema,
		OutputSchema: f.outputSchema,
	}
}

// Run implements Tool. Model-supplied parameters arrive as map[string]any and
// are decoded into the handler's argument type; the result is flattened back
// to a map for the function-response turn.
func (f *FunctionTool[TArgs, TResults]) Run(ctx context.Context, params map[string]any) (map[string]any, error) {
	var args TArgs
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &args,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building parameter decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return nil, fmt.Errorf("decoding parameters: %w", err)
	}

	resp, err := f.handler(ctx, args)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("result is not json serializable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("result is not an object: %w", err)
	}
	return out, nil
}

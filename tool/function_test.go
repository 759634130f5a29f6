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
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sumIn struct {
	A int `json:"a,omitempty"`
	B int `json:"b,omitempty"`
}

type sumOut struct {
	Result int `json:"res,omitempty"`
}

func sumFn(ctx context.Context, in sumIn) (sumOut, error) {
	return sumOut{Result: in.A + in.B}, nil
}

func errorFn(ctx context.Context, _ sumIn) (sumOut, error) {
	return sumOut{}, fmt.Errorf("err")
}

func TestFunctionTool(t *testing.T) {
	ctx := t.Context()

	for _, tc := range []struct {
		tool    *FunctionTool[sumIn, sumOut]
		in      map[string]any
		wantOut map[string]any
		wantErr bool
	}{
		{
			tool:    NewFunctionTool("sum", "", sumFn),
			in:      map[string]any{"a": 1, "b": 2},
			wantOut: map[string]any{"res": float64(3)},
		},
		{
			// Numeric parameters from JSON arrive as float64.
			tool:    NewFunctionTool("sum", "", sumFn),
			in:      map[string]any{"a": float64(4), "b": float64(5)},
			wantOut: map[string]any{"res": float64(9)},
		},
		{
			tool:    NewFunctionTool("error", "", errorFn),
			in:      map[string]any{"a": 1},
			wantErr: true,
		},
	} {
		t.Run(tc.tool.Name(), func(t *testing.T) {
			res, err := tc.tool.Run(ctx, tc.in)
			if tc.wantErr && err == nil {
				t.Fatalf("tool(%v).Run=(%v, nil), want (_, <error>)", tc.tool.Name(), res)
			}
			if !tc.wantErr && (err != nil || !cmp.Equal(res, tc.wantOut)) {
				t.Fatalf("tool(%v).Run=(%v, %v), want (%v, nil)", tc.tool.Name(), res, err, tc.wantOut)
			}
		})
	}
}

func TestFunctionToolDeclaration(t *testing.T) {
	ft := NewFunctionTool("sum", "adds two numbers", sumFn)
	decl := ft.Declaration()
	if decl.Name != "sum" || decl.Description != "adds two numbers" {
		t.Fatalf("Declaration() = %+v, want name and description carried over", decl)
	}
	if decl.InputSchema == nil || decl.OutputSchema == nil {
		t.Fatalf("Declaration() missing schemas: %+v", decl)
	}
}

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
	"errors"
	"testing"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	sum := NewFunctionTool("sum", "", sumFn)

	if err := reg.Register(sum); err != nil {
		t.Fatalf("Register() = %v, want nil", err)
	}
	if err := reg.Register(sum); err == nil {
		t.Fatal("Register() duplicate = nil, want error")
	}

	got, err := reg.Get("sum")
	if err != nil || got.Name() != "sum" {
		t.Fatalf("Get(sum) = (%v, %v), want the registered tool", got, err)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("nope")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("Get(nope) error = %v, want *UnknownToolError", err)
	}
	if unknown.Name != "nope" {
		t.Fatalf("UnknownToolError.Name = %q, want %q", unknown.Name, "nope")
	}

	// Execute folds the unknown name into the result instead of failing.
	res := reg.Execute(t.Context(), model.ToolCall{ID: "c1", Name: "nope"})
	if res.Success {
		t.Fatal("Execute(unknown) success = true, want false")
	}
	if res.Error == "" {
		t.Fatal("Execute(unknown) error text empty, want populated")
	}
}

func TestRegistryExecuteFoldsHandlerError(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewFunctionTool("boom", "", errorFn)); err != nil {
		t.Fatal(err)
	}

	res := reg.Execute(t.Context(), model.ToolCall{ID: "c1", Name: "boom", Input: map[string]any{"a": 1}})
	if res.Success {
		t.Fatal("Execute(boom) success = true, want false")
	}
	if res.Error != "err" {
		t.Fatalf("Execute(boom) error = %q, want %q", res.Error, "err")
	}

	mr := res.ToModel()
	if mr.Error != "err" || mr.Content != nil {
		t.Fatalf("ToModel() = %+v, want error carried and no content", mr)
	}
}

func TestRegistryDeclarationsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(NewFunctionTool(name, "", sumFn)); err != nil {
			t.Fatal(err)
		}
	}

	decls := reg.Declarations()
	want := []string{"alpha", "mid", "zeta"}
	for i, d := range decls {
		if d.Name != want[i] {
			t.Fatalf("Declarations()[%d] = %q, want %q", i, d.Name, want[i])
		}
	}
}

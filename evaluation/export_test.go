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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

func runForExport(t *testing.T) *Result {
	t.Helper()

	script := make([]func() (*model.Response, error), 0, 4)
	for range 3 {
		script = append(script, succeed("Yes"))
	}
	script = append(script, throttle())

	coord, err := NewCoordinator(Config{
		Invoker: &seqInvoker{script: script},
		ModelID: "test-model",
		Count:   4,
		Policy:  fastPolicy(),
	})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}

	result, err := coord.Run(t.Context(), "Is the service healthy?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return result
}

func TestExportImportRoundTrip(t *testing.T) {
	result := runForExport(t)

	artifact, err := result.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := artifact.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	imported, err := Import(data)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if diff := cmp.Diff(artifact, imported); diff != "" {
		t.Fatalf("round trip mismatch (-exported +imported):\n%s", diff)
	}
	if len(imported.Responses) != 4 {
		t.Fatalf("Import() responses = %d, want 4", len(imported.Responses))
	}
	if imported.Report.Grade != artifact.Report.Grade {
		t.Fatalf("Import() grade = %q, want %q", imported.Report.Grade, artifact.Report.Grade)
	}
	if imported.Throttling != artifact.Throttling {
		t.Fatalf("Import() throttling = %+v, want %+v", imported.Throttling, artifact.Throttling)
	}
}

func TestArtifactBatchRebuild(t *testing.T) {
	result := runForExport(t)

	artifact, err := result.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	b := artifact.Batch()
	if len(b.Responses) != len(artifact.Responses) {
		t.Fatalf("Batch() responses = %d, want %d", len(b.Responses), len(artifact.Responses))
	}
	valid := 0
	for _, r := range b.Responses {
		if r.Valid() {
			valid++
		}
	}
	if valid != 3 {
		t.Fatalf("Batch() valid responses = %d, want 3", valid)
	}
}

func TestImportRejectsMalformedArtifacts(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "not JSON",
			data: "grade: A",
			want: "failed to decode",
		},
		{
			name: "unsupported version",
			data: `{"version": 99, "id": "abc"}`,
			want: "unsupported artifact version",
		},
		{
			name: "missing id",
			data: `{"version": 1}`,
			want: "missing id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import([]byte(tc.data))
			if err == nil {
				t.Fatal("Import() error = nil, want failure")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Import() error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestExportRequiresCompletedRun(t *testing.T) {
	var empty *Result
	if _, err := empty.Export(); err == nil {
		t.Fatal("Export() error = nil, want failure for nil result")
	}
	if _, err := (&Result{}).Export(); err == nil {
		t.Fatal("Export() error = nil, want failure for empty result")
	}
}

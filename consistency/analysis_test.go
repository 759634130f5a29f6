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

package consistency

import (
	"math"
	"testing"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/conversation"
)

func record(text string, calls ...conversation.ToolCallRecord) *batch.ResponseRecord {
	return &batch.ResponseRecord{
		Text:      text,
		ToolCalls: calls,
		Status:    batch.RecordSucceeded,
	}
}

func call(name string, input map[string]any) conversation.ToolCallRecord {
	return conversation.ToolCallRecord{Name: name, Input: input}
}

func makeRecords(n int, f func(i int) *batch.ResponseRecord) []*batch.ResponseRecord {
	records := make([]*batch.ResponseRecord, n)
	for i := range records {
		records[i] = f(i)
	}
	return records
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestToolUsageConsistency(t *testing.T) {
	tests := []struct {
		name    string
		records []*batch.ResponseRecord
		want    float64
	}{
		{
			name: "no tools anywhere",
			records: makeRecords(4, func(int) *batch.ResponseRecord {
				return record("plain answer")
			}),
			want: 1.0,
		},
		{
			name: "identical tools and inputs",
			records: makeRecords(4, func(int) *batch.ResponseRecord {
				return record("x", call("lookup", map[string]any{"id": "42"}))
			}),
			want: 1.0,
		},
		{
			name: "even split across disjoint tool sets",
			records: makeRecords(10, func(i int) *batch.ResponseRecord {
				if i < 5 {
					return record("x", call("lookup", nil))
				}
				return record("x", call("search", nil))
			}),
			// 0.7*0.5 dominant share + 0.3*1.0 within-group agreement.
			want: 0.65,
		},
		{
			name: "dominant signature with one outlier",
			records: makeRecords(10, func(i int) *batch.ResponseRecord {
				if i < 9 {
					return record("x", call("lookup", nil))
				}
				return record("x", call("search", nil))
			}),
			want: 0.7*0.9 + 0.3*1.0,
		},
		{
			name: "same tools different inputs",
			records: makeRecords(4, func(i int) *batch.ResponseRecord {
				if i < 2 {
					return record("x", call("lookup", map[string]any{"id": "a"}))
				}
				return record("x", call("lookup", map[string]any{"id": "b"}))
			}),
			// Full dominant name share, half input agreement.
			want: 0.7*1.0 + 0.3*0.5,
		},
		{
			name: "mixed usage split evenly hits the floor",
			records: makeRecords(4, func(i int) *batch.ResponseRecord {
				if i < 2 {
					return record("x", call("lookup", nil))
				}
				return record("x")
			}),
			want: 0.1,
		},
		{
			name: "mixed usage with strong majority",
			records: makeRecords(10, func(i int) *batch.ResponseRecord {
				if i < 9 {
					return record("x", call("lookup", nil))
				}
				return record("x")
			}),
			want: 0.8,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := toolUsageConsistency(tc.records)
			if !almostEqual(got, tc.want) {
				t.Fatalf("toolUsageConsistency() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestToolUsageMonotonicity(t *testing.T) {
	split := toolUsageConsistency(makeRecords(10, func(i int) *batch.ResponseRecord {
		if i < 5 {
			return record("x", call("lookup", nil))
		}
		return record("x", call("search", nil))
	}))
	skewed := toolUsageConsistency(makeRecords(10, func(i int) *batch.ResponseRecord {
		if i < 9 {
			return record("x", call("lookup", nil))
		}
		return record("x", call("search", nil))
	}))
	unanimous := toolUsageConsistency(makeRecords(10, func(int) *batch.ResponseRecord {
		return record("x", call("lookup", nil))
	}))

	if !(split < skewed && skewed < unanimous) {
		t.Fatalf("want split < skewed < unanimous, got %v, %v, %v", split, skewed, unanimous)
	}
}

func TestToolSignatureOrderInsensitive(t *testing.T) {
	a := fullSignature([]conversation.ToolCallRecord{
		call("alpha", map[string]any{"k": "v"}),
		call("beta", nil),
	})
	b := fullSignature([]conversation.ToolCallRecord{
		call("beta", nil),
		call("alpha", map[string]any{"k": "v"}),
	})
	if a != b {
		t.Fatalf("signatures differ for reordered calls: %q vs %q", a, b)
	}
}

func TestDecisionConsistency(t *testing.T) {
	tests := []struct {
		name    string
		records []*batch.ResponseRecord
		want    float64
	}{
		{
			name: "same decision line, different surrounding text",
			records: makeRecords(4, func(i int) *batch.ResponseRecord {
				if i%2 == 0 {
					return record("Cost analysis follows.\nI recommend option A.")
				}
				return record("A different preamble here.\nI recommend option A.")
			}),
			want: 1.0,
		},
		{
			name: "two camps",
			records: makeRecords(4, func(i int) *batch.ResponseRecord {
				if i < 3 {
					return record("You should choose the first plan.")
				}
				return record("You should choose the second plan.")
			}),
			// 2 clusters over 4 responses with decisions.
			want: 1 - 1.0/3.0,
		},
		{
			name: "no decision phrases",
			records: []*batch.ResponseRecord{
				record("The sky is blue."),
				record("Water boils at 100C."),
			},
			want: decisionDefault,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := decisionConsistency(tc.records)
			if !almostEqual(got, tc.want) {
				t.Fatalf("decisionConsistency() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSemanticSimilarity(t *testing.T) {
	identical := makeRecords(5, func(int) *batch.ResponseRecord { return record("same answer") })
	if got := semanticSimilarity(identical); got != 1.0 {
		t.Fatalf("semanticSimilarity(identical) = %v, want 1.0", got)
	}

	allDifferent := makeRecords(5, func(i int) *batch.ResponseRecord {
		return record(string(rune('a' + i)))
	})
	if got := semanticSimilarity(allDifferent); got != 0.0 {
		t.Fatalf("semanticSimilarity(all different) = %v, want 0.0", got)
	}

	twoTexts := makeRecords(5, func(i int) *batch.ResponseRecord {
		if i < 4 {
			return record("dominant")
		}
		return record("outlier")
	})
	if got, want := semanticSimilarity(twoTexts), 0.75; !almostEqual(got, want) {
		t.Fatalf("semanticSimilarity(two texts) = %v, want %v", got, want)
	}
}

func TestStructuralConsistency(t *testing.T) {
	uniform := makeRecords(3, func(int) *batch.ResponseRecord { return record("short answer") })
	if got := structuralConsistency(uniform); got != 1.0 {
		t.Fatalf("structuralConsistency(uniform) = %v, want 1.0", got)
	}

	varied := []*batch.ResponseRecord{
		record("short answer"),
		record("- item one\n- item two\n- item three"),
		record("short answer"),
	}
	if got, want := structuralConsistency(varied), 2.0/3.0; !almostEqual(got, want) {
		t.Fatalf("structuralConsistency(varied) = %v, want %v", got, want)
	}
}

func TestAnalyzeIdenticalResponses(t *testing.T) {
	records := makeRecords(5, func(int) *batch.ResponseRecord {
		return record("The inventory level is nominal.")
	})

	report := analyze(records)

	want := Metrics{ToolUsage: 1.0, Decision: 1.0, Semantic: 1.0, Structural: 1.0}
	if report.Metrics != want {
		t.Fatalf("analyze() metrics = %+v, want %+v", report.Metrics, want)
	}
	if !almostEqual(report.Score, 100) {
		t.Fatalf("analyze() score = %v, want 100", report.Score)
	}
	if report.Grade != GradeA {
		t.Fatalf("analyze() grade = %q, want %q", report.Grade, GradeA)
	}
	if report.Source != SourceStatistical {
		t.Fatalf("analyze() source = %q, want %q", report.Source, SourceStatistical)
	}
}

func TestGradeForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeA},
		{90, GradeA},
		{89.9, GradeB},
		{70, GradeB},
		{69.9, GradeC},
		{50, GradeC},
		{49.9, GradeD},
		{30, GradeD},
		{29.9, GradeF},
		{0, GradeF},
	}

	for _, tc := range tests {
		if got := GradeForScore(tc.score); got != tc.want {
			t.Errorf("GradeForScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStructured(t *testing.T) {
	parser := newResponseParser()

	tests := []struct {
		name     string
		response string
		want     *judgeResult
		wantErr  bool
	}{
		{
			name:     "bare JSON",
			response: `{"grade": "A", "score": 95, "tool_usage_consistency": 1.0}`,
			want:     &judgeResult{Grade: "A", Score: 95, ToolUsage: floatPtr(1.0)},
		},
		{
			name:     "fenced JSON",
			response: "Here is my assessment:\n```json\n{\"grade\": \"b\", \"score\": 78}\n```",
			want:     &judgeResult{Grade: "B", Score: 78},
		},
		{
			name:     "JSON embedded in prose",
			response: `After reviewing the responses, {"grade": "C", "score": 55, "notable_variations": ["differing tools"]} as shown.`,
			want:     &judgeResult{Grade: "C", Score: 55, NotableVariations: []string{"differing tools"}},
		},
		{
			name:     "invalid grade letter",
			response: `{"grade": "Z", "score": 50}`,
			wantErr:  true,
		},
		{
			name:     "score out of range",
			response: `{"grade": "A", "score": 150}`,
			wantErr:  true,
		},
		{
			name:     "no JSON at all",
			response: "The responses look fairly consistent to me.",
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parser.parseStructured(tc.response)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseStructured() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStructured() error = %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("parseStructured() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseHeuristic(t *testing.T) {
	parser := newResponseParser()

	tests := []struct {
		name      string
		response  string
		wantGrade Grade
		wantScore float64
		wantErr   bool
	}{
		{
			name:      "grade and score tokens",
			response:  "The responses are quite consistent. Grade: B. Score: 78.",
			wantGrade: GradeB,
			wantScore: 78,
		},
		{
			name:      "score only derives the grade",
			response:  "Overall consistency score: 92 out of 100.",
			wantGrade: GradeA,
			wantScore: 92,
		},
		{
			name:      "grade only gets the band midpoint",
			response:  "I would assign grade: C for this set.",
			wantGrade: GradeC,
			wantScore: 60,
		},
		{
			name:      "lowercase tokens",
			response:  "grade = a, rating: 96",
			wantGrade: GradeA,
			wantScore: 96,
		},
		{
			name:     "nothing recognizable",
			response: "These responses vary somewhat in tone.",
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grade, score, err := parser.parseHeuristic(tc.response)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseHeuristic() = %q/%v, want error", grade, score)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHeuristic() error = %v", err)
			}
			if grade != tc.wantGrade || score != tc.wantScore {
				t.Fatalf("parseHeuristic() = %q/%v, want %q/%v", grade, score, tc.wantGrade, tc.wantScore)
			}
		})
	}
}

func floatPtr(f float64) *float64 { return &f }

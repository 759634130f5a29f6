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
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// stubInvoker returns a canned response and captures the last request.
type stubInvoker struct {
	text    string
	err     error
	lastReq *model.Request
}

func (s *stubInvoker) Invoke(ctx context.Context, req *model.Request) (*model.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &model.Response{Text: s.text, StopReason: model.StopEndTurn}, nil
}

func validBatch(texts ...string) *batch.Batch {
	b := &batch.Batch{}
	for i, text := range texts {
		b.Responses = append(b.Responses, &batch.ResponseRecord{
			Index:  i,
			Text:   text,
			Status: batch.RecordSucceeded,
		})
	}
	b.Summary.Requested = len(texts)
	b.Summary.Succeeded = len(texts)
	return b
}

func TestGradeJudgePath(t *testing.T) {
	invoker := &stubInvoker{
		text: `{"grade": "B", "score": 75, "tool_usage_consistency": 0.9, "decision_consistency": 0.7, "semantic_similarity": 0.6, "structural_consistency": 0.8, "notable_variations": ["wording differs"]}`,
	}
	grader := NewGrader(WithJudge(invoker, "judge-model"))

	report := grader.Grade(t.Context(), "What is 2+2?", validBatch("Four.", "It is 4."))

	if report.Source != SourceJudge {
		t.Fatalf("Grade() source = %q, want %q", report.Source, SourceJudge)
	}
	if report.Grade != GradeB || report.Score != 75 {
		t.Fatalf("Grade() = %q/%v, want B/75", report.Grade, report.Score)
	}
	want := Metrics{ToolUsage: 0.9, Decision: 0.7, Semantic: 0.6, Structural: 0.8}
	if report.Metrics != want {
		t.Fatalf("Grade() metrics = %+v, want %+v", report.Metrics, want)
	}
	if len(report.Notes) != 1 || report.Notes[0] != "wording differs" {
		t.Fatalf("Grade() notes = %v, want judge variations", report.Notes)
	}
	if report.JudgeResponse == "" {
		t.Fatal("Grade() dropped the raw judge response")
	}

	if invoker.lastReq.ModelID != "judge-model" {
		t.Fatalf("judge request model = %q, want judge-model", invoker.lastReq.ModelID)
	}
	for _, fragment := range []string{"What is 2+2?", "Four.", "It is 4."} {
		if !strings.Contains(invoker.lastReq.UserPrompt, fragment) {
			t.Fatalf("judge prompt missing %q:\n%s", fragment, invoker.lastReq.UserPrompt)
		}
	}
}

func TestGradeHeuristicFallback(t *testing.T) {
	invoker := &stubInvoker{
		text: "The responses mostly agree on the outcome. Grade: B. Score: 74.",
	}
	grader := NewGrader(WithJudge(invoker, "judge-model"))

	report := grader.Grade(t.Context(), "prompt", validBatch("alpha", "alpha", "beta"))

	if report.Source != SourceJudgeHeuristic {
		t.Fatalf("Grade() source = %q, want %q", report.Source, SourceJudgeHeuristic)
	}
	if report.Grade != GradeB || report.Score != 74 {
		t.Fatalf("Grade() = %q/%v, want B/74", report.Grade, report.Score)
	}
	// Sub-metrics come from local analysis on the heuristic path.
	if report.Metrics.ToolUsage != 1.0 {
		t.Fatalf("Grade() tool usage = %v, want locally computed 1.0", report.Metrics.ToolUsage)
	}
}

func TestGradeStatisticalFallback(t *testing.T) {
	tests := []struct {
		name    string
		invoker *stubInvoker
	}{
		{
			name:    "judge invocation fails",
			invoker: &stubInvoker{err: errors.New("judge unreachable")},
		},
		{
			name:    "judge response has no usable tokens",
			invoker: &stubInvoker{text: "I cannot evaluate these."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grader := NewGrader(WithJudge(tc.invoker, "judge-model"))

			report := grader.Grade(t.Context(), "prompt", validBatch("same", "same", "same"))

			if report.Source != SourceStatistical {
				t.Fatalf("Grade() source = %q, want %q", report.Source, SourceStatistical)
			}
			if report.Grade != GradeA {
				t.Fatalf("Grade() = %q, want A for identical responses", report.Grade)
			}
			found := false
			for _, note := range report.Notes {
				if strings.Contains(note, "statistical analysis") {
					found = true
				}
			}
			if !found {
				t.Fatalf("Grade() notes = %v, want fallback note", report.Notes)
			}
		})
	}
}

func TestGradeWithoutJudge(t *testing.T) {
	grader := NewGrader()

	report := grader.Grade(t.Context(), "prompt", validBatch("same", "same"))

	if report.Source != SourceStatistical {
		t.Fatalf("Grade() source = %q, want %q", report.Source, SourceStatistical)
	}
	if report.Grade != GradeA {
		t.Fatalf("Grade() = %q, want A", report.Grade)
	}
}

func TestGradeInsufficientData(t *testing.T) {
	b := validBatch("only one")
	b.Responses = append(b.Responses, &batch.ResponseRecord{
		Index:        1,
		Status:       batch.RecordAbandoned,
		WasAbandoned: true,
	})

	report := NewGrader().Grade(t.Context(), "prompt", b)

	if report.Source != SourceInsufficientData {
		t.Fatalf("Grade() source = %q, want %q", report.Source, SourceInsufficientData)
	}
	if report.Grade != GradeNone {
		t.Fatalf("Grade() = %q, want no grade", report.Grade)
	}
	if report.Analyzed != 1 || report.Excluded != 1 {
		t.Fatalf("Grade() analyzed/excluded = %d/%d, want 1/1", report.Analyzed, report.Excluded)
	}
}

func TestGradeExcludesAbandonedResponses(t *testing.T) {
	b := validBatch("Yes", "Yes", "Yes", "Yes", "Yes", "Yes", "Yes", "Yes")
	for i := range 2 {
		b.Responses = append(b.Responses, &batch.ResponseRecord{
			Index:         8 + i,
			Status:        batch.RecordAbandoned,
			WasThrottled:  true,
			WasAbandoned:  true,
			AbandonReason: model.ErrorTypeThrottling,
		})
	}

	report := NewGrader().Grade(t.Context(), "Is the service healthy?", b)

	if report.Analyzed != 8 {
		t.Fatalf("Grade() analyzed = %d, want 8", report.Analyzed)
	}
	if report.Excluded != 2 {
		t.Fatalf("Grade() excluded = %d, want 2", report.Excluded)
	}
	if report.Grade != GradeA {
		t.Fatalf("Grade() = %q, want A for identical valid responses", report.Grade)
	}
}

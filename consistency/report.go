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

// Package consistency grades how deterministic a response set is, weighting
// functional and tool-usage equivalence above raw text similarity. Grading
// prefers a delegated judge-model call and degrades through heuristic field
// extraction to a fully local statistical analysis, so it always terminates
// with a best-effort report.
package consistency

import "fmt"

// Grade is an ordinal determinism categorization.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"

	// GradeNone marks a report produced without enough valid responses.
	GradeNone Grade = ""
)

// Source identifies which tier produced a report.
type Source string

const (
	// SourceJudge is the primary path: a delegated grading-model call whose
	// structured result parsed cleanly.
	SourceJudge Source = "judge"

	// SourceJudgeHeuristic means the judge responded but only pattern-matched
	// grade/score tokens could be extracted; sub-metrics are local.
	SourceJudgeHeuristic Source = "judge-heuristic"

	// SourceStatistical is the full local fallback.
	SourceStatistical Source = "statistical"

	// SourceInsufficientData marks a degraded report below the minimum
	// valid-response count.
	SourceInsufficientData Source = "insufficient-data"
)

// Metrics are the sub-metrics behind a grade. All values are in [0, 1].
// Structural consistency is reported but excluded from the weighted score.
type Metrics struct {
	ToolUsage  float64 `json:"tool_usage_consistency"`
	Decision   float64 `json:"decision_consistency"`
	Semantic   float64 `json:"semantic_similarity"`
	Structural float64 `json:"structural_consistency"`
}

// Weights of the sub-metrics in the local score, priority high to low.
const (
	weightToolUsage = 0.5
	weightDecision  = 0.3
	weightSemantic  = 0.2
)

// WeightedScore folds the metrics into a 0-100 score.
func (m Metrics) WeightedScore() float64 {
	return 100 * (weightToolUsage*m.ToolUsage + weightDecision*m.Decision + weightSemantic*m.Semantic)
}

// Report is the grading outcome.
type Report struct {
	Grade   Grade   `json:"grade"`
	Score   float64 `json:"score"`
	Metrics Metrics `json:"metrics"`

	// Notes describe notable variations found during analysis.
	Notes []string `json:"notes,omitempty"`

	// Analyzed and Excluded count responses that entered, respectively were
	// removed from, the grading input.
	Analyzed int `json:"analyzed"`
	Excluded int `json:"excluded"`

	Source Source `json:"source"`

	// JudgeResponse holds the raw judge text when a judge tier produced the
	// report, for the export artifact.
	JudgeResponse string `json:"judge_response,omitempty"`
}

// GradeForScore applies the grade thresholds to a 0-100 score.
func GradeForScore(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 70:
		return GradeB
	case score >= 50:
		return GradeC
	case score >= 30:
		return GradeD
	default:
		return GradeF
	}
}

// ParseGrade validates a grade letter from an external source.
func ParseGrade(s string) (Grade, error) {
	switch Grade(s) {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return Grade(s), nil
	}
	return GradeNone, fmt.Errorf("invalid grade %q", s)
}

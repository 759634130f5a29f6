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
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// judgeResult is the structured payload the grading model is asked to emit.
type judgeResult struct {
	Grade             string   `json:"grade"`
	Score             float64  `json:"score"`
	ToolUsage         *float64 `json:"tool_usage_consistency,omitempty"`
	Decision          *float64 `json:"decision_consistency,omitempty"`
	Semantic          *float64 `json:"semantic_similarity,omitempty"`
	Structural        *float64 `json:"structural_consistency,omitempty"`
	NotableVariations []string `json:"notable_variations,omitempty"`
}

// responseParser extracts structured data from grading-model responses.
type responseParser struct {
	scorePattern *regexp.Regexp
	gradePattern *regexp.Regexp
}

func newResponseParser() *responseParser {
	return &responseParser{
		// Matches patterns like "Score: 85", "score = 72.5", "Rating: 90/100"
		scorePattern: regexp.MustCompile(`(?i)(?:score|rating)[:=\s"]+(\d+\.?\d*)`),

		// Matches patterns like "Grade: A", `"grade": "B"`, "grade = C"
		gradePattern: regexp.MustCompile(`(?i)grade[:=\s"]+([A-F])\b`),
	}
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseStructured decodes the judge's JSON payload. Code fences around the
// object are tolerated, as is prose before or after it.
func (p *responseParser) parseStructured(response string) (*judgeResult, error) {
	candidate := response
	if m := codeFenceRe.FindStringSubmatch(response); len(m) == 2 {
		candidate = m[1]
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var result judgeResult
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to decode judge response: %w", err)
	}
	if _, err := ParseGrade(strings.ToUpper(result.Grade)); err != nil {
		return nil, err
	}
	result.Grade = strings.ToUpper(result.Grade)
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("score %v out of range", result.Score)
	}
	return &result, nil
}

// parseScore extracts a numeric 0-100 score from free-form text.
func (p *responseParser) parseScore(response string) (float64, error) {
	matches := p.scorePattern.FindStringSubmatch(response)
	if len(matches) < 2 {
		return 0, fmt.Errorf("no score found in response")
	}
	score, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse score %q: %w", matches[1], err)
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score %v out of range", score)
	}
	return score, nil
}

// parseGradeToken extracts a grade letter from free-form text.
func (p *responseParser) parseGradeToken(response string) (Grade, error) {
	matches := p.gradePattern.FindStringSubmatch(response)
	if len(matches) < 2 {
		return GradeNone, fmt.Errorf("no grade found in response")
	}
	return ParseGrade(strings.ToUpper(matches[1]))
}

// parseHeuristic is the degraded path: pattern-match grade and score tokens
// out of free text. At least one of the two must be present; the other is
// derived from it.
func (p *responseParser) parseHeuristic(response string) (Grade, float64, error) {
	grade, gradeErr := p.parseGradeToken(response)
	score, scoreErr := p.parseScore(response)

	switch {
	case gradeErr == nil && scoreErr == nil:
		return grade, score, nil
	case gradeErr == nil:
		return grade, midpointScore(grade), nil
	case scoreErr == nil:
		return GradeForScore(score), score, nil
	default:
		return GradeNone, 0, fmt.Errorf("no grade or score tokens found in response")
	}
}

// midpointScore maps a grade to the midpoint of its score band.
func midpointScore(g Grade) float64 {
	switch g {
	case GradeA:
		return 95
	case GradeB:
		return 80
	case GradeC:
		return 60
	case GradeD:
		return 40
	default:
		return 15
	}
}

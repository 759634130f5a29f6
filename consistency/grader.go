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
	"fmt"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/internal/telemetry"
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// DefaultMinValidResponses is the minimum grading-input size below which a
// degraded report is produced instead of a grade.
const DefaultMinValidResponses = 2

// Grader produces determinism reports over a batch's responses.
//
// When an invoker is configured, grading is delegated to a judge model and
// degrades through heuristic extraction to local statistical analysis. With
// no invoker the local analysis runs directly. Grade always returns a
// report; no failure mode escapes as an error.
type Grader struct {
	invoker      model.Invoker
	judgeModelID string
	minValid     int
}

// Option configures a Grader.
type Option func(*Grader)

// WithJudge delegates grading to the given model. The invoker is typically
// shared with the batch run so judge traffic rides the same caching and
// classification path.
func WithJudge(invoker model.Invoker, modelID string) Option {
	return func(g *Grader) {
		g.invoker = invoker
		g.judgeModelID = modelID
	}
}

// WithMinValidResponses overrides the minimum grading-input size.
func WithMinValidResponses(n int) Option {
	return func(g *Grader) {
		g.minValid = n
	}
}

// NewGrader creates a grader. Without options it grades purely locally.
func NewGrader(opts ...Option) *Grader {
	g := &Grader{minValid: DefaultMinValidResponses}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade evaluates the batch's valid responses against the original prompt.
// Abandoned and failed responses are excluded before analysis.
func (g *Grader) Grade(ctx context.Context, prompt string, b *batch.Batch) *Report {
	ctx, span := telemetry.StartGrading(ctx, len(b.Responses))
	defer span.End()

	valid := make([]*batch.ResponseRecord, 0, len(b.Responses))
	for _, r := range b.Responses {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	excluded := len(b.Responses) - len(valid)

	if len(valid) < g.minValid {
		return &Report{
			Grade: GradeNone,
			Notes: []string{
				fmt.Sprintf("only %d valid responses of %d requested; at least %d required for grading", len(valid), len(b.Responses), g.minValid),
			},
			Analyzed: len(valid),
			Excluded: excluded,
			Source:   SourceInsufficientData,
		}
	}

	if g.invoker != nil {
		report, err := g.gradeWithJudge(ctx, prompt, valid)
		if err == nil {
			report.Excluded = excluded
			return report
		}
		local := analyze(valid)
		local.Excluded = excluded
		local.Notes = append(local.Notes, fmt.Sprintf("judge grading unavailable, used statistical analysis: %v", err))
		return local
	}

	report := analyze(valid)
	report.Excluded = excluded
	return report
}

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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

const judgeSystemPrompt = `You are an expert evaluator measuring the determinism of a language model.
You are given several responses the model produced for the SAME prompt.
Grade how consistent the responses are with each other. Weigh the sub-metrics as:
- tool_usage_consistency (weight 0.5): did every response invoke the same tools with the same arguments?
- decision_consistency (weight 0.3): did every response reach the same decision or recommendation?
- semantic_similarity (weight 0.2): do the responses convey the same meaning, allowing wording variations?
Also report structural_consistency (formatting, length, layout) but exclude it from the score.

Respond with ONLY a JSON object:
{
  "grade": "A-F letter",
  "score": 0-100,
  "tool_usage_consistency": 0.0-1.0,
  "decision_consistency": 0.0-1.0,
  "semantic_similarity": 0.0-1.0,
  "structural_consistency": 0.0-1.0,
  "notable_variations": ["..."]
}`

// buildJudgePrompt embeds the original prompt and every valid response,
// including each response's tool-call transcript, into a grading request.
func buildJudgePrompt(prompt string, records []*batch.ResponseRecord) string {
	var b strings.Builder
	b.WriteString("**Original Prompt:**\n")
	b.WriteString(prompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Responses (%d):**\n\n", len(records))

	for i, r := range records {
		fmt.Fprintf(&b, "--- Response %d ---\n", i+1)
		if len(r.ToolCalls) > 0 {
			b.WriteString("Tool calls:\n")
			for _, c := range r.ToolCalls {
				input, err := json.Marshal(c.Input)
				if err != nil {
					input = []byte("{}")
				}
				fmt.Fprintf(&b, "- %s %s\n", c.Name, input)
			}
		}
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}

	b.WriteString("Grade the consistency of these responses.")
	return b.String()
}

// gradeWithJudge runs the delegated grading call and parses its result,
// degrading from structured JSON to heuristic token extraction. The local
// metrics fill any sub-metric the judge omitted.
func (g *Grader) gradeWithJudge(ctx context.Context, prompt string, records []*batch.ResponseRecord) (*Report, error) {
	resp, err := g.invoker.Invoke(ctx, &model.Request{
		ModelID:      g.judgeModelID,
		SystemPrompt: judgeSystemPrompt,
		UserPrompt:   buildJudgePrompt(prompt, records),
	})
	if err != nil {
		return nil, fmt.Errorf("judge invocation failed: %w", err)
	}

	local := analyze(records)
	parser := newResponseParser()

	if result, err := parser.parseStructured(resp.Text); err == nil {
		m := local.Metrics
		if result.ToolUsage != nil {
			m.ToolUsage = *result.ToolUsage
		}
		if result.Decision != nil {
			m.Decision = *result.Decision
		}
		if result.Semantic != nil {
			m.Semantic = *result.Semantic
		}
		if result.Structural != nil {
			m.Structural = *result.Structural
		}
		return &Report{
			Grade:         Grade(result.Grade),
			Score:         result.Score,
			Metrics:       m,
			Notes:         result.NotableVariations,
			Analyzed:      len(records),
			Source:        SourceJudge,
			JudgeResponse: resp.Text,
		}, nil
	}

	grade, score, err := parser.parseHeuristic(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("judge response unparseable: %w", err)
	}
	return &Report{
		Grade:         grade,
		Score:         score,
		Metrics:       local.Metrics,
		Notes:         local.Notes,
		Analyzed:      len(records),
		Source:        SourceJudgeHeuristic,
		JudgeResponse: resp.Text,
	}, nil
}

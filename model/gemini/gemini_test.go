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

package gemini

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

func TestNormalize(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					genai.NewPartFromText("checking inventory "),
					genai.NewPartFromFunctionCall("lookup_sku", map[string]any{"sku": "A-100"}),
				},
			},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
	}

	got := normalize(resp)
	want := &model.Response{
		Text:       "checking inventory ",
		StopReason: model.StopToolUse,
		ToolCalls: []model.ToolCall{
			{Name: "lookup_sku", Input: map[string]any{"sku": "A-100"}},
		},
		Usage: &model.Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapFinishReason(t *testing.T) {
	for _, tc := range []struct {
		reason   genai.FinishReason
		hasTools bool
		want     model.StopReason
	}{
		{genai.FinishReasonStop, false, model.StopEndTurn},
		{genai.FinishReasonStop, true, model.StopToolUse},
		{genai.FinishReasonMaxTokens, false, model.StopMaxTokens},
		{genai.FinishReasonSafety, false, model.StopError},
		{genai.FinishReason("SOMETHING_NEW"), false, model.StopOther},
	} {
		if got := mapFinishReason(tc.reason, tc.hasTools); got != tc.want {
			t.Errorf("mapFinishReason(%q, %v) = %v, want %v", tc.reason, tc.hasTools, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		code int
		want model.ErrorType
	}{
		{"rate_limit", 429, model.ErrorTypeThrottling},
		{"unavailable", 503, model.ErrorTypeThrottling},
		{"gateway_timeout", 504, model.ErrorTypeTimeout},
		{"unauthorized", 401, model.ErrorTypeNonRetryable},
		{"bad_request", 400, model.ErrorTypeNonRetryable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(genai.APIError{Code: tc.code, Message: tc.name})
			if got := model.Classify(err); got != tc.want {
				t.Fatalf("classify(code=%d) type = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestBuildContentsAppendsDatasetContent(t *testing.T) {
	contents := buildContents(&model.Request{
		UserPrompt: "summarize",
		Content:    "row1\nrow2",
	})
	if len(contents) != 1 {
		t.Fatalf("buildContents() returned %d contents, want 1", len(contents))
	}
	text := contents[0].Parts[0].Text
	if text != "summarize\n\nrow1\nrow2" {
		t.Fatalf("user turn = %q, want prompt and content joined", text)
	}
}

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

// Package gemini adapts the Gemini API to the model.Invoker interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/genai"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Invoker calls the Gemini API through the genai client.
type Invoker struct {
	client *genai.Client
}

var _ model.Invoker = (*Invoker)(nil)

// New creates an Invoker backed by a fresh genai client.
func New(ctx context.Context, cfg *genai.ClientConfig) (*Invoker, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Invoker{client: client}, nil
}

// NewWithClient wraps an existing genai client.
func NewWithClient(client *genai.Client) *Invoker {
	return &Invoker{client: client}
}

// Invoke implements model.Invoker.
func (g *Invoker) Invoke(ctx context.Context, req *model.Request) (*model.Response, error) {
	if g.client == nil {
		return nil, model.NewNonRetryableError("gemini invoker uninitialized")
	}

	contents := buildContents(req)
	config := buildConfig(req)

	resp, err := g.client.Models.GenerateContent(ctx, req.ModelID, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, model.NewNonRetryableError("gemini returned no candidates")
	}
	return normalize(resp), nil
}

func buildContents(req *model.Request) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range req.History {
		contents = append(contents, convertMessage(msg)...)
	}

	userText := req.UserPrompt
	if req.Content != "" {
		userText = userText + "\n\n" + req.Content
	}
	if userText != "" {
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(userText)},
		})
	}
	return contents
}

func convertMessage(msg model.Message) []*genai.Content {
	switch msg.Role {
	case model.RoleModel:
		parts := []*genai.Part{}
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		for _, tc := range msg.ToolCalls {
			parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, tc.Input))
		}
		return []*genai.Content{{Role: genai.RoleModel, Parts: parts}}
	case model.RoleTool:
		parts := make([]*genai.Part, 0, len(msg.ToolResults))
		for _, tr := range msg.ToolResults {
			content := tr.Content
			if tr.Error != "" {
				content = map[string]any{"error": tr.Error}
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(tr.Name, content))
		}
		return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	default:
		return []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Text)},
		}}
	}
}

func buildConfig(req *model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemPrompt)},
		}
	}
	if req.Temperature != nil {
		config.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	for _, decl := range req.Tools {
		config.Tools = append(config.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:                 decl.Name,
				Description:          decl.Description,
				ParametersJsonSchema: decl.InputSchema,
				ResponseJsonSchema:   decl.OutputSchema,
			}},
		})
	}
	return config
}

func normalize(resp *genai.GenerateContentResponse) *model.Response {
	candidate := resp.Candidates[0]

	out := &model.Response{}
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				out.ToolCalls = append(out.ToolCalls, model.ToolCall{
					ID:    part.FunctionCall.ID,
					Name:  part.FunctionCall.Name,
					Input: part.FunctionCall.Args,
				})
			}
		}
	}

	out.StopReason = mapFinishReason(candidate.FinishReason, len(out.ToolCalls) > 0)

	if resp.UsageMetadata != nil {
		out.Usage = &model.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out
}

func mapFinishReason(reason genai.FinishReason, hasToolCalls bool) model.StopReason {
	if hasToolCalls {
		return model.StopToolUse
	}
	switch reason {
	case genai.FinishReasonStop:
		return model.StopEndTurn
	case genai.FinishReasonMaxTokens:
		return model.StopMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return model.StopError
	default:
		return model.StopOther
	}
}

// classify maps genai transport errors onto the invocation taxonomy so the
// scheduler retries the right things.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &model.InvocationError{Type: model.ErrorTypeTimeout, Message: err.Error()}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := strconv.Itoa(apiErr.Code)
		switch apiErr.Code {
		case 429, 500, 503:
			return &model.InvocationError{Type: model.ErrorTypeThrottling, Message: apiErr.Message, Code: code}
		case 408, 504:
			return &model.InvocationError{Type: model.ErrorTypeTimeout, Message: apiErr.Message, Code: code}
		default:
			return &model.InvocationError{Type: model.ErrorTypeNonRetryable, Message: apiErr.Message, Code: code}
		}
	}
	return &model.InvocationError{Type: model.ErrorTypeNonRetryable, Message: err.Error()}
}

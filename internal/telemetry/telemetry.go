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

// Package telemetry emits OpenTelemetry spans and gen-ai log events for
// model invocations and tool executions. The global providers are used, so
// an application that never configures OpenTelemetry pays only for no-op
// calls.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const systemName = "promptatron.determinism"

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(systemName)
}

// StartInvocation opens a span covering one model invocation attempt.
func StartInvocation(ctx context.Context, modelID string, attempt int) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "invoke_model")
	span.SetAttributes(
		attribute.String("gen_ai.system", systemName),
		attribute.String("gen_ai.request.model", modelID),
		attribute.Int("promptatron.attempt", attempt),
	)
	return ctx, span
}

// StartToolExecution opens a span covering one tool execution.
func StartToolExecution(ctx context.Context, toolName, callID string) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "execute_tool")
	span.SetAttributes(
		attribute.String("gen_ai.system", systemName),
		attribute.String("gen_ai.tool.name", toolName),
		attribute.String("gen_ai.tool.call.id", callID),
	)
	return ctx, span
}

// StartGrading opens a span covering one consistency grading pass.
func StartGrading(ctx context.Context, responses int) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "grade_consistency")
	span.SetAttributes(
		attribute.String("gen_ai.system", systemName),
		attribute.Int("promptatron.response_count", responses),
	)
	return ctx, span
}

// StartEvaluation opens a span covering a whole evaluation run.
func StartEvaluation(ctx context.Context, evaluationID string, count int) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "run_evaluation")
	span.SetAttributes(
		attribute.String("promptatron.evaluation_id", evaluationID),
		attribute.Int("promptatron.request_count", count),
	)
	return ctx, span
}

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

package telemetry

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"

	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// Message content is not logged by default. Set the following env variable to
// enable logging of prompt/response content.
// OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT=true
var elideMessageContent = !isEnvVarTrue("OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT")

const elidedContent = "<elided>"

var logger = global.GetLoggerProvider().Logger(systemName)

// LogRequest emits a gen_ai.user.message event for one invocation attempt.
func LogRequest(ctx context.Context, req *model.Request) {
	record := log.Record{}
	record.SetEventName("gen_ai.user.message")
	record.SetBody(log.MapValue(
		log.KeyValue{Key: "content", Value: textValue(req.UserPrompt)},
		log.String("model", req.ModelID),
		log.Int("tools", len(req.Tools)),
	))
	logger.Emit(ctx, record)
}

// LogResponse emits a gen_ai.choice event for the invocation result.
func LogResponse(ctx context.Context, resp *model.Response, err error) {
	record := log.Record{}
	record.SetEventName("gen_ai.choice")

	kvs := []log.KeyValue{log.Int("index", 0)}
	if err != nil {
		kvs = append(kvs, log.String("error", err.Error()))
	}
	if resp != nil {
		kvs = append(kvs,
			log.KeyValue{Key: "content", Value: textValue(resp.Text)},
			log.String("finish_reason", string(resp.StopReason)),
			log.Int("tool_calls", len(resp.ToolCalls)),
		)
	}
	record.SetBody(log.MapValue(kvs...))
	logger.Emit(ctx, record)
}

// LogToolExecution emits a gen_ai.tool.message event for one tool run.
func LogToolExecution(ctx context.Context, toolName, callID string, success bool) {
	record := log.Record{}
	record.SetEventName("gen_ai.tool.message")
	record.SetBody(log.MapValue(
		log.String("name", toolName),
		log.String("call_id", callID),
		log.Bool("success", success),
	))
	logger.Emit(ctx, record)
}

// LogThrottling emits an event for a rate-limit rejection and the backoff the
// scheduler chose in response.
func LogThrottling(ctx context.Context, requestIndex, attempt int, backoff time.Duration) {
	record := log.Record{}
	record.SetEventName("promptatron.throttled")
	record.SetBody(log.MapValue(
		log.Int("request_index", requestIndex),
		log.Int("attempt", attempt),
		log.String("backoff", backoff.String()),
	))
	logger.Emit(ctx, record)
}

func textValue(text string) log.Value {
	if elideMessageContent {
		return log.StringValue(elidedContent)
	}
	return log.StringValue(text)
}

func isEnvVarTrue(name string) bool {
	val, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	val = strings.ToLower(val)
	return val == "true" || val == "1"
}

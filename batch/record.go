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

package batch

import (
	"time"

	"github.com/andmoredev/promptatron-3000-sub001/conversation"
	"github.com/andmoredev/promptatron-3000-sub001/model"
)

// RecordStatus is the terminal state of one request in a batch.
type RecordStatus string

const (
	// RecordSucceeded marks a request that produced a response.
	RecordSucceeded RecordStatus = "succeeded"

	// RecordAbandoned marks a request dropped after exhausting its retry
	// budget on a retryable classification. Distinct from a hard failure.
	RecordAbandoned RecordStatus = "abandoned"

	// RecordFailed marks a non-retryable failure. It aborts only its own
	// request, never the batch.
	RecordFailed RecordStatus = "failed"
)

// ResponseRecord is the normalized per-request outcome. Plain-text responses
// and rich conversation results are both folded into this one structured
// shape at the ingestion boundary so downstream logic sees a single form.
type ResponseRecord struct {
	Index int    `json:"index"`
	Text  string `json:"text"`

	StopReason model.StopReason              `json:"stop_reason,omitempty"`
	ToolCalls  []conversation.ToolCallRecord `json:"tool_calls,omitempty"`
	Usage      *model.Usage                  `json:"usage,omitempty"`

	Status        RecordStatus    `json:"status"`
	WasThrottled  bool            `json:"was_throttled,omitempty"`
	WasAbandoned  bool            `json:"was_abandoned,omitempty"`
	AbandonReason model.ErrorType `json:"abandon_reason,omitempty"`
	RetryCount    int             `json:"retry_count,omitempty"`
	LastError     string          `json:"last_error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the record may enter a grading input set. Abandoned
// and failed records stay in the exported list but are excluded from grading.
func (r *ResponseRecord) Valid() bool {
	return r.Status == RecordSucceeded
}

// NormalizeText builds a structured record from a bare text response.
func NormalizeText(index int, text string) *ResponseRecord {
	return &ResponseRecord{
		Index:      index,
		Text:       text,
		StopReason: model.StopEndTurn,
		Status:     RecordSucceeded,
		Timestamp:  time.Now().UTC(),
	}
}

// normalizeResult folds a conversation outcome into a record.
func normalizeResult(index int, res *conversation.FinalResult) *ResponseRecord {
	return &ResponseRecord{
		Index:      index,
		Text:       res.Text,
		StopReason: res.StopReason,
		ToolCalls:  res.ToolCalls,
		Usage:      res.Usage,
		Status:     RecordSucceeded,
		Timestamp:  time.Now().UTC(),
	}
}

// Summary aggregates the outcome of one batch.
type Summary struct {
	Requested      int           `json:"requested"`
	Succeeded      int           `json:"succeeded"`
	Abandoned      int           `json:"abandoned"`
	Failed         int           `json:"failed"`
	ThrottleEvents int           `json:"throttle_events"`
	TotalRetries   int           `json:"total_retries"`
	Duration       time.Duration `json:"duration"`
}

// Batch is the result of one Execute call. Responses keep submission order;
// cancelled batches carry whatever was collected before the flag was seen.
type Batch struct {
	Responses []*ResponseRecord `json:"responses"`
	Summary   Summary           `json:"summary"`
	Cancelled bool              `json:"cancelled,omitempty"`
}

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

package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes an invocation failure for retry handling.
type ErrorType string

const (
	// ErrorTypeThrottling marks rate-limit rejections. Retryable with
	// exponential backoff.
	ErrorTypeThrottling ErrorType = "throttling"

	// ErrorTypeTimeout marks deadline overruns. Retryable with linear backoff.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeNonRetryable marks auth and validation failures. The request
	// fails immediately without retry.
	ErrorTypeNonRetryable ErrorType = "non_retryable"

	ErrorTypeUnknown ErrorType = "unknown"
)

// InvocationError is a classified failure from an Invoker.
type InvocationError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`

	// RetryAfter carries an endpoint-suggested delay, when one was provided.
	RetryAfter time.Duration `json:"-"`
}

func (e *InvocationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewThrottlingError builds a throttling-classified error.
func NewThrottlingError(format string, args ...any) *InvocationError {
	return &InvocationError{Type: ErrorTypeThrottling, Message: fmt.Sprintf(format, args...)}
}

// NewTimeoutError builds a timeout-classified error.
func NewTimeoutError(format string, args ...any) *InvocationError {
	return &InvocationError{Type: ErrorTypeTimeout, Message: fmt.Sprintf(format, args...)}
}

// NewNonRetryableError builds a non-retryable error.
func NewNonRetryableError(format string, args ...any) *InvocationError {
	return &InvocationError{Type: ErrorTypeNonRetryable, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an arbitrary invocation error onto the taxonomy. Unclassified
// errors are treated as non-retryable so a misbehaving endpoint cannot trap
// the scheduler in a retry loop.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ErrorTypeNonRetryable
}

// IsThrottling reports whether err is classified as a rate-limit rejection.
func IsThrottling(err error) bool {
	return Classify(err) == ErrorTypeThrottling
}

// IsTimeout reports whether err is classified as a deadline overrun.
func IsTimeout(err error) bool {
	return Classify(err) == ErrorTypeTimeout
}

// IsRetryable reports whether the scheduler may retry after err.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ErrorTypeThrottling, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

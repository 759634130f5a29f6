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

// Package settings loads the evaluation configuration from a YAML file and
// fills in defaults for anything the file leaves out.
package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
)

// Duration decodes YAML strings like "2s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Settings is the evaluation configuration.
type Settings struct {
	// ModelID names the model under evaluation.
	ModelID string `yaml:"model_id"`

	// JudgeModelID, when set, delegates grading to this model.
	JudgeModelID string `yaml:"judge_model_id"`

	SystemPrompt string `yaml:"system_prompt"`

	// TestCount is the number of repeated invocations per evaluation.
	TestCount int `yaml:"test_count"`

	// MaxRetryAttempts bounds attempts per request, first try included.
	MaxRetryAttempts int `yaml:"max_retry_attempts"`

	// Concurrency bounds in-flight requests.
	Concurrency int `yaml:"concurrency"`

	// InterRequestDelay paces submissions.
	InterRequestDelay Duration `yaml:"inter_request_delay"`

	// InvokeTimeout bounds one model call.
	InvokeTimeout Duration `yaml:"invoke_timeout"`

	// MaxIterations bounds the tool-calling conversation loop.
	MaxIterations int `yaml:"max_iterations"`

	// MinValidResponses gates grading and partial completion.
	MinValidResponses int `yaml:"min_valid_responses"`

	// EnableThrottlingAlerts prints throttling notices as they happen.
	EnableThrottlingAlerts bool `yaml:"enable_throttling_alerts"`

	// CacheEnabled wraps the invoker in the deduplicating cache.
	CacheEnabled bool     `yaml:"cache_enabled"`
	CacheSize    int      `yaml:"cache_size"`
	CacheTTL     Duration `yaml:"cache_ttl"`

	// StorageBackend selects artifact persistence: memory, file, or sqlite.
	StorageBackend string `yaml:"storage_backend"`
	StoragePath    string `yaml:"storage_path"`
}

// Default returns the settings used when no file overrides them.
func Default() *Settings {
	return &Settings{
		ModelID:                "gemini-2.0-flash",
		TestCount:              10,
		MaxRetryAttempts:       batch.DefaultMaxAttempts,
		Concurrency:            1,
		InterRequestDelay:      Duration(batch.DefaultInterRequestDelay),
		InvokeTimeout:          Duration(60 * time.Second),
		MaxIterations:          10,
		MinValidResponses:      2,
		EnableThrottlingAlerts: true,
		CacheEnabled:           false,
		CacheSize:              128,
		CacheTTL:               Duration(5 * time.Minute),
		StorageBackend:         "file",
		StoragePath:            "promptatron-data",
	}
}

// Load reads a YAML settings file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings no run could honor.
func (s *Settings) Validate() error {
	if s.ModelID == "" {
		return fmt.Errorf("settings: model_id is required")
	}
	if s.TestCount <= 0 {
		return fmt.Errorf("settings: test_count must be positive, got %d", s.TestCount)
	}
	if s.MaxRetryAttempts <= 0 {
		return fmt.Errorf("settings: max_retry_attempts must be positive, got %d", s.MaxRetryAttempts)
	}
	if s.MinValidResponses < 1 {
		return fmt.Errorf("settings: min_valid_responses must be at least 1, got %d", s.MinValidResponses)
	}
	switch s.StorageBackend {
	case "", "memory", "file", "sqlite":
	default:
		return fmt.Errorf("settings: unknown storage_backend %q", s.StorageBackend)
	}
	return nil
}

// Policy builds the batch policy these settings describe.
func (s *Settings) Policy() batch.Policy {
	return batch.Policy{
		MaxAttempts:       s.MaxRetryAttempts,
		Concurrency:       s.Concurrency,
		InterRequestDelay: time.Duration(s.InterRequestDelay),
	}
}

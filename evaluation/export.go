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

package evaluation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/consistency"
)

// artifactVersion guards the export format. Import rejects versions this
// build does not understand.
const artifactVersion = 1

// Artifact is the portable form of a finished evaluation. It carries every
// response record, including abandoned and failed ones with their retry
// flags, so an import sees the same picture the run produced.
type Artifact struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Prompt  string `json:"prompt"`
	ModelID string `json:"model_id"`
	Phase   Phase  `json:"phase"`

	Responses  []*batch.ResponseRecord `json:"responses"`
	Summary    batch.Summary           `json:"summary"`
	Throttling ThrottlingStats         `json:"throttling"`

	Report    *consistency.Report `json:"report,omitempty"`
	Cancelled bool                `json:"cancelled,omitempty"`
}

// Export snapshots a result into its portable artifact.
func (r *Result) Export() (*Artifact, error) {
	if r == nil || r.State == nil || r.Batch == nil {
		return nil, ErrInvalidInput
	}
	return &Artifact{
		Version:    artifactVersion,
		ID:         r.State.ID,
		CreatedAt:  r.State.StartedAt,
		Prompt:     r.State.Prompt,
		ModelID:    r.State.ModelID,
		Phase:      r.State.Phase(),
		Responses:  r.State.Responses(),
		Summary:    r.Batch.Summary,
		Throttling: r.State.Throttling(),
		Report:     r.Report,
		Cancelled:  r.Batch.Cancelled,
	}, nil
}

// Encode serializes the artifact as indented JSON.
func (a *Artifact) Encode() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Import decodes an exported artifact and validates its shape.
func Import(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("evaluation: failed to decode artifact: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("evaluation: unsupported artifact version %d", a.Version)
	}
	if a.ID == "" {
		return nil, fmt.Errorf("evaluation: artifact missing id: %w", ErrInvalidInput)
	}
	return &a, nil
}

// Batch rebuilds the batch view of an artifact, so an imported evaluation
// can be re-graded locally.
func (a *Artifact) Batch() *batch.Batch {
	return &batch.Batch{
		Responses: a.Responses,
		Summary:   a.Summary,
		Cancelled: a.Cancelled,
	}
}

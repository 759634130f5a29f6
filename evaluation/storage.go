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
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested artifact was not found.
	ErrNotFound = errors.New("evaluation: not found")

	// ErrAlreadyExists indicates the artifact already exists.
	ErrAlreadyExists = errors.New("evaluation: already exists")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("evaluation: invalid input")
)

// Storage defines persistence for exported evaluation artifacts.
type Storage interface {
	// SaveArtifact stores an exported evaluation.
	SaveArtifact(ctx context.Context, artifact *Artifact) error

	// GetArtifact retrieves an exported evaluation by ID.
	GetArtifact(ctx context.Context, id string) (*Artifact, error)

	// ListArtifacts returns all stored evaluations, newest first.
	ListArtifacts(ctx context.Context) ([]Artifact, error)

	// DeleteArtifact removes a stored evaluation.
	DeleteArtifact(ctx context.Context, id string) error
}

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

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
)

// FileStorage provides file-based storage for evaluation artifacts.
// Artifacts are stored as JSON files:
//
//	<basePath>/
//	  evaluations/
//	    <artifactID>.json
type FileStorage struct {
	mu       sync.RWMutex
	basePath string
}

// NewFileStorage creates a new file-based storage instance.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "evaluations"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create evaluations directory: %w", err)
	}

	return &FileStorage{
		basePath: basePath,
	}, nil
}

func (f *FileStorage) artifactPath(id string) string {
	return filepath.Join(f.basePath, "evaluations", fmt.Sprintf("%s.json", id))
}

// SaveArtifact stores an exported evaluation.
func (f *FileStorage) SaveArtifact(ctx context.Context, artifact *evaluation.Artifact) error {
	if artifact == nil || artifact.ID == "" {
		return evaluation.ErrInvalidInput
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	if err := os.WriteFile(f.artifactPath(artifact.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact file: %w", err)
	}

	return nil
}

// GetArtifact retrieves an exported evaluation by ID.
func (f *FileStorage) GetArtifact(ctx context.Context, id string) (*evaluation.Artifact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.artifactPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, evaluation.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read artifact file: %w", err)
	}

	var artifact evaluation.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}

	return &artifact, nil
}

// ListArtifacts returns all stored evaluations, newest first.
func (f *FileStorage) ListArtifacts(ctx context.Context) ([]evaluation.Artifact, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dir := filepath.Join(f.basePath, "evaluations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []evaluation.Artifact{}, nil
		}
		return nil, fmt.Errorf("failed to read evaluations directory: %w", err)
	}

	var artifacts []evaluation.Artifact
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}

		var artifact evaluation.Artifact
		if err := json.Unmarshal(data, &artifact); err != nil {
			continue
		}

		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})

	return artifacts, nil
}

// DeleteArtifact removes a stored evaluation.
func (f *FileStorage) DeleteArtifact(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.artifactPath(id)); err != nil {
		if os.IsNotExist(err) {
			return evaluation.ErrNotFound
		}
		return fmt.Errorf("failed to delete artifact file: %w", err)
	}

	return nil
}

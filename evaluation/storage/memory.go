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

// Package storage persists exported evaluation artifacts. The in-memory
// implementation suits tests, the file implementation keeps plain JSON on
// disk, and the SQLite implementation backs longer-lived installations.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
)

// MemoryStorage provides in-memory storage for evaluation artifacts.
// This implementation is suitable for testing and development.
type MemoryStorage struct {
	mu sync.RWMutex

	// artifacts maps artifact ID -> Artifact
	artifacts map[string]*evaluation.Artifact
}

// NewMemoryStorage creates a new in-memory storage instance.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		artifacts: make(map[string]*evaluation.Artifact),
	}
}

// SaveArtifact stores an exported evaluation.
func (m *MemoryStorage) SaveArtifact(ctx context.Context, artifact *evaluation.Artifact) error {
	if artifact == nil || artifact.ID == "" {
		return evaluation.ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Shallow copy to prevent external modifications of the stored header.
	copied := *artifact
	m.artifacts[artifact.ID] = &copied

	return nil
}

// GetArtifact retrieves an exported evaluation by ID.
func (m *MemoryStorage) GetArtifact(ctx context.Context, id string) (*evaluation.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifact, exists := m.artifacts[id]
	if !exists {
		return nil, evaluation.ErrNotFound
	}

	copied := *artifact
	return &copied, nil
}

// ListArtifacts returns all stored evaluations, newest first.
func (m *MemoryStorage) ListArtifacts(ctx context.Context) ([]evaluation.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifacts := make([]evaluation.Artifact, 0, len(m.artifacts))
	for _, artifact := range m.artifacts {
		artifacts = append(artifacts, *artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})

	return artifacts, nil
}

// DeleteArtifact removes a stored evaluation.
func (m *MemoryStorage) DeleteArtifact(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.artifacts[id]; !exists {
		return evaluation.ErrNotFound
	}

	delete(m.artifacts, id)

	return nil
}

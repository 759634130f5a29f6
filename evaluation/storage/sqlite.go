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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
)

// artifactJSON stores the full artifact body as a JSON column while the
// queryable header fields live in their own columns.
type artifactJSON evaluation.Artifact

func (artifactJSON) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer.
func (a artifactJSON) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *artifactJSON) Scan(value any) error {
	if value == nil {
		*a = artifactJSON{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSON value: %T", value)
	}

	if len(bytes) == 0 {
		*a = artifactJSON{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

type artifactRow struct {
	ID        string    `gorm:"primaryKey;column:id"`
	ModelID   string    `gorm:"column:model_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;index"`

	Body artifactJSON `gorm:"column:body"`
}

func (artifactRow) TableName() string {
	return "evaluations"
}

// SQLiteStorage persists evaluation artifacts in a SQLite database.
type SQLiteStorage struct {
	db *gorm.DB
}

// NewSQLiteStorage opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&artifactRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveArtifact stores an exported evaluation, replacing any previous row
// with the same ID.
func (s *SQLiteStorage) SaveArtifact(ctx context.Context, artifact *evaluation.Artifact) error {
	if artifact == nil || artifact.ID == "" {
		return evaluation.ErrInvalidInput
	}

	row := artifactRow{
		ID:        artifact.ID,
		ModelID:   artifact.ModelID,
		CreatedAt: artifact.CreatedAt,
		Body:      artifactJSON(*artifact),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an exported evaluation by ID.
func (s *SQLiteStorage) GetArtifact(ctx context.Context, id string) (*evaluation.Artifact, error) {
	var row artifactRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, evaluation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	artifact := evaluation.Artifact(row.Body)
	return &artifact, nil
}

// ListArtifacts returns all stored evaluations, newest first.
func (s *SQLiteStorage) ListArtifacts(ctx context.Context) ([]evaluation.Artifact, error) {
	var rows []artifactRow
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]evaluation.Artifact, 0, len(rows))
	for _, row := range rows {
		artifacts = append(artifacts, evaluation.Artifact(row.Body))
	}
	return artifacts, nil
}

// DeleteArtifact removes a stored evaluation.
func (s *SQLiteStorage) DeleteArtifact(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&artifactRow{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete artifact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return evaluation.ErrNotFound
	}
	return nil
}

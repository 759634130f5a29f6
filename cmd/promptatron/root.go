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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
	"github.com/andmoredev/promptatron-3000-sub001/evaluation/storage"
	"github.com/andmoredev/promptatron-3000-sub001/settings"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "promptatron",
	Short: "Measure how deterministic a model's responses are.",
	Long: `promptatron runs the same prompt against a model many times, classifies
each outcome, and grades how consistent the responses are with each other.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML settings file")
}

func loadSettings() (*settings.Settings, error) {
	return settings.Load(configPath)
}

func openStorage(s *settings.Settings) (evaluation.Storage, error) {
	switch s.StorageBackend {
	case "", "memory":
		return storage.NewMemoryStorage(), nil
	case "file":
		return storage.NewFileStorage(s.StoragePath)
	case "sqlite":
		return storage.NewSQLiteStorage(s.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.StorageBackend)
	}
}

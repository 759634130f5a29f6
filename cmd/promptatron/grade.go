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
	"os"

	"github.com/spf13/cobra"

	"github.com/andmoredev/promptatron-3000-sub001/consistency"
	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
)

var gradeInput string

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Re-grade an exported evaluation locally.",
	Long: `grade reads an export artifact produced by "promptatron run" and runs the
local statistical analysis over its responses, without any model traffic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return gradeArtifact(cmd)
	},
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().StringVarP(&gradeInput, "input", "i", "", "Export artifact to grade (required)")
	_ = gradeCmd.MarkFlagRequired("input")
}

func gradeArtifact(cmd *cobra.Command) error {
	data, err := os.ReadFile(gradeInput)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}

	artifact, err := evaluation.Import(data)
	if err != nil {
		return err
	}

	grader := consistency.NewGrader()
	report := grader.Grade(cmd.Context(), artifact.Prompt, artifact.Batch())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "evaluation %s (%s)\n", artifact.ID, artifact.ModelID)
	fmt.Fprintf(out, "%d responses, %d valid\n", len(artifact.Responses), report.Analyzed)

	if report.Source == consistency.SourceInsufficientData {
		fmt.Fprintln(out, "not enough valid responses to grade")
		return nil
	}

	fmt.Fprintf(out, "grade %s (score %.1f)\n", report.Grade, report.Score)
	if artifact.Report != nil && artifact.Report.Grade != report.Grade {
		fmt.Fprintf(out, "original grade was %s (source %s)\n", artifact.Report.Grade, artifact.Report.Source)
	}
	for _, note := range report.Notes {
		fmt.Fprintf(out, "  note: %s\n", note)
	}
	return nil
}

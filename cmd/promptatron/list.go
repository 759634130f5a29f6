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
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored evaluations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		store, err := openStorage(cfg)
		if err != nil {
			return err
		}

		artifacts, err := store.ListArtifacts(cmd.Context())
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no stored evaluations")
			return nil
		}

		for _, a := range artifacts {
			grade := "-"
			if a.Report != nil && a.Report.Grade != "" {
				grade = string(a.Report.Grade)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  grade %s  %d responses\n",
				a.CreatedAt.Format("2006-01-02 15:04"), a.ID, a.ModelID, grade, len(a.Responses))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

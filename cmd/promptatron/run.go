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
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/andmoredev/promptatron-3000-sub001/batch"
	"github.com/andmoredev/promptatron-3000-sub001/consistency"
	"github.com/andmoredev/promptatron-3000-sub001/evaluation"
	"github.com/andmoredev/promptatron-3000-sub001/model"
	"github.com/andmoredev/promptatron-3000-sub001/model/gemini"
	"github.com/andmoredev/promptatron-3000-sub001/settings"
)

type runFlags struct {
	prompt       string
	count        int
	modelID      string
	systemPrompt string
	content      []string
	output       string
	noStore      bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a determinism evaluation against a model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluation(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOpts.prompt, "prompt", "p", "", "Prompt to evaluate (required)")
	runCmd.Flags().IntVarP(&runOpts.count, "count", "n", 0, "Number of repeated invocations (default from settings)")
	runCmd.Flags().StringVarP(&runOpts.modelID, "model", "m", "", "Model to evaluate (default from settings)")
	runCmd.Flags().StringVar(&runOpts.systemPrompt, "system", "", "System prompt")
	runCmd.Flags().StringArrayVar(&runOpts.content, "content", nil, "Dataset file appended to the first turn; repeatable")
	runCmd.Flags().StringVarP(&runOpts.output, "output", "o", "", "Write the export artifact to this file")
	runCmd.Flags().BoolVar(&runOpts.noStore, "no-store", false, "Skip saving the artifact to storage")

	_ = runCmd.MarkFlagRequired("prompt")
}

func runEvaluation(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if runOpts.modelID != "" {
		cfg.ModelID = runOpts.modelID
	}
	if runOpts.count > 0 {
		cfg.TestCount = runOpts.count
	}
	if runOpts.systemPrompt != "" {
		cfg.SystemPrompt = runOpts.systemPrompt
	}

	content := make([]string, 0, len(runOpts.content))
	for _, path := range runOpts.content {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		content = append(content, string(data))
	}

	evalInvoker, judgeInvoker, err := buildInvokers(ctx, cfg)
	if err != nil {
		return err
	}

	var grader *consistency.Grader
	if cfg.JudgeModelID != "" {
		grader = consistency.NewGrader(
			consistency.WithJudge(judgeInvoker, cfg.JudgeModelID),
			consistency.WithMinValidResponses(cfg.MinValidResponses),
		)
	}

	coordCfg := evaluation.Config{
		Invoker:           evalInvoker,
		ModelID:           cfg.ModelID,
		SystemPrompt:      cfg.SystemPrompt,
		Content:           content,
		MaxIterations:     cfg.MaxIterations,
		InvokeTimeout:     time.Duration(cfg.InvokeTimeout),
		Count:             cfg.TestCount,
		Policy:            cfg.Policy(),
		Grader:            grader,
		MinValidResponses: cfg.MinValidResponses,
	}
	if cfg.EnableThrottlingAlerts {
		coordCfg.OnThrottling = throttlingAlert(cmd.ErrOrStderr())
	}

	coord, err := evaluation.NewCoordinator(coordCfg)
	if err != nil {
		return err
	}

	coord.AddListener(func(p evaluation.Progress) {
		switch p.Phase {
		case evaluation.PhaseCollecting:
			fmt.Fprintf(cmd.OutOrStdout(), "\rcollecting %d/%d (failed %d, throttled %d)",
				p.Completed, p.Total, p.Failed, p.Throttled)
		case evaluation.PhaseEvaluating:
			fmt.Fprintf(cmd.OutOrStdout(), "\ngrading %d responses...\n", p.Completed)
		}
	})

	result, err := coord.Run(ctx, runOpts.prompt)
	if err != nil {
		return err
	}

	printReport(cmd, result)

	artifact, err := result.Export()
	if err != nil {
		return err
	}
	if runOpts.output != "" {
		data, err := artifact.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(runOpts.output, data, 0644); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "artifact written to %s\n", runOpts.output)
	}
	if !runOpts.noStore {
		store, err := openStorage(cfg)
		if err != nil {
			return err
		}
		if err := store.SaveArtifact(ctx, artifact); err != nil {
			return fmt.Errorf("failed to store artifact: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "artifact stored as %s\n", artifact.ID)
	}
	return nil
}

func buildInvokers(ctx context.Context, cfg *settings.Settings) (eval, judge model.Invoker, err error) {
	base, err := gemini.New(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}
	eval, judge = wrapInvokers(base, cfg)
	return eval, judge, nil
}

// wrapInvokers returns the invoker for the repeated evaluation calls and the
// one for judge traffic. The evaluation invoker is never cached: serving
// repeats from a cache would grade a single real response. The cache applies
// to the judge path only, where identical re-grades are pure waste.
func wrapInvokers(base model.Invoker, cfg *settings.Settings) (eval, judge model.Invoker) {
	judge = base
	if cfg.CacheEnabled {
		judge = model.NewCachingInvoker(base, cfg.CacheSize, time.Duration(cfg.CacheTTL))
	}
	return base, judge
}

func throttlingAlert(out io.Writer) func(batch.ThrottlingEvent) {
	return func(ev batch.ThrottlingEvent) {
		fmt.Fprintf(out, "\nthrottled: request %d attempt %d, backing off %s\n",
			ev.RequestIndex, ev.Attempt, ev.Backoff)
	}
}

func printReport(cmd *cobra.Command, result *evaluation.Result) {
	out := cmd.OutOrStdout()
	summary := result.Batch.Summary

	fmt.Fprintf(out, "\nrequested %d, succeeded %d, abandoned %d, failed %d (%.1fs)\n",
		summary.Requested, summary.Succeeded, summary.Abandoned, summary.Failed,
		result.Duration.Seconds())

	stats := result.State.Throttling()
	if stats.ThrottleEvents > 0 {
		fmt.Fprintf(out, "throttling: %d events, %d retries, %d requests abandoned\n",
			stats.ThrottleEvents, stats.TotalRetries, stats.AbandonedRequests)
	}

	report := result.Report
	if report == nil {
		fmt.Fprintln(out, "no report produced")
		return
	}
	if report.Source == consistency.SourceInsufficientData {
		fmt.Fprintln(out, "not enough valid responses to grade")
		for _, note := range report.Notes {
			fmt.Fprintf(out, "  %s\n", note)
		}
		return
	}

	fmt.Fprintf(out, "\ngrade %s (score %.1f, source %s)\n", report.Grade, report.Score, report.Source)
	fmt.Fprintf(out, "  tool usage  %.2f\n", report.Metrics.ToolUsage)
	fmt.Fprintf(out, "  decisions   %.2f\n", report.Metrics.Decision)
	fmt.Fprintf(out, "  semantics   %.2f\n", report.Metrics.Semantic)
	fmt.Fprintf(out, "  structure   %.2f (reported only)\n", report.Metrics.Structural)
	for _, note := range report.Notes {
		fmt.Fprintf(out, "  note: %s\n", note)
	}
	if report.Excluded > 0 {
		fmt.Fprintf(out, "  %d responses excluded from grading\n", report.Excluded)
	}
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/adaptive"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/pipeline"
)

var (
	validateQuestion   string
	validateAnswer     string
	validateDocs       []string
	validateLanguage   string
	validateQuality    float64
	validatePhilosophy bool
	validateRolePlay   bool
	thresholdsOptimize bool
	recordsLimit       int
	feedbackFP         bool
	feedbackFN         bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate one answer against its evidence",
	Long: `Validate runs the full pipeline on a single question/answer pair
and prints the resulting report as JSON. Evidence documents are passed
with repeated --doc flags, best-ranked first.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Error building pipeline: %v", err)
		}
		defer a.Close()

		report, err := a.pipeline.Validate(ctx, pipeline.Request{
			Question:        validateQuestion,
			Answer:          validateAnswer,
			EvidenceDocs:    validateDocs,
			Language:        validateLanguage,
			EvidenceQuality: validateQuality,
			IsPhilosophical: validatePhilosophy,
			IsRolePlay:      validateRolePlay,
		})
		if err != nil {
			log.Fatalf("Error validating answer: %v", err)
		}
		printJSON(report)
	},
}

var narrativeCmd = &cobra.Command{
	Use:   "narrative <session-id>",
	Short: "Print the decision narrative for a validation session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Error building pipeline: %v", err)
		}
		defer a.Close()

		text, err := a.recorder.Narrative(args[0])
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Println(text)
	},
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show the adaptive thresholds, optionally running optimization first",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Error building pipeline: %v", err)
		}
		defer a.Close()

		if thresholdsOptimize {
			result, err := a.thresholds.Optimize(ctx)
			if err != nil {
				log.Fatalf("Error optimizing thresholds: %v", err)
			}
			printJSON(result)
			return
		}
		printJSON(a.thresholds.Snapshot())
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Print the most recent validation records",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Error building pipeline: %v", err)
		}
		defer a.Close()

		recs, err := a.logSink.Recent(ctx, recordsLimit)
		if err != nil {
			log.Fatalf("Error reading records: %v", err)
		}
		printJSON(recs)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record a reviewed validation outcome for threshold optimization",
	Long: `Feedback folds a human review into the reward history: mark a past
verdict as a false positive (a good answer was rejected) or a false
negative (a bad answer slipped through). The next optimization cycle
weighs these when drifting the thresholds.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Error building pipeline: %v", err)
		}
		defer a.Close()

		sample := adaptive.Sample{
			At:            time.Now().UTC(),
			Success:       !feedbackFP && !feedbackFN,
			FalsePositive: feedbackFP,
			FalseNegative: feedbackFN,
		}
		if err := a.thresholds.RecordOutcome(ctx, sample); err != nil {
			log.Fatalf("Error recording feedback: %v", err)
		}
		fmt.Println("feedback recorded")
	},
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Error encoding output: %v", err)
	}
}

func init() {
	validateCmd.Flags().StringVarP(&validateQuestion, "question", "q", "", "the user's question")
	validateCmd.Flags().StringVarP(&validateAnswer, "answer", "a", "", "the generated answer to validate")
	validateCmd.Flags().StringArrayVarP(&validateDocs, "doc", "d", nil, "evidence document (repeatable, best-ranked first)")
	validateCmd.Flags().StringVarP(&validateLanguage, "language", "l", "", "question language code, e.g. en or de")
	validateCmd.Flags().Float64Var(&validateQuality, "evidence-quality", 0.5, "retrieval quality signal in [0, 1]")
	validateCmd.Flags().BoolVar(&validatePhilosophy, "philosophical", false, "treat the question as philosophical")
	validateCmd.Flags().BoolVar(&validateRolePlay, "roleplay", false, "treat the session as role play")
	_ = validateCmd.MarkFlagRequired("answer")

	thresholdsCmd.Flags().BoolVar(&thresholdsOptimize, "optimize", false, "run one optimization cycle before printing")

	recordsCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 20, "number of records to print, newest last")

	feedbackCmd.Flags().BoolVar(&feedbackFP, "false-positive", false, "a good answer was rejected")
	feedbackCmd.Flags().BoolVar(&feedbackFN, "false-negative", false, "a bad answer slipped through")
}

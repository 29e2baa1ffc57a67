// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command veridian validates generated answers against their evidence
// and manages the validation pipeline's state.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/config"
)

var (
	configPath string
	cfg        config.Config

	rootCmd = &cobra.Command{
		Use:   "veridian",
		Short: "Answer validation pipeline for retrieval-augmented generation",
		Long: `Veridian validates generated answers against their evidence:
claim extraction, consistency checks, an ordered validator chain with
adaptive thresholds, and safe localized fallbacks.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "verdict.yaml", "path to the config file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(configPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
			cfg = config.Default()
		default:
			log.Fatalf("Error loading %s: %v", configPath, err)
		}
	}
	rootCmd.AddCommand(validateCmd, narrativeCmd, thresholdsCmd, recordsCmd, feedbackCmd)
}

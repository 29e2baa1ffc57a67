// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"time"

	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
)

// NamedOutcome pairs a validator's outcome with its name and runtime.
type NamedOutcome struct {
	Validator string        `json:"validator"`
	Outcome   Outcome       `json:"outcome"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ChainResult is the merged verdict of a full chain run.
type ChainResult struct {
	// Outcome is the merge: Passed is the conjunction of all steps,
	// Reasons preserves first-occurrence order across steps, and
	// PatchedAnswer is the first patch proposed by a hard-failing
	// step, falling back to the first patch proposed at all.
	Outcome Outcome `json:"outcome"`

	// Confidence scores the merged verdict in [0, 1]: 1.0 minus 0.3
	// per hard reason and 0.1 per soft reason, floored at 0.
	Confidence float64 `json:"confidence"`

	// Steps records every validator's individual outcome in chain
	// order.
	Steps []NamedOutcome `json:"steps"`
}

// Chain runs validators in a fixed order. Every validator runs to
// completion regardless of earlier failures so the final report names
// everything wrong with the answer, not just the first thing.
//
// Thread Safety: safe for concurrent use.
type Chain struct {
	validators []Validator
	log        *logging.Logger
}

// NewChain builds a chain over the given validators in order.
func NewChain(log *logging.Logger, vs ...Validator) *Chain {
	if log == nil {
		log = logging.Default()
	}
	return &Chain{validators: vs, log: log}
}

// Names returns the validator names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.validators))
	for i, v := range c.validators {
		names[i] = v.Name()
	}
	return names
}

// Run executes every validator and merges their outcomes.
func (c *Chain) Run(ctx context.Context, in *Input) ChainResult {
	initMetrics()

	steps := make([]NamedOutcome, 0, len(c.validators))
	var reasons []string
	seen := make(map[string]bool)
	passed := true
	hardPatch, softPatch := "", ""

	for _, v := range c.validators {
		start := time.Now()
		out := c.runOne(ctx, v, in)
		elapsed := time.Since(start)
		steps = append(steps, NamedOutcome{Validator: v.Name(), Outcome: out, Elapsed: elapsed})
		recordValidatorRun(ctx, v.Name(), out, elapsed)

		passed = passed && out.Passed
		for _, r := range out.Reasons {
			if !seen[r] {
				seen[r] = true
				reasons = append(reasons, r)
			}
		}
		if out.PatchedAnswer != "" {
			if !out.Passed && hardPatch == "" {
				hardPatch = out.PatchedAnswer
			} else if out.Passed && softPatch == "" {
				softPatch = out.PatchedAnswer
			}
		}
		if !out.Passed {
			c.log.Debug("validator failed", "validator", v.Name(), "reasons", out.Reasons)
		}
	}

	patch := hardPatch
	if patch == "" {
		patch = softPatch
	}

	confidence := 1.0
	for _, r := range reasons {
		if IsHard(r) {
			confidence -= 0.3
		} else {
			confidence -= 0.1
		}
	}
	if confidence < 0 {
		confidence = 0
	}

	return ChainResult{
		Outcome:    Outcome{Passed: passed, Reasons: reasons, PatchedAnswer: patch},
		Confidence: confidence,
		Steps:      steps,
	}
}

// runOne guards a single validator. A panicking validator is treated
// as passing so one broken check cannot take the pipeline down.
func (c *Chain) runOne(ctx context.Context, v Validator, in *Input) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("validator panicked", "validator", v.Name(), "panic", r)
			out = Pass()
		}
	}()
	return v.Validate(ctx, in)
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ReasonBreakerDisabled is the reason tag attached when the breaker
// skipped the comparison. Absence of evidence is not a contradiction,
// so the outcome passes.
const ReasonBreakerDisabled = "circuit_breaker:disabled"

// ReasonContradictionPrefix prefixes contradiction reason tags:
// "source_contradiction:<kind>:<detail>".
const ReasonContradictionPrefix = "source_contradiction:"

// CheckerConfig configures the cross-source consensus checker.
type CheckerConfig struct {
	// MinDocuments is the evidence count below which the check is
	// skipped entirely. Default: 2.
	MinDocuments int

	// ConfidenceMin is the comparator confidence below which a
	// reported contradiction is discarded. Default: 0.7. This keeps
	// stylistic and perspective differences from being flagged.
	ConfidenceMin float64
}

// DefaultCheckerConfig returns production defaults.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		MinDocuments:  2,
		ConfidenceMin: 0.7,
	}
}

// Verdict is the checker's outcome, merged into the validator chain
// by the consensus validator.
type Verdict struct {
	// Passed is false only for a confident contradiction.
	Passed bool

	// Reasons carries the machine-readable tags, in order.
	Reasons []string

	// Skipped is true when the check did not run (too few documents
	// or breaker open).
	Skipped bool
}

// Checker detects contradictions between the two top-ranked evidence
// documents, sharing one Breaker across all concurrent validations.
//
// Thread Safety: safe for concurrent use.
type Checker struct {
	comparator Comparator
	breaker    *Breaker
	config     CheckerConfig
	logger     *slog.Logger
}

// NewChecker creates a Checker. A nil breaker gets a default one; a
// nil logger uses slog.Default.
func NewChecker(comparator Comparator, breaker *Breaker, config CheckerConfig, logger *slog.Logger) *Checker {
	def := DefaultCheckerConfig()
	if config.MinDocuments <= 0 {
		config.MinDocuments = def.MinDocuments
	}
	if config.ConfidenceMin <= 0 {
		config.ConfidenceMin = def.ConfidenceMin
	}
	if breaker == nil {
		breaker = NewBreaker(DefaultBreakerConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		comparator: comparator,
		breaker:    breaker,
		config:     config,
		logger:     logger,
	}
}

// Breaker returns the shared breaker, for observability.
func (c *Checker) Breaker() *Breaker { return c.breaker }

// Check compares the top two evidence documents.
//
// Description:
//
//	Runs only when at least MinDocuments documents exist, and only
//	compares the top two to bound cost. Comparator failures count
//	against the breaker and degrade to "no contradiction detected",
//	never to "contradiction detected". A contradiction is surfaced
//	only when the comparator's confidence reaches ConfidenceMin.
//
// Inputs:
//
//	ctx - Cancellation context; the comparator call is bounded by
//	its own timeout underneath.
//	evidenceDocs - Retrieved document texts, best-ranked first.
//
// Outputs:
//
//	Verdict - Passed=false only for a confident contradiction.
func (c *Checker) Check(ctx context.Context, evidenceDocs []string) Verdict {
	if len(evidenceDocs) < c.config.MinDocuments {
		return Verdict{Passed: true, Skipped: true}
	}

	if !c.breaker.Allow() {
		c.logger.Debug("consensus check skipped, breaker open")
		return Verdict{
			Passed:  true,
			Skipped: true,
			Reasons: []string{ReasonBreakerDisabled},
		}
	}

	result := c.comparator.Compare(ctx, evidenceDocs[0], evidenceDocs[1])
	switch result.Status {
	case StatusSuccess:
		c.breaker.RecordSuccess()
	case StatusTimeout, StatusError:
		c.breaker.RecordFailure()
		c.logger.Warn("comparator unavailable, degrading to no contradiction",
			"status", string(result.Status), "error", result.Err)
		return Verdict{Passed: true}
	}

	if !result.Contradiction {
		return Verdict{Passed: true}
	}
	if result.Confidence < c.config.ConfidenceMin {
		c.logger.Debug("contradiction below confidence floor, discarded",
			"confidence", result.Confidence, "kind", result.Kind, "detail", result.Detail)
		return Verdict{Passed: true}
	}

	return Verdict{
		Passed:  false,
		Reasons: []string{ContradictionReason(result.Kind, result.Detail)},
	}
}

// ContradictionReason builds the machine-readable contradiction tag
// "source_contradiction:<kind>:<detail>" with a slugged detail.
func ContradictionReason(kind, detail string) string {
	return fmt.Sprintf("%s%s:%s", ReasonContradictionPrefix, kind, slug(detail))
}

// slug lowercases and collapses the detail into a short tag-safe form.
func slug(detail string) string {
	fields := strings.Fields(strings.ToLower(detail))
	if len(fields) > 6 {
		fields = fields[:6]
	}
	s := strings.Join(fields, "_")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unspecified"
	}
	return b.String()
}

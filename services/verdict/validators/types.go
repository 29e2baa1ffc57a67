// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validators implements the ordered validation chain applied
// to every generated answer.
//
// Each validator is an independent check producing an Outcome with
// machine-readable reason tags. Tags are partitioned into hard
// failures (block the answer) and soft warnings (appended as
// disclaimers). The invariant maintained throughout: an outcome's
// Passed is false if and only if at least one hard-class reason is
// present. Construct outcomes with FromReasons to keep that invariant
// structural rather than per-validator discipline.
package validators

import (
	"context"
	"strings"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/consensus"
)

// Hard-class reason tags. Any of these blocks the answer.
const (
	// ReasonMissingCitation: evidence exists but the answer cites
	// none of it.
	ReasonMissingCitation = "missing_citation"

	// ReasonLanguageMismatch: the answer is not in the requested
	// language.
	ReasonLanguageMismatch = "language_mismatch"

	// ReasonMissingUncertainty: no evidence exists and the answer
	// expresses no uncertainty about that.
	ReasonMissingUncertainty = "missing_uncertainty_no_context"

	// ReasonNumericImplausible: the answer contains a number that
	// cannot be right (percentage over 100, negative duration).
	ReasonNumericImplausible = "numeric_implausible"

	// ReasonFactualHallucination: the answer asserts facts with
	// fabrication markers or against the evidence.
	ReasonFactualHallucination = "factual_hallucination"

	// ReasonSensitiveTopic: strong advice on a sensitive topic
	// without evidence support.
	ReasonSensitiveTopic = "sensitive_topic_unsupported"

	// ReasonClaimContradiction: two claims in the answer contradict
	// each other.
	ReasonClaimContradiction = "claim_contradiction"

	// ReasonPolicyViolation: the final policy gate rejected the
	// answer.
	ReasonPolicyViolation = "policy_violation"
)

// Soft-class reason tags. These pass with warnings.
const (
	// ReasonLowOverlap: the answer only weakly overlaps its evidence.
	ReasonLowOverlap = "low_overlap"

	// ReasonIdentityWarning: self-aggrandizing or ego-centric tone.
	ReasonIdentityWarning = "identity_warning"

	// ReasonCitationRelevance: a citation points at a document that
	// barely supports the citing claim.
	ReasonCitationRelevance = "citation_relevance_warning"

	// ReasonPhilosophicalDepth: a philosophical answer presents one
	// perspective as settled fact.
	ReasonPhilosophicalDepth = "philosophical_depth_warning"

	// ReasonRedundantClaims: the answer repeats the same claim.
	ReasonRedundantClaims = "redundant_claims"
)

// hardReasons is the exact-match hard tag set. Contradictions between
// sources carry a dynamic suffix and are matched by prefix instead.
var hardReasons = map[string]bool{
	ReasonMissingCitation:      true,
	ReasonLanguageMismatch:     true,
	ReasonMissingUncertainty:   true,
	ReasonNumericImplausible:   true,
	ReasonFactualHallucination: true,
	ReasonSensitiveTopic:       true,
	ReasonClaimContradiction:   true,
	ReasonPolicyViolation:      true,
}

// IsHard reports whether a reason tag is hard-class.
func IsHard(reason string) bool {
	if hardReasons[reason] {
		return true
	}
	return strings.HasPrefix(reason, consensus.ReasonContradictionPrefix)
}

// HasHard reports whether any reason in the list is hard-class.
func HasHard(reasons []string) bool {
	for _, r := range reasons {
		if IsHard(r) {
			return true
		}
	}
	return false
}

// Outcome is the result of one validator (or of the merged chain).
type Outcome struct {
	// Passed is false iff Reasons contains a hard-class tag.
	Passed bool `json:"passed"`

	// Reasons is an append-only, order-preserving list of
	// machine-readable tags.
	Reasons []string `json:"reasons,omitempty"`

	// PatchedAnswer is a repaired answer, or "" when the validator
	// offers none.
	PatchedAnswer string `json:"patched_answer,omitempty"`
}

// FromReasons builds an Outcome, deriving Passed from the reason
// classes. This is the only constructor validators should use.
func FromReasons(reasons []string, patchedAnswer string) Outcome {
	return Outcome{
		Passed:        !HasHard(reasons),
		Reasons:       reasons,
		PatchedAnswer: patchedAnswer,
	}
}

// Pass returns a clean passing outcome.
func Pass() Outcome {
	return Outcome{Passed: true}
}

// Input carries everything a validator may inspect. The same Input is
// threaded to every validator in the chain.
type Input struct {
	// Answer is the generated answer under validation.
	Answer string

	// Question is the user question the answer responds to.
	Question string

	// EvidenceDocs are retrieved document texts, best-ranked first.
	EvidenceDocs []string

	// Language is the detected language code of the question, e.g.
	// "en" or "de-AT". Empty means unknown.
	Language string

	// EvidenceQuality is the retrieval-quality signal in [0, 1].
	EvidenceQuality float64

	// IsPhilosophical marks reflective/philosophical queries.
	IsPhilosophical bool

	// IsRolePlay marks an active role-play mode.
	IsRolePlay bool

	// Thresholds is the per-request snapshot of adaptive thresholds.
	Thresholds Thresholds
}

// Thresholds is the per-request snapshot of tunable validator
// parameters, produced by the adaptive store.
type Thresholds struct {
	// CitationOverlapMin is the minimum claim/document overlap for a
	// citation to count as relevant.
	CitationOverlapMin float64

	// EvidenceOverlapMin is the minimum answer/evidence overlap
	// before a low_overlap warning.
	EvidenceOverlapMin float64

	// ConfidenceFloor is the minimum confidence score below which
	// the pipeline treats the verdict as unreliable.
	ConfidenceFloor float64
}

// Validator is a single check in the chain.
//
// Thread Safety: implementations must be safe for concurrent use.
type Validator interface {
	// Name returns the validator name for logging and metrics.
	Name() string

	// Validate runs the check. It must run to completion and never
	// panic; unexpected inputs produce a passing outcome.
	Validate(ctx context.Context, in *Input) Outcome
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline wires claim checking, the validation chain, the
// adaptive thresholds, decision logging, and fallback generation into
// one entry point.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/adaptive"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/decision"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/fallback"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/records"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/validators"
)

// reasonEmptyResponse is recorded when the generator returned nothing
// to validate.
const reasonEmptyResponse = "empty_response"

// reasonLowConfidence is recorded when the chain's folded confidence
// lands under the adaptive confidence floor.
const reasonLowConfidence = "confidence_below_floor"

// Regenerator produces a replacement answer when validation asks for
// one, typically after a language mismatch.
type Regenerator interface {
	Regenerate(ctx context.Context, question, language string) (string, error)
}

// Request is one answer to validate.
type Request struct {
	Question string
	Answer   string

	// EvidenceDocs are the retrieved documents, best-ranked first.
	EvidenceDocs []string

	// Language is the question's language code.
	Language string

	// EvidenceQuality is the retrieval-quality signal in [0, 1].
	EvidenceQuality float64

	IsPhilosophical bool
	IsRolePlay      bool
}

// Report is the pipeline's verdict.
type Report struct {
	// Answer is what should be shown to the user: the original
	// answer, a patched variant, a regenerated answer, or the
	// fallback reply. Never empty.
	Answer string `json:"answer"`

	// Passed is false when the user sees the fallback.
	Passed bool `json:"passed"`

	// Reasons are the merged reason tags from validation.
	Reasons []string `json:"reasons,omitempty"`

	// Confidence is the chain's folded confidence score in [0, 1].
	Confidence float64 `json:"confidence"`

	SessionID    string `json:"session_id,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
	UsedPatch    bool   `json:"used_patch"`
	Retried      bool   `json:"retried"`

	// ContextDocs is the number of evidence documents considered.
	ContextDocs int `json:"context_docs"`

	// Thresholds are the corrected threshold values this request was
	// validated against.
	Thresholds map[string]float64 `json:"thresholds,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Components are the pipeline's dependencies. Nil fields get working
// in-memory defaults; Sink and Regen stay optional.
type Components struct {
	Factory    *validators.Factory
	Thresholds *adaptive.Store
	Recorder   *decision.Recorder
	Fallback   *fallback.Generator
	Sink       records.Sink
	Regen      Regenerator
	Log        *logging.Logger

	// DisableLanguageRetry suppresses the regeneration attempt on a
	// language mismatch even when Regen is set.
	DisableLanguageRetry bool
}

// Pipeline validates generated answers.
//
// Thread Safety: safe for concurrent use.
type Pipeline struct {
	factory    *validators.Factory
	thresholds *adaptive.Store
	recorder   *decision.Recorder
	fallback   *fallback.Generator
	sink       records.Sink
	regen      Regenerator
	log        *logging.Logger
	noRetry    bool
}

// New assembles a Pipeline.
func New(c Components) (*Pipeline, error) {
	if c.Log == nil {
		c.Log = logging.Default()
	}
	if c.Factory == nil {
		c.Factory = validators.NewFactory(validators.FactoryConfig{}, c.Log)
	}
	if c.Thresholds == nil {
		store, err := adaptive.New(adaptive.DefaultConfig(), nil, c.Log)
		if err != nil {
			return nil, err
		}
		c.Thresholds = store
	}
	if c.Recorder == nil {
		r, err := decision.NewRecorder(context.Background(), nil, c.Log)
		if err != nil {
			return nil, err
		}
		c.Recorder = r
	}
	if c.Fallback == nil {
		c.Fallback = fallback.NewGenerator()
	}
	return &Pipeline{
		factory:    c.Factory,
		thresholds: c.Thresholds,
		recorder:   c.Recorder,
		fallback:   c.Fallback,
		sink:       c.Sink,
		regen:      c.Regen,
		log:        c.Log,
		noRetry:    c.DisableLanguageRetry,
	}, nil
}

// Validate runs the full pipeline over one answer.
func (p *Pipeline) Validate(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	sessionID, err := p.recorder.StartSession(ctx, req.Question)
	if err != nil {
		p.log.Warn("decision session unavailable", "error", err)
	}

	qctx := adaptive.QueryContext{
		EvidenceQuality: req.EvidenceQuality,
		IsPhilosophical: req.IsPhilosophical,
		IsRolePlay:      req.IsRolePlay,
	}
	thr := validators.Thresholds{
		CitationOverlapMin: p.thresholds.Adaptive(adaptive.ParamCitationOverlapMin, qctx),
		EvidenceOverlapMin: p.thresholds.Adaptive(adaptive.ParamEvidenceOverlapMin, qctx),
		ConfidenceFloor:    p.thresholds.Adaptive(adaptive.ParamConfidenceFloor, qctx),
	}
	thrValues := map[string]float64{
		adaptive.ParamCitationOverlapMin: thr.CitationOverlapMin,
		adaptive.ParamEvidenceOverlapMin: thr.EvidenceOverlapMin,
		adaptive.ParamConfidenceFloor:    thr.ConfidenceFloor,
	}
	thresholdsID := p.logEntry(ctx, sessionID, decision.Entry{
		Component:          "adaptive",
		Action:             "thresholds_corrected",
		Rationale:          fmt.Sprintf("evidence quality %.2f", req.EvidenceQuality),
		Alternatives:       []string{"uncorrected baseline thresholds"},
		ThresholdReasoning: thresholdReasoning(req, thr),
		Data: map[string]any{
			"citation_overlap_min": thr.CitationOverlapMin,
			"evidence_overlap_min": thr.EvidenceOverlapMin,
			"confidence_floor":     thr.ConfidenceFloor,
		},
	})

	report := &Report{SessionID: sessionID, Thresholds: thrValues, ContextDocs: len(req.EvidenceDocs)}

	if strings.TrimSpace(req.Answer) == "" {
		failed := false
		p.logEntry(ctx, sessionID, decision.Entry{
			Component: "pipeline",
			Action:    "rejected_empty",
			Rationale: "generator returned an empty answer",
			Outcome:   "rejected without running the chain",
			Success:   &failed,
			ParentID:  thresholdsID,
		})
		report.Reasons = []string{reasonEmptyResponse}
		p.finish(ctx, req, report, start, false, thresholdsID)
		return report, nil
	}

	in := p.input(req, req.Answer, thr)
	chain := p.factory.ChainFor(in)
	answer := req.Answer
	res := chain.Run(ctx, in)
	chainPassed := res.Outcome.Passed
	chainID := p.logEntry(ctx, sessionID, decision.Entry{
		Component:    "chain",
		Action:       "composed",
		Rationale:    fmt.Sprintf("%d validators selected", len(chain.Names())),
		Alternatives: p.factory.Skipped(in),
		Outcome:      chainOutcome(res),
		Success:      &chainPassed,
		ParentID:     thresholdsID,
		Data:         map[string]any{"validators": strings.Join(chain.Names(), ",")},
	})
	p.logChainResult(ctx, sessionID, res, chainID)

	// One regeneration attempt when the answer came back in the
	// wrong language.
	if !res.Outcome.Passed && hasReason(res.Outcome.Reasons, validators.ReasonLanguageMismatch) &&
		p.regen != nil && !p.noRetry {
		retriesTotal.WithLabelValues(validators.ReasonLanguageMismatch).Inc()
		regenerated, rerr := p.regen.Regenerate(ctx, req.Question, req.Language)
		if rerr != nil || strings.TrimSpace(regenerated) == "" {
			failed := false
			p.logEntry(ctx, sessionID, decision.Entry{
				Component: "pipeline",
				Action:    "regeneration_failed",
				Rationale: "keeping original verdict",
				Outcome:   "no replacement answer",
				Success:   &failed,
				ParentID:  chainID,
			})
		} else {
			report.Retried = true
			answer = regenerated
			in = p.input(req, regenerated, thr)
			res = p.factory.ChainFor(in).Run(ctx, in)
			regenPassed := res.Outcome.Passed
			p.logEntry(ctx, sessionID, decision.Entry{
				Component:    "pipeline",
				Action:       "regenerated",
				Rationale:    "revalidated a regenerated answer",
				Alternatives: []string{"keep the mismatched answer", "fall back immediately"},
				Outcome:      chainOutcome(res),
				Success:      &regenPassed,
				ParentID:     chainID,
				Data:         map[string]any{"passed": regenPassed},
			})
			p.logChainResult(ctx, sessionID, res, chainID)
		}
	}

	report.Reasons = res.Outcome.Reasons
	report.Confidence = res.Confidence
	passed := res.Outcome.Passed

	// A hard failure with a proposed patch gets one revalidation.
	if !passed && res.Outcome.PatchedAnswer != "" {
		patchIn := p.input(req, res.Outcome.PatchedAnswer, thr)
		patchRes := p.factory.ChainFor(patchIn).Run(ctx, patchIn)
		patchPassed := patchRes.Outcome.Passed
		if patchPassed {
			answer = res.Outcome.PatchedAnswer
			passed = true
			report.Confidence = patchRes.Confidence
			report.UsedPatch = true
			patchesApplied.Inc()
			p.logEntry(ctx, sessionID, decision.Entry{
				Component:    "pipeline",
				Action:       "patch_applied",
				Rationale:    "patched answer survived revalidation",
				Alternatives: []string{"reject without patching"},
				Outcome:      "patched answer shown",
				Success:      &patchPassed,
				ParentID:     chainID,
			})
		} else {
			p.logEntry(ctx, sessionID, decision.Entry{
				Component: "pipeline",
				Action:    "patch_rejected",
				Rationale: "patched answer failed revalidation",
				Outcome:   chainOutcome(patchRes),
				Success:   &patchPassed,
				ParentID:  chainID,
				Data:      map[string]any{"reasons": strings.Join(patchRes.Outcome.Reasons, ",")},
			})
		}
	}

	// Warnings erode confidence; enough of them sink an otherwise
	// passing answer.
	if passed && report.Confidence < thr.ConfidenceFloor {
		passed = false
		report.Reasons = append(report.Reasons, reasonLowConfidence)
		failed := false
		p.logEntry(ctx, sessionID, decision.Entry{
			Component:          "pipeline",
			Action:             "confidence_below_floor",
			Rationale:          fmt.Sprintf("confidence %.2f under floor %.2f", report.Confidence, thr.ConfidenceFloor),
			Outcome:            "demoted to failure",
			Success:            &failed,
			ThresholdReasoning: thresholdReasoning(req, thr),
			ParentID:           chainID,
		})
	}

	report.Answer = answer
	p.finish(ctx, req, report, start, passed, chainID)
	return report, nil
}

// input builds the chain input for one answer candidate.
func (p *Pipeline) input(req Request, answer string, thr validators.Thresholds) *validators.Input {
	return &validators.Input{
		Answer:          answer,
		Question:        req.Question,
		EvidenceDocs:    req.EvidenceDocs,
		Language:        req.Language,
		EvidenceQuality: req.EvidenceQuality,
		IsPhilosophical: req.IsPhilosophical,
		IsRolePlay:      req.IsRolePlay,
		Thresholds:      thr,
	}
}

// finish settles the fallback, closes the session, and persists the
// outcome.
func (p *Pipeline) finish(ctx context.Context, req Request, report *Report, start time.Time, passed bool, parentID string) {
	report.Passed = passed
	overlap := validators.EvidenceOverlap(report.Answer, req.EvidenceDocs)
	hasCitations := validators.HasCitation(report.Answer)
	if !passed {
		report.Answer = p.fallback.Generate(req.Question, req.Language)
		report.UsedFallback = true
		fallbacksTotal.WithLabelValues(fallbackLanguage(req.Language)).Inc()
		failed := false
		p.logEntry(ctx, report.SessionID, decision.Entry{
			Component:    "fallback",
			Action:       "generated",
			Rationale:    "validation failed, answer suppressed",
			Alternatives: []string{"show the unverified answer", "patch the answer", "regenerate the answer"},
			Outcome:      "localized fallback shown",
			Success:      &failed,
			ParentID:     parentID,
			Data:         map[string]any{"reasons": strings.Join(report.Reasons, ",")},
		})
	}
	report.Elapsed = time.Since(start)

	outcome := outcomePassed
	switch {
	case report.UsedFallback:
		outcome = outcomeFallback
	case len(report.Reasons) > 0:
		outcome = outcomeWarned
	}
	validationsTotal.WithLabelValues(outcome).Inc()
	validationDuration.Observe(report.Elapsed.Seconds())

	if report.SessionID != "" {
		if err := p.recorder.EndSession(ctx, report.SessionID); err != nil {
			p.log.Warn("ending decision session", "error", err)
		}
	}

	if err := p.thresholds.RecordOutcome(ctx, adaptive.Sample{
		At:      time.Now().UTC(),
		Success: passed,
	}); err != nil {
		p.log.Warn("recording threshold outcome", "error", err)
	}

	if p.sink != nil {
		rec := records.NewRecord(records.ValidationRecord{
			SessionID:       report.SessionID,
			Question:        req.Question,
			Language:        req.Language,
			Category:        category(req),
			Passed:          passed,
			Reasons:         report.Reasons,
			UsedFallback:    report.UsedFallback,
			UsedPatch:       report.UsedPatch,
			Retried:         report.Retried,
			OverlapScore:    overlap,
			ConfidenceScore: report.Confidence,
			HasCitations:    hasCitations,
			EvidenceCount:   len(req.EvidenceDocs),
			LatencyMS:       report.Elapsed.Milliseconds(),
			Thresholds:      report.Thresholds,
		})
		if err := p.sink.Write(ctx, rec); err != nil {
			p.log.Warn("writing validation record", "error", err)
		}
	}
}

// logEntry records a decision and returns its id so the caller can
// link follow-up decisions to it. Logging failures are reported but do
// not interrupt validation.
func (p *Pipeline) logEntry(ctx context.Context, sessionID string, e decision.Entry) string {
	if sessionID == "" {
		return ""
	}
	id, err := p.recorder.LogEntry(ctx, sessionID, e)
	if err != nil {
		p.log.Warn("recording decision", "error", err)
		return ""
	}
	return id
}

func (p *Pipeline) logChainResult(ctx context.Context, sessionID string, res validators.ChainResult, parentID string) {
	for _, step := range res.Steps {
		if len(step.Outcome.Reasons) == 0 {
			continue
		}
		stepPassed := step.Outcome.Passed
		p.logEntry(ctx, sessionID, decision.Entry{
			Component: step.Validator,
			Action:    "flagged",
			Rationale: strings.Join(step.Outcome.Reasons, ","),
			Outcome:   stepOutcome(step.Outcome.Passed),
			Success:   &stepPassed,
			ParentID:  parentID,
		})
	}
}

// thresholdReasoning renders the per-request threshold corrections as
// one sentence for the decision trail.
func thresholdReasoning(req Request, thr validators.Thresholds) string {
	return fmt.Sprintf("%s query with evidence quality %.2f set citation_overlap_min=%.3f evidence_overlap_min=%.3f confidence_floor=%.3f",
		category(req), req.EvidenceQuality, thr.CitationOverlapMin, thr.EvidenceOverlapMin, thr.ConfidenceFloor)
}

func chainOutcome(res validators.ChainResult) string {
	if res.Outcome.Passed {
		if len(res.Outcome.Reasons) > 0 {
			return fmt.Sprintf("passed with warnings: %s", strings.Join(res.Outcome.Reasons, ","))
		}
		return "passed"
	}
	return fmt.Sprintf("failed: %s", strings.Join(res.Outcome.Reasons, ","))
}

func stepOutcome(passed bool) string {
	if passed {
		return "warning"
	}
	return "hard failure"
}

func category(req Request) string {
	switch {
	case req.IsPhilosophical:
		return "philosophical"
	case req.IsRolePlay:
		return "role_play"
	default:
		return "general"
	}
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func fallbackLanguage(code string) string {
	if fallback.Supported(code) {
		return strings.ToLower(strings.SplitN(code, "-", 2)[0])
	}
	return "en"
}

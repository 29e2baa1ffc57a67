// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/decision"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/records"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/validators"
)

func newTestPipeline(t *testing.T, c Components) *Pipeline {
	t.Helper()
	p, err := New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestValidate_CleanAnswerPasses(t *testing.T) {
	p := newTestPipeline(t, Components{})
	report, err := p.Validate(context.Background(), Request{
		Question:        "When did the launch happen?",
		Answer:          "The launch happened in March [1].",
		EvidenceDocs:    []string{"The launch happened in March at the coastal site."},
		Language:        "en",
		EvidenceQuality: 0.9,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !report.Passed {
		t.Fatalf("clean answer rejected: %v", report.Reasons)
	}
	if report.Answer != "The launch happened in March [1]." {
		t.Errorf("answer modified: %q", report.Answer)
	}
	if report.UsedFallback || report.UsedPatch || report.Retried {
		t.Errorf("unexpected interventions: %+v", report)
	}
	if len(report.Thresholds) != 3 {
		t.Errorf("thresholds = %v", report.Thresholds)
	}
	if report.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 for a reason-free run", report.Confidence)
	}
	if report.ContextDocs != 1 {
		t.Errorf("context docs = %d, want 1", report.ContextDocs)
	}
}

func TestValidate_ConfidentAnswerWithoutEvidenceGetsHedgedPatch(t *testing.T) {
	p := newTestPipeline(t, Components{})
	report, err := p.Validate(context.Background(), Request{
		Question: "How often does the index refresh?",
		Answer:   "The index refreshes continuously.",
		Language: "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !hasReason(report.Reasons, validators.ReasonMissingUncertainty) {
		t.Fatalf("reasons = %v, want %s", report.Reasons, validators.ReasonMissingUncertainty)
	}
	if !report.UsedPatch {
		t.Fatal("expected the hedged patch to be applied")
	}
	if !report.Passed {
		t.Error("patched answer must count as passed")
	}
	if !strings.HasPrefix(report.Answer, "I could not find supporting context") {
		t.Errorf("answer = %q, want the hedged variant", report.Answer)
	}
	if report.UsedFallback {
		t.Error("patch must preempt the fallback")
	}
}

func TestValidate_UnpatchableFailureFallsBack(t *testing.T) {
	p := newTestPipeline(t, Components{})

	// German question, confident German answer, zero evidence. The
	// hedge patch is English-only, so there is nothing to repair.
	report, err := p.Validate(context.Background(), Request{
		Question: "Wie oft aktualisiert sich der Index?",
		Answer:   "Der Index ist aktuell und die Daten sind vollständig.",
		Language: "de",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed || !report.UsedFallback {
		t.Fatalf("expected fallback, got %+v", report)
	}
	if !strings.HasPrefix(report.Answer, "Es tut mir leid") {
		t.Errorf("fallback not localized: %q", report.Answer)
	}
	if strings.Contains(report.Answer, "vollständig") {
		t.Error("fallback must not echo the rejected answer")
	}
}

func TestValidate_EmptyAnswerFallsBack(t *testing.T) {
	p := newTestPipeline(t, Components{})
	report, err := p.Validate(context.Background(), Request{
		Question: "Anything?",
		Answer:   "   \n",
		Language: "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed || !report.UsedFallback {
		t.Fatalf("expected fallback, got %+v", report)
	}
	if !hasReason(report.Reasons, reasonEmptyResponse) {
		t.Errorf("reasons = %v", report.Reasons)
	}
	if strings.TrimSpace(report.Answer) == "" {
		t.Error("fallback answer must never be empty")
	}
}

type stubRegenerator struct {
	answer string
	calls  int
}

func (s *stubRegenerator) Regenerate(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.answer, nil
}

func TestValidate_LanguageMismatchTriggersOneRetry(t *testing.T) {
	regen := &stubRegenerator{
		answer: "Es ist nicht sicher, aber das System könnte die Daten stündlich aktualisieren.",
	}
	p := newTestPipeline(t, Components{Regen: regen})

	report, err := p.Validate(context.Background(), Request{
		Question: "Wie oft werden die Daten aktualisiert?",
		Answer:   "It is not sure yet, but it might refresh from the feeds.",
		Language: "de",
	})
	if err != nil {
		t.Fatal(err)
	}
	if regen.calls != 1 {
		t.Fatalf("regenerator called %d times, want 1", regen.calls)
	}
	if !report.Retried {
		t.Error("report must mark the retry")
	}
	if !report.Passed {
		t.Fatalf("regenerated German answer rejected: %v", report.Reasons)
	}
	if report.Answer != regen.answer {
		t.Errorf("answer = %q, want the regenerated one", report.Answer)
	}
}

func TestValidate_PersistsRecordAndDecisions(t *testing.T) {
	ctx := context.Background()
	sink := records.NewLogSink(storage.NewMemoryLog())
	recorder, err := decision.NewRecorder(ctx, storage.NewMemoryLog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	p := newTestPipeline(t, Components{Sink: sink, Recorder: recorder})

	report, err := p.Validate(ctx, Request{
		Question:        "When did the launch happen?",
		Answer:          "The launch happened in March [1].",
		EvidenceDocs:    []string{"The launch happened in March at the coastal site."},
		Language:        "en",
		EvidenceQuality: 0.9,
	})
	if err != nil {
		t.Fatal(err)
	}

	recs, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].SessionID != report.SessionID || !recs[0].Passed {
		t.Errorf("record = %+v", recs[0])
	}
	if recs[0].EvidenceCount != 1 {
		t.Errorf("evidence count = %d", recs[0].EvidenceCount)
	}
	if recs[0].Category != "general" {
		t.Errorf("category = %q, want general", recs[0].Category)
	}
	if !recs[0].HasCitations {
		t.Error("record must note the citation marker")
	}
	if recs[0].OverlapScore <= 0 {
		t.Errorf("overlap score = %v, want > 0", recs[0].OverlapScore)
	}
	if recs[0].ConfidenceScore != 1.0 {
		t.Errorf("confidence score = %v, want 1.0", recs[0].ConfidenceScore)
	}

	text, err := recorder.Narrative(report.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "[chain]") || !strings.Contains(text, "Session ended") {
		t.Errorf("narrative incomplete:\n%s", text)
	}
}

func TestValidate_RetryDisabledByConfiguration(t *testing.T) {
	regen := &stubRegenerator{
		answer: "Es ist nicht sicher, aber das System könnte die Daten stündlich aktualisieren.",
	}
	p := newTestPipeline(t, Components{Regen: regen, DisableLanguageRetry: true})

	report, err := p.Validate(context.Background(), Request{
		Question: "Wie oft werden die Daten aktualisiert?",
		Answer:   "It is not sure yet, but it might refresh from the feeds.",
		Language: "de",
	})
	if err != nil {
		t.Fatal(err)
	}
	if regen.calls != 0 {
		t.Fatalf("regenerator called %d times, want 0", regen.calls)
	}
	if report.Retried {
		t.Error("report must not mark a retry")
	}
	if report.Passed || !report.UsedFallback {
		t.Fatalf("mismatched answer must fall back without a retry, got %+v", report)
	}
}

func TestValidate_DecisionTrailCarriesContext(t *testing.T) {
	ctx := context.Background()
	recorder, err := decision.NewRecorder(ctx, storage.NewMemoryLog(), nil)
	if err != nil {
		t.Fatal(err)
	}
	p := newTestPipeline(t, Components{Recorder: recorder})

	report, err := p.Validate(ctx, Request{
		Question: "Wie oft aktualisiert sich der Index?",
		Answer:   "Der Index ist aktuell und die Daten sind vollständig.",
		Language: "de",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Passed {
		t.Fatalf("expected a failing run, got %+v", report)
	}

	ds := recorder.SessionDecisions(report.SessionID)
	byAction := make(map[string]decision.Decision, len(ds))
	for _, d := range ds {
		byAction[d.Action] = d
	}

	thrD, ok := byAction["thresholds_corrected"]
	if !ok {
		t.Fatalf("no threshold decision in %+v", ds)
	}
	if thrD.ThresholdReasoning == "" || len(thrD.Alternatives) == 0 {
		t.Errorf("threshold decision lost context: %+v", thrD)
	}

	chainD, ok := byAction["composed"]
	if !ok {
		t.Fatalf("no chain decision in %+v", ds)
	}
	if chainD.Outcome == "" || chainD.Success == nil || *chainD.Success {
		t.Errorf("chain decision must record a failed outcome: %+v", chainD)
	}
	if chainD.ParentID != thrD.ID {
		t.Errorf("chain decision parent = %q, want %q", chainD.ParentID, thrD.ID)
	}

	fbD, ok := byAction["generated"]
	if !ok {
		t.Fatalf("no fallback decision in %+v", ds)
	}
	if len(fbD.Alternatives) == 0 || fbD.Outcome == "" || fbD.Success == nil {
		t.Errorf("fallback decision lost context: %+v", fbD)
	}
	if fbD.ParentID != chainD.ID {
		t.Errorf("fallback decision parent = %q, want %q", fbD.ParentID, chainD.ID)
	}
}

func TestValidate_EvidenceQualityCorrectsThresholds(t *testing.T) {
	p := newTestPipeline(t, Components{})
	ctx := context.Background()

	base, err := p.Validate(ctx, Request{
		Question: "q", Answer: "It might be so.", Language: "en", EvidenceQuality: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	strong, err := p.Validate(ctx, Request{
		Question: "q", Answer: "It might be so.", Language: "en", EvidenceQuality: 0.9,
	})
	if err != nil {
		t.Fatal(err)
	}
	weak, err := p.Validate(ctx, Request{
		Question: "q", Answer: "It might be so.", Language: "en", EvidenceQuality: 0.1,
	})
	if err != nil {
		t.Fatal(err)
	}
	b := base.Thresholds["citation_overlap_min"]
	s := strong.Thresholds["citation_overlap_min"]
	w := weak.Thresholds["citation_overlap_min"]
	if s <= b {
		t.Errorf("strong evidence threshold %v not above baseline %v", s, b)
	}
	if w >= b {
		t.Errorf("weak evidence threshold %v not below baseline %v", w, b)
	}
}

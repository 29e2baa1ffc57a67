// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"math"
	"reflect"
	"testing"
)

type stubValidator struct {
	name    string
	outcome Outcome
	calls   int
}

func (s *stubValidator) Name() string { return s.name }

func (s *stubValidator) Validate(_ context.Context, _ *Input) Outcome {
	s.calls++
	return s.outcome
}

func TestIsHard_Taxonomy(t *testing.T) {
	hard := []string{
		ReasonMissingCitation,
		ReasonLanguageMismatch,
		ReasonMissingUncertainty,
		ReasonNumericImplausible,
		ReasonFactualHallucination,
		ReasonSensitiveTopic,
		ReasonClaimContradiction,
		ReasonPolicyViolation,
		"source_contradiction:date:launch_dated_2019_vs_2021",
	}
	for _, r := range hard {
		if !IsHard(r) {
			t.Errorf("IsHard(%q) = false, want true", r)
		}
	}
	soft := []string{
		ReasonLowOverlap,
		ReasonIdentityWarning,
		ReasonCitationRelevance,
		ReasonPhilosophicalDepth,
		ReasonRedundantClaims,
		"circuit_breaker:disabled",
	}
	for _, r := range soft {
		if IsHard(r) {
			t.Errorf("IsHard(%q) = true, want false", r)
		}
	}
}

func TestFromReasons_PassedMatchesClasses(t *testing.T) {
	if out := FromReasons([]string{ReasonLowOverlap}, ""); !out.Passed {
		t.Error("soft-only reasons must pass")
	}
	if out := FromReasons([]string{ReasonLowOverlap, ReasonMissingCitation}, ""); out.Passed {
		t.Error("a hard reason must fail the outcome")
	}
	if out := FromReasons(nil, ""); !out.Passed {
		t.Error("no reasons must pass")
	}
}

func TestChain_RunsEveryValidator(t *testing.T) {
	a := &stubValidator{name: "a", outcome: FromReasons([]string{ReasonMissingCitation}, "")}
	b := &stubValidator{name: "b", outcome: FromReasons([]string{ReasonLowOverlap}, "")}
	c := &stubValidator{name: "c", outcome: Pass()}

	res := NewChain(nil, a, b, c).Run(context.Background(), &Input{Answer: "x"})

	for _, s := range []*stubValidator{a, b, c} {
		if s.calls != 1 {
			t.Errorf("validator %s ran %d times, want 1", s.name, s.calls)
		}
	}
	if res.Outcome.Passed {
		t.Error("chain with a hard failure must not pass")
	}
	want := []string{ReasonMissingCitation, ReasonLowOverlap}
	if !reflect.DeepEqual(res.Outcome.Reasons, want) {
		t.Errorf("merged reasons = %v, want %v", res.Outcome.Reasons, want)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(res.Steps))
	}
}

func TestChain_PassedIffNoHardReason(t *testing.T) {
	soft := &stubValidator{name: "soft", outcome: FromReasons([]string{ReasonIdentityWarning, ReasonLowOverlap}, "")}
	res := NewChain(nil, soft).Run(context.Background(), &Input{Answer: "x"})
	if !res.Outcome.Passed {
		t.Error("soft-only chain must pass")
	}
	if HasHard(res.Outcome.Reasons) {
		t.Error("no hard reasons expected")
	}
}

func TestChain_DeduplicatesRepeatedReasons(t *testing.T) {
	a := &stubValidator{name: "a", outcome: FromReasons([]string{ReasonLowOverlap}, "")}
	b := &stubValidator{name: "b", outcome: FromReasons([]string{ReasonLowOverlap}, "")}
	res := NewChain(nil, a, b).Run(context.Background(), &Input{Answer: "x"})
	if got := len(res.Outcome.Reasons); got != 1 {
		t.Errorf("reasons = %v, want a single deduplicated tag", res.Outcome.Reasons)
	}
}

func TestChain_ConfidenceFolding(t *testing.T) {
	clean := NewChain(nil, &stubValidator{name: "ok", outcome: Pass()}).
		Run(context.Background(), &Input{Answer: "x"})
	if clean.Confidence != 1.0 {
		t.Errorf("clean confidence = %v, want 1.0", clean.Confidence)
	}

	hard := &stubValidator{name: "hard", outcome: FromReasons([]string{ReasonMissingCitation}, "")}
	soft := &stubValidator{name: "soft", outcome: FromReasons([]string{ReasonLowOverlap}, "")}
	mixed := NewChain(nil, hard, soft).Run(context.Background(), &Input{Answer: "x"})
	if got := mixed.Confidence; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("mixed confidence = %v, want 0.6", got)
	}

	many := make([]Validator, 0, 5)
	for i := 0; i < 5; i++ {
		many = append(many, &stubValidator{
			name:    "h" + string(rune('a'+i)),
			outcome: FromReasons([]string{"source_contradiction:date:case_" + string(rune('a'+i))}, ""),
		})
	}
	floor := NewChain(nil, many...).Run(context.Background(), &Input{Answer: "x"})
	if floor.Confidence != 0 {
		t.Errorf("confidence = %v, want floor at 0", floor.Confidence)
	}
}

func TestChain_PrefersHardFailingPatch(t *testing.T) {
	softPatch := &stubValidator{name: "soft", outcome: Outcome{Passed: true, Reasons: []string{ReasonIdentityWarning}, PatchedAnswer: "soft patch"}}
	hardPatch := &stubValidator{name: "hard", outcome: Outcome{Passed: false, Reasons: []string{ReasonMissingCitation}, PatchedAnswer: "hard patch"}}

	res := NewChain(nil, softPatch, hardPatch).Run(context.Background(), &Input{Answer: "x"})
	if res.Outcome.PatchedAnswer != "hard patch" {
		t.Errorf("patch = %q, want the hard-failing validator's patch", res.Outcome.PatchedAnswer)
	}

	res = NewChain(nil, softPatch).Run(context.Background(), &Input{Answer: "x"})
	if res.Outcome.PatchedAnswer != "soft patch" {
		t.Errorf("patch = %q, want the soft patch when no hard patch exists", res.Outcome.PatchedAnswer)
	}
}

type panicValidator struct{}

func (panicValidator) Name() string { return "boom" }

func (panicValidator) Validate(context.Context, *Input) Outcome { panic("boom") }

func TestChain_SurvivesPanickingValidator(t *testing.T) {
	after := &stubValidator{name: "after", outcome: Pass()}
	res := NewChain(nil, panicValidator{}, after).Run(context.Background(), &Input{Answer: "x"})
	if !res.Outcome.Passed {
		t.Error("panicking validator must not fail the chain")
	}
	if after.calls != 1 {
		t.Error("validators after a panic must still run")
	}
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// stubComparator returns canned results and counts calls.
type stubComparator struct {
	result CompareResult
	calls  int
}

func (s *stubComparator) Compare(_ context.Context, _, _ string) CompareResult {
	s.calls++
	return s.result
}

func TestChecker_SkipsBelowMinDocuments(t *testing.T) {
	stub := &stubComparator{result: NoContradiction()}
	checker := NewChecker(stub, nil, CheckerConfig{}, nil)

	verdict := checker.Check(context.Background(), []string{"only one document"})

	if !verdict.Passed || !verdict.Skipped {
		t.Errorf("expected passed+skipped with one document, got %+v", verdict)
	}
	if stub.calls != 0 {
		t.Errorf("comparator must not be called with one document, got %d calls", stub.calls)
	}
}

func TestChecker_ConfidentDateContradiction(t *testing.T) {
	stub := &stubComparator{result: CompareResult{
		Status:        StatusSuccess,
		Contradiction: true,
		Kind:          KindDate,
		Detail:        "launch dated 2019 vs 2021",
		Confidence:    0.85,
	}}
	checker := NewChecker(stub, nil, CheckerConfig{}, nil)

	verdict := checker.Check(context.Background(), []string{
		"The product launched in 2019.",
		"The product launched in 2021.",
	})

	if verdict.Passed {
		t.Fatal("confident date contradiction must fail the check")
	}
	if len(verdict.Reasons) != 1 || !strings.HasPrefix(verdict.Reasons[0], "source_contradiction:date:") {
		t.Errorf("reason = %v, want source_contradiction:date: prefix", verdict.Reasons)
	}
}

func TestChecker_LowConfidenceDiscarded(t *testing.T) {
	stub := &stubComparator{result: CompareResult{
		Status:        StatusSuccess,
		Contradiction: true,
		Kind:          KindNumber,
		Detail:        "maybe different counts",
		Confidence:    0.4,
	}}
	checker := NewChecker(stub, nil, CheckerConfig{}, nil)

	verdict := checker.Check(context.Background(), []string{"doc a", "doc b"})

	if !verdict.Passed {
		t.Errorf("sub-threshold confidence must not be flagged, got %+v", verdict)
	}
}

func TestChecker_FailuresDegradeAndOpenBreaker(t *testing.T) {
	clock := newFakeClock()
	breaker := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		DisableDuration:  10 * time.Minute,
		Clock:            clock.Now,
	})
	stub := &stubComparator{result: CompareResult{
		Status: StatusTimeout,
		Err:    errors.New("deadline exceeded"),
	}}
	checker := NewChecker(stub, breaker, CheckerConfig{}, nil)
	docs := []string{"doc a", "doc b"}

	// Failures degrade to "no contradiction", never to "contradiction".
	for i := 0; i < 2; i++ {
		verdict := checker.Check(context.Background(), docs)
		if !verdict.Passed {
			t.Fatalf("call %d: comparator failure must not fail the answer", i)
		}
	}
	if stub.calls != 2 {
		t.Fatalf("expected 2 comparator calls, got %d", stub.calls)
	}

	// Breaker is now open: calls are skipped with the disabled reason.
	verdict := checker.Check(context.Background(), docs)
	if stub.calls != 2 {
		t.Errorf("open breaker must skip the comparator, got %d calls", stub.calls)
	}
	if !verdict.Passed || !verdict.Skipped {
		t.Errorf("open breaker verdict = %+v, want passed+skipped", verdict)
	}
	if len(verdict.Reasons) != 1 || verdict.Reasons[0] != ReasonBreakerDisabled {
		t.Errorf("reasons = %v, want [%s]", verdict.Reasons, ReasonBreakerDisabled)
	}

	// After the deadline the next call is attempted again; a success
	// resets the failure count.
	clock.Advance(11 * time.Minute)
	stub.result = NoContradiction()
	verdict = checker.Check(context.Background(), docs)
	if stub.calls != 3 {
		t.Errorf("half-open call must reach the comparator, got %d calls", stub.calls)
	}
	if !verdict.Passed {
		t.Errorf("half-open success verdict = %+v", verdict)
	}
	if count, _ := breaker.Snapshot(); count != 0 {
		t.Errorf("failure count = %d, want 0 after half-open success", count)
	}
}

func TestContradictionReason_Slug(t *testing.T) {
	got := ContradictionReason(KindDate, "Launch Dated 2019 vs 2021!")
	want := "source_contradiction:date:launch_dated_2019_vs_2021"
	if got != want {
		t.Errorf("reason = %q, want %q", got, want)
	}
}

func TestExcerpt_CutsOnRuneBoundary(t *testing.T) {
	short := "Der Index wird stündlich aktualisiert."
	if got := excerpt(short); got != short {
		t.Errorf("short document modified: %q", got)
	}

	long := strings.Repeat("ü", docExcerptLimit)
	got := excerpt(long)
	if len(got) > docExcerptLimit {
		t.Errorf("excerpt length = %d, want <= %d", len(got), docExcerptLimit)
	}
	if !utf8.ValidString(got) {
		t.Error("excerpt split a multi-byte character")
	}
}

func TestParseCompareResponse_RepairsFencedJSON(t *testing.T) {
	content := "```json\n{\"contradiction\": true, \"kind\": \"date\", \"detail\": \"2019 vs 2021\", \"confidence\": 0.9,}\n```"

	result, err := parseCompareResponse(content)
	if err != nil {
		t.Fatalf("parseCompareResponse() error = %v", err)
	}
	if !result.Contradiction || result.Kind != KindDate || result.Confidence != 0.9 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package claims

import (
	"reflect"
	"testing"
)

func TestCheckPairwise_TimeValueContradiction(t *testing.T) {
	e := NewExtractor(nil)
	cs := append(
		e.Extract("The system learns every 4 hours.", 0),
		e.Extract("The system learns every 6 hours.", 0)...,
	)
	if len(cs) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(cs))
	}

	got := CheckPairwise(cs)

	if got[PairKey(0, 1)] != RelationContradiction {
		t.Errorf("different learning intervals must contradict, got %v", got[PairKey(0, 1)])
	}
}

func TestCheckPairwise_DifferentSourcesAreConsistent(t *testing.T) {
	e := NewExtractor(nil)
	cs := append(
		e.Extract("The system learns from source A.", 0),
		e.Extract("The system learns from source B.", 0)...,
	)
	if len(cs) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(cs))
	}

	got := CheckPairwise(cs)

	if got[PairKey(0, 1)] != RelationConsistent {
		t.Errorf("different sources are not a contradiction, got %v", got[PairKey(0, 1)])
	}
}

func TestCheckPairwise_IncompatibleEntities(t *testing.T) {
	e := NewExtractor(nil)
	cs := append(
		e.Extract("The system updates in real-time as news arrives.", 0),
		e.Extract("The system updates via periodic learning cycles.", 0)...,
	)
	if len(cs) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(cs))
	}

	got := CheckPairwise(cs)

	if got[PairKey(0, 1)] != RelationContradiction {
		t.Errorf("real-time vs periodic learning must contradict, got %v", got[PairKey(0, 1)])
	}
}

func TestCheckPairwise_RedundantClaims(t *testing.T) {
	e := NewExtractor(nil)
	cs := append(
		e.Extract("The system learns every 4 hours from news feeds.", 0),
		e.Extract("Every 4 hours the system learns from news feeds.", 0)...,
	)
	if len(cs) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(cs))
	}

	got := CheckPairwise(cs)

	if got[PairKey(0, 1)] != RelationRedundant {
		t.Errorf("reworded identical claim must be redundant, got %v", got[PairKey(0, 1)])
	}
}

func TestCheckPairwise_Deterministic(t *testing.T) {
	e := NewExtractor(nil)
	cs := e.Extract(
		"The system learns every 4 hours. The system learns every 6 hours. "+
			"The system uses websocket streaming. The assistant polls sources hourly.", 0)

	first := CheckPairwise(cs)
	for i := 0; i < 50; i++ {
		if again := CheckPairwise(cs); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestPairKey_Unordered(t *testing.T) {
	if PairKey(3, 1) != PairKey(1, 3) {
		t.Errorf("PairKey must be order independent")
	}
	if PairKey(1, 3) != "1-3" {
		t.Errorf("PairKey(1,3) = %q, want 1-3", PairKey(1, 3))
	}
}

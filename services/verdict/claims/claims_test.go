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

func TestExtract_KeepsOnlySubjectSentences(t *testing.T) {
	e := NewExtractor(nil)
	answer := "The system learns every 4 hours [1]. The weather is nice. " +
		"The assistant uses a vector database for retrieval."

	got := e.Extract(answer, 2)

	if len(got) != 2 {
		t.Fatalf("expected 2 claims, got %d: %+v", len(got), got)
	}
	if got[0].CitationIndex != 0 {
		t.Errorf("expected citation index 0, got %d", got[0].CitationIndex)
	}
	if got[1].CitationIndex != NoCitation {
		t.Errorf("expected no citation, got %d", got[1].CitationIndex)
	}
	if got[0].Values["frequency"] != "every 4 hour" {
		t.Errorf("expected frequency value, got %v", got[0].Values)
	}
}

func TestExtract_OutOfRangeCitationIsDropped(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("The system learns every 4 hours [5].", 2)

	if len(got) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(got))
	}
	if got[0].CitationIndex != NoCitation {
		t.Errorf("out-of-range citation must normalize to NoCitation, got %d",
			got[0].CitationIndex)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(nil)
	answer := "The system learns every 4 hours [1]. " +
		"The system uses websocket streaming and a vector database. " +
		"The assistant refreshes its index every 30 minutes [2]."

	first := e.Extract(answer, 3)
	for i := 0; i < 50; i++ {
		again := e.Extract(answer, 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestExtract_EntityVocabulary(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("The system combines retrieval with a vector database.", 0)

	if len(got) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(got))
	}
	// Order is by first appearance in the sentence.
	want := []string{"retrieval", "vector database"}
	if !reflect.DeepEqual(got[0].Entities, want) {
		t.Errorf("entities = %v, want %v", got[0].Entities, want)
	}
}

func TestCheckKB_Buckets(t *testing.T) {
	tests := []struct {
		name string
		text string
		docs []string
		want KBVerdict
	}{
		{
			name: "no evidence",
			text: "The system learns every 4 hours",
			docs: nil,
			want: KBUnknown,
		},
		{
			name: "well supported",
			text: "The system learns every 4 hours",
			docs: []string{"The system learns its model every 4 hours from fresh data."},
			want: KBConsistent,
		},
		{
			name: "unsupported",
			text: "The system predicts cryptocurrency winners reliably",
			docs: []string{"Soup recipes and gardening tips for beginners."},
			want: KBInconsistent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := Claim{Text: tt.text}
			if got := CheckKB(claim, tt.docs); got != tt.want {
				t.Errorf("CheckKB() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckKB_OnlyLeadingDocsCount(t *testing.T) {
	claim := Claim{Text: "The system learns every 4 hours"}
	docs := []string{
		"unrelated text one", "unrelated text two", "unrelated text three",
		// Supporting doc beyond the leading window must not count.
		"The system learns its model every 4 hours.",
	}

	if got := CheckKB(claim, docs); got == KBConsistent {
		t.Errorf("doc outside leading window must not make claim consistent, got %v", got)
	}
}

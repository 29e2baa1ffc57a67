// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import "context"

// EvidenceOverlapValidator measures how much of the answer's content
// vocabulary appears anywhere in the evidence. Low overlap is only a
// soft warning: a good summary legitimately rephrases its sources.
type EvidenceOverlapValidator struct{}

func (v *EvidenceOverlapValidator) Name() string { return "evidence_overlap" }

func (v *EvidenceOverlapValidator) Validate(_ context.Context, in *Input) Outcome {
	if len(in.EvidenceDocs) == 0 {
		return Pass()
	}
	if len(tokenSet(in.Answer)) == 0 {
		return Pass()
	}
	if EvidenceOverlap(in.Answer, in.EvidenceDocs) < in.Thresholds.EvidenceOverlapMin {
		return FromReasons([]string{ReasonLowOverlap}, "")
	}
	return Pass()
}

// EvidenceOverlap returns the share of the answer's content tokens
// that appear anywhere in the evidence, in [0, 1]. Zero when there is
// no evidence or the answer carries no content tokens.
func EvidenceOverlap(answer string, docs []string) float64 {
	answerTokens := tokenSet(answer)
	if len(answerTokens) == 0 || len(docs) == 0 {
		return 0
	}
	evidence := make(map[string]bool)
	for _, doc := range docs {
		for w := range tokenSet(doc) {
			evidence[w] = true
		}
	}
	return overlapRatio(answerTokens, evidence)
}

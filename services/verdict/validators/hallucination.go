// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"strings"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/claims"
)

// fabricationMarkers are phrasings that assert certainty no retrieval
// system can deliver.
var fabricationMarkers = []string{
	"100% accurate", "100% certain", "guaranteed to be correct",
	"is never wrong", "always correct", "with absolute certainty",
	"proven beyond doubt", "it is a proven fact that",
	"everyone agrees that", "will definitely happen",
}

// HallucinationValidator screens for fabricated content: absolute
// certainty markers, and cited claims whose content the cited
// documents flatly contradict according to the knowledge-base check.
type HallucinationValidator struct {
	extractor *claims.Extractor
}

// NewHallucinationValidator builds the validator with a default
// claim extractor.
func NewHallucinationValidator() *HallucinationValidator {
	return &HallucinationValidator{extractor: claims.NewExtractor(nil)}
}

func (v *HallucinationValidator) Name() string { return "factual_hallucination" }

func (v *HallucinationValidator) Validate(_ context.Context, in *Input) Outcome {
	lowered := strings.ToLower(in.Answer)
	if _, ok := containsAnyPhrase(lowered, fabricationMarkers); ok {
		return FromReasons([]string{ReasonFactualHallucination}, "")
	}
	if len(in.EvidenceDocs) == 0 {
		return Pass()
	}
	extracted := v.extractor.Extract(in.Answer, len(in.EvidenceDocs))
	for _, c := range extracted {
		if claims.CheckKB(c, in.EvidenceDocs) == claims.KBInconsistent {
			return FromReasons([]string{ReasonFactualHallucination}, "")
		}
	}
	return Pass()
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/claims"
)

// ConsistencyValidator extracts the answer's claims and checks them
// pairwise. A contradiction within a single answer is a hard failure;
// redundancy is only a soft warning.
type ConsistencyValidator struct {
	extractor *claims.Extractor
}

// NewConsistencyValidator builds the validator. A nil config uses the
// default subject vocabulary.
func NewConsistencyValidator(config *claims.ExtractorConfig) *ConsistencyValidator {
	return &ConsistencyValidator{extractor: claims.NewExtractor(config)}
}

func (v *ConsistencyValidator) Name() string { return "claim_consistency" }

func (v *ConsistencyValidator) Validate(_ context.Context, in *Input) Outcome {
	extracted := v.extractor.Extract(in.Answer, len(in.EvidenceDocs))
	if len(extracted) < 2 {
		return Pass()
	}
	relations := claims.CheckPairwise(extracted)
	var reasons []string
	redundant := false
	for _, rel := range relations {
		switch rel {
		case claims.RelationContradiction:
			return FromReasons([]string{ReasonClaimContradiction}, "")
		case claims.RelationRedundant:
			redundant = true
		}
	}
	if redundant {
		reasons = append(reasons, ReasonRedundantClaims)
	}
	return FromReasons(reasons, "")
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/consensus"
)

// ConsensusValidator adapts the cross-source consensus checker into
// the chain. A confirmed contradiction between sources is hard; a
// skip due to the circuit breaker passes with its tag recorded as a
// soft reason.
type ConsensusValidator struct {
	checker *consensus.Checker
}

// NewConsensusValidator wraps an existing consensus checker.
func NewConsensusValidator(checker *consensus.Checker) *ConsensusValidator {
	return &ConsensusValidator{checker: checker}
}

func (v *ConsensusValidator) Name() string { return "source_consensus" }

func (v *ConsensusValidator) Validate(ctx context.Context, in *Input) Outcome {
	if v.checker == nil {
		return Pass()
	}
	verdict := v.checker.Check(ctx, in.EvidenceDocs)
	return FromReasons(verdict.Reasons, "")
}

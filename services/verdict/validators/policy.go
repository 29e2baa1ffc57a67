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
)

// defaultBlockedPhrases is the built-in deny list for the policy
// gate. Deployments extend it through configuration.
var defaultBlockedPhrases = []string{
	"how to build a weapon", "disable the safety", "bypass the filter",
	"ignore previous instructions",
}

// PolicyValidator is the final gate of every chain. It applies the
// content deny list to the answer that will actually be shown,
// including any patched variant. Role-play never relaxes it.
type PolicyValidator struct {
	blocked []string
}

// NewPolicyValidator builds the gate with the built-in deny list plus
// any extra phrases. Matching is case-insensitive.
func NewPolicyValidator(extra []string) *PolicyValidator {
	blocked := make([]string, 0, len(defaultBlockedPhrases)+len(extra))
	for _, p := range defaultBlockedPhrases {
		blocked = append(blocked, strings.ToLower(p))
	}
	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			blocked = append(blocked, p)
		}
	}
	return &PolicyValidator{blocked: blocked}
}

func (v *PolicyValidator) Name() string { return "policy_gate" }

func (v *PolicyValidator) Validate(_ context.Context, in *Input) Outcome {
	lowered := strings.ToLower(in.Answer)
	if _, ok := containsAnyPhrase(lowered, v.blocked); ok {
		return FromReasons([]string{ReasonPolicyViolation}, "")
	}
	return Pass()
}

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

// egoPhrases are self-aggrandizing formulations the assistant should
// not use about itself.
var egoPhrases = []string{
	"as a superior", "i am always right", "i am never wrong",
	"my answers are perfect", "unlike inferior", "i am the best",
	"no other system can", "i am infallible",
}

// IdentityValidator flags ego-centric or self-aggrandizing tone.
// During role-play a persona may legitimately speak in character, so
// the check is skipped there. The warning carries a patched answer
// with the offending phrase removed when that removal is clean.
type IdentityValidator struct{}

func (v *IdentityValidator) Name() string { return "identity_neutrality" }

func (v *IdentityValidator) Validate(_ context.Context, in *Input) Outcome {
	if in.IsRolePlay {
		return Pass()
	}
	lowered := strings.ToLower(in.Answer)
	phrase, ok := containsAnyPhrase(lowered, egoPhrases)
	if !ok {
		return Pass()
	}
	patched := ""
	if i := strings.Index(lowered, phrase); i >= 0 {
		cleaned := strings.TrimSpace(in.Answer[:i] + in.Answer[i+len(phrase):])
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
		if cleaned != "" {
			patched = cleaned
		}
	}
	return FromReasons([]string{ReasonIdentityWarning}, patched)
}

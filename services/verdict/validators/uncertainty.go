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

// hedgePhrases are expressions that signal the answer acknowledges
// its own uncertainty.
var hedgePhrases = []string{
	"might", "may ", "perhaps", "possibly", "not sure", "unsure",
	"uncertain", "i don't know", "i do not know", "cannot verify",
	"can't verify", "no information", "not enough information",
	"couldn't find", "could not find", "unable to find", "it seems",
	"appears to", "likely", "unclear",
	// de / fr / es
	"vielleicht", "möglicherweise", "nicht sicher", "peut-être",
	"je ne sais pas", "quizás", "tal vez", "no estoy seguro",
}

// uncertaintyHedge is prepended when patching an over-confident
// answer given without evidence.
const uncertaintyHedge = "I could not find supporting context for this, so the following may be incomplete or inaccurate. "

// UncertaintyValidator applies only when no evidence documents were
// retrieved. An answer produced from nothing must say so; a confident
// answer with zero grounding is the classic hallucination shape and
// is rejected outright.
type UncertaintyValidator struct{}

func (v *UncertaintyValidator) Name() string { return "uncertainty_expression" }

func (v *UncertaintyValidator) Validate(_ context.Context, in *Input) Outcome {
	if len(in.EvidenceDocs) > 0 {
		return Pass()
	}
	lowered := strings.ToLower(in.Answer)
	if _, ok := containsAnyPhrase(lowered, hedgePhrases); ok {
		return Pass()
	}
	patched := ""
	if lang := BaseLanguage(in.Language); lang == "" || lang == "en" || lang == "unknown" {
		patched = uncertaintyHedge + in.Answer
	}
	return FromReasons([]string{ReasonMissingUncertainty}, patched)
}

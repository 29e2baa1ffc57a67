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

// perspectiveMarkers signal that an answer acknowledges more than one
// viewpoint.
var perspectiveMarkers = []string{
	"some argue", "others believe", "one view", "another view",
	"on the other hand", "alternatively", "depends on", "perspectives",
	"it is debated", "philosophers disagree", "there is no single",
	"different schools",
}

// dogmaticMarkers present a contested question as settled.
var dogmaticMarkers = []string{
	"obviously", "clearly the answer is", "the only answer",
	"without question", "it is settled that", "any reasonable person",
}

// PhilosophicalDepthValidator runs only for questions flagged as
// philosophical. A one-sided or dogmatic answer to an open question
// earns a soft warning.
type PhilosophicalDepthValidator struct{}

func (v *PhilosophicalDepthValidator) Name() string { return "philosophical_depth" }

func (v *PhilosophicalDepthValidator) Validate(_ context.Context, in *Input) Outcome {
	if !in.IsPhilosophical {
		return Pass()
	}
	lowered := strings.ToLower(in.Answer)
	if _, ok := containsAnyPhrase(lowered, dogmaticMarkers); ok {
		return FromReasons([]string{ReasonPhilosophicalDepth}, "")
	}
	if _, ok := containsAnyPhrase(lowered, perspectiveMarkers); !ok {
		// No perspectives offered at all on an open question.
		return FromReasons([]string{ReasonPhilosophicalDepth}, "")
	}
	return Pass()
}

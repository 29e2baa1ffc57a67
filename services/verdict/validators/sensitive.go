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

// sensitiveTerms mark topics where a wrong answer causes real harm.
var sensitiveTerms = []string{
	"diagnosis", "dosage", "medication", "prescription", "treatment",
	"symptom", "overdose", "surgery",
	"lawsuit", "legal advice", "liability", "contract is void",
	"invest", "stock price", "guaranteed return", "tax deduction",
}

// strongAdviceMarkers are imperative or absolute phrasings that turn
// information into a directive.
var strongAdviceMarkers = []string{
	"you should", "you must", "you need to", "always take",
	"never take", "stop taking", "the correct dose",
	"i recommend", "definitely",
}

// SensitiveTopicValidator rejects directive answers on medical,
// legal, or financial topics when no evidence document covers the
// topic. Informational phrasing or evidence-backed statements pass.
type SensitiveTopicValidator struct{}

func (v *SensitiveTopicValidator) Name() string { return "sensitive_topic" }

func (v *SensitiveTopicValidator) Validate(_ context.Context, in *Input) Outcome {
	lowered := strings.ToLower(in.Answer)
	term, ok := containsAnyPhrase(lowered, sensitiveTerms)
	if !ok {
		return Pass()
	}
	if _, strong := containsAnyPhrase(lowered, strongAdviceMarkers); !strong {
		return Pass()
	}
	for _, doc := range in.EvidenceDocs {
		if strings.Contains(strings.ToLower(doc), term) {
			return Pass()
		}
	}
	return FromReasons([]string{ReasonSensitiveTopic}, "")
}

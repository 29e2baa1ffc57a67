// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// HasCitation reports whether the answer carries at least one [n]
// citation marker.
func HasCitation(answer string) bool {
	return citationMarkerRe.MatchString(answer)
}

// CitationPresenceValidator requires at least one citation marker of
// the form [n] whenever evidence documents exist. Evidence without
// attribution is indistinguishable from fabrication, so this is a
// hard failure. When the answer overlaps a document strongly enough
// it offers a patched answer with the citation appended.
type CitationPresenceValidator struct{}

func (v *CitationPresenceValidator) Name() string { return "citation_presence" }

func (v *CitationPresenceValidator) Validate(_ context.Context, in *Input) Outcome {
	if len(in.EvidenceDocs) == 0 {
		return Pass()
	}
	if HasCitation(in.Answer) {
		return Pass()
	}

	patched := ""
	answerTokens := tokenSet(in.Answer)
	bestDoc, bestOverlap := -1, 0.0
	for i, doc := range in.EvidenceDocs {
		if o := overlapRatio(answerTokens, tokenSet(doc)); o > bestOverlap {
			bestDoc, bestOverlap = i, o
		}
	}
	if bestDoc >= 0 && bestOverlap >= in.Thresholds.CitationOverlapMin {
		patched = fmt.Sprintf("%s [%d]", strings.TrimRight(in.Answer, " "), bestDoc+1)
	}
	return FromReasons([]string{ReasonMissingCitation}, patched)
}

// CitationRelevanceValidator checks that each cited document actually
// supports the sentence citing it. Weak support is a soft warning,
// not a failure: the citation may still be directionally right.
type CitationRelevanceValidator struct{}

func (v *CitationRelevanceValidator) Name() string { return "citation_relevance" }

func (v *CitationRelevanceValidator) Validate(_ context.Context, in *Input) Outcome {
	if len(in.EvidenceDocs) == 0 {
		return Pass()
	}
	for _, sentence := range splitSentences(in.Answer) {
		marks := citationMarkerRe.FindAllStringSubmatch(sentence, -1)
		if len(marks) == 0 {
			continue
		}
		body := citationMarkerRe.ReplaceAllString(sentence, "")
		bodyTokens := tokenSet(body)
		for _, m := range marks {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > len(in.EvidenceDocs) {
				continue
			}
			doc := in.EvidenceDocs[n-1]
			if overlapRatio(bodyTokens, tokenSet(doc)) < in.Thresholds.CitationOverlapMin {
				return FromReasons([]string{ReasonCitationRelevance}, "")
			}
		}
	}
	return Pass()
}

var sentenceEndRe = regexp.MustCompile(`[.!?\n]+`)

func splitSentences(text string) []string {
	parts := sentenceEndRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

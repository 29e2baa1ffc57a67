// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package claims extracts atomic, citable claims from generated
// answers and checks them for internal and knowledge-base consistency.
//
// Everything in this package is a pure function of its inputs: no I/O,
// no clocks, no randomness. Identical input text always yields an
// identical claim list in identical order.
package claims

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NoCitation is the CitationIndex value for claims without a citation
// marker, or with a marker pointing outside the evidence list.
const NoCitation = -1

// Claim is an atomic factual assertion extracted from an answer.
type Claim struct {
	// Text is the sentence the claim was extracted from, trimmed,
	// without the citation marker.
	Text string `json:"text"`

	// CitationIndex is the zero-based evidence document ordinal the
	// claim cites, or NoCitation. A marker pointing outside the
	// evidence list is normalized to NoCitation.
	CitationIndex int `json:"citation_index"`

	// Entities are named technologies and modes found in the text,
	// lowercased, in order of first appearance.
	Entities []string `json:"entities,omitempty"`

	// Values maps extracted value kinds to normalized values, e.g.
	// "duration" -> "4 hour", "frequency" -> "every 4 hour".
	Values map[string]string `json:"values,omitempty"`
}

// Package-level compiled patterns and vocabularies (compiled once).
var (
	// sentenceSplitRe splits an answer into sentence-like segments.
	sentenceSplitRe = regexp.MustCompile(`[.!?\n]+`)

	// citationMarkerRe matches a trailing citation marker like "[2]".
	citationMarkerRe = regexp.MustCompile(`\[(\d+)\]\s*$`)

	// durationRe matches time durations like "4 hours" or "30 minutes".
	durationRe = regexp.MustCompile(`(?i)\b(\d+)\s*(second|minute|hour|day|week|month)s?\b`)

	// frequencyRe matches repetition phrasing like "every 6 hours".
	frequencyRe = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s*(second|minute|hour|day|week|month)s?\b`)

	// sourceRe matches source designators like "source A" or "source 2".
	sourceRe = regexp.MustCompile(`(?i)\bsource\s+([A-Za-z0-9]+)\b`)

	// technologyVocab is the fixed vocabulary of named technologies
	// recognized as claim entities.
	technologyVocab = []string{
		"rss", "websocket", "webhook", "rest api", "graphql",
		"vector database", "embedding", "transformer", "fine-tuning",
		"retrieval", "sqlite", "postgres", "redis", "kafka",
		"batch processing", "real-time", "streaming", "polling",
		"periodic learning", "continuous learning",
	}

	// incompatibleEntities lists entity pairs that cannot both be
	// true of the same subject in the same discourse context.
	incompatibleEntities = [][2]string{
		{"real-time", "batch processing"},
		{"real-time", "periodic learning"},
		{"continuous learning", "periodic learning"},
		{"websocket", "polling"},
	}

	// stopWords are filtered before any token-overlap computation.
	stopWords = map[string]bool{
		"a": true, "an": true, "the": true, "is": true, "are": true,
		"was": true, "were": true, "be": true, "been": true, "it": true,
		"its": true, "this": true, "that": true, "these": true,
		"those": true, "of": true, "in": true, "on": true, "at": true,
		"to": true, "for": true, "from": true, "with": true, "and": true,
		"or": true, "but": true, "by": true, "as": true, "can": true,
		"will": true, "not": true, "no": true, "does": true, "do": true,
		"has": true, "have": true, "had": true, "about": true,
		"which": true, "what": true, "when": true, "where": true,
		"every": true, "each": true, "all": true, "any": true,
		"also": true, "more": true, "most": true, "than": true,
		"so": true, "such": true, "there": true, "their": true,
		"they": true, "you": true, "your": true, "we": true, "our": true,
		"i": true, "my": true, "he": true, "she": true, "his": true,
		"her": true, "s": true, "t": true,
	}
)

// ExtractorConfig configures claim extraction.
type ExtractorConfig struct {
	// SubjectTerms are the phrases identifying the subject under
	// discussion. Sentences mentioning none of them produce no claim.
	// Matching is case-insensitive.
	SubjectTerms []string
}

// DefaultExtractorConfig returns the default subject vocabulary,
// covering the assistant talking about itself.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SubjectTerms: []string{
			"veridian", "the system", "the assistant", "the model",
			"the pipeline", "this assistant", "it learns", "i learn",
		},
	}
}

// Extractor parses answers into claims.
//
// Thread Safety: safe for concurrent use after construction.
type Extractor struct {
	subjects []string
}

// NewExtractor creates an Extractor. A nil config uses defaults.
func NewExtractor(config *ExtractorConfig) *Extractor {
	cfg := DefaultExtractorConfig()
	if config != nil && len(config.SubjectTerms) > 0 {
		cfg = *config
	}
	subjects := make([]string, len(cfg.SubjectTerms))
	for i, s := range cfg.SubjectTerms {
		subjects[i] = strings.ToLower(s)
	}
	return &Extractor{subjects: subjects}
}

// Extract parses an answer into claims.
//
// Description:
//
//	Splits the answer into sentence-like segments, keeps segments
//	mentioning a subject term, strips an optional trailing citation
//	marker, and extracts entities and values from fixed vocabularies.
//	Citation markers are 1-based in the text ("[1]" is the first
//	evidence document); indexes outside [0, docCount) are normalized
//	to NoCitation.
//
// Inputs:
//
//	answer - The generated answer text.
//	docCount - Number of evidence documents the answer could cite.
//
// Outputs:
//
//	[]Claim - Claims in order of appearance. Never nil semantics
//	beyond an empty slice for an empty answer.
func (e *Extractor) Extract(answer string, docCount int) []Claim {
	var out []Claim
	for _, segment := range sentenceSplitRe.Split(answer, -1) {
		sentence := strings.TrimSpace(segment)
		if sentence == "" {
			continue
		}
		if !e.mentionsSubject(sentence) {
			continue
		}

		citation := NoCitation
		if m := citationMarkerRe.FindStringSubmatch(sentence); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				idx := n - 1
				if idx >= 0 && idx < docCount {
					citation = idx
				}
			}
			sentence = strings.TrimSpace(citationMarkerRe.ReplaceAllString(sentence, ""))
		}

		out = append(out, Claim{
			Text:          sentence,
			CitationIndex: citation,
			Entities:      extractEntities(sentence),
			Values:        extractValues(sentence),
		})
	}
	return out
}

// mentionsSubject reports whether the sentence mentions any subject term.
func (e *Extractor) mentionsSubject(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, s := range e.subjects {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// extractEntities returns technology entities found in the sentence,
// in order of first appearance.
func extractEntities(sentence string) []string {
	lower := strings.ToLower(sentence)
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, tech := range technologyVocab {
		if pos := strings.Index(lower, tech); pos >= 0 {
			hits = append(hits, hit{pos: pos, name: tech})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].name < hits[j].name
	})
	var out []string
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// extractValues returns normalized duration/frequency values.
func extractValues(sentence string) map[string]string {
	values := make(map[string]string)
	if m := frequencyRe.FindStringSubmatch(sentence); m != nil {
		values["frequency"] = fmt.Sprintf("every %s %s", m[1], strings.ToLower(m[2]))
	}
	if m := durationRe.FindStringSubmatch(sentence); m != nil {
		values["duration"] = fmt.Sprintf("%s %s", m[1], strings.ToLower(m[2]))
	}
	if m := sourceRe.FindStringSubmatch(sentence); m != nil {
		values["source"] = strings.ToLower(m[1])
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// tokenize lowercases, splits on non-letters/digits, and drops stop
// words and single characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// tokenSet returns the token set of text.
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(text) {
		set[tok] = true
	}
	return set
}

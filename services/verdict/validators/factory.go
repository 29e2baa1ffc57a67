// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validators

import (
	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/claims"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/consensus"
)

// Rule pairs a validator with the request condition under which it
// joins the chain. A nil When means always.
type Rule struct {
	When      func(*Input) bool
	Validator Validator
}

// FactoryConfig configures chain composition.
type FactoryConfig struct {
	// Disabled lists validator names excluded from every chain. The
	// policy gate cannot be disabled.
	Disabled []string

	// ExtraBlockedPhrases extends the policy gate's deny list.
	ExtraBlockedPhrases []string

	// SubjectTerms overrides the claim extractor's subject
	// vocabulary when non-empty.
	SubjectTerms []string

	// Consensus is the cross-source consensus checker. Nil disables
	// the consensus step.
	Consensus *consensus.Checker
}

// Factory composes a validation chain per request from a declarative
// rule table. The table order is the chain order; the policy gate is
// always last.
//
// Thread Safety: safe for concurrent use after construction.
type Factory struct {
	rules    []Rule
	disabled map[string]bool
	log      *logging.Logger
}

// NewFactory builds the rule table.
func NewFactory(config FactoryConfig, log *logging.Logger) *Factory {
	if log == nil {
		log = logging.Default()
	}
	var extractorCfg *claims.ExtractorConfig
	if len(config.SubjectTerms) > 0 {
		extractorCfg = &claims.ExtractorConfig{SubjectTerms: config.SubjectTerms}
	}

	hasDocs := func(in *Input) bool { return len(in.EvidenceDocs) > 0 }

	rules := []Rule{
		{Validator: &LanguageValidator{}},
		{Validator: &UncertaintyValidator{}},
		{When: hasDocs, Validator: &CitationPresenceValidator{}},
		{When: hasDocs, Validator: &CitationRelevanceValidator{}},
		{When: hasDocs, Validator: &EvidenceOverlapValidator{}},
		{Validator: &NumericSanityValidator{}},
		{Validator: NewConsistencyValidator(extractorCfg)},
		{Validator: NewHallucinationValidator()},
		{Validator: &SensitiveTopicValidator{}},
		{When: hasDocs, Validator: &IdentityValidator{}},
		{When: func(in *Input) bool { return in.IsPhilosophical }, Validator: &PhilosophicalDepthValidator{}},
	}
	if config.Consensus != nil {
		rules = append(rules, Rule{
			When:      func(in *Input) bool { return len(in.EvidenceDocs) >= 2 },
			Validator: NewConsensusValidator(config.Consensus),
		})
	}
	// Policy gate goes last so it sees what every other step saw.
	rules = append(rules, Rule{Validator: NewPolicyValidator(config.ExtraBlockedPhrases)})

	disabled := make(map[string]bool, len(config.Disabled))
	for _, name := range config.Disabled {
		disabled[name] = true
	}
	delete(disabled, "policy_gate")

	return &Factory{rules: rules, disabled: disabled, log: log}
}

// ChainFor selects the validators applicable to the request and
// returns them as a runnable chain.
func (f *Factory) ChainFor(in *Input) *Chain {
	selected := make([]Validator, 0, len(f.rules))
	for _, r := range f.rules {
		if f.disabled[r.Validator.Name()] {
			continue
		}
		if r.When != nil && !r.When(in) {
			continue
		}
		selected = append(selected, r.Validator)
	}
	return NewChain(f.log, selected...)
}

// Skipped returns the names of validators that were considered for the
// request but not selected, because they are disabled or their
// condition did not hold.
func (f *Factory) Skipped(in *Input) []string {
	var skipped []string
	for _, r := range f.rules {
		if f.disabled[r.Validator.Name()] || (r.When != nil && !r.When(in)) {
			skipped = append(skipped, r.Validator.Name())
		}
	}
	return skipped
}

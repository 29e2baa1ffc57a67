// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package adaptive maintains the tunable validation thresholds and
// drifts them over time based on observed validation outcomes.
package adaptive

import "time"

// Well-known parameter names.
const (
	ParamCitationOverlapMin = "citation_overlap_min"
	ParamEvidenceOverlapMin = "evidence_overlap_min"
	ParamConfidenceFloor    = "confidence_floor"
)

// Parameter is one tunable threshold with its bounds and drift step.
type Parameter struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`

	// StricterIsHigher tells the optimizer which direction tightens
	// validation for this parameter.
	StricterIsHigher bool `json:"stricter_is_higher"`
}

// clamp bounds a candidate value to the parameter's range.
func (p Parameter) clamp(v float64) float64 {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Sample is one validation outcome fed back into the optimizer.
type Sample struct {
	At time.Time `json:"at"`

	// Success means the pipeline produced an accepted answer.
	Success bool `json:"success"`

	// FalsePositive means a good answer was blocked.
	FalsePositive bool `json:"false_positive"`

	// FalseNegative means a bad answer slipped through.
	FalseNegative bool `json:"false_negative"`
}

// QueryContext carries the per-request signals that temporarily bias
// thresholds without touching the stored baseline.
type QueryContext struct {
	// EvidenceQuality is the retrieval-quality signal in [0, 1].
	EvidenceQuality float64

	// IsPhilosophical marks reflective queries, validated more
	// leniently.
	IsPhilosophical bool

	// IsRolePlay marks an active role-play mode.
	IsRolePlay bool
}

// RewardWeights weights the components of the optimizer's reward.
type RewardWeights struct {
	Success                 float64 `yaml:"success" json:"success"`
	FalsePositiveAvoidance  float64 `yaml:"false_positive_avoidance" json:"false_positive_avoidance"`
	FalseNegativeAvoidance  float64 `yaml:"false_negative_avoidance" json:"false_negative_avoidance"`
	HallucinationPrevention float64 `yaml:"hallucination_prevention" json:"hallucination_prevention"`
}

// DefaultRewardWeights returns the standard weighting.
func DefaultRewardWeights() RewardWeights {
	return RewardWeights{
		Success:                 0.3,
		FalsePositiveAvoidance:  0.2,
		FalseNegativeAvoidance:  0.2,
		HallucinationPrevention: 0.3,
	}
}

// Config configures the threshold store.
type Config struct {
	// Parameters seeds the store when no persisted state exists.
	Parameters []Parameter

	// Weights weights the reward components.
	Weights RewardWeights

	// HallucinationPreventionRate is the operator's estimate of the
	// share of hallucinations the chain catches, in [0, 1]. There is
	// no ground-truth signal for it at runtime.
	HallucinationPreventionRate float64

	// HistoryLimit bounds the retained outcome history.
	HistoryLimit int

	// StrictRewardMin is the reward at or above which thresholds
	// tighten by one step.
	StrictRewardMin float64

	// LeanRewardMax is the reward below which thresholds loosen by
	// one step.
	LeanRewardMax float64

	// SnapMinSamples is the minimum history size before the store
	// may snap back to its best recorded configuration.
	SnapMinSamples int

	// SnapImprovement is the relative reward edge the best recorded
	// configuration needs over the current one to trigger a snap.
	SnapImprovement float64
}

// DefaultConfig returns the standard parameter set and tuning knobs.
func DefaultConfig() Config {
	return Config{
		Parameters: []Parameter{
			{Name: ParamCitationOverlapMin, Value: 0.4, Min: 0.2, Max: 0.8, Step: 0.05, StricterIsHigher: true},
			{Name: ParamEvidenceOverlapMin, Value: 0.3, Min: 0.1, Max: 0.7, Step: 0.05, StricterIsHigher: true},
			{Name: ParamConfidenceFloor, Value: 0.5, Min: 0.3, Max: 0.9, Step: 0.05, StricterIsHigher: true},
		},
		Weights:                     DefaultRewardWeights(),
		HallucinationPreventionRate: 0.95,
		HistoryLimit:                100,
		StrictRewardMin:             0.7,
		LeanRewardMax:               0.5,
		SnapMinSamples:              10,
		SnapImprovement:             0.05,
	}
}

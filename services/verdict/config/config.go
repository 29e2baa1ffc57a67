// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the verdict service
// configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/VeridianAI/VeridianFOSS/services/verdict/adaptive"
)

// maxConfigFileSize caps the config file at 1MB.
const maxConfigFileSize = 1024 * 1024

// validate is the shared struct validator.
var validate = validator.New()

// Config is the root configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Consensus  ConsensusConfig  `yaml:"consensus"`
	Validators ValidatorsConfig `yaml:"validators"`
	Adaptive   AdaptiveConfig   `yaml:"adaptive"`
	Records    RecordsConfig    `yaml:"records"`
	Retry      RetryConfig      `yaml:"retry"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
	Quiet bool   `yaml:"quiet"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// DataDir is the on-disk location for the threshold store and
	// the append logs. Empty with InMemory false is invalid.
	DataDir string `yaml:"data_dir" validate:"required_unless=InMemory true"`

	// InMemory keeps all state in memory. Intended for tests.
	InMemory bool `yaml:"in_memory"`
}

// ConsensusConfig configures the cross-source consensus checker.
type ConsensusConfig struct {
	Enabled           bool    `yaml:"enabled"`
	MinDocuments      int     `yaml:"min_documents" validate:"min=2"`
	ConfidenceMin     float64 `yaml:"confidence_min" validate:"gte=0,lte=1"`
	FailureThreshold  int     `yaml:"failure_threshold" validate:"min=1"`
	DisableMinutes    int     `yaml:"disable_minutes" validate:"min=1"`
	Model             string  `yaml:"model" validate:"required_if=Enabled true"`
	TimeoutMS         int     `yaml:"timeout_ms" validate:"min=100"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	CacheSize         int     `yaml:"cache_size" validate:"min=1"`
}

// DisableDuration returns the breaker disable window.
func (c ConsensusConfig) DisableDuration() time.Duration {
	return time.Duration(c.DisableMinutes) * time.Minute
}

// Timeout returns the per-comparison timeout.
func (c ConsensusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ValidatorsConfig configures chain composition.
type ValidatorsConfig struct {
	// Disabled lists validator names excluded from every chain.
	Disabled []string `yaml:"disabled"`

	// BlockedPhrases extends the policy gate's deny list.
	BlockedPhrases []string `yaml:"blocked_phrases"`

	// SubjectTerms overrides the claim extractor's subject
	// vocabulary.
	SubjectTerms []string `yaml:"subject_terms"`
}

// AdaptiveConfig configures the threshold store.
type AdaptiveConfig struct {
	HallucinationPreventionRate float64                `yaml:"hallucination_prevention_rate" validate:"gte=0,lte=1"`
	HistoryLimit                int                    `yaml:"history_limit" validate:"min=1"`
	StrictRewardMin             float64                `yaml:"strict_reward_min" validate:"gte=0,lte=1"`
	LeanRewardMax               float64                `yaml:"lean_reward_max" validate:"gte=0,ltefield=StrictRewardMin"`
	SnapMinSamples              int                    `yaml:"snap_min_samples" validate:"min=1"`
	SnapImprovement             float64                `yaml:"snap_improvement" validate:"gte=0,lte=1"`
	Weights                     adaptive.RewardWeights `yaml:"weights"`
	Parameters                  []ParameterConfig      `yaml:"parameters" validate:"dive"`
}

// ParameterConfig seeds one adaptive threshold.
type ParameterConfig struct {
	Name             string  `yaml:"name" validate:"required"`
	Value            float64 `yaml:"value"`
	Min              float64 `yaml:"min"`
	Max              float64 `yaml:"max" validate:"gtefield=Min"`
	Step             float64 `yaml:"step" validate:"gt=0"`
	StricterIsHigher bool    `yaml:"stricter_is_higher"`
}

// RecordsConfig configures the validation record sinks.
type RecordsConfig struct {
	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig configures the optional InfluxDB sink.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	Org     string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket  string `yaml:"bucket" validate:"required_if=Enabled true"`
}

// RetryConfig configures answer regeneration.
type RetryConfig struct {
	// RegenerateOnLanguageMismatch enables the single regeneration
	// attempt after a language mismatch.
	RegenerateOnLanguageMismatch bool `yaml:"regenerate_on_language_mismatch"`
}

// Default returns a fully valid configuration with in-memory storage
// and the consensus checker disabled.
func Default() Config {
	params := make([]ParameterConfig, 0, 3)
	for _, p := range adaptive.DefaultConfig().Parameters {
		params = append(params, ParameterConfig{
			Name: p.Name, Value: p.Value, Min: p.Min, Max: p.Max,
			Step: p.Step, StricterIsHigher: p.StricterIsHigher,
		})
	}
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{InMemory: true},
		Consensus: ConsensusConfig{
			Enabled:           false,
			MinDocuments:      2,
			ConfidenceMin:     0.7,
			FailureThreshold:  2,
			DisableMinutes:    10,
			Model:             "gpt-4o-mini",
			TimeoutMS:         3000,
			RequestsPerSecond: 2,
			CacheSize:         256,
		},
		Adaptive: AdaptiveConfig{
			HallucinationPreventionRate: 0.95,
			HistoryLimit:                100,
			StrictRewardMin:             0.7,
			LeanRewardMax:               0.5,
			SnapMinSamples:              10,
			SnapImprovement:             0.05,
			Weights:                     adaptive.DefaultRewardWeights(),
			Parameters:                  params,
		},
		Retry: RetryConfig{RegenerateOnLanguageMismatch: true},
	}
}

// AdaptiveStoreConfig converts the YAML surface to the threshold
// store's config.
func (c Config) AdaptiveStoreConfig() adaptive.Config {
	params := make([]adaptive.Parameter, 0, len(c.Adaptive.Parameters))
	for _, p := range c.Adaptive.Parameters {
		params = append(params, adaptive.Parameter{
			Name: p.Name, Value: p.Value, Min: p.Min, Max: p.Max,
			Step: p.Step, StricterIsHigher: p.StricterIsHigher,
		})
	}
	return adaptive.Config{
		Parameters:                  params,
		Weights:                     c.Adaptive.Weights,
		HallucinationPreventionRate: c.Adaptive.HallucinationPreventionRate,
		HistoryLimit:                c.Adaptive.HistoryLimit,
		StrictRewardMin:             c.Adaptive.StrictRewardMin,
		LeanRewardMax:               c.Adaptive.LeanRewardMax,
		SnapMinSamples:              c.Adaptive.SnapMinSamples,
		SnapImprovement:             c.Adaptive.SnapImprovement,
	}
}

// Load reads, parses, and validates a YAML config file. Fields absent
// from the file keep their defaults.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return Config{}, fmt.Errorf("config: %s exceeds %d bytes", path, maxConfigFileSize)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's invariants.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

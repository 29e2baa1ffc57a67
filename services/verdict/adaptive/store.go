// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adaptive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
)

// stateKey is the persistence key for the full optimizer state.
const stateKey = "adaptive/state"

// maxContextBias caps the per-request threshold correction.
const maxContextBias = 0.15

// Optimizer actions.
const (
	ActionTightened = "tightened"
	ActionLoosened  = "loosened"
	ActionHeld      = "held"
	ActionSnapped   = "snapped_to_best"
	ActionNoSamples = "no_samples"
)

// snapshot is a parameter configuration together with the reward it
// earned.
type snapshot struct {
	Values map[string]float64 `json:"values"`
	Reward float64            `json:"reward"`
}

// state is the full optimizer state. It is immutable once published;
// writers build a fresh copy and swap the pointer.
type state struct {
	Params  map[string]Parameter `json:"params"`
	History []Sample             `json:"history"`
	Best    *snapshot            `json:"best,omitempty"`
}

func (st *state) clone() *state {
	next := &state{
		Params:  make(map[string]Parameter, len(st.Params)),
		History: append([]Sample(nil), st.History...),
	}
	for k, v := range st.Params {
		next.Params[k] = v
	}
	if st.Best != nil {
		vals := make(map[string]float64, len(st.Best.Values))
		for k, v := range st.Best.Values {
			vals[k] = v
		}
		next.Best = &snapshot{Values: vals, Reward: st.Best.Reward}
	}
	return next
}

// OptimizeResult describes one optimization pass.
type OptimizeResult struct {
	Reward float64            `json:"reward"`
	Action string             `json:"action"`
	Values map[string]float64 `json:"values"`
}

// Store holds the adaptive thresholds.
//
// Reads take a lock-free snapshot; a request sees one consistent
// parameter set for its whole lifetime regardless of concurrent
// optimization. Writes serialize on a mutex and publish a fresh copy.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	cfg     Config
	persist storage.Store
	log     *logging.Logger
	group   singleflight.Group

	mu  sync.Mutex // serializes writers, held across persist calls
	cur atomic.Pointer[state]
}

// New builds a Store, resuming persisted state when present. A nil
// persist keeps everything in memory. A nil logger uses the default.
func New(cfg Config, persist storage.Store, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}
	if len(cfg.Parameters) == 0 {
		cfg.Parameters = DefaultConfig().Parameters
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	st := &state{Params: make(map[string]Parameter, len(cfg.Parameters))}
	for _, p := range cfg.Parameters {
		if p.Min > p.Max {
			return nil, fmt.Errorf("adaptive: parameter %q has min %v above max %v", p.Name, p.Min, p.Max)
		}
		p.Value = p.clamp(p.Value)
		st.Params[p.Name] = p
	}

	s := &Store{cfg: cfg, persist: persist, log: log}

	if persist != nil {
		raw, err := persist.Get(context.Background(), stateKey)
		switch {
		case err == nil:
			var saved state
			if uerr := json.Unmarshal(raw, &saved); uerr != nil {
				log.Warn("discarding corrupt adaptive state", "error", uerr)
			} else {
				s.merge(st, &saved)
				log.Info("resumed adaptive thresholds", "history", len(st.History))
			}
		case errors.Is(err, storage.ErrNotFound):
			// first run
		default:
			return nil, fmt.Errorf("adaptive: loading state: %w", err)
		}
	}

	s.cur.Store(st)
	return s, nil
}

// merge copies persisted values and history onto the configured
// parameter set. Bounds and steps always come from configuration so
// an operator can retune them across restarts.
func (s *Store) merge(st *state, saved *state) {
	for name, p := range st.Params {
		if old, ok := saved.Params[name]; ok {
			p.Value = p.clamp(old.Value)
			st.Params[name] = p
		}
	}
	st.History = saved.History
	if n := len(st.History); n > s.cfg.HistoryLimit {
		st.History = st.History[n-s.cfg.HistoryLimit:]
	}
	st.Best = saved.Best
}

// Value returns the current baseline value of a parameter, or 0 for
// an unknown name.
func (s *Store) Value(name string) float64 {
	if p, ok := s.cur.Load().Params[name]; ok {
		return p.Value
	}
	return 0
}

// Snapshot returns a copy of all parameters.
func (s *Store) Snapshot() map[string]Parameter {
	st := s.cur.Load()
	out := make(map[string]Parameter, len(st.Params))
	for k, v := range st.Params {
		out[k] = v
	}
	return out
}

// Adaptive returns the parameter value corrected for the request
// context. Strong evidence earns a stricter threshold, weak evidence
// relaxes it so thin retrievals are not punished twice, and
// philosophical and role-play modes relax it; the correction never
// exceeds 15% and the result stays inside the parameter's bounds.
// The stored baseline is not modified.
func (s *Store) Adaptive(name string, q QueryContext) float64 {
	p, ok := s.cur.Load().Params[name]
	if !ok {
		return 0
	}
	bias := contextBias(q)
	v := p.Value * (1 + bias)
	if !p.StricterIsHigher {
		v = p.Value * (1 - bias)
	}
	return p.clamp(v)
}

// contextBias returns the net strictness bias in [-0.15, 0.15].
// Positive means stricter.
func contextBias(q QueryContext) float64 {
	bias := 0.0
	switch {
	case q.EvidenceQuality >= 0.8:
		bias += 0.15
	case q.EvidenceQuality >= 0.6:
		bias += 0.05
	case q.EvidenceQuality < 0.2:
		bias -= 0.15
	case q.EvidenceQuality < 0.4:
		bias -= 0.05
	}
	if q.IsPhilosophical {
		bias -= 0.10
	}
	if q.IsRolePlay {
		bias -= 0.05
	}
	if bias > maxContextBias {
		bias = maxContextBias
	}
	if bias < -maxContextBias {
		bias = -maxContextBias
	}
	return bias
}

// RecordOutcome appends a validation outcome to the bounded history.
func (s *Store) RecordOutcome(ctx context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.Load().clone()
	next.History = append(next.History, sample)
	if n := len(next.History); n > s.cfg.HistoryLimit {
		next.History = next.History[n-s.cfg.HistoryLimit:]
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.cur.Store(next)
	return nil
}

// Optimize runs one optimization pass over the recorded history.
// Concurrent calls are deduplicated; they all receive the result of
// a single pass.
func (s *Store) Optimize(ctx context.Context) (OptimizeResult, error) {
	v, err, _ := s.group.Do("optimize", func() (any, error) {
		return s.optimize(ctx)
	})
	if err != nil {
		return OptimizeResult{}, err
	}
	return v.(OptimizeResult), nil
}

func (s *Store) optimize(ctx context.Context) (OptimizeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.Load().clone()
	if len(next.History) == 0 {
		return OptimizeResult{Action: ActionNoSamples, Values: values(next)}, nil
	}

	reward := s.reward(next.History)

	// The reward was earned by the current values, so they are the
	// candidate for the best-known configuration.
	if next.Best == nil || reward > next.Best.Reward {
		next.Best = &snapshot{Values: values(next), Reward: reward}
	}

	action := ActionHeld
	switch {
	case len(next.History) >= s.cfg.SnapMinSamples &&
		next.Best.Reward > reward*(1+s.cfg.SnapImprovement):
		for name, p := range next.Params {
			if v, ok := next.Best.Values[name]; ok {
				p.Value = p.clamp(v)
				next.Params[name] = p
			}
		}
		action = ActionSnapped
	case reward >= s.cfg.StrictRewardMin:
		drift(next, +1)
		action = ActionTightened
	case reward < s.cfg.LeanRewardMax:
		drift(next, -1)
		action = ActionLoosened
	}

	if err := s.save(ctx, next); err != nil {
		return OptimizeResult{}, err
	}
	s.cur.Store(next)

	s.log.Info("thresholds optimized",
		"reward", reward, "action", action, "samples", len(next.History))
	return OptimizeResult{Reward: reward, Action: action, Values: values(next)}, nil
}

// drift moves every parameter one step. direction +1 tightens, -1
// loosens.
func drift(st *state, direction int) {
	for name, p := range st.Params {
		delta := p.Step * float64(direction)
		if !p.StricterIsHigher {
			delta = -delta
		}
		p.Value = p.clamp(p.Value + delta)
		st.Params[name] = p
	}
}

// reward scores the recorded history in [0, 1].
func (s *Store) reward(history []Sample) float64 {
	var success, fp, fn int
	for _, h := range history {
		if h.Success {
			success++
		}
		if h.FalsePositive {
			fp++
		}
		if h.FalseNegative {
			fn++
		}
	}
	n := float64(len(history))
	w := s.cfg.Weights
	return w.Success*(float64(success)/n) +
		w.FalsePositiveAvoidance*(1-float64(fp)/n) +
		w.FalseNegativeAvoidance*(1-float64(fn)/n) +
		w.HallucinationPrevention*s.cfg.HallucinationPreventionRate
}

func values(st *state) map[string]float64 {
	out := make(map[string]float64, len(st.Params))
	for k, p := range st.Params {
		out[k] = p.Value
	}
	return out
}

func (s *Store) save(ctx context.Context, st *state) error {
	if s.persist == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("adaptive: encoding state: %w", err)
	}
	if err := s.persist.Put(ctx, stateKey, raw); err != nil {
		return fmt.Errorf("adaptive: persisting state: %w", err)
	}
	return nil
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package decision records what the validation pipeline decided and
// why, per request, so an operator can reconstruct any verdict after
// the fact.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
)

// Decision is one recorded step inside a session. Alternatives lists
// the options that were considered and not taken, Outcome and Success
// report how the choice turned out once known, ThresholdReasoning
// explains the threshold values in force, and ParentID links a
// decision to the one that led to it.
type Decision struct {
	ID                 string         `json:"id"`
	SessionID          string         `json:"session_id"`
	At                 time.Time      `json:"at"`
	Component          string         `json:"component"`
	Action             string         `json:"action"`
	Rationale          string         `json:"rationale"`
	Alternatives       []string       `json:"alternatives_considered,omitempty"`
	Outcome            string         `json:"outcome,omitempty"`
	Success            *bool          `json:"success,omitempty"`
	ThresholdReasoning string         `json:"threshold_reasoning,omitempty"`
	ParentID           string         `json:"parent_decision_id,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
}

// Entry is the caller-supplied part of a Decision.
type Entry struct {
	Component          string
	Action             string
	Rationale          string
	Alternatives       []string
	Outcome            string
	Success            *bool
	ThresholdReasoning string
	ParentID           string
	Data               map[string]any
}

// Session groups the decisions made while validating one answer.
type Session struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Decisions []Decision `json:"decisions"`
}

// event is the persisted log frame.
type event struct {
	Type     string    `json:"type"` // session_start, decision, session_end
	Session  *Session  `json:"session,omitempty"`
	Decision *Decision `json:"decision,omitempty"`
	EndedAt  time.Time `json:"ended_at,omitempty"`
	ID       string    `json:"id,omitempty"`
}

// maxSessions bounds the in-memory session index. Oldest sessions are
// evicted first; the append log retains them for offline analysis.
const maxSessions = 1000

// Recorder is the decision logger.
//
// Every mutation is appended to the log before it is visible in
// memory, so a replayed log reconstructs the same sessions.
//
// Thread Safety: safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	log      storage.AppendLog
	logger   *logging.Logger
	now      func() time.Time
}

// NewRecorder builds a Recorder over an append log, replaying any
// existing entries. A nil log keeps sessions in memory only.
func NewRecorder(ctx context.Context, appendLog storage.AppendLog, logger *logging.Logger) (*Recorder, error) {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Recorder{
		sessions: make(map[string]*Session),
		log:      appendLog,
		logger:   logger,
		now:      time.Now,
	}
	if appendLog == nil {
		return r, nil
	}
	err := appendLog.Replay(ctx, func(record []byte) error {
		var ev event
		if err := json.Unmarshal(record, &ev); err != nil {
			logger.Warn("skipping corrupt decision log entry", "error", err)
			return nil
		}
		r.apply(&ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decision: replaying log: %w", err)
	}
	logger.Info("decision log replayed", "sessions", len(r.sessions))
	return r, nil
}

// apply folds one event into the in-memory index. Caller holds mu or
// has exclusive access during replay.
func (r *Recorder) apply(ev *event) {
	switch ev.Type {
	case "session_start":
		if ev.Session == nil {
			return
		}
		s := *ev.Session
		r.insert(&s)
	case "decision":
		if ev.Decision == nil {
			return
		}
		if s, ok := r.sessions[ev.Decision.SessionID]; ok {
			s.Decisions = append(s.Decisions, *ev.Decision)
		}
	case "session_end":
		if s, ok := r.sessions[ev.ID]; ok {
			t := ev.EndedAt
			s.EndedAt = &t
		}
	}
}

func (r *Recorder) insert(s *Session) {
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	for len(r.order) > maxSessions {
		delete(r.sessions, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Recorder) append(ctx context.Context, ev *event) error {
	if r.log == nil {
		return nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("decision: encoding event: %w", err)
	}
	if err := r.log.Append(ctx, raw); err != nil {
		return fmt.Errorf("decision: appending event: %w", err)
	}
	return nil
}

// StartSession opens a session for one validation request and returns
// its id.
func (r *Recorder) StartSession(ctx context.Context, question string) (string, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Question:  question,
		StartedAt: r.now().UTC(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.append(ctx, &event{Type: "session_start", Session: s}); err != nil {
		return "", err
	}
	r.insert(s)
	return s.ID, nil
}

// Log records one decision in a session. Unknown session ids are
// rejected.
func (r *Recorder) Log(ctx context.Context, sessionID, component, action, rationale string, data map[string]any) error {
	_, err := r.LogEntry(ctx, sessionID, Entry{
		Component: component,
		Action:    action,
		Rationale: rationale,
		Data:      data,
	})
	return err
}

// LogEntry records one decision with its full context and returns the
// decision id, so a later decision can name it as its parent.
func (r *Recorder) LogEntry(ctx context.Context, sessionID string, e Entry) (string, error) {
	d := &Decision{
		ID:                 uuid.NewString(),
		SessionID:          sessionID,
		At:                 r.now().UTC(),
		Component:          e.Component,
		Action:             e.Action,
		Rationale:          e.Rationale,
		Alternatives:       e.Alternatives,
		Outcome:            e.Outcome,
		Success:            e.Success,
		ThresholdReasoning: e.ThresholdReasoning,
		ParentID:           e.ParentID,
		Data:               e.Data,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("decision: unknown session %q", sessionID)
	}
	if err := r.append(ctx, &event{Type: "decision", Decision: d}); err != nil {
		return "", err
	}
	s.Decisions = append(s.Decisions, *d)
	return d.ID, nil
}

// EndSession marks a session finished.
func (r *Recorder) EndSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("decision: unknown session %q", sessionID)
	}
	ended := r.now().UTC()
	if err := r.append(ctx, &event{Type: "session_end", ID: sessionID, EndedAt: ended}); err != nil {
		return err
	}
	s.EndedAt = &ended
	return nil
}

// Session returns a copy of a session, or false when unknown.
func (r *Recorder) Session(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	out := *s
	out.Decisions = append([]Decision(nil), s.Decisions...)
	return out, true
}

// SessionDecisions returns a copy of a session's decisions in the
// order they were logged.
func (r *Recorder) SessionDecisions(sessionID string) []Decision {
	s, ok := r.Session(sessionID)
	if !ok {
		return nil
	}
	return s.Decisions
}

// Narrative renders a session as a human-readable account, grouped by
// component in first-appearance order.
func (r *Recorder) Narrative(sessionID string) (string, error) {
	s, ok := r.Session(sessionID)
	if !ok {
		return "", fmt.Errorf("decision: unknown session %q", sessionID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s started %s\n", s.ID, s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Question: %s\n", s.Question)

	groups := make(map[string][]Decision)
	var componentOrder []string
	for _, d := range s.Decisions {
		if _, seen := groups[d.Component]; !seen {
			componentOrder = append(componentOrder, d.Component)
		}
		groups[d.Component] = append(groups[d.Component], d)
	}
	for _, component := range componentOrder {
		fmt.Fprintf(&b, "\n[%s]\n", component)
		for _, d := range groups[component] {
			fmt.Fprintf(&b, "  - %s: %s", d.Action, d.Rationale)
			if len(d.Alternatives) > 0 {
				fmt.Fprintf(&b, " [considered: %s]", strings.Join(d.Alternatives, ", "))
			}
			if d.Outcome != "" {
				fmt.Fprintf(&b, " -> %s", d.Outcome)
			}
			if d.Success != nil {
				if *d.Success {
					b.WriteString(" (ok)")
				} else {
					b.WriteString(" (failed)")
				}
			}
			if len(d.Data) > 0 {
				keys := make([]string, 0, len(d.Data))
				for k := range d.Data {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				parts := make([]string, len(keys))
				for i, k := range keys {
					parts[i] = fmt.Sprintf("%s=%v", k, d.Data[k])
				}
				fmt.Fprintf(&b, " (%s)", strings.Join(parts, " "))
			}
			b.WriteString("\n")
			if d.ThresholdReasoning != "" {
				fmt.Fprintf(&b, "    thresholds: %s\n", d.ThresholdReasoning)
			}
		}
	}
	if s.EndedAt != nil {
		fmt.Fprintf(&b, "\nSession ended %s after %d decisions\n",
			s.EndedAt.Format(time.RFC3339), len(s.Decisions))
	} else {
		b.WriteString("\nSession still open\n")
	}
	return b.String(), nil
}

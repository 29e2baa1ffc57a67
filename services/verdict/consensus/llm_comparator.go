// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// comparePrompt instructs the model to compare two documents. The
// model must answer in JSON so the result is machine-readable.
const comparePrompt = `You compare two text snippets for FACTUAL contradictions only:
differing dates, differing numbers, differing names, or incompatible
descriptions of the same named event. Differences of style, opinion,
emphasis, or perspective are NOT contradictions.

Respond with JSON only:
{"contradiction": true|false, "kind": "date"|"number"|"name"|"event", "detail": "<short description>", "confidence": 0.0-1.0}

Snippet 1:
%s

Snippet 2:
%s`

// docExcerptLimit bounds how much of each document is sent to the
// comparator, to keep the call inside its latency budget.
const docExcerptLimit = 2000

// LLMComparatorConfig configures the LLM-backed comparator.
type LLMComparatorConfig struct {
	// Model is the chat model used for comparison.
	// Default: "gpt-4o-mini".
	Model string

	// Timeout bounds each comparison call. Default: 3 seconds.
	Timeout time.Duration

	// RequestsPerSecond rate-limits outgoing calls. Default: 2.
	RequestsPerSecond float64

	// CacheSize is the number of document-pair results kept in the
	// LRU cache. Default: 256.
	CacheSize int
}

// DefaultLLMComparatorConfig returns production defaults.
func DefaultLLMComparatorConfig() LLMComparatorConfig {
	return LLMComparatorConfig{
		Model:             "gpt-4o-mini",
		Timeout:           3 * time.Second,
		RequestsPerSecond: 2,
		CacheSize:         256,
	}
}

// chatClient is the slice of the OpenAI client the comparator uses.
// Tests substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMComparator compares documents with a chat-completion call.
//
// Results are cached by document-pair hash: evidence sets repeat
// across requests for popular questions, and the comparison is
// deterministic enough at temperature 0 to reuse.
//
// Thread Safety: safe for concurrent use.
type LLMComparator struct {
	client  chatClient
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	cache   *lru.Cache[string, CompareResult]
	logger  *slog.Logger
}

// NewLLMComparator creates a comparator backed by the given OpenAI
// client. A nil logger uses slog.Default.
func NewLLMComparator(client *openai.Client, cfg LLMComparatorConfig, logger *slog.Logger) (*LLMComparator, error) {
	return newLLMComparator(client, cfg, logger)
}

func newLLMComparator(client chatClient, cfg LLMComparatorConfig, logger *slog.Logger) (*LLMComparator, error) {
	if client == nil {
		return nil, errors.New("client must not be nil")
	}
	def := DefaultLLMComparatorConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, CompareResult](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create comparison cache: %w", err)
	}

	return &LLMComparator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:   cache,
		logger:  logger,
	}, nil
}

// Compare implements Comparator.
func (c *LLMComparator) Compare(ctx context.Context, docA, docB string) CompareResult {
	key := pairKey(docA, docB)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx); err != nil {
		return classifyCallError(err)
	}

	prompt := fmt.Sprintf(comparePrompt, excerpt(docA), excerpt(docB))
	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Warn("document comparison call failed", "error", err)
		return classifyCallError(err)
	}
	if len(resp.Choices) == 0 {
		return CompareResult{Status: StatusError, Err: errors.New("comparator returned no choices")}
	}

	result, err := parseCompareResponse(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("unparseable comparison response", "error", err)
		return CompareResult{Status: StatusError, Err: err}
	}

	c.cache.Add(key, result)
	return result
}

// parseCompareResponse parses the model's JSON answer, repairing
// almost-JSON first (models wrap output in fences or trail commas).
func parseCompareResponse(content string) (CompareResult, error) {
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return CompareResult{}, fmt.Errorf("repair comparison JSON: %w", err)
	}

	var parsed struct {
		Contradiction bool    `json:"contradiction"`
		Kind          string  `json:"kind"`
		Detail        string  `json:"detail"`
		Confidence    float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return CompareResult{}, fmt.Errorf("decode comparison JSON: %w", err)
	}

	kind := strings.ToLower(strings.TrimSpace(parsed.Kind))
	switch kind {
	case KindDate, KindNumber, KindName, KindEvent:
	default:
		kind = KindEvent
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return CompareResult{
		Status:        StatusSuccess,
		Contradiction: parsed.Contradiction,
		Kind:          kind,
		Detail:        strings.TrimSpace(parsed.Detail),
		Confidence:    confidence,
	}, nil
}

// classifyCallError maps call failures to timeout or error results.
func classifyCallError(err error) CompareResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return CompareResult{Status: StatusTimeout, Err: err}
	}
	return CompareResult{Status: StatusError, Err: err}
}

// pairKey hashes an unordered document pair for the cache.
func pairKey(docA, docB string) string {
	if docB < docA {
		docA, docB = docB, docA
	}
	sum := sha256.Sum256([]byte(docA + "\x00" + docB))
	return hex.EncodeToString(sum[:])
}

// excerpt bounds a document to the comparator excerpt size, cutting
// on a rune boundary so multi-byte text is never split mid-character.
func excerpt(doc string) string {
	if len(doc) <= docExcerptLimit {
		return doc
	}
	cut := docExcerptLimit
	for cut > 0 && !utf8.RuneStart(doc[cut]) {
		cut--
	}
	return doc[:cut]
}

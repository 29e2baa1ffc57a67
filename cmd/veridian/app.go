// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"

	"github.com/VeridianAI/VeridianFOSS/pkg/logging"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/adaptive"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/config"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/consensus"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/decision"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/fallback"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/pipeline"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/records"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/storage"
	"github.com/VeridianAI/VeridianFOSS/services/verdict/validators"
)

// app holds the assembled pipeline and everything that needs an
// orderly shutdown.
type app struct {
	log        *logging.Logger
	pipeline   *pipeline.Pipeline
	recorder   *decision.Recorder
	thresholds *adaptive.Store
	logSink    *records.LogSink

	closers []io.Closer
}

// buildApp wires the full pipeline from config. Callers must Close
// the returned app.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{log: newLogger(cfg.Logging)}
	a.closers = append(a.closers, a.log)

	store, decisionLog, recordLog, err := a.openStorage(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	thresholds, err := adaptive.New(cfg.AdaptiveStoreConfig(), store, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("threshold store: %w", err)
	}
	a.thresholds = thresholds

	recorder, err := decision.NewRecorder(ctx, decisionLog, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("decision recorder: %w", err)
	}
	a.recorder = recorder

	sink, err := a.buildSink(cfg.Records, recordLog)
	if err != nil {
		a.Close()
		return nil, err
	}

	checker, err := a.buildConsensus(cfg.Consensus)
	if err != nil {
		a.Close()
		return nil, err
	}

	factory := validators.NewFactory(validators.FactoryConfig{
		Disabled:            cfg.Validators.Disabled,
		ExtraBlockedPhrases: cfg.Validators.BlockedPhrases,
		SubjectTerms:        cfg.Validators.SubjectTerms,
		Consensus:           checker,
	}, a.log)

	p, err := pipeline.New(pipeline.Components{
		Factory:    factory,
		Thresholds: thresholds,
		Recorder:   recorder,
		Fallback:   fallback.NewGenerator(),
		Sink:       sink,
		Log:        a.log,

		DisableLanguageRetry: !cfg.Retry.RegenerateOnLanguageMismatch,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	a.pipeline = p
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
	}
}

func newLogger(cfg config.LoggingConfig) *logging.Logger {
	level := logging.LevelInfo
	switch cfg.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "veridian",
		JSON:    cfg.JSON,
		Quiet:   cfg.Quiet,
	})
}

func (a *app) openStorage(cfg config.StorageConfig) (storage.Store, storage.AppendLog, storage.AppendLog, error) {
	if cfg.InMemory {
		store := storage.NewMemoryStore()
		a.closers = append(a.closers, store)
		return store, storage.NewMemoryLog(), storage.NewMemoryLog(), nil
	}

	store, err := storage.OpenBadgerStore(storage.DefaultBadgerConfig(filepath.Join(cfg.DataDir, "state")))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("badger store: %w", err)
	}
	a.closers = append(a.closers, store)

	decisionLog, err := storage.OpenFileLog(storage.FileLogConfig{Path: filepath.Join(cfg.DataDir, "decisions.log")})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decision log: %w", err)
	}
	a.closers = append(a.closers, decisionLog)

	recordLog, err := storage.OpenFileLog(storage.FileLogConfig{Path: filepath.Join(cfg.DataDir, "records.log")})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("record log: %w", err)
	}
	a.closers = append(a.closers, recordLog)
	return store, decisionLog, recordLog, nil
}

func (a *app) buildSink(cfg config.RecordsConfig, recordLog storage.AppendLog) (records.Sink, error) {
	logSink := records.NewLogSink(recordLog)
	a.logSink = logSink
	if !cfg.Influx.Enabled {
		return logSink, nil
	}
	influx, err := records.NewInfluxSink(records.InfluxConfig{
		URL:    cfg.Influx.URL,
		Token:  cfg.Influx.Token,
		Org:    cfg.Influx.Org,
		Bucket: cfg.Influx.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("influx sink: %w", err)
	}
	a.closers = append(a.closers, influx)
	return records.NewMultiSink(logSink, influx), nil
}

func (a *app) buildConsensus(cfg config.ConsensusConfig) (*consensus.Checker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("consensus enabled but OPENAI_API_KEY is not set")
	}

	comparator, err := consensus.NewLLMComparator(openai.NewClient(apiKey), consensus.LLMComparatorConfig{
		Model:             cfg.Model,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		CacheSize:         cfg.CacheSize,
	}, a.log.Slog())
	if err != nil {
		return nil, fmt.Errorf("consensus comparator: %w", err)
	}

	breaker := consensus.NewBreaker(consensus.BreakerConfig{
		FailureThreshold: cfg.FailureThreshold,
		DisableDuration:  cfg.DisableDuration(),
	})
	return consensus.NewChecker(comparator, breaker, consensus.CheckerConfig{
		MinDocuments:  cfg.MinDocuments,
		ConfidenceMin: cfg.ConfidenceMin,
	}, a.log.Slog()), nil
}

// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLogConfig configures a FileLog.
type FileLogConfig struct {
	// Path is the log file location. Parent directories are created.
	Path string

	// FlushInterval bounds how long an appended record may sit in the
	// write buffer before reaching the OS. Default: 500ms.
	FlushInterval time.Duration

	// BufferSize is the write buffer size in bytes. Default: 64 KiB.
	BufferSize int
}

// FileLog is a durable AppendLog backed by a line-delimited file.
//
// Appends go through a buffered writer that is flushed on a fixed
// interval by a background goroutine, so callers never block on disk
// beyond the buffer copy. Records must not contain newlines; callers
// append JSON-encoded lines.
//
// Thread Safety: safe for concurrent use.
type FileLog struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
	done   chan struct{}
	closed bool
}

// OpenFileLog opens (or creates) the append log at cfg.Path.
func OpenFileLog(cfg FileLogConfig) (*FileLog, error) {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64 * 1024
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open append log: %w", err)
	}

	l := &FileLog{
		file:   file,
		writer: bufio.NewWriterSize(file, cfg.BufferSize),
		path:   cfg.Path,
		done:   make(chan struct{}),
	}

	go l.flushLoop(cfg.FlushInterval)
	return l, nil
}

// Append implements AppendLog.
func (l *FileLog) Append(_ context.Context, record []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("append log %s is closed", l.path)
	}
	if _, err := l.writer.Write(record); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("append record delimiter: %w", err)
	}
	return nil
}

// Replay implements AppendLog.
//
// Replay flushes pending writes first so the reader observes every
// record appended before the call.
func (l *FileLog) Replay(ctx context.Context, fn func(record []byte) error) error {
	l.mu.Lock()
	if !l.closed {
		if err := l.writer.Flush(); err != nil {
			l.mu.Unlock()
			return fmt.Errorf("flush before replay: %w", err)
		}
	}
	l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open append log for replay: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := make([]byte, len(line))
		copy(rec, line)
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Close implements AppendLog.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)

	var firstErr error
	if err := l.writer.Flush(); err != nil {
		firstErr = fmt.Errorf("flush append log: %w", err)
	}
	if err := l.file.Sync(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sync append log: %w", err)
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close append log: %w", err)
	}
	return firstErr
}

// flushLoop flushes the write buffer on a fixed interval until Close.
func (l *FileLog) flushLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			if !l.closed {
				_ = l.writer.Flush()
			}
			l.mu.Unlock()
		}
	}
}

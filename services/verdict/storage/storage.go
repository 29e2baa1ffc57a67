// Copyright (C) 2025 Veridian AI (oss@veridian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage provides the persistence layer for the verdict pipeline.
//
// Two abstractions cover everything the pipeline persists:
//
//   - Store: keyed records (threshold optimization state). Backed by
//     an in-memory map for tests or BadgerDB for production.
//   - AppendLog: append-only line-delimited JSON streams (decision
//     log, validation records). Backed by an in-memory buffer for
//     tests or a file for production.
//
// Both are deliberately small so the pipeline logic never depends on a
// concrete backend.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Store is a keyed record store.
//
// Values are opaque byte slices; callers own serialization. All
// implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources. The store is unusable afterwards.
	Close() error
}

// AppendLog is an append-only stream of line-delimited records.
//
// Records are opaque byte slices without trailing newlines; the
// implementation frames them. All implementations must be safe for
// concurrent appends.
type AppendLog interface {
	// Append adds one record to the end of the log.
	Append(ctx context.Context, record []byte) error

	// Replay invokes fn for every record in append order. Replay
	// stops early if fn returns an error, which is then returned.
	Replay(ctx context.Context, fn func(record []byte) error) error

	// Close flushes buffered records and releases resources.
	Close() error
}

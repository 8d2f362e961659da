// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/tunegraph/internal/metrics"
)

const dedupKeyPrefix = "trigger:"

// ErrDedupClosed is returned after the store has been closed.
var ErrDedupClosed = errors.New("deduplication store is closed")

// BadgerDeduplicator records seen event ids in badger with a TTL.
// It implements watermill's middleware.ExpiringKeyRepository.
type BadgerDeduplicator struct {
	db  *badger.DB
	ttl time.Duration
}

var _ middleware.ExpiringKeyRepository = (*BadgerDeduplicator)(nil)

// NewBadgerDeduplicator opens a store at path. An empty path keeps it in memory.
func NewBadgerDeduplicator(path string, ttl time.Duration) (*BadgerDeduplicator, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}
	return &BadgerDeduplicator{db: db, ttl: ttl}, nil
}

// IsDuplicate reports whether key was seen within the TTL, recording it if not.
func (d *BadgerDeduplicator) IsDuplicate(_ context.Context, key string) (bool, error) {
	if d.db.IsClosed() {
		return false, ErrDedupClosed
	}

	k := []byte(dedupKeyPrefix + key)
	dup := false
	err := d.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		switch {
		case err == nil:
			dup = true
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, []byte{1}).WithTTL(d.ttl))
	})
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if dup {
		metrics.RecordEventDeduplicated()
	}
	return dup, nil
}

// Close closes the underlying store.
func (d *BadgerDeduplicator) Close() error {
	return d.db.Close()
}

// Package blocklist tracks revoked token IDs until they would have
// expired anyway. Backed by Badger so revocations survive restarts.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const revokedPrefix = "revoked:jti:"

// Blocklist is a persistent set of revoked token IDs.
// Entries carry a TTL matching the token lifetime, so Badger garbage
// collects them once the token could no longer be replayed.
type Blocklist struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open creates a Blocklist backed by a Badger database at the given path.
func Open(path string, logger *slog.Logger) (*Blocklist, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("blocklist opened", "path", path)
	}

	return &Blocklist{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (b *Blocklist) Close() error {
	return b.db.Close()
}

// Revoke marks a token ID as revoked for the given duration.
// Revoking an already revoked ID refreshes its TTL, which is harmless.
func (b *Blocklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil // Token already expired; nothing to block.
	}

	key := []byte(revokedPrefix + jti)

	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, []byte{1}).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked and not yet expired.
func (b *Blocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := []byte(revokedPrefix + jti)

	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token %s: %w", jti, err)
	}
	return true, nil
}

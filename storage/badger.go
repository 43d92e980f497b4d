package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAdapter is an embedded, file-backed [Adapter] built on BadgerDB.
// This is the default for desktop and edge deployments where no external
// store is available: sessions survive restarts on local disk alone.
type BadgerAdapter struct {
	db     *badger.DB
	prefix string
}

// NewBadgerAdapter wraps an opened BadgerDB handle. The caller owns the
// handle's lifecycle and must close it after the engine shuts down.
func NewBadgerAdapter(db *badger.DB, prefix string) *BadgerAdapter {
	return &BadgerAdapter{
		db:     db,
		prefix: prefix,
	}
}

func (a *BadgerAdapter) key(key string) []byte {
	if a.prefix == "" {
		return []byte(key)
	}
	return []byte(a.prefix + ":" + key)
}

// Get returns the value stored under key, or [ErrKeyNotFound].
func (a *BadgerAdapter) Get(_ context.Context, key string) (string, error) {
	var value string
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(a.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Set stores value under key.
func (a *BadgerAdapter) Set(_ context.Context, key, value string) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(a.key(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (a *BadgerAdapter) Remove(_ context.Context, key string) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(a.key(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

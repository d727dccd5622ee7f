package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/buntdb"
)

// Backend is a flat string key-value store.
type Backend interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// BuntBackend stores items in a buntdb database.
type BuntBackend struct {
	db *buntdb.DB
}

// NewBuntBackend opens the buntdb database at path. Use ":memory:" for a
// database that is not persisted to disk. Missing parent directories are
// created.
func NewBuntBackend(path string) (*BuntBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create buntdb dir for %s: %w", path, err)
		}
	}

	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb %s: %w", path, err)
	}

	return &BuntBackend{db: db}, nil
}

// GetItem returns the value stored under key.
func (b *BuntBackend) GetItem(key string) (string, bool, error) {
	var (
		val   string
		found bool
	)

	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}

	return val, found, nil
}

// SetItem stores value under key, replacing any previous value.
func (b *BuntBackend) SetItem(key, value string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (b *BuntBackend) RemoveItem(key string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}

	return nil
}

// Close closes the underlying database.
func (b *BuntBackend) Close() error {
	return b.db.Close()
}

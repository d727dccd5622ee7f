// Package kv wraps a key-value backend with a key prefix and optional
// per-item expiry. Expired items are removed lazily when they are read.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
)

const (
	// DefaultPrefix is prepended to every key.
	DefaultPrefix = "ls-"

	// ExpiryUnit is the unit expiry counts are given in by callers that
	// take a plain number, such as the HTTP API and the config file.
	ExpiryUnit = time.Minute

	probeKey = "__lscachetest__"
)

// ErrUnsupported is returned when the backend failed the support probe.
var ErrUnsupported = errors.New("storage is not supported")

// Storage is a prefixed, expiring view over a Backend. Values are stored as
// a JSON array: [value] or [value, expireAtMillis].
type Storage struct {
	backend Backend
	prefix  string
	now     func() time.Time

	probe     sync.Once
	supported bool
}

// New creates a Storage over backend. An empty prefix selects DefaultPrefix.
func New(backend Backend, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Storage{
		backend: backend,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Supported reports whether the backend can store items. The backend is
// probed once and the answer is cached.
func (s *Storage) Supported() bool {
	s.probe.Do(func() {
		if s.backend == nil {
			return
		}
		if err := s.setItem(probeKey, probeKey); err != nil {
			zlog.Logger.Warn().Err(err).Msg("storage probe failed")
			return
		}
		if err := s.removeItem(probeKey); err != nil {
			zlog.Logger.Warn().Err(err).Msg("storage probe failed")
			return
		}
		s.supported = true
	})

	return s.supported
}

// Set stores val under key. A non-zero expired makes the item expire that
// long from now.
func (s *Storage) Set(key string, val any, expired time.Duration) error {
	if !s.Supported() {
		return ErrUnsupported
	}

	item := []any{val}
	if expired != 0 {
		item = append(item, s.now().Add(expired).UnixMilli())
	}

	data, err := json.Marshal(item)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to encode storage item")
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := s.setItem(key, string(data)); err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to write storage item")
		return err
	}

	return nil
}

// Get returns the raw JSON value stored under key. Missing, expired,
// malformed and null items are reported as a miss.
func (s *Storage) Get(key string) (json.RawMessage, bool) {
	if !s.Supported() {
		return nil, false
	}

	raw, found, err := s.backend.GetItem(s.key(key))
	if err != nil || !found {
		return nil, false
	}

	var item []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &item); err != nil || len(item) == 0 {
		return nil, false
	}

	if len(item) > 1 && s.flushExpired(key, item[1]) {
		return nil, false
	}

	if string(item[0]) == "null" {
		return nil, false
	}

	return item[0], true
}

// GetInto decodes the value stored under key into dst and reports whether
// there was a value.
func (s *Storage) GetInto(key string, dst any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}

	return true, nil
}

// Has reports whether Get would return a value.
func (s *Storage) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Remove deletes key.
func (s *Storage) Remove(key string) error {
	if !s.Supported() {
		return ErrUnsupported
	}

	return s.removeItem(key)
}

// flushExpired removes key when its expiry has passed. A zero or null expiry
// never expires.
func (s *Storage) flushExpired(key string, expiry json.RawMessage) bool {
	var at float64
	if err := json.Unmarshal(expiry, &at); err != nil || at == 0 {
		return false
	}

	if s.now().UnixMilli() < int64(at) {
		return false
	}

	if err := s.removeItem(key); err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to remove expired item")
	}

	return true
}

func (s *Storage) key(key string) string {
	return s.prefix + key
}

func (s *Storage) setItem(key, value string) error {
	k := s.key(key)
	if err := s.backend.RemoveItem(k); err != nil {
		return err
	}
	return s.backend.SetItem(k, value)
}

func (s *Storage) removeItem(key string) error {
	return s.backend.RemoveItem(s.key(key))
}

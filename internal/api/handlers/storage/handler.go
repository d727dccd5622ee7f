package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/api/respond"
	"github.com/aliskhannn/image-compressor/internal/storage/kv"
)

// store defines the key-value operations exposed over HTTP.
type store interface {
	Supported() bool
	Get(key string) (json.RawMessage, bool)
	Set(key string, val any, expired time.Duration) error
	Remove(key string) error
}

// Handler exposes the prefixed, expiring key-value store.
type Handler struct {
	store store
}

// NewHandler creates a new Handler over s.
func NewHandler(s store) *Handler {
	return &Handler{store: s}
}

// SetRequest is the body of a PUT. Expired is a number of minutes; zero or
// absent means the item never expires.
type SetRequest struct {
	Value   json.RawMessage `json:"value"`
	Expired float64         `json:"expired"`
}

// Item is a stored value as returned by GET.
type Item struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Supported reports whether the store is usable.
func (h *Handler) Supported(c *ginext.Context) {
	respond.OK(c, map[string]bool{"supported": h.store.Supported()})
}

// Get returns the value under :key. Missing and expired items are 404.
func (h *Handler) Get(c *ginext.Context) {
	key := c.Param("key")

	val, ok := h.store.Get(key)
	if !ok {
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("key %q not found", key))
		return
	}

	respond.OK(c, Item{Key: key, Value: val})
}

// Set stores the request value under :key.
func (h *Handler) Set(c *ginext.Context) {
	key := c.Param("key")

	var req SetRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to decode storage item")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if len(req.Value) == 0 {
		respond.Fail(c, http.StatusBadRequest, errors.New("value is required"))
		return
	}

	expired := time.Duration(req.Expired * float64(kv.ExpiryUnit))
	if err := h.store.Set(key, req.Value, expired); err != nil {
		respond.Fail(c, statusFor(err), err)
		return
	}

	respond.OK(c, Item{Key: key, Value: req.Value})
}

// Remove deletes :key.
func (h *Handler) Remove(c *ginext.Context) {
	if err := h.store.Remove(c.Param("key")); err != nil {
		zlog.Logger.Err(err).Msg("failed to remove storage item")
		respond.Fail(c, statusFor(err), err)
		return
	}

	c.Status(http.StatusNoContent)
}

func statusFor(err error) int {
	if errors.Is(err, kv.ErrUnsupported) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Package kv is the defensive key/value layer every cart record goes through.
//
// A Backend is one storage area: the server-side equivalent of a browser tab's
// session storage (or, for legacy data, of the longer-lived local storage).
// Store wraps a Backend with JSON encoding, corruption recovery, quota
// eviction and a degraded mode for unavailable storage.
package kv

import (
	"context"
	"errors"
)

// Backend is a flat string key/value area.
//
// Get returns sentinel.ErrNotFound for absent keys. Set returns an error
// wrapping ErrQuotaExceeded when the area is full. Delete of an absent key is
// not an error. Keys lists every key in the area, unprefixed.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Areas hands out the Backend for a storage area id (a tab or a device).
type Areas interface {
	Area(id string) Backend
}

var (
	// ErrCorrupted marks a stored value that could not be decoded into the
	// requested shape. The key has already been discarded when this is returned.
	ErrCorrupted = errors.New("corrupted entry")
	// ErrQuotaExceeded marks a write refused because the area is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

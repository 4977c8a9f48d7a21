// Package store persists the cart and shipping selection of one tab session.
// Records live under keys suffixed with the session id, so two sessions never
// read each other's data.
package store

import (
	"context"
	"log/slog"

	"adega/internal/cart/models"
	"adega/internal/storage/kv"
)

const (
	cartKeyPrefix     = "cart-"
	shippingKeyPrefix = "shipping-"
)

// OwnedPrefixes lists the session-suffixed key prefixes, for quota eviction.
func OwnedPrefixes() []string {
	return []string{cartKeyPrefix, shippingKeyPrefix}
}

// CartKey is the storage key of a session's cart.
func CartKey(sessionID string) string { return cartKeyPrefix + sessionID }

// ShippingKey is the storage key of a session's shipping selection.
func ShippingKey(sessionID string) string { return shippingKeyPrefix + sessionID }

// Identity supplies the session id that namespaces every key.
type Identity interface {
	ID(ctx context.Context) string
}

// Store is the cart store of one session.
//
// Reads always return a usable value (empty cart, nil shipping). The error
// beside it says why the stored record could not be used, for callers that
// need to tell "empty" from "unreadable".
type Store struct {
	kv       *kv.Store
	identity Identity
	logger   *slog.Logger
}

func New(kvStore *kv.Store, identity Identity, logger *slog.Logger) *Store {
	return &Store{kv: kvStore, identity: identity, logger: logger}
}

// SaveCart writes items, merging lines that share an id.
func (s *Store) SaveCart(ctx context.Context, items []models.CartItem) error {
	return s.kv.Set(ctx, CartKey(s.identity.ID(ctx)), dedupe(items))
}

// GetCart returns the stored cart, or an empty cart.
func (s *Store) GetCart(ctx context.Context) ([]models.CartItem, error) {
	items, err := kv.Get(ctx, s.kv, CartKey(s.identity.ID(ctx)), []models.CartItem{})
	if items == nil {
		items = []models.CartItem{}
	}
	return items, err
}

func (s *Store) SaveShipping(ctx context.Context, info models.ShippingSelection) error {
	return s.kv.Set(ctx, ShippingKey(s.identity.ID(ctx)), info)
}

// GetShipping returns the stored selection, or nil when none was saved.
func (s *Store) GetShipping(ctx context.Context) (*models.ShippingSelection, error) {
	return kv.Get[*models.ShippingSelection](ctx, s.kv, ShippingKey(s.identity.ID(ctx)), nil)
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.kv.Delete(ctx, CartKey(s.identity.ID(ctx)))
}

func (s *Store) ClearShipping(ctx context.Context) error {
	return s.kv.Delete(ctx, ShippingKey(s.identity.ID(ctx)))
}

// ClearSession removes both records. Both deletes are attempted even if the
// first one fails.
func (s *Store) ClearSession(ctx context.Context) error {
	cartErr := s.ClearCart(ctx)
	shippingErr := s.ClearShipping(ctx)
	if cartErr != nil {
		return cartErr
	}
	return shippingErr
}

func dedupe(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if i := models.IndexOf(out, item.ID); i >= 0 {
			out[i].Quantity += item.Quantity
			out[i].Stock = item.Stock
			continue
		}
		out = append(out, item)
	}
	return out
}

package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"adega/internal/cart/models"
	"adega/internal/storage/kv"
)

type fixedIdentity string

func (f fixedIdentity) ID(context.Context) string { return string(f) }

type CartStoreSuite struct {
	suite.Suite
	ctx     context.Context
	logger  *slog.Logger
	backend *kv.MemoryBackend
	store   *Store
}

func TestCartStoreSuite(t *testing.T) {
	suite.Run(t, new(CartStoreSuite))
}

func (s *CartStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.backend = kv.NewMemoryBackend(0)
	s.store = s.storeFor("session-a")
}

func (s *CartStoreSuite) storeFor(sessionID string) *Store {
	kvStore := kv.New(s.ctx, s.backend, s.logger, kv.WithOwnedPrefixes(OwnedPrefixes()...))
	return New(kvStore, fixedIdentity(sessionID), s.logger)
}

func sampleItems() []models.CartItem {
	return []models.CartItem{
		{ID: "malbec", Name: "Malbec Reserva", Price: decimal.RequireFromString("89.9"), Quantity: 2, Stock: 6, Image: "/img/malbec.jpg"},
		{ID: "cachaca", Name: "Cachaça Ouro", Price: decimal.RequireFromString("45"), Quantity: 1, Stock: 3},
	}
}

func (s *CartStoreSuite) assertSameItems(expected, actual []models.CartItem) {
	s.Require().Len(actual, len(expected))
	for i := range expected {
		s.Equal(expected[i].ID, actual[i].ID)
		s.Equal(expected[i].Name, actual[i].Name)
		s.True(expected[i].Price.Equal(actual[i].Price), "price of %s", expected[i].ID)
		s.Equal(expected[i].Quantity, actual[i].Quantity)
		s.Equal(expected[i].Stock, actual[i].Stock)
		s.Equal(expected[i].Image, actual[i].Image)
	}
}

func (s *CartStoreSuite) TestCartRoundTrip() {
	s.Run("empty session yields empty cart", func() {
		items, err := s.store.GetCart(s.ctx)
		s.Require().NoError(err)
		s.NotNil(items)
		s.Empty(items)
	})

	s.Run("saved cart reads back unchanged", func() {
		s.Require().NoError(s.store.SaveCart(s.ctx, sampleItems()))
		items, err := s.store.GetCart(s.ctx)
		s.Require().NoError(err)
		s.assertSameItems(sampleItems(), items)
	})

	s.Run("duplicate lines are merged on save", func() {
		items := sampleItems()
		items = append(items, models.CartItem{ID: "malbec", Name: "Malbec Reserva", Price: decimal.RequireFromString("89.9"), Quantity: 1, Stock: 6})
		s.Require().NoError(s.store.SaveCart(s.ctx, items))

		got, err := s.store.GetCart(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(3, got[0].Quantity)
	})
}

func (s *CartStoreSuite) TestCorruptedCart() {
	s.Require().NoError(s.backend.Set(s.ctx, CartKey("session-a"), `{"broken":`))

	items, err := s.store.GetCart(s.ctx)
	s.ErrorIs(err, kv.ErrCorrupted)
	s.Empty(items)

	_, err = s.backend.Get(s.ctx, CartKey("session-a"))
	s.Error(err, "corrupted key is discarded")
}

func (s *CartStoreSuite) TestShipping() {
	s.Run("absent shipping is nil", func() {
		info, err := s.store.GetShipping(s.ctx)
		s.Require().NoError(err)
		s.Nil(info)
	})

	s.Run("round trip", func() {
		sel := models.ShippingSelection{Cost: decimal.NewFromInt(15), City: "São Paulo", PostalCode: "01310-100", IsValid: true}
		s.Require().NoError(s.store.SaveShipping(s.ctx, sel))

		got, err := s.store.GetShipping(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.True(sel.Cost.Equal(got.Cost))
		s.Equal(sel.City, got.City)
		s.Equal(sel.PostalCode, got.PostalCode)
		s.True(got.IsValid)
		s.False(got.IsFree)
	})
}

func (s *CartStoreSuite) TestClear() {
	s.Require().NoError(s.store.SaveCart(s.ctx, sampleItems()))
	s.Require().NoError(s.store.SaveShipping(s.ctx, models.ShippingSelection{IsValid: true}))

	s.Require().NoError(s.store.ClearCart(s.ctx))
	items, _ := s.store.GetCart(s.ctx)
	s.Empty(items)
	info, _ := s.store.GetShipping(s.ctx)
	s.NotNil(info)

	s.Require().NoError(s.store.SaveCart(s.ctx, sampleItems()))
	s.Require().NoError(s.store.ClearSession(s.ctx))
	items, _ = s.store.GetCart(s.ctx)
	s.Empty(items)
	info, _ = s.store.GetShipping(s.ctx)
	s.Nil(info)
}

func (s *CartStoreSuite) TestSessionsAreIsolated() {
	other := s.storeFor("session-b")

	s.Require().NoError(s.store.SaveCart(s.ctx, sampleItems()))
	items, err := other.GetCart(s.ctx)
	s.Require().NoError(err)
	s.Empty(items)

	s.Require().NoError(other.SaveShipping(s.ctx, models.ShippingSelection{City: "Osasco", IsValid: true}))
	info, err := s.store.GetShipping(s.ctx)
	s.Require().NoError(err)
	s.Nil(info)

	s.Require().NoError(other.ClearSession(s.ctx))
	items, err = s.store.GetCart(s.ctx)
	s.Require().NoError(err)
	s.Len(items, 2)
}

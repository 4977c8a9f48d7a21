package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"adega/internal/cart/models"
	cartstore "adega/internal/cart/store"
	"adega/internal/storage/kv"
	"adega/pkg/platform/sentinel"
)

const legacyCartJSON = `[{"id":"malbec","name":"Malbec Reserva","price":89.9,"quantity":2,"image":"/img/malbec.jpg","stock":6}]`
const legacyShippingJSON = `{"cost":15,"isFree":false,"city":"Osasco","postalCode":"06010-000","isValid":true}`

type fixedIdentity string

func (f fixedIdentity) ID(context.Context) string { return string(f) }

// stickyBackend accepts the availability probe but refuses to delete
// anything else.
type stickyBackend struct{ *kv.MemoryBackend }

func (b stickyBackend) Delete(ctx context.Context, key string) error {
	if strings.HasPrefix(key, "__") {
		return b.MemoryBackend.Delete(ctx, key)
	}
	return errors.New("delete refused")
}

type MigratorSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	legacyBackend *kv.MemoryBackend
	legacy        *kv.Store
	session       *kv.Store
	carts         *cartstore.Store
	migrator      *Migrator
}

func TestMigratorSuite(t *testing.T) {
	suite.Run(t, new(MigratorSuite))
}

func (s *MigratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.legacyBackend = kv.NewMemoryBackend(0)
	s.legacy = kv.New(s.ctx, s.legacyBackend, s.logger)
	s.session = kv.New(s.ctx, kv.NewMemoryBackend(0), s.logger)
	s.carts = cartstore.New(s.session, fixedIdentity("sess-1"), s.logger)
	s.migrator = New(s.legacy, s.session, s.carts, s.logger)
}

func (s *MigratorSuite) seedLegacy(cart, shipping string) {
	if cart != "" {
		s.Require().NoError(s.legacyBackend.Set(s.ctx, LegacyCartKey, cart))
	}
	if shipping != "" {
		s.Require().NoError(s.legacyBackend.Set(s.ctx, LegacyShippingKey, shipping))
	}
}

func (s *MigratorSuite) legacyKeys() []string {
	keys, err := s.legacyBackend.Keys(s.ctx)
	s.Require().NoError(err)
	return keys
}

func (s *MigratorSuite) TestNothingToMigrate() {
	s.Equal(StateNotMigrated, s.migrator.State(s.ctx))

	res := s.migrator.Run(s.ctx)
	s.True(res.Success)
	s.False(res.CartMigrated)
	s.False(res.ShippingMigrated)
	s.Empty(res.Errors)
	s.Equal(StateMigrated, s.migrator.State(s.ctx))
}

func (s *MigratorSuite) TestMigratesCartAndShipping() {
	s.seedLegacy(legacyCartJSON, legacyShippingJSON)

	res := s.migrator.Run(s.ctx)
	s.True(res.Success)
	s.True(res.CartMigrated)
	s.True(res.ShippingMigrated)
	s.Empty(res.Errors)

	items, err := s.carts.GetCart(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("malbec", items[0].ID)
	s.Equal(2, items[0].Quantity)
	s.Equal("89.9", items[0].Price.String())

	info, err := s.carts.GetShipping(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(info)
	s.Equal("Osasco", info.City)
	s.True(info.IsValid)

	s.Empty(s.legacyKeys(), "legacy keys are drained")
}

func (s *MigratorSuite) TestCorruptedShippingWithValidCart() {
	s.seedLegacy(legacyCartJSON, `[1,2,3]`)

	res := s.migrator.Run(s.ctx)
	s.True(res.CartMigrated)
	s.False(res.ShippingMigrated)
	s.False(res.Success)
	s.Require().Len(res.Errors, 1)
	s.Contains(res.Errors[0], "shipping")
	s.Contains(res.Errors[0], "Dados corrompidos")
	s.Equal(StateMigratedWithErrors, s.migrator.State(s.ctx))

	items, _ := s.carts.GetCart(s.ctx)
	s.Len(items, 1)
}

func (s *MigratorSuite) TestNegativeShippingCostIsCorrupted() {
	s.seedLegacy("", `{"cost":-5,"isFree":false,"city":"Osasco","postalCode":"06010-000","isValid":true}`)

	res := s.migrator.Run(s.ctx)
	s.False(res.ShippingMigrated)
	s.False(res.Success)
	s.Require().Len(res.Errors, 1)
	s.Contains(res.Errors[0], "Dados corrompidos")

	info, err := s.carts.GetShipping(s.ctx)
	s.Require().NoError(err)
	s.Nil(info)
}

func (s *MigratorSuite) TestCorruptedCartWithValidShipping() {
	s.seedLegacy(`{"id":"not-a-list"}`, legacyShippingJSON)

	res := s.migrator.Run(s.ctx)
	s.False(res.CartMigrated)
	s.True(res.ShippingMigrated)
	s.False(res.Success)
	s.Require().Len(res.Errors, 1)
	s.Contains(res.Errors[0], "cart")
}

func (s *MigratorSuite) TestUnparsableLegacyData() {
	s.seedLegacy(`[{"id":`, `{"cost":`)

	res := s.migrator.Run(s.ctx)
	s.False(res.Success)
	s.False(res.CartMigrated)
	s.False(res.ShippingMigrated)
	s.Len(res.Errors, 2)
	s.Equal(StateMigratedWithErrors, s.migrator.State(s.ctx))
	s.Len(s.legacyKeys(), 2, "nothing migrated, legacy data left in place")
}

func (s *MigratorSuite) TestRunsAtMostOnce() {
	s.Run("second run ignores mutated legacy data", func() {
		s.seedLegacy(legacyCartJSON, "")
		first := s.migrator.Run(s.ctx)
		s.True(first.CartMigrated)

		s.seedLegacy(`[{"id":"gin","name":"Gin","price":120,"quantity":1,"stock":2}]`, "")
		second := s.migrator.Run(s.ctx)
		s.True(second.AlreadyMigrated)
		s.True(second.Success)
		s.False(second.CartMigrated)

		items, _ := s.carts.GetCart(s.ctx)
		s.Require().Len(items, 1)
		s.Equal("malbec", items[0].ID)
	})

	s.Run("failed migration is sticky too", func() {
		s.SetupTest()
		s.seedLegacy(`garbage`, "")
		first := s.migrator.Run(s.ctx)
		s.False(first.Success)

		s.seedLegacy(legacyCartJSON, "")
		second := s.migrator.Run(s.ctx)
		s.True(second.AlreadyMigrated)
		items, _ := s.carts.GetCart(s.ctx)
		s.Empty(items)
	})
}

func (s *MigratorSuite) TestRerunClearsState() {
	s.seedLegacy(`garbage`, "")
	s.False(s.migrator.Run(s.ctx).Success)

	s.seedLegacy(legacyCartJSON, "")
	res := s.migrator.Rerun(s.ctx)
	s.True(res.Success)
	s.True(res.CartMigrated)
	s.Equal(StateMigrated, s.migrator.State(s.ctx))
}

func (s *MigratorSuite) TestMergesIntoExistingSessionCart() {
	existing := []models.CartItem{{ID: "malbec", Name: "Malbec Reserva", Quantity: 1, Stock: 6}}
	s.Require().NoError(s.carts.SaveCart(s.ctx, existing))
	s.seedLegacy(`[{"id":"malbec","quantity":5,"stock":6,"price":1},{"id":"vodka","name":"Vodka","price":70,"quantity":1,"stock":4}]`, "")

	res := s.migrator.Run(s.ctx)
	s.True(res.CartMigrated)

	items, _ := s.carts.GetCart(s.ctx)
	s.Require().Len(items, 2)
	s.Equal(1, items[0].Quantity, "session line wins over legacy line")
	s.Equal("vodka", items[1].ID)
}

func (s *MigratorSuite) TestLegacyCleanupFailureIsNotFatal() {
	backend := stickyBackend{kv.NewMemoryBackend(0)}
	s.Require().NoError(backend.Set(s.ctx, LegacyCartKey, legacyCartJSON))
	legacy := kv.New(s.ctx, backend, s.logger)
	s.Require().True(legacy.Available())

	res := New(legacy, s.session, s.carts, s.logger).Run(s.ctx)
	s.True(res.Success)
	s.True(res.CartMigrated)

	_, err := backend.Get(s.ctx, LegacyCartKey)
	s.NotErrorIs(err, sentinel.ErrNotFound)
}

func (s *MigratorSuite) TestUnknownPersistedStateCountsAsNotMigrated() {
	s.Require().NoError(s.session.Set(s.ctx, StateKey, "weird"))
	s.Equal(StateNotMigrated, s.migrator.State(s.ctx))
}

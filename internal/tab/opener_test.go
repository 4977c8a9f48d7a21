package tab

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"adega/internal/cart/migration"
	"adega/internal/cart/session"
	cartstore "adega/internal/cart/store"
	"adega/internal/catalog"
	"adega/internal/checkout"
	"adega/internal/checkout/message"
	"adega/internal/storage/kv"
	dErrors "adega/pkg/domain-errors"
)

// fullOnceBackend refuses the next write with a quota error once armed.
type fullOnceBackend struct {
	*kv.MemoryBackend
	full bool
}

func (b *fullOnceBackend) Set(ctx context.Context, key, value string) error {
	if b.full {
		b.full = false
		return kv.ErrQuotaExceeded
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

type staticAreas map[string]kv.Backend

func (a staticAreas) Area(id string) kv.Backend { return a[id] }

type OpenerSuite struct {
	suite.Suite
	ctx      context.Context
	logger   *slog.Logger
	sessions *kv.MemoryAreas
	legacy   *kv.MemoryAreas
	opener   *Opener
}

func TestOpenerSuite(t *testing.T) {
	suite.Run(t, new(OpenerSuite))
}

func (s *OpenerSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sessions = kv.NewMemoryAreas(0)
	s.legacy = kv.NewMemoryAreas(0)
	s.opener = s.newOpener(s.sessions)
}

func (s *OpenerSuite) newOpener(sessions kv.Areas) *Opener {
	return NewOpener(Config{
		Sessions:   sessions,
		Legacy:     s.legacy,
		Catalog:    catalog.NewStatic(catalog.DemoProducts()),
		Formatter:  message.NewFormatter("https://wa.me", "5511999999999", "Entrega em até 2 horas", time.UTC),
		Dispatcher: checkout.NewLinkDispatcher(s.logger),
		Logger:     s.logger,
	})
}

func (s *OpenerSuite) TestRequiresScope() {
	_, err := s.opener.Open(s.ctx, "", "device")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.opener.Open(s.ctx, "tab", "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *OpenerSuite) TestSessionIsStablePerTab() {
	first, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	again, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	other, err := s.opener.Open(s.ctx, "tab-2", "device-1")
	s.Require().NoError(err)

	s.Equal(first.SessionID, again.SessionID)
	s.NotEqual(first.SessionID, other.SessionID)
}

func (s *OpenerSuite) TestTabsDoNotShareCarts() {
	first, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	_, err = first.Cart.Add(s.ctx, "cachaca-ouro", 2)
	s.Require().NoError(err)

	other, err := s.opener.Open(s.ctx, "tab-2", "device-1")
	s.Require().NoError(err)
	s.Empty(other.Cart.Items(s.ctx))

	again, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	s.Len(again.Cart.Items(s.ctx), 1)
}

func (s *OpenerSuite) TestMigratesLegacyCartOnce() {
	legacy := s.legacy.Area("device-1")
	s.Require().NoError(legacy.Set(s.ctx, migration.LegacyCartKey,
		`[{"id":"cachaca-ouro","name":"Cachaça Ouro 700ml","price":"45","quantity":1,"stock":20}]`))

	first, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	s.True(first.Migration.Success)
	s.True(first.Migration.CartMigrated)
	s.Len(first.Cart.Items(s.ctx), 1)

	again, err := s.opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	s.True(again.Migration.AlreadyMigrated)
	s.Len(again.Cart.Items(s.ctx), 1)
}

func (s *OpenerSuite) TestQuotaEvictionKeepsSessionState() {
	backend := &fullOnceBackend{MemoryBackend: kv.NewMemoryBackend(0)}
	opener := s.newOpener(staticAreas{"tab-1": backend})
	s.Require().NoError(s.legacy.Area("device-1").Set(s.ctx, migration.LegacyCartKey, `{"not":"a list"}`))

	foreign := uuid.NewString()
	s.Require().NoError(backend.Set(s.ctx, cartstore.CartKey(foreign), `[]`))
	s.Require().NoError(backend.Set(s.ctx, cartstore.ShippingKey(foreign), `{}`))

	first, err := opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	s.False(first.Migration.Success)

	backend.full = true
	_, err = first.Cart.Add(s.ctx, "cachaca-ouro", 1)
	s.Require().NoError(err)
	s.False(backend.full)

	keys, err := backend.Keys(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{
		session.IdentityKey,
		migration.StateKey,
		cartstore.CartKey(first.SessionID),
	}, keys)

	again, err := opener.Open(s.ctx, "tab-1", "device-1")
	s.Require().NoError(err)
	s.Equal(first.SessionID, again.SessionID)
	s.True(again.Migration.AlreadyMigrated)
	s.Empty(again.Migration.Errors)
	s.Len(again.Cart.Items(s.ctx), 1)
}

// Package tab assembles the per-request object graph for one browser tab: its
// session storage area, the device's legacy area, and the cart and checkout
// services bound to them.
package tab

import (
	"context"
	"log/slog"
	"time"

	"adega/internal/cart/migration"
	cartservice "adega/internal/cart/service"
	"adega/internal/cart/session"
	cartstore "adega/internal/cart/store"
	"adega/internal/checkout"
	"adega/internal/checkout/message"
	"adega/internal/shipping"
	"adega/internal/storage/kv"
	dErrors "adega/pkg/domain-errors"
	"adega/pkg/requestcontext"
)

// Tab is the opened state of one browser tab.
type Tab struct {
	SessionID string
	Migration migration.Result
	Cart      *cartservice.Service
	Checkout  *checkout.Service
}

// Opener builds Tabs over shared storage areas and collaborators.
type Opener struct {
	sessions       kv.Areas
	legacy         kv.Areas
	catalog        cartservice.Catalog
	pricer         *shipping.Pricer
	formatter      *message.Formatter
	dispatcher     checkout.Dispatcher
	logger         *slog.Logger
	deliveryWindow time.Duration
}

// Config holds the collaborators shared by every tab.
type Config struct {
	Sessions   kv.Areas
	Legacy     kv.Areas
	Catalog    cartservice.Catalog
	Pricer     *shipping.Pricer
	Formatter  *message.Formatter
	Dispatcher checkout.Dispatcher
	Logger     *slog.Logger
}

func NewOpener(cfg Config) *Opener {
	pricer := cfg.Pricer
	if pricer == nil {
		pricer = shipping.NewPricer(shipping.DefaultConfig)
	}
	return &Opener{
		sessions:       cfg.Sessions,
		legacy:         cfg.Legacy,
		catalog:        cfg.Catalog,
		pricer:         pricer,
		formatter:      cfg.Formatter,
		dispatcher:     cfg.Dispatcher,
		logger:         cfg.Logger,
		deliveryWindow: pricer.Config().DeliveryWindow,
	}
}

// Open resolves the tab's session, runs the legacy migration if it has not
// run for this session yet, and returns services bound to the session.
func (o *Opener) Open(ctx context.Context, tabID, deviceID string) (*Tab, error) {
	if tabID == "" || deviceID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "storage scope missing")
	}
	logger := o.logger.With("tab_id", tabID)

	sessionKV := kv.New(ctx, o.sessions.Area(tabID), logger, kv.WithOwnedPrefixes(cartstore.OwnedPrefixes()...))
	legacyKV := kv.New(ctx, o.legacy.Area(deviceID), logger)

	identity := session.NewIdentity(sessionKV, logger)
	carts := cartstore.New(sessionKV, identity, logger)
	migrator := migration.New(legacyKV, sessionKV, carts, logger)
	cart := cartservice.New(carts, o.catalog, migrator, o.pricer, logger)

	t := &Tab{
		SessionID: identity.ID(ctx),
		Cart:      cart,
		Checkout: checkout.New(carts, sessionKV, o.formatter, o.dispatcher, logger,
			checkout.WithDeliveryWindow(o.deliveryWindow),
			checkout.WithClock(func() time.Time { return requestcontext.Now(ctx) }),
		),
	}
	t.Migration = cart.Init(ctx)
	return t, nil
}

// Package migration moves cart data from the legacy device-wide storage into
// the session-scoped cart store, at most once per session.
package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adega/internal/cart/models"
	"adega/internal/storage/kv"
)

const (
	// StateKey holds the persisted State in the session area. It is not
	// suffixed with the session id.
	StateKey = "migration-state"

	LegacyCartKey     = "cart"
	LegacyShippingKey = "shipping"
)

// State is the persisted migration state of a session. Both migrated states
// are terminal: Run never leaves them on its own.
type State string

const (
	StateNotMigrated        State = "not_migrated"
	StateMigrated           State = "migrated"
	StateMigratedWithErrors State = "migrated_with_errors"
)

// Terminal reports whether the state can no longer be left automatically.
func (s State) Terminal() bool {
	return s == StateMigrated || s == StateMigratedWithErrors
}

// Result reports one migration attempt. Success is false if either the cart
// or the shipping sub-migration recorded an error; the other one may still
// have migrated.
type Result struct {
	Success          bool     `json:"success"`
	CartMigrated     bool     `json:"cartMigrated"`
	ShippingMigrated bool     `json:"shippingMigrated"`
	Errors           []string `json:"errors"`
	// AlreadyMigrated is set on the neutral result returned for a session
	// that reached a terminal state earlier.
	AlreadyMigrated bool `json:"alreadyMigrated"`
}

// CartStore is the session cart store the migrator fills.
type CartStore interface {
	GetCart(ctx context.Context) ([]models.CartItem, error)
	SaveCart(ctx context.Context, items []models.CartItem) error
	GetShipping(ctx context.Context) (*models.ShippingSelection, error)
	SaveShipping(ctx context.Context, info models.ShippingSelection) error
}

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "adega_cart_migrations_total",
	Help: "Legacy cart migration attempts by outcome",
}, []string{"outcome"})

// Migrator drains the legacy area into the session cart store.
type Migrator struct {
	legacy  *kv.Store
	session *kv.Store
	carts   CartStore
	logger  *slog.Logger
}

func New(legacy, session *kv.Store, carts CartStore, logger *slog.Logger) *Migrator {
	return &Migrator{legacy: legacy, session: session, carts: carts, logger: logger}
}

// State reads the persisted state. Unreadable or unknown values count as not
// migrated.
func (m *Migrator) State(ctx context.Context) State {
	state, err := kv.Get(ctx, m.session, StateKey, StateNotMigrated)
	if err != nil {
		return StateNotMigrated
	}
	switch state {
	case StateMigrated, StateMigratedWithErrors:
		return state
	default:
		return StateNotMigrated
	}
}

// Run performs the one-shot migration. The terminal state is written even
// when sub-migrations fail so corrupted legacy data is never retried.
func (m *Migrator) Run(ctx context.Context) Result {
	if m.State(ctx).Terminal() {
		runsTotal.WithLabelValues("skipped").Inc()
		return Result{Success: true, AlreadyMigrated: true, Errors: []string{}}
	}

	res := Result{Success: true, Errors: []string{}}
	m.migrateCart(ctx, &res)
	m.migrateShipping(ctx, &res)

	if res.CartMigrated || res.ShippingMigrated {
		m.dropLegacyKeys(ctx)
	}

	state := StateMigrated
	if !res.Success {
		state = StateMigratedWithErrors
	}
	if err := m.session.Set(ctx, StateKey, state); err != nil {
		m.logger.WarnContext(ctx, "failed to persist migration state", "state", state, "error", err)
	}
	runsTotal.WithLabelValues(string(state)).Inc()

	if !res.Success {
		m.logger.WarnContext(ctx, "legacy cart migration finished with errors",
			"cart_migrated", res.CartMigrated,
			"shipping_migrated", res.ShippingMigrated,
			"errors", res.Errors,
		)
	} else if res.CartMigrated || res.ShippingMigrated {
		m.logger.InfoContext(ctx, "legacy cart migrated",
			"cart_migrated", res.CartMigrated,
			"shipping_migrated", res.ShippingMigrated,
		)
	}
	return res
}

// Rerun is the explicit operator action: it resets the state and runs again.
func (m *Migrator) Rerun(ctx context.Context) Result {
	if err := m.session.Delete(ctx, StateKey); err != nil {
		m.logger.WarnContext(ctx, "failed to reset migration state", "error", err)
	}
	return m.Run(ctx)
}

func (m *Migrator) migrateCart(ctx context.Context, res *Result) {
	raw, found, err := m.legacy.Raw(ctx, LegacyCartKey)
	if err != nil {
		res.fail(fmt.Sprintf("Falha ao ler cart legado: %v", err))
		return
	}
	if !found {
		return
	}

	legacyItems, err := decodeLegacyCart(raw)
	if err != nil {
		res.fail(fmt.Sprintf("Dados corrompidos: cart legado inválido (%v)", err))
		return
	}

	current, _ := m.carts.GetCart(ctx)
	merged := current
	for _, item := range legacyItems {
		if err := item.Validate(); err != nil {
			m.logger.WarnContext(ctx, "skipping invalid legacy cart line", "error", err)
			continue
		}
		if models.IndexOf(merged, item.ID) >= 0 {
			continue
		}
		merged = append(merged, item)
	}
	if len(merged) == len(current) {
		return
	}

	if err := m.carts.SaveCart(ctx, merged); err != nil {
		res.fail(fmt.Sprintf("Falha ao salvar cart migrado: %v", err))
		return
	}
	res.CartMigrated = true
}

func (m *Migrator) migrateShipping(ctx context.Context, res *Result) {
	raw, found, err := m.legacy.Raw(ctx, LegacyShippingKey)
	if err != nil {
		res.fail(fmt.Sprintf("Falha ao ler shipping legado: %v", err))
		return
	}
	if !found {
		return
	}

	info, err := decodeLegacyShipping(raw)
	if err != nil {
		res.fail(fmt.Sprintf("Dados corrompidos: shipping legado inválido (%v)", err))
		return
	}

	if existing, _ := m.carts.GetShipping(ctx); existing != nil && existing.IsValid {
		return
	}
	if err := m.carts.SaveShipping(ctx, info); err != nil {
		res.fail(fmt.Sprintf("Falha ao salvar shipping migrado: %v", err))
		return
	}
	res.ShippingMigrated = true
}

func (m *Migrator) dropLegacyKeys(ctx context.Context) {
	for _, key := range []string{LegacyCartKey, LegacyShippingKey} {
		if err := m.legacy.Delete(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "failed to remove legacy key after migration", "key", key, "error", err)
		}
	}
}

func (r *Result) fail(msg string) {
	r.Success = false
	r.Errors = append(r.Errors, msg)
}

func decodeLegacyCart(raw string) ([]models.CartItem, error) {
	if !startsWith(raw, '[') {
		return nil, fmt.Errorf("expected an array")
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeLegacyShipping(raw string) (models.ShippingSelection, error) {
	var info models.ShippingSelection
	if !startsWith(raw, '{') {
		return info, fmt.Errorf("expected an object")
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return info, err
	}
	if err := info.Validate(); err != nil {
		return info, err
	}
	return info, nil
}

func startsWith(raw string, c byte) bool {
	trimmed := bytes.TrimSpace([]byte(raw))
	return len(trimmed) > 0 && trimmed[0] == c
}

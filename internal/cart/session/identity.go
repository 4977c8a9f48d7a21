// Package session resolves the random identity that namespaces every cart
// record of a tab session.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"adega/internal/storage/kv"
)

// IdentityKey holds the session id inside the tab's storage area.
const IdentityKey = "session-id"

// Identity hands out the session id of one storage area. The id is resolved
// on first use and then cached for the lifetime of the Identity.
type Identity struct {
	store  *kv.Store
	logger *slog.Logger
	id     string
}

func NewIdentity(store *kv.Store, logger *slog.Logger) *Identity {
	return &Identity{store: store, logger: logger}
}

// ID returns the session id, generating and persisting a UUIDv4 on first use.
// When storage is unavailable the id lives only in memory.
func (i *Identity) ID(ctx context.Context) string {
	if i.id != "" {
		return i.id
	}

	stored, err := kv.Get(ctx, i.store, IdentityKey, "")
	if err == nil && isSessionID(stored) {
		i.bind(stored)
		return i.id
	}

	id := uuid.NewString()
	if err := i.store.Set(ctx, IdentityKey, id); err != nil {
		i.logger.WarnContext(ctx, "session identity kept in memory only", "error", err)
	}
	i.bind(id)
	return i.id
}

func (i *Identity) bind(id string) {
	i.id = id
	i.store.BindOwner(id)
}

func isSessionID(v string) bool {
	if v == "" {
		return false
	}
	parsed, err := uuid.Parse(v)
	return err == nil && parsed != uuid.Nil
}

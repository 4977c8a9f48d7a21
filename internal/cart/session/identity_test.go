package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adega/internal/storage/kv"
)

type readOnlyBackend struct{ *kv.MemoryBackend }

func (readOnlyBackend) Set(context.Context, string, string) error {
	return errors.New("read only")
}

func newStore(t *testing.T, backend kv.Backend) *kv.Store {
	t.Helper()
	return kv.New(context.Background(), backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("generates a v4 id and persists it", func(t *testing.T) {
		backend := kv.NewMemoryBackend(0)
		identity := NewIdentity(newStore(t, backend), logger)

		id := identity.ID(ctx)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())

		raw, err := backend.Get(ctx, IdentityKey)
		require.NoError(t, err)
		assert.Equal(t, `"`+id+`"`, raw)
	})

	t.Run("is stable within one instance and across instances of the same area", func(t *testing.T) {
		backend := kv.NewMemoryBackend(0)
		first := NewIdentity(newStore(t, backend), logger)
		id := first.ID(ctx)
		assert.Equal(t, id, first.ID(ctx))

		second := NewIdentity(newStore(t, backend), logger)
		assert.Equal(t, id, second.ID(ctx))
	})

	t.Run("replaces a stored value that is not a session id", func(t *testing.T) {
		backend := kv.NewMemoryBackend(0)
		require.NoError(t, backend.Set(ctx, IdentityKey, `"not-a-uuid"`))

		id := NewIdentity(newStore(t, backend), logger).ID(ctx)
		assert.NotEqual(t, "not-a-uuid", id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("falls back to an in-memory id when storage is unavailable", func(t *testing.T) {
		store := newStore(t, readOnlyBackend{kv.NewMemoryBackend(0)})
		require.False(t, store.Available())

		identity := NewIdentity(store, logger)
		id := identity.ID(ctx)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, identity.ID(ctx))
	})
}

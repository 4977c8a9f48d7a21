package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"adega/pkg/platform/sentinel"
)

const probeKey = "__adega_storage_probe__"

// Store is the JSON key/value store over one storage area.
//
// Nothing here panics or propagates storage faults as fatal: reads fall back
// to the caller's default and writes report a classified error. The error is
// informative; the value returned alongside it is always safe to use.
type Store struct {
	backend   Backend
	logger    *slog.Logger
	available bool

	// owner is the session id whose scoped keys survive quota eviction.
	owner         string
	ownedPrefixes []string
}

// Option configures a Store.
type Option func(*Store)

// WithOwnedPrefixes declares the key prefixes that are suffixed with a session
// id. On quota exhaustion, keys with these prefixes whose suffix is a session
// id other than the bound owner are evicted. Fixed keys that merely share a
// prefix are never touched.
func WithOwnedPrefixes(prefixes ...string) Option {
	return func(s *Store) {
		s.ownedPrefixes = append(s.ownedPrefixes, prefixes...)
	}
}

// New wraps backend and probes it once with a sentinel write and delete.
// A failed probe leaves the store in degraded mode for its whole lifetime.
func New(ctx context.Context, backend Backend, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.available = s.probe(ctx)
	if !s.available {
		unavailableAreasTotal.Inc()
	}
	return s
}

func (s *Store) probe(ctx context.Context) bool {
	if s.backend == nil {
		return false
	}
	if err := s.backend.Set(ctx, probeKey, probeKey); err != nil {
		s.logger.WarnContext(ctx, "storage unavailable, running in memory-only mode", "error", err)
		return false
	}
	if err := s.backend.Delete(ctx, probeKey); err != nil {
		s.logger.WarnContext(ctx, "storage unavailable, running in memory-only mode", "error", err)
		return false
	}
	return true
}

// Available reports whether the probe at construction succeeded.
func (s *Store) Available() bool {
	return s.available
}

// BindOwner records the current session id for quota eviction.
func (s *Store) BindOwner(sessionID string) {
	s.owner = sessionID
}

// Get reads key and decodes it into T. Absent keys yield def with no error.
// Undecodable values are deleted and yield def with ErrCorrupted.
func Get[T any](ctx context.Context, s *Store, key string, def T) (T, error) {
	raw, found, err := s.Raw(ctx, key)
	if err != nil || !found {
		return def, err
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		corruptedEntriesTotal.Inc()
		s.logger.WarnContext(ctx, "discarding corrupted storage entry",
			"key", key,
			"error", err,
		)
		if delErr := s.backend.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete corrupted storage entry",
				"key", key,
				"error", delErr,
			)
		}
		return def, fmt.Errorf("%w: %s: %v", ErrCorrupted, key, err)
	}
	return v, nil
}

// Raw returns the stored string for key without decoding it.
func (s *Store) Raw(ctx context.Context, key string) (string, bool, error) {
	if !s.available {
		return "", false, sentinel.ErrUnavailable
	}
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "storage read failed", "key", key, "error", err)
		return "", false, err
	}
	return raw, true, nil
}

// Set encodes value as JSON and writes it. When the area is full it evicts the
// scoped keys of other sessions and retries exactly once.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if !s.available {
		return sentinel.ErrUnavailable
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = s.backend.Set(ctx, key, string(data))
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		s.logger.WarnContext(ctx, "storage write failed", "key", key, "error", err)
		return err
	}

	evicted := s.evictForeignSessions(ctx)
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		quotaExhaustedTotal.Inc()
		s.logger.WarnContext(ctx, "storage quota exceeded after cleanup, value not persisted",
			"key", key,
			"evicted", evicted,
			"error", err,
		)
		if !errors.Is(err, ErrQuotaExceeded) {
			return err
		}
		return fmt.Errorf("set %s: %w", key, ErrQuotaExceeded)
	}
	s.logger.InfoContext(ctx, "storage quota recovered by evicting foreign sessions",
		"key", key,
		"evicted", evicted,
	)
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.available {
		return sentinel.ErrUnavailable
	}
	return s.backend.Delete(ctx, key)
}

func (s *Store) evictForeignSessions(ctx context.Context) int {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot list keys for quota cleanup", "error", err)
		return 0
	}

	evicted := 0
	for _, key := range keys {
		if !s.isForeign(key) {
			continue
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "quota cleanup failed to delete key", "key", key, "error", err)
			continue
		}
		evicted++
	}
	quotaEvictionsTotal.Add(float64(evicted))
	return evicted
}

func (s *Store) isForeign(key string) bool {
	for _, prefix := range s.ownedPrefixes {
		suffix, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		if _, err := uuid.Parse(suffix); err != nil {
			return false
		}
		return suffix != s.owner
	}
	return false
}

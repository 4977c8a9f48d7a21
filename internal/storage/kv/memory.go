package kv

import (
	"context"
	"sort"
	"sync"
	"time"

	"adega/pkg/platform/sentinel"
)

// MemoryBackend keeps an area in process memory with an optional byte quota,
// mirroring the size limit browsers put on session storage.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]string
	used    int
	quota   int
}

// NewMemoryBackend creates an empty area. quotaBytes <= 0 disables the quota.
func NewMemoryBackend(quotaBytes int) *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]string),
		quota:   quotaBytes,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delta := len(key) + len(value)
	if old, ok := m.entries[key]; ok {
		delta -= len(key) + len(old)
	}
	if m.quota > 0 && m.used+delta > m.quota {
		return ErrQuotaExceeded
	}
	m.entries[key] = value
	m.used += delta
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Used returns the bytes currently held.
func (m *MemoryBackend) Used() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

// MemoryAreas allocates one MemoryBackend per area id on first use. With an
// idle TTL, areas untouched for longer than the TTL are dropped by
// ReclaimIdle, the in-process counterpart of the Redis key expiry.
type MemoryAreas struct {
	mu       sync.Mutex
	areas    map[string]*MemoryBackend
	lastUsed map[string]time.Time
	quota    int
	idleTTL  time.Duration
}

// MemoryAreasOption configures MemoryAreas.
type MemoryAreasOption func(*MemoryAreas)

// WithIdleTTL sets how long an unused area is kept. Zero keeps areas forever.
func WithIdleTTL(ttl time.Duration) MemoryAreasOption {
	return func(a *MemoryAreas) {
		a.idleTTL = ttl
	}
}

func NewMemoryAreas(quotaBytes int, opts ...MemoryAreasOption) *MemoryAreas {
	a := &MemoryAreas{
		areas:    make(map[string]*MemoryBackend),
		lastUsed: make(map[string]time.Time),
		quota:    quotaBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *MemoryAreas) Area(id string) Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	area, ok := a.areas[id]
	if !ok {
		area = NewMemoryBackend(a.quota)
		a.areas[id] = area
	}
	a.lastUsed[id] = time.Now()
	return area
}

// ReclaimIdle drops every area last handed out before now minus the idle TTL
// and returns how many were dropped.
func (a *MemoryAreas) ReclaimIdle(now time.Time) int {
	if a.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-a.idleTTL)

	a.mu.Lock()
	defer a.mu.Unlock()
	reclaimed := 0
	for id, used := range a.lastUsed {
		if used.After(cutoff) {
			continue
		}
		delete(a.areas, id)
		delete(a.lastUsed, id)
		reclaimed++
	}
	return reclaimed
}

// Len returns the number of live areas.
func (a *MemoryAreas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.areas)
}

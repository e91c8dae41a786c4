// Package cache stores short-lived derived read models, such as the top-rated
// fallback list, outside the database.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	// TopRatedKey holds the catalogue-wide top-rated list used as the recommendation
	// fallback. Any media average change invalidates it.
	TopRatedKey = "media:top-rated"
	// TopRatedGenerationKey counts top-rated invalidations. A cached list is only
	// valid for the generation it was loaded under.
	TopRatedGenerationKey = "media:top-rated:gen"
)

// Cache is a byte-oriented key/value store with expiry. Get reports found=false on a miss.
// Incr atomically adds one to an integer counter stored without expiry, starting from zero.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Generation reads a counter maintained with Incr. A missing counter is zero.
func Generation(ctx context.Context, c Cache, key string) (int64, error) {
	raw, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return 0, err
	}
	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %s: %w", key, err)
	}
	return gen, nil
}

// InvalidateTopRated moves the top-rated list to a new generation and drops the
// current entry. A writer that loaded under an older generation can no longer
// publish a list readers accept.
func InvalidateTopRated(ctx context.Context, c Cache) error {
	if _, err := c.Incr(ctx, TopRatedGenerationKey); err != nil {
		return fmt.Errorf("bump top-rated generation: %w", err)
	}
	return c.Delete(ctx, TopRatedKey)
}

// Nop never stores anything. It is used when no cache backend is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error                  { return nil }
func (Nop) Incr(context.Context, string) (int64, error)              { return 0, nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. It suits tests and single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if e, ok := m.entries[key]; ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr %s: value is not an integer", key)
		}
		n = parsed
	}
	n++
	m.entries[key] = memoryEntry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

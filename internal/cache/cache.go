// Package cache memoizes evaluator results keyed by instance checksum and
// solution encoding.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"vesselpdp/internal/opt"
)

// Cache stores evaluation results. A miss is (zero, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (opt.Result, bool, error)
	Set(ctx context.Context, key string, res opt.Result) error
}

// Key identifies the evaluation of sol against the instance with the given
// checksum.
func Key(checksum string, sol opt.Solution) string {
	h := sha256.New()
	h.Write([]byte(checksum))
	h.Write([]byte{0})
	h.Write([]byte(sol.String()))
	return "eval:" + hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	res     opt.Result
	expires time.Time
}

// Memory is a process-local cache with per-entry expiry. A zero ttl keeps
// entries forever.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns a cache holding at most limit entries (unbounded when
// limit <= 0).
func NewMemory(ttl time.Duration, limit int) *Memory {
	return &Memory{ttl: ttl, limit: limit, entries: map[string]entry{}, now: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string) (opt.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return opt.Result{}, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return opt.Result{}, false, nil
	}
	return e.res, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, res opt.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && len(m.entries) >= m.limit {
		if _, ok := m.entries[key]; !ok {
			m.evict()
		}
	}
	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	m.entries[key] = entry{res: res, expires: exp}
	return nil
}

// evict drops expired entries, or an arbitrary one if none has expired.
func (m *Memory) evict() {
	now := m.now()
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.limit {
		return
	}
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

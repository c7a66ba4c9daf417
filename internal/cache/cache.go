package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

const DefaultTTL = 5 * time.Minute

// Cache memoizes severity predictions.
type Cache interface {
	Get(ctx context.Context, key t.SeverityKey) (float64, bool)
	Put(ctx context.Context, key t.SeverityKey, severity float64)
}

// Expiring is a Cache that also reports how long an entry has left to live.
type Expiring interface {
	Cache
	GetTTL(ctx context.Context, key t.SeverityKey) (float64, time.Duration, bool)
}

type Clock func() time.Time

type entry struct {
	key      t.SeverityKey
	severity float64
	storedAt time.Time
}

type Option func(*Memory)

func ClockOption(clock Clock) Option {
	return func(m *Memory) {
		m.now = clock
	}
}

// CapacityOption bounds the number of entries. Zero means unbounded.
func CapacityOption(capacity int) Option {
	return func(m *Memory) {
		m.capacity = capacity
	}
}

// Memory is an in-process TTL cache. Entries are kept in insertion order so
// the oldest can be evicted when the cache is full.
type Memory struct {
	ttl      time.Duration
	capacity int
	now      Clock

	mu      sync.Mutex
	entries map[t.SeverityKey]*list.Element
	order   *list.List
}

func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	m := &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[t.SeverityKey]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	return m
}

func (m *Memory) Get(_ context.Context, key t.SeverityKey) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return 0, false
	}
	e := el.Value.(*entry)
	if m.now().Sub(e.storedAt) >= m.ttl {
		return 0, false
	}
	return e.severity, true
}

// GetTTL returns the entry and the time left before it expires.
func (m *Memory) GetTTL(_ context.Context, key t.SeverityKey) (float64, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return 0, 0, false
	}
	e := el.Value.(*entry)
	remaining := m.ttl - m.now().Sub(e.storedAt)
	if remaining <= 0 {
		return 0, 0, false
	}
	return e.severity, remaining, true
}

func (m *Memory) Put(_ context.Context, key t.SeverityKey, severity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.putLocked(key, severity, now, now)
}

// PutTTL stores an entry that expires after ttl rather than the cache's full
// lifetime. ttl is capped at the cache's own TTL.
func (m *Memory) PutTTL(_ context.Context, key t.SeverityKey, severity float64, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ttl = min(ttl, m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.putLocked(key, severity, now.Add(ttl-m.ttl), now)
}

func (m *Memory) putLocked(key t.SeverityKey, severity float64, storedAt, now time.Time) {
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*entry)
		e.severity = severity
		e.storedAt = storedAt
		m.order.MoveToBack(el)
		return
	}

	if m.capacity > 0 && m.order.Len() >= m.capacity {
		m.sweepLocked(now)
		for m.order.Len() >= m.capacity {
			m.removeLocked(m.order.Front())
		}
	}
	m.entries[key] = m.order.PushBack(&entry{key: key, severity: severity, storedAt: storedAt})
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// sweepLocked walks every entry since PutTTL can insert entries out of
// storedAt order.
func (m *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*entry).storedAt) >= m.ttl {
			m.removeLocked(el)
			removed++
		}
		el = next
	}
	return removed
}

func (m *Memory) removeLocked(el *list.Element) {
	e := m.order.Remove(el).(*entry)
	delete(m.entries, e.key)
}

// Tiered consults a local cache first and falls back to a shared one. A
// shared hit is copied into the local cache for the shared entry's remaining
// lifetime, so an entry never outlives the TTL of its original fetch.
type Tiered struct {
	Local  *Memory
	Shared Expiring
}

func (c *Tiered) Get(ctx context.Context, key t.SeverityKey) (float64, bool) {
	if v, ok := c.Local.Get(ctx, key); ok {
		return v, true
	}
	v, remaining, ok := c.Shared.GetTTL(ctx, key)
	if !ok {
		return 0, false
	}
	c.Local.PutTTL(ctx, key, v, remaining)
	return v, true
}

func (c *Tiered) Put(ctx context.Context, key t.SeverityKey, severity float64) {
	c.Local.Put(ctx, key, severity)
	c.Shared.Put(ctx, key, severity)
}

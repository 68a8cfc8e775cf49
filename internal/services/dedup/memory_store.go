package dedup

import (
	"context"
	"sync"
	"time"

	"SignalForge/internal/domain/repository"
)

var _ repository.CooldownStore = (*MemoryStore)(nil)

type entry struct {
	firedAt time.Time
	expires time.Time
}

const defaultSweepEvery = time.Minute

// MemoryStore is a process-local cooldown store. One mutex serializes all keys,
// which keeps check-then-set atomic. Expired entries are swept from Acquire at
// most once per sweep interval of store time.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]entry
	sweepEvery time.Duration
	nextSweep  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), sweepEvery: defaultSweepEvery}
}

func (m *MemoryStore) Acquire(_ context.Context, key string, now time.Time, window time.Duration) (bool, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !now.Before(m.nextSweep) {
		m.sweepLocked(now)
		m.nextSweep = now.Add(m.sweepEvery)
	}
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		return false, e.firedAt, nil
	}
	m.entries[key] = entry{firedAt: now, expires: now.Add(window)}
	return true, now, nil
}

// Sweep drops entries whose window has elapsed at now and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(now)
}

func (m *MemoryStore) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMemoryTTL = 24 * time.Hour

type MemoryOption func(*MemoryCache)

func WithMemoryMaxSize(n int) MemoryOption {
	return func(mc *MemoryCache) {
		if n > 0 {
			mc.maxSize = n
		}
	}
}

// WithMemoryCleanup sets the sweep interval for expired entries; 0 disables it.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(mc *MemoryCache) { mc.sweep = interval }
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(mc *MemoryCache) { mc.now = now }
}

type entry struct {
	key      string
	data     []byte
	expireAt time.Time
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	sweep   time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

var _ Service = (*MemoryCache)(nil)

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 1000,
		sweep:   5 * time.Minute,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	if mc.sweep > 0 {
		go mc.sweepLoop()
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	exp := mc.now().Add(ttl)
	if el, ok := mc.items[key]; ok {
		e := el.Value.(*entry)
		e.data, e.expireAt = data, exp
		mc.order.MoveToFront(el)
		return nil
	}
	for mc.order.Len() >= mc.maxSize {
		mc.removeElement(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&entry{key: key, data: data, expireAt: exp})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.items[key]
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e := el.Value.(*entry)
	if !mc.now().Before(e.expireAt) {
		mc.removeElement(el)
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := e.data
	mc.mu.Unlock()

	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.items, el.Value.(*entry).key)
}

func (mc *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(mc.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for el := mc.order.Back(); el != nil; {
				prev := el.Prev()
				if !now.Before(el.Value.(*entry).expireAt) {
					mc.removeElement(el)
				}
				el = prev
			}
			mc.mu.Unlock()
		case <-mc.stop:
			return
		}
	}
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}

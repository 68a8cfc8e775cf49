package usecase

import (
	"strings"
	"sync"

	"SignalForge/internal/domain/models"
)

// SignalBook keeps the most recent emitted signals in memory, newest last.
type SignalBook struct {
	mu   sync.RWMutex
	buf  []models.Signal
	size int
}

func NewSignalBook(size int) *SignalBook {
	if size <= 0 {
		size = 500
	}
	return &SignalBook{size: size}
}

func (b *SignalBook) Add(sigs ...models.Signal) {
	if len(sigs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, sigs...)
	if over := len(b.buf) - b.size; over > 0 {
		b.buf = append([]models.Signal(nil), b.buf[over:]...)
	}
}

// Recent returns up to limit signals, newest first. An empty symbol matches all.
func (b *SignalBook) Recent(symbol string, limit int, masterOnly bool) []models.Signal {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Signal, 0, limit)
	for i := len(b.buf) - 1; i >= 0 && len(out) < limit; i-- {
		s := b.buf[i]
		if symbol != "" && s.Symbol != symbol {
			continue
		}
		if masterOnly && !s.IsMaster {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (b *SignalBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buf)
}

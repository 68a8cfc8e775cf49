package usecase

import (
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
)

// QuoteBook folds live prints into per-symbol quotes. A print from a new
// session day rolls the previous last price into PrevClose.
type QuoteBook struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
	loc    *time.Location
}

func NewQuoteBook(loc *time.Location) *QuoteBook {
	if loc == nil {
		loc = time.UTC
	}
	return &QuoteBook{quotes: make(map[string]models.Quote), loc: loc}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Apply records one print. Prints older than the current quote are ignored.
func (b *QuoteBook) Apply(p models.Print) {
	if p.Price <= 0 || p.Symbol == "" {
		return
	}
	sym := strings.ToUpper(p.Symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quotes[sym]
	switch {
	case !ok:
		q = models.Quote{Symbol: sym, SessionOpen: p.Price}
	case p.Timestamp.Before(q.Timestamp):
		return
	case !sameDay(q.Timestamp, p.Timestamp, b.loc):
		q.PrevClose = q.Price
		q.SessionOpen = p.Price
		q.Volume = 0
	}
	q.Price = p.Price
	q.Volume += p.Size
	q.Timestamp = p.Timestamp
	b.quotes[sym] = q
}

func (b *QuoteBook) Get(symbol string) (models.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// SetPrevClose fills the previous close when the stream has not seen it.
func (b *QuoteBook) SetPrevClose(symbol string, v float64) {
	sym := strings.ToUpper(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.quotes[sym]; ok && q.PrevClose <= 0 {
		q.PrevClose = v
		b.quotes[sym] = q
	}
}

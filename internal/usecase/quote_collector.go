package usecase

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// QuoteCollector feeds the quote book from a live stream and reconnects on failure.
type QuoteCollector struct {
	stream  drepo.QuoteStream
	book    *QuoteBook
	bars    *BarAggregator
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewQuoteCollector wires the stream to the book. bars may be nil when prints
// are not persisted.
func NewQuoteCollector(stream drepo.QuoteStream, book *QuoteBook, bars *BarAggregator, metrics drepo.Metrics, log *applogger.Logger) *QuoteCollector {
	if log == nil {
		log = applogger.Nop()
	}
	return &QuoteCollector{stream: stream, book: book, bars: bars, metrics: metrics, log: log}
}

func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	prints, errs := c.stream.Read(ctx)
	go c.consume(ctx, prints, errs)
	if c.bars != nil {
		go c.bars.Run(ctx, 5*time.Second)
	}
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, prints <-chan models.Print, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.log.Warn("quote stream failed, reconnecting", applogger.Error(err))
			if !c.reconnect(ctx) {
				return
			}
			prints, errs = c.stream.Read(ctx)
		case p, ok := <-prints:
			if !ok {
				prints = nil
				continue
			}
			c.book.Apply(p)
			if c.bars != nil {
				c.bars.Add(p)
			}
			c.metrics.RecordLastPrice(p.Symbol, p.Price)
		}
	}
}

// reconnect retries until it succeeds or ctx ends.
func (c *QuoteCollector) reconnect(ctx context.Context) bool {
	for ctx.Err() == nil {
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			c.log.Warn("quote stream reconnect failed", applogger.Error(err))
			continue
		}
		c.log.Info("quote stream reconnected")
		return true
	}
	return false
}

func (c *QuoteCollector) Shutdown(context.Context) error {
	return c.stream.Close()
}

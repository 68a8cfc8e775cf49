package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/service/ratelimit"
	applogger "SignalForge/pkg/logger"
)

var _ domrepo.AlertManager = (*AlertPipeline)(nil)

// AlertPipeline sits between the scanner and the alert backend. It validates,
// throttles per symbol, and buffers signals while the backend is failing.
type AlertPipeline struct {
	next    domrepo.AlertManager
	metrics domrepo.Metrics
	log     *applogger.Logger
	perMin  float64
	burst   int
	bufSize int
	backoff time.Duration
	limiter *ratelimit.Limiter
	bufCh   chan models.Signal
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

type PipelineOption func(*AlertPipeline)

// WithMaxPerMinute caps delivered alerts per symbol per minute. Zero disables throttling.
func WithMaxPerMinute(n int, burst int) PipelineOption {
	return func(p *AlertPipeline) {
		if n >= 0 {
			p.perMin = float64(n)
		}
		if burst > 0 {
			p.burst = burst
		}
	}
}

func WithBufferSize(n int) PipelineOption {
	return func(p *AlertPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func WithRetryBackoff(d time.Duration) PipelineOption {
	return func(p *AlertPipeline) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *AlertPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewAlertPipeline(next domrepo.AlertManager, metrics domrepo.Metrics, opts ...PipelineOption) *AlertPipeline {
	p := &AlertPipeline{
		next:    next,
		metrics: metrics,
		log:     applogger.Nop(),
		perMin:  30,
		burst:   5,
		bufSize: 1000,
		backoff: 50 * time.Millisecond,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	rps := p.perMin / 60
	if p.perMin == 0 {
		rps = math.Inf(1)
	}
	p.limiter = ratelimit.New(rps, p.burst)
	p.bufCh = make(chan models.Signal, p.bufSize)
	return p
}

// Start launches the retry loop for buffered signals.
func (p *AlertPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := p.backoff
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case s := <-p.bufCh:
				if err := p.next.Emit(ctx, s); err != nil {
					p.metrics.RecordError("alert_retry")
					if backoff < 2*time.Second {
						backoff *= 2
					}
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("alert_buffer_drop")
						p.log.Error("alert dropped after retry", applogger.String("id", s.ID), applogger.Error(err))
					}
					continue
				}
				backoff = p.backoff
			}
		}
	}()
}

// Stop ends the retry loop. Signals still buffered are reported and discarded.
func (p *AlertPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("alert pipeline stopped with buffered signals", applogger.Int("pending", n))
	}
}

// Pending reports how many signals wait for retry.
func (p *AlertPipeline) Pending() int { return len(p.bufCh) }

// Emit validates and throttles s, then forwards it. A backend failure buffers the
// signal for retry and is returned to the caller.
func (p *AlertPipeline) Emit(ctx context.Context, s models.Signal) error {
	start := time.Now()
	if err := validateSignal(s); err != nil {
		p.metrics.RecordError("alert_validate")
		return err
	}
	if !p.limiter.Allow(s.Symbol) {
		p.metrics.RecordError("alert_throttle")
		p.log.Debug("alert throttled", applogger.Symbol(s.Symbol), applogger.String("id", s.ID))
		return nil
	}
	if err := p.next.Emit(ctx, s); err != nil {
		p.metrics.RecordError("alert_emit")
		select {
		case p.bufCh <- s:
			p.metrics.RecordLatency("alert_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("alert_buffer_full")
		}
		return fmt.Errorf("alert downstream: %w", err)
	}
	p.metrics.RecordLatency("alert_pipeline", time.Since(start).Seconds())
	return nil
}

func validateSignal(s models.Signal) error {
	if s.Symbol == "" {
		return fmt.Errorf("signal symbol empty")
	}
	if s.ID == "" {
		return fmt.Errorf("signal %s has no id", s.Symbol)
	}
	if !s.ValidPrices() {
		return fmt.Errorf("signal %s: stop/entry/target out of order for %s", s.ID, s.Action)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal %s: confidence %v out of range", s.ID, s.Confidence)
	}
	return nil
}

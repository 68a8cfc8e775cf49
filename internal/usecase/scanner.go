package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

type ScannerConfig struct {
	Symbols       []string      `yaml:"symbols"`
	Interval      time.Duration `yaml:"interval" default:"1m"`
	Workers       int           `yaml:"workers" default:"4"`
	SymbolTimeout time.Duration `yaml:"symbol_timeout" default:"30s"`
	MacroTimeout  time.Duration `yaml:"macro_timeout" default:"5s"`
}

// CycleReport summarizes one scan cycle.
type CycleReport struct {
	Started    time.Time
	Regime     models.MacroContext
	Evaluated  int
	Skipped    int
	Emitted    int
	Suppressed int
	Rejected   int
	Aborted    bool
}

// Scanner drives the pipeline on a fixed interval. Symbols are independent and run
// on a bounded worker pool; a shutdown request is honoured between symbols only.
type Scanner struct {
	pipeline *Pipeline
	macro    domrepo.MacroContextProvider
	alerts   domrepo.AlertManager
	book     *SignalBook
	metrics  domrepo.Metrics
	log      *applogger.Logger
	cfg      ScannerConfig

	stopping  atomic.Bool
	lastMacro atomic.Value
}

func NewScanner(
	pipeline *Pipeline,
	macro domrepo.MacroContextProvider,
	alerts domrepo.AlertManager,
	book *SignalBook,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	cfg ScannerConfig,
) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SymbolTimeout <= 0 {
		cfg.SymbolTimeout = 30 * time.Second
	}
	if cfg.MacroTimeout <= 0 {
		cfg.MacroTimeout = 5 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Scanner{
		pipeline: pipeline,
		macro:    macro,
		alerts:   alerts,
		book:     book,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
	}
}

// Stop asks the running cycle to finish the symbols already in flight and return.
func (s *Scanner) Stop() { s.stopping.Store(true) }

func (s *Scanner) Book() *SignalBook { return s.book }

// Run scans immediately and then on every tick until ctx is cancelled or Stop is called.
func (s *Scanner) Run(ctx context.Context) error {
	s.stopping.Store(false)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		rep := s.RunCycle(ctx)
		s.log.Info("scan cycle done",
			applogger.String("regime", string(rep.Regime.Regime)),
			applogger.Time("started", rep.Started),
			applogger.Int("evaluated", rep.Evaluated),
			applogger.Int("skipped", rep.Skipped),
			applogger.Int("emitted", rep.Emitted),
			applogger.Int("suppressed", rep.Suppressed),
			applogger.Int("rejected", rep.Rejected),
			applogger.Duration("duration_ms", time.Since(rep.Started)),
		)
		if s.stopping.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scanner) halted(ctx context.Context) bool {
	return s.stopping.Load() || ctx.Err() != nil
}

// currentMacro fetches the regime once per cycle, reusing the previous one on failure.
func (s *Scanner) currentMacro(ctx context.Context) models.MacroContext {
	mctx, cancel := context.WithTimeout(ctx, s.cfg.MacroTimeout)
	defer cancel()
	m, err := s.macro.GetRegime(mctx)
	if err == nil {
		s.lastMacro.Store(m)
		return m
	}
	s.metrics.RecordError("macro_regime")
	if prev, ok := s.lastMacro.Load().(models.MacroContext); ok {
		s.log.Warn("macro regime unavailable, reusing previous", applogger.Error(err))
		return prev
	}
	s.log.Warn("macro regime unavailable, assuming choppy", applogger.Error(err))
	return models.MacroContext{Regime: models.RegimeChoppy, Source: "default"}
}

// RunCycle evaluates every configured symbol once.
func (s *Scanner) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Started: time.Now()}
	rep.Regime = s.currentMacro(ctx)

	jobs := make(chan string)
	results := make(chan Evaluation)
	var skipped atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				ev, ok := s.evaluate(ctx, sym, rep.Regime)
				if !ok {
					skipped.Add(1)
					continue
				}
				results <- ev
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, sym := range s.cfg.Symbols {
			if s.halted(ctx) {
				return
			}
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for ev := range results {
		rep.Evaluated++
		rep.Emitted += len(ev.Emitted)
		rep.Suppressed += len(ev.Suppressed)
		rep.Rejected += len(ev.Rejected)
		s.deliver(ctx, ev)
	}
	rep.Skipped = int(skipped.Load())
	rep.Aborted = s.halted(ctx) && rep.Evaluated+rep.Skipped < len(s.cfg.Symbols)
	s.metrics.RecordLatency("scan_cycle", time.Since(rep.Started).Seconds())
	return rep
}

// evaluate runs one symbol detached from ctx cancellation so dedup state is never
// half-applied; only the per-symbol timeout bounds it.
func (s *Scanner) evaluate(ctx context.Context, symbol string, macro models.MacroContext) (Evaluation, bool) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SymbolTimeout)
	defer cancel()
	start := time.Now()
	ev, err := s.pipeline.Evaluate(sctx, symbol, macro)
	s.metrics.RecordLatency("symbol_pipeline", time.Since(start).Seconds())
	if err != nil {
		reason := "error"
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			reason = "insufficient_data"
		}
		s.metrics.RecordSymbolSkipped(symbol, reason)
		s.log.Warn("symbol skipped",
			applogger.Symbol(symbol),
			applogger.String("reason", reason),
			applogger.Strings("warnings", ev.Warnings),
			applogger.Error(err),
		)
		return ev, false
	}
	if q := ev.Context.CurrentPrice; q > 0 {
		s.metrics.RecordLastPrice(ev.Symbol, q)
	}
	return ev, true
}

func (s *Scanner) deliver(ctx context.Context, ev Evaluation) {
	for _, sig := range ev.Suppressed {
		s.metrics.RecordSignal(sig.Symbol, sig.Kind, "suppressed")
		s.log.Debug("signal suppressed",
			applogger.Symbol(sig.Symbol),
			applogger.String("action", string(sig.Action)),
			applogger.String("kind", string(sig.Kind)),
			applogger.Strings("warnings", sig.Warnings),
		)
	}
	for _, sig := range ev.Rejected {
		s.metrics.RecordSignal(sig.Symbol, sig.Kind, "rejected")
		s.log.Info("signal rejected",
			applogger.Symbol(sig.Symbol),
			applogger.String("action", string(sig.Action)),
			applogger.String("kind", string(sig.Kind)),
			applogger.Strings("warnings", sig.Warnings),
		)
	}
	if len(ev.Emitted) == 0 {
		return
	}
	dctx := context.WithoutCancel(ctx)
	for _, sig := range ev.Emitted {
		s.metrics.RecordSignal(sig.Symbol, sig.Kind, "emitted")
		if err := s.alerts.Emit(dctx, sig); err != nil {
			s.metrics.RecordError("alert_emit")
			s.log.Error("alert emit failed", applogger.String("id", sig.ID), applogger.Error(err))
		}
	}
	if s.book != nil {
		s.book.Add(ev.Emitted...)
	}
}

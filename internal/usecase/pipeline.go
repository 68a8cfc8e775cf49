package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/confluence"
	"SignalForge/internal/services/dedup"
	"SignalForge/internal/services/institutional"
	"SignalForge/internal/services/normalizer"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/services/signals"
	applogger "SignalForge/pkg/logger"
)

type PipelineConfig struct {
	Location    string            `yaml:"location" default:"America/New_York"`
	BarLookback time.Duration     `yaml:"bar_lookback" default:"90m"`
	DefaultPeer string            `yaml:"default_peer" default:"SPY"`
	Peers       map[string]string `yaml:"peers"`
}

// Snapshot is everything known about one symbol at one instant.
type Snapshot struct {
	Context  models.InstitutionalContext `json:"context"`
	Market   signals.Market              `json:"-"`
	Quote    *models.Quote               `json:"quote,omitempty"`
	Peer     *models.Quote               `json:"peer,omitempty"`
	Warnings []string                    `json:"warnings"`
}

// Evaluation is the outcome of one pipeline pass for a symbol.
type Evaluation struct {
	Symbol     string                            `json:"symbol"`
	Context    models.InstitutionalContext       `json:"context"`
	Candidates int                               `json:"candidates"`
	Emitted    []models.Signal                   `json:"emitted"`
	Suppressed []models.Signal                   `json:"suppressed"`
	Rejected   []models.Signal                   `json:"rejected"`
	Confluence map[string]models.ConfluenceScore `json:"confluence"`
	Warnings   []string                          `json:"warnings"`
}

// Pipeline evaluates one symbol: fetch, normalize, context, generate, confluence,
// dedup, regime filter. Each pass is sequential; only the fetches block.
type Pipeline struct {
	gw      *Gateway
	norm    *normalizer.Normalizer
	builder *institutional.Builder
	gen     *signals.Generator
	calc    *confluence.Calculator
	scorer  *confluence.Scorer
	tracker *dedup.Tracker
	filter  *regime.Filter
	log     *applogger.Logger
	loc     *time.Location
	cfg     PipelineConfig
	now     func() time.Time
}

func NewPipeline(
	gw *Gateway,
	norm *normalizer.Normalizer,
	builder *institutional.Builder,
	gen *signals.Generator,
	scorer *confluence.Scorer,
	tracker *dedup.Tracker,
	filter *regime.Filter,
	log *applogger.Logger,
	cfg PipelineConfig,
) (*Pipeline, error) {
	loc := time.UTC
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("pipeline location: %w", err)
		}
		loc = l
	}
	if cfg.BarLookback <= 0 {
		cfg.BarLookback = 90 * time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Pipeline{
		gw:      gw,
		norm:    norm,
		builder: builder,
		gen:     gen,
		calc:    confluence.NewCalculator(loc),
		scorer:  scorer,
		tracker: tracker,
		filter:  filter,
		log:     log,
		loc:     loc,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

func (p *Pipeline) peerOf(symbol string) string {
	if peer, ok := p.cfg.Peers[symbol]; ok {
		return peer
	}
	if p.cfg.DefaultPeer == symbol {
		return ""
	}
	return p.cfg.DefaultPeer
}

// Snapshot fetches and normalizes all inputs for symbol and builds its context.
// Provider failures become warnings; it fails only with *models.InsufficientDataError.
func (p *Pipeline) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := p.now().In(p.loc)
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.loc)
	var warnings []string
	warn := func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	var snap Snapshot
	quote, stale, err := p.gw.Quote(ctx, symbol)
	switch {
	case err != nil:
		warn("quote unavailable: %v", err)
	case stale:
		warn("quote served from cache")
		fallthrough
	default:
		snap.Quote = &quote
		snap.Market.Quote = quote
	}

	bars, stale, err := p.gw.Bars(ctx, symbol, now.Add(-p.cfg.BarLookback), now)
	switch {
	case err != nil:
		warn("bars unavailable: %v", err)
	case stale:
		warn("bars served from cache")
		fallthrough
	default:
		snap.Market.Bars = bars
	}

	price := snap.Market.Price()
	if price <= 0 {
		snap.Warnings = warnings
		return snap, &models.InsufficientDataError{Symbol: symbol}
	}

	in := institutional.Input{
		Symbol:       symbol,
		Date:         date,
		CurrentPrice: price,
		Stale:        map[models.InputFamily]bool{},
	}
	if snap.Quote != nil {
		in.PriorClose = snap.Quote.PrevClose
	}
	for _, family := range []models.InputFamily{models.FamilyLevels, models.FamilyPrints, models.FamilyOptions, models.FamilyShortInterest} {
		raw, stale, err := p.gw.Institutional(ctx, family, symbol, date)
		if err != nil {
			warn("%s fetch failed: %v", family, err)
			continue
		}
		in.Stale[family] = stale
		var dropped []error
		switch family {
		case models.FamilyLevels:
			in.Levels, dropped = p.norm.Levels(raw)
		case models.FamilyPrints:
			in.Prints, dropped = p.norm.Prints(symbol, raw)
		case models.FamilyOptions:
			in.Options, dropped = p.norm.Options(raw)
		case models.FamilyShortInterest:
			var recs []models.ShortInterestRecord
			recs, dropped = p.norm.ShortInterest(symbol, raw)
			if len(recs) > 0 {
				rec := recs[0]
				in.ShortInterest = &rec
			}
		}
		if len(dropped) > 0 {
			warn("%s: dropped %d malformed records", family, len(dropped))
			for _, e := range dropped {
				p.log.Debug("malformed record", applogger.Symbol(symbol), applogger.Error(e))
			}
		}
	}
	in.Warnings = warnings

	ictx, err := p.builder.Build(in)
	if err != nil {
		snap.Warnings = warnings
		return snap, err
	}
	snap.Context = ictx
	snap.Warnings = ictx.Warnings

	if peer := p.peerOf(symbol); peer != "" {
		if pq, _, err := p.gw.Quote(ctx, peer); err == nil {
			snap.Peer = &pq
		}
	}
	return snap, nil
}

// Evaluate runs one full pass for symbol. Signals that pass every stage are in
// Emitted; the caller delivers them. Dedup state is updated for every scored candidate.
func (p *Pipeline) Evaluate(ctx context.Context, symbol string, macro models.MacroContext) (Evaluation, error) {
	snap, err := p.Snapshot(ctx, symbol)
	ev := Evaluation{
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Context:    snap.Context,
		Confluence: map[string]models.ConfluenceScore{},
		Warnings:   snap.Warnings,
	}
	if err != nil {
		return ev, err
	}

	candidates := p.gen.Generate(snap.Context, snap.Market)
	ev.Candidates = len(candidates)
	scored := make([]models.Signal, 0, len(candidates))
	for _, s := range candidates {
		sub := p.calc.Compute(confluence.Inputs{
			Context:   snap.Context,
			Signal:    s,
			Quote:     snap.Quote,
			PeerQuote: snap.Peer,
			Macro:     &macro,
		})
		cs := p.scorer.Score(sub)
		ev.Confluence[s.ID] = cs
		scored = append(scored, s.WithRationale(fmt.Sprintf("confluence %.0f (%s)", cs.Score, cs.Bias)))
	}

	allowed, suppressed, err := p.tracker.Filter(ctx, scored)
	if err != nil {
		return ev, fmt.Errorf("dedup %s: %w", ev.Symbol, err)
	}
	ev.Suppressed = suppressed
	for _, s := range allowed {
		res := p.filter.Apply(s, ev.Confluence[s.ID].Bias, macro)
		if res.Passed {
			ev.Emitted = append(ev.Emitted, res.Signal)
		} else {
			ev.Rejected = append(ev.Rejected, res.Signal)
		}
	}

	p.log.Debug("symbol evaluated",
		applogger.Symbol(ev.Symbol),
		applogger.Int("candidates", ev.Candidates),
		applogger.Int("emitted", len(ev.Emitted)),
		applogger.Int("suppressed", len(ev.Suppressed)),
		applogger.Int("rejected", len(ev.Rejected)),
		applogger.Float64("completeness", snap.Context.DataCompleteness),
	)
	return ev, nil
}

package institutional

import (
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/levels"
)

// Config holds scoring weights and normalization bounds.
type Config struct {
	ProximityPct float64 `yaml:"proximity_pct" default:"2.0"`
	PrintsWeight float64 `yaml:"prints_weight" default:"0.6"`
	LevelsWeight float64 `yaml:"levels_weight" default:"0.4"`
	// Cached inputs count this much toward data completeness.
	StaleWeight float64 `yaml:"stale_weight" default:"0.5"`
}

func DefaultConfig() Config {
	return Config{ProximityPct: 2.0, PrintsWeight: 0.6, LevelsWeight: 0.4, StaleWeight: 0.5}
}

// Input carries the normalized records for one symbol. Nil or empty means missing.
type Input struct {
	Symbol        string
	Date          time.Time
	CurrentPrice  float64
	PriorClose    float64
	Levels        []models.Level
	Prints        []models.Print
	Options       []models.OptionSnapshot
	ShortInterest *models.ShortInterestRecord
	// Stale marks families served from cache after a provider failure.
	Stale    map[models.InputFamily]bool
	Warnings []string
}

type Builder struct {
	cfg        Config
	classifier *levels.Classifier
}

func NewBuilder(cfg Config, classifier *levels.Classifier) *Builder {
	def := DefaultConfig()
	if cfg.ProximityPct <= 0 {
		cfg.ProximityPct = def.ProximityPct
	}
	if cfg.PrintsWeight <= 0 && cfg.LevelsWeight <= 0 {
		cfg.PrintsWeight, cfg.LevelsWeight = def.PrintsWeight, def.LevelsWeight
	}
	if cfg.StaleWeight <= 0 || cfg.StaleWeight > 1 {
		cfg.StaleWeight = def.StaleWeight
	}
	if classifier == nil {
		classifier = levels.NewClassifier(levels.PolicyPriorSession)
	}
	return &Builder{cfg: cfg, classifier: classifier}
}

// part is one weighted input of a composite score.
type part struct {
	value  float64
	weight float64
	ok     bool
}

// weighted combines the available parts, renormalizing weights over them.
// ok is false when no part is available.
func weighted(parts ...part) (float64, bool) {
	sum, wsum := 0.0, 0.0
	for _, p := range parts {
		if !p.ok || p.weight <= 0 {
			continue
		}
		sum += p.value * p.weight
		wsum += p.weight
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// Build derives the institutional context. Missing families are excluded from
// every score and listed in warnings. Only when all four are missing does it fail.
func (b *Builder) Build(in Input) (models.InstitutionalContext, error) {
	present := map[models.InputFamily]bool{
		models.FamilyLevels:        len(in.Levels) > 0,
		models.FamilyPrints:        len(in.Prints) > 0,
		models.FamilyOptions:       len(in.Options) > 0,
		models.FamilyShortInterest: in.ShortInterest != nil,
	}
	if !present[models.FamilyLevels] && !present[models.FamilyPrints] &&
		!present[models.FamilyOptions] && !present[models.FamilyShortInterest] {
		return models.InstitutionalContext{}, &models.InsufficientDataError{Symbol: in.Symbol}
	}

	ctx := models.InstitutionalContext{
		Symbol:       in.Symbol,
		Date:         in.Date,
		CurrentPrice: in.CurrentPrice,
		Warnings:     append([]string(nil), in.Warnings...),
	}
	warn := func(format string, args ...any) {
		ctx.Warnings = append(ctx.Warnings, fmt.Sprintf(format, args...))
	}

	completeness := 0.0
	for _, f := range []models.InputFamily{models.FamilyLevels, models.FamilyPrints, models.FamilyOptions, models.FamilyShortInterest} {
		switch {
		case !present[f]:
			warn("%s unavailable: excluded from scoring", f)
		case in.Stale[f]:
			completeness += b.cfg.StaleWeight
			warn("%s served from cache", f)
		default:
			completeness += 1
		}
	}
	ctx.DataCompleteness = completeness / 4

	if present[models.FamilyLevels] {
		ctx.Levels = b.classifier.Classify(in.Levels, in.PriorClose, in.CurrentPrice)
		for _, l := range in.Levels {
			if l.Kind == models.LevelBattleground {
				ctx.DPBattlegrounds = append(ctx.DPBattlegrounds, l.Price)
			}
		}
	}

	printsPart := part{weight: b.cfg.PrintsWeight}
	if present[models.FamilyPrints] {
		buy, sell, off, total := 0.0, 0.0, 0.0, 0.0
		for _, p := range in.Prints {
			total += p.Size
			if p.OffExchange {
				off += p.Size
			}
			switch p.Side {
			case models.SideBuy:
				buy += p.Size
			case models.SideSell:
				sell += p.Size
			}
		}
		if total > 0 {
			ctx.DarkPoolPct = off / total * 100
		}
		switch {
		case sell > 0:
			ctx.BuySellRatio = buy / sell
		case buy > 0:
			ctx.BuySellRatio = maxBuySellRatio
		}
		if buy+sell > 0 {
			printsPart.value = 100 * buy / (buy + sell)
			printsPart.ok = true
		} else {
			warn("prints carry no side: buy/sell ratio excluded")
		}
	}

	levelsPart := part{weight: b.cfg.LevelsWeight}
	if len(ctx.Levels) > 0 && in.CurrentPrice > 0 {
		sup, res := 0.0, 0.0
		for _, l := range ctx.Levels {
			prox := 1 - l.DistancePct(in.CurrentPrice)/b.cfg.ProximityPct
			if prox <= 0 {
				continue
			}
			w := float64(l.Volume) * prox
			if l.ActsAsSupport() {
				sup += w
			}
			if l.ActsAsResistance() {
				res += w
			}
		}
		if sup+res > 0 {
			levelsPart.value = 100 * sup / (sup + res)
			levelsPart.ok = true
		}
	}

	if bp, ok := weighted(printsPart, levelsPart); ok {
		ctx.BuyingPressure = clamp(bp, 0, 100)
	} else {
		ctx.BuyingPressure = 50
		warn("buying pressure has no usable inputs: neutral 50")
	}

	if si := in.ShortInterest; si != nil {
		rec := *si
		ctx.ShortInterest = &rec
		ctx.SqueezePotential = squeezePotential(rec)
	} else {
		warn("squeeze potential has no short interest input: 0")
	}

	if summary := SummarizeOptions(in.Options, in.Date); summary != nil {
		ctx.Options = summary
		ctx.GammaPressure = gammaPressure(*summary, in.CurrentPrice)
	} else {
		warn("gamma pressure has no options input: 0")
	}

	return ctx, nil
}

const maxBuySellRatio = 99.0

func squeezePotential(r models.ShortInterestRecord) float64 {
	parts := []part{
		{value: clamp(r.ShortInterestPct/40, 0, 1), weight: 0.40, ok: true},
		{value: clamp(r.BorrowFeePct/50, 0, 1), weight: 0.30, ok: true},
	}
	if r.DaysToCover != nil {
		parts = append(parts, part{value: clamp(*r.DaysToCover/10, 0, 1), weight: 0.15, ok: true})
	}
	if r.FTDSpikeRatio != nil {
		parts = append(parts, part{value: clamp((*r.FTDSpikeRatio-1)/4, 0, 1), weight: 0.15, ok: true})
	}
	v, _ := weighted(parts...)
	return clamp(v*100, 0, 100)
}

// gammaPressure is positive when dealers are likely net long gamma (dampening)
// and negative when positioning is ramp-prone.
func gammaPressure(s models.OptionsSummary, price float64) float64 {
	pcrTerm := 0.0
	if s.PutCallRatio > 0 {
		pcrTerm = clamp((s.PutCallRatio-1)/0.5, -1, 1)
	}
	g := 50 * pcrTerm
	if price > 0 && s.MaxPain > 0 {
		d := (s.MaxPain - price) / price * 100
		dist := math.Min(math.Abs(d)/2, 1)
		g += 30 * (1 - 2*dist)
		g -= 20 * sign(d) * dist
	}
	return clamp(g, -100, 100)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

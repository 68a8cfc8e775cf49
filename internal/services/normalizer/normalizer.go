package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"SignalForge/internal/domain/models"
)

// Config controls derived attributes.
type Config struct {
	// Levels without an explicit strength are rated by volume.
	StrongVolume   float64 `yaml:"strong_volume" default:"5000000"`
	ModerateVolume float64 `yaml:"moderate_volume" default:"1000000"`
}

func DefaultConfig() Config {
	return Config{StrongVolume: 5_000_000, ModerateVolume: 1_000_000}
}

// Normalizer converts provider payloads into canonical records. Every alias a
// provider may use is resolved here, so downstream code sees one shape only.
// Records that cannot be normalized are dropped and reported as *models.MalformedRecordError.
type Normalizer struct {
	cfg Config
}

func New(cfg Config) *Normalizer {
	if cfg.StrongVolume <= 0 || cfg.ModerateVolume <= 0 {
		cfg = DefaultConfig()
	}
	return &Normalizer{cfg: cfg}
}

func malformed(kind string, i int, format string, args ...any) error {
	return &models.MalformedRecordError{Kind: kind, Index: i, Reason: fmt.Sprintf(format, args...)}
}

// Levels normalizes institutional price levels, sorted by price.
func (n *Normalizer) Levels(raw []models.RawRecord) ([]models.Level, []error) {
	var out []models.Level
	var errs []error
	for i, r := range raw {
		price, ok := number(r, "price", "level", "level_price", "px")
		if !ok || price <= 0 {
			errs = append(errs, malformed("level", i, "missing or non-positive price"))
			continue
		}
		vol, ok := number(r, "volume", "total_volume", "size", "shares")
		if !ok || vol < 0 {
			errs = append(errs, malformed("level", i, "missing or negative volume"))
			continue
		}
		kindRaw, ok := text(r, "kind", "type", "level_type", "classification")
		if !ok {
			errs = append(errs, malformed("level", i, "missing kind"))
			continue
		}
		kind, err := models.ParseLevelKind(kindRaw)
		if err != nil {
			errs = append(errs, malformed("level", i, "%v", err))
			continue
		}
		strength := n.strengthFor(vol)
		if s, ok := text(r, "strength", "rating"); ok {
			if parsed, err := models.ParseLevelStrength(s); err == nil {
				strength = parsed
			}
		}
		out = append(out, models.Level{Price: price, Volume: int64(math.Round(vol)), Kind: kind, Strength: strength})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, errs
}

func (n *Normalizer) strengthFor(volume float64) models.LevelStrength {
	switch {
	case volume >= n.cfg.StrongVolume:
		return models.StrengthStrong
	case volume >= n.cfg.ModerateVolume:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

// Options normalizes an options chain.
func (n *Normalizer) Options(raw []models.RawRecord) ([]models.OptionSnapshot, []error) {
	var out []models.OptionSnapshot
	var errs []error
	for i, r := range raw {
		strike, ok := number(r, "strike", "strike_price", "k")
		if !ok || strike <= 0 {
			errs = append(errs, malformed("option", i, "missing or non-positive strike"))
			continue
		}
		exp, ok := timestamp(r, "expiration", "expiry", "expiration_date", "exp")
		if !ok {
			errs = append(errs, malformed("option", i, "missing expiration"))
			continue
		}
		typRaw, ok := text(r, "type", "option_type", "put_call", "cp")
		if !ok {
			errs = append(errs, malformed("option", i, "missing option type"))
			continue
		}
		typ, err := models.ParseOptionType(typRaw)
		if err != nil {
			errs = append(errs, malformed("option", i, "%v", err))
			continue
		}
		vol, _ := number(r, "volume", "vol")
		oi, _ := number(r, "open_interest", "openInterest", "oi")
		if vol < 0 || oi < 0 {
			errs = append(errs, malformed("option", i, "negative volume or open interest"))
			continue
		}
		snap := models.OptionSnapshot{
			Strike:       strike,
			Expiration:   exp,
			Type:         typ,
			Volume:       vol,
			OpenInterest: oi,
		}
		if last, ok := number(r, "last_price", "last", "price", "mark"); ok {
			snap.LastPrice = last
		}
		if iv, ok := number(r, "implied_volatility", "iv", "impliedVolatility"); ok && iv >= 0 {
			snap.ImpliedVolatility = &iv
		}
		out = append(out, snap)
	}
	return out, errs
}

// ShortInterest normalizes short-interest reports, newest first.
func (n *Normalizer) ShortInterest(symbol string, raw []models.RawRecord) ([]models.ShortInterestRecord, []error) {
	var out []models.ShortInterestRecord
	var errs []error
	for i, r := range raw {
		si, ok := number(r, "short_interest_pct", "si_pct", "short_percent_float", "short_interest")
		if !ok || si < 0 {
			errs = append(errs, malformed("short_interest", i, "missing short interest pct"))
			continue
		}
		fee, ok := number(r, "borrow_fee_pct", "borrow_fee", "cost_to_borrow", "ctb")
		if !ok || fee < 0 {
			errs = append(errs, malformed("short_interest", i, "missing borrow fee"))
			continue
		}
		// Fractions (0.22) are converted to percent (22).
		if si > 0 && si < 1 && isFraction(r) {
			si *= 100
		}
		rec := models.ShortInterestRecord{
			Symbol:           symbol,
			ShortInterestPct: si,
			BorrowFeePct:     fee,
		}
		if asOf, ok := timestamp(r, "as_of", "date", "settlement_date", "timestamp"); ok {
			rec.AsOf = asOf
		}
		if dtc, ok := number(r, "days_to_cover", "dtc"); ok && dtc >= 0 {
			rec.DaysToCover = &dtc
		}
		if ftd, ok := number(r, "ftd_spike_ratio", "ftd_ratio"); ok && ftd >= 0 {
			rec.FTDSpikeRatio = &ftd
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AsOf.After(out[j].AsOf) })
	return out, errs
}

func isFraction(r models.RawRecord) bool {
	_, ok := lookup(r, "short_percent_float")
	return ok
}

// Prints normalizes trade prints, preserving input order.
func (n *Normalizer) Prints(symbol string, raw []models.RawRecord) ([]models.Print, []error) {
	var out []models.Print
	var errs []error
	for i, r := range raw {
		price, ok := number(r, "price", "px")
		if !ok || price <= 0 {
			errs = append(errs, malformed("print", i, "missing or non-positive price"))
			continue
		}
		size, ok := number(r, "size", "volume", "quantity", "shares")
		if !ok || size <= 0 {
			errs = append(errs, malformed("print", i, "missing or non-positive size"))
			continue
		}
		p := models.Print{Symbol: symbol, Price: price, Size: size, Side: models.SideUnknown}
		if s, ok := text(r, "side", "aggressor"); ok {
			p.Side = parseSide(s)
		}
		if off, ok := flag(r, "off_exchange", "dark_pool", "is_dark"); ok {
			p.OffExchange = off
		} else if venue, ok := text(r, "venue", "exchange"); ok {
			p.OffExchange = isOffExchangeVenue(venue)
		}
		if ts, ok := timestamp(r, "timestamp", "time", "t"); ok {
			p.Timestamp = ts
		}
		out = append(out, p)
	}
	return out, errs
}

func parseSide(s string) models.Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "buy", "bid_hit_ask", "at_ask", "above_ask":
		return models.SideBuy
	case "s", "sell", "at_bid", "below_bid":
		return models.SideSell
	}
	return models.SideUnknown
}

func isOffExchangeVenue(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "D", "TRF", "ADF", "DARK", "OTC", "FINRA":
		return true
	}
	return false
}

// Bars normalizes OHLCV bars, sorted by time.
func (n *Normalizer) Bars(symbol string, raw []models.RawRecord) ([]models.Bar, []error) {
	var out []models.Bar
	var errs []error
	for i, r := range raw {
		ts, ok := timestamp(r, "time", "timestamp", "t", "bucket")
		if !ok {
			errs = append(errs, malformed("bar", i, "missing time"))
			continue
		}
		o, ok1 := number(r, "open", "o")
		h, ok2 := number(r, "high", "h")
		l, ok3 := number(r, "low", "l")
		c, ok4 := number(r, "close", "c")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			errs = append(errs, malformed("bar", i, "missing ohlc field"))
			continue
		}
		if l > h || o > h || c > h || o < l || c < l || l <= 0 {
			errs = append(errs, malformed("bar", i, "inconsistent ohlc"))
			continue
		}
		v, _ := number(r, "volume", "v")
		out = append(out, models.Bar{Symbol: symbol, Time: ts, Open: o, High: h, Low: l, Close: c, Volume: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, errs
}

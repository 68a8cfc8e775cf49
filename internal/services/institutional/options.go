package institutional

import (
	"math"
	"sort"
	"time"

	"SignalForge/internal/domain/models"
)

// SummarizeOptions reduces a chain to the nearest expiration on or after date
// (or the latest one when all have passed) and derives put/call ratio and max pain.
// Returns nil for an empty chain.
func SummarizeOptions(chain []models.OptionSnapshot, date time.Time) *models.OptionsSummary {
	if len(chain) == 0 {
		return nil
	}
	exp := pickExpiration(chain, date)

	s := &models.OptionsSummary{Expiration: exp}
	var contracts []models.OptionSnapshot
	for _, o := range chain {
		if !o.Expiration.Equal(exp) {
			continue
		}
		contracts = append(contracts, o)
		switch o.Type {
		case models.OptionCall:
			s.CallVolume += o.Volume
			s.CallOpenInterest += o.OpenInterest
		case models.OptionPut:
			s.PutVolume += o.Volume
			s.PutOpenInterest += o.OpenInterest
		}
	}

	switch {
	case s.CallVolume > 0:
		s.PutCallRatio = s.PutVolume / s.CallVolume
	case s.CallOpenInterest > 0:
		s.PutCallRatio = s.PutOpenInterest / s.CallOpenInterest
	}
	s.MaxPain = MaxPain(contracts)
	return s
}

func pickExpiration(chain []models.OptionSnapshot, date time.Time) time.Time {
	day := date.Truncate(24 * time.Hour)
	exps := make([]time.Time, 0, len(chain))
	for _, o := range chain {
		exps = append(exps, o.Expiration)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	for _, e := range exps {
		if !e.Before(day) {
			return e
		}
	}
	return exps[len(exps)-1]
}

// MaxPain returns the strike at which the total intrinsic value owed to option
// holders (weighted by open interest) is smallest. Ties go to the lower strike.
func MaxPain(contracts []models.OptionSnapshot) float64 {
	strikes := make([]float64, 0, len(contracts))
	seen := make(map[float64]bool, len(contracts))
	for _, o := range contracts {
		if !seen[o.Strike] {
			seen[o.Strike] = true
			strikes = append(strikes, o.Strike)
		}
	}
	sort.Float64s(strikes)

	best, bestPain := 0.0, math.Inf(1)
	for _, settle := range strikes {
		pain := 0.0
		for _, o := range contracts {
			switch o.Type {
			case models.OptionCall:
				pain += o.OpenInterest * math.Max(0, settle-o.Strike)
			case models.OptionPut:
				pain += o.OpenInterest * math.Max(0, o.Strike-settle)
			}
		}
		if pain < bestPain {
			best, bestPain = settle, pain
		}
	}
	return best
}

package models

import "time"

type ShortInterestRecord struct {
	Symbol           string    `json:"symbol"`
	AsOf             time.Time `json:"as_of"`
	ShortInterestPct float64   `json:"short_interest_pct"`
	BorrowFeePct     float64   `json:"borrow_fee_pct"`
	DaysToCover      *float64  `json:"days_to_cover,omitempty"`
	FTDSpikeRatio    *float64  `json:"ftd_spike_ratio,omitempty"`
}

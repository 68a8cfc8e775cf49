package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrProviderUnavailable marks a timeout or upstream failure. Recoverable.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidParams marks trading parameters a backtest cannot run with. Fatal.
	ErrInvalidParams = errors.New("invalid trading params")
)

// ProviderError carries which provider call failed. It matches ErrProviderUnavailable.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderUnavailable }

// InsufficientDataError is returned when no context input is available for a symbol.
type InsufficientDataError struct {
	Symbol string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: levels, prints, options and short interest all missing", e.Symbol)
}

// MalformedRecordError describes one dropped provider record.
type MalformedRecordError struct {
	Kind   string
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record #%d: %s", e.Kind, e.Index, e.Reason)
}

// ReplayOrderError is returned when backtest input is not sorted by timestamp.
type ReplayOrderError struct {
	Input string
	Index int
	Prev  time.Time
	Cur   time.Time
}

func (e *ReplayOrderError) Error() string {
	return fmt.Sprintf("%s out of order at index %d: %s before %s",
		e.Input, e.Index, e.Cur.Format(time.RFC3339), e.Prev.Format(time.RFC3339))
}

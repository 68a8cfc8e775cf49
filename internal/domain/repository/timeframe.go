package repository

import (
	"errors"
	"fmt"
	"time"
)

var timeframeWidths = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
}

// ErrUnsupportedTimeframe is wrapped by ParseTimeframe and the bar stores.
var ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

// Valid reports whether bars can be served at tf.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeWidths[tf]
	return ok
}

// Duration is the bucket width; zero for an unsupported timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeWidths[tf]
}

// ParseTimeframe maps "" to TF1m and rejects anything unsupported.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return TF1m, nil
	}
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, s)
	}
	return tf, nil
}

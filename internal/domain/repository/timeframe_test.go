package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, TF1m, tf)

	tf, err = ParseTimeframe("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, tf.Duration())

	_, err = ParseTimeframe("1h")
	assert.ErrorIs(t, err, ErrUnsupportedTimeframe)
	assert.Zero(t, Timeframe("1h").Duration())
}

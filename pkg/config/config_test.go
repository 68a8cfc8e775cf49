package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
clickhouse:
  enabled: true
providers:
  institutional:
    base_url: http://localhost:9100
scanner:
  symbols: [AAPL, MSFT]
  interval: 30s
`

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, c.Scanner.Interval)
	assert.Equal(t, 4, c.Scanner.Workers)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, "signalforge", c.ClickHouse.Database)
	assert.Equal(t, "log", c.Alerts.Backend)
	assert.Equal(t, "America/New_York", c.Pipeline.Location)
	assert.Equal(t, "prior_session", c.Pipeline.LevelPolicy)
	assert.Equal(t, 5*time.Minute, c.Dedup.Window)
	assert.Equal(t, 0.75, c.Backtest.Params.StopLossPct)
	assert.Equal(t, 0.35, c.Confluence.Weights.DarkPool)
	assert.Equal(t, 15.0, c.Signals.Squeeze.MinShortInterestPct)
	assert.Equal(t, "info", c.Log.Level)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"no symbols":         "environment: test\nclickhouse: {enabled: true}\nproviders: {institutional: {base_url: http://x}}\n",
		"bad backend":        minimal + "alerts:\n  backend: smtp\n",
		"kafka sans brokers": minimal + "alerts:\n  backend: kafka\n",
		"finnhub sans key":   minimal + "finnhub:\n  enabled: true\n",
		"bad params":         minimal + "backtest:\n  params:\n    stop_loss_pct: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"SYMBOLS":         "spy, qqq ,",
		"FINNHUB_API_KEY": "k",
		"FINNHUB_ENABLED": "true",
		"KAFKA_BROKERS":   "a:9092,b:9092",
	}
	c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, []string{"spy", "qqq"}, c.Scanner.Symbols)
	assert.True(t, c.Finnhub.Enabled)
	assert.Equal(t, "k", c.Finnhub.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.NoError(t, c.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Scanner.Symbols)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadOffline_SkipsLiveChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	doc := "backtest:\n  params:\n    stop_loss_pct: 0.5\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	c, err := LoadOffline(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Backtest.Params.StopLossPct)
	assert.Equal(t, 1.0, c.Backtest.Params.TakeProfitPct)
}

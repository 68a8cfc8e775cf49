package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/confluence"
	"SignalForge/internal/services/dedup"
	"SignalForge/internal/services/institutional"
	"SignalForge/internal/services/normalizer"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/services/signals"
	"SignalForge/internal/usecase"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
	xutil "SignalForge/pkg/util"
)

type Config struct {
	Environment   string                `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log           applogger.Config      `yaml:"log"`
	HTTP          HTTPConfig            `yaml:"http"`
	ClickHouse    ClickHouseConfig      `yaml:"clickhouse"`
	Redis         RedisConfig           `yaml:"redis"`
	Kafka         KafkaConfig           `yaml:"kafka"`
	Finnhub       FinnhubConfig         `yaml:"finnhub"`
	Providers     ProvidersConfig       `yaml:"providers"`
	Gateway       usecase.GatewayConfig `yaml:"gateway"`
	Pipeline      PipelineConfig        `yaml:"pipeline"`
	Scanner       usecase.ScannerConfig `yaml:"scanner"`
	Normalizer    normalizer.Config     `yaml:"normalizer"`
	Institutional institutional.Config  `yaml:"institutional"`
	Signals       signals.Config        `yaml:"signals"`
	Confluence    confluence.Config     `yaml:"confluence"`
	Dedup         dedup.Config          `yaml:"dedup"`
	Regime        RegimeConfig          `yaml:"regime"`
	Backtest      BacktestConfig        `yaml:"backtest"`
	Alerts        AlertsConfig          `yaml:"alerts"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	DisableCORS     bool          `yaml:"disable_cors"`
	ContextCacheTTL time.Duration `yaml:"context_cache_ttl" default:"15s"`
	RatePerSec      float64       `yaml:"rate_per_sec" default:"2"`
	Burst           int           `yaml:"burst" default:"5"`
}

type ClickHouseConfig struct {
	Enabled      bool `yaml:"enabled"`
	pkgch.Config `yaml:",inline"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"signalforge"`
	PoolSize int           `yaml:"pool_size" default:"10"`
	Timeout  time.Duration `yaml:"timeout" default:"3s"`
	// L1TTL is how long values stay in the in-process layer in front of Redis.
	L1TTL time.Duration `yaml:"l1_ttl" default:"30s"`
}

type KafkaConfig struct {
	Brokers      []string            `yaml:"brokers"`
	SignalsTopic string              `yaml:"signals_topic" default:"signalforge.signals"`
	Compression  string              `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	RequiredAcks int                 `yaml:"required_acks" default:"-1"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	Async        bool          `yaml:"async"`
}

// KafkaConsumerConfig drives the signal sink that persists published signals.
type KafkaConsumerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	GroupID    string        `yaml:"group_id" default:"signalforge-sink"`
	Workers    int           `yaml:"workers" default:"2"`
	BufferSize int           `yaml:"buffer_size" default:"64"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
	DLQTopic   string        `yaml:"dlq_topic"`
}

type FinnhubConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	// StaleAfter is how old a streamed quote may be before bars are used instead.
	StaleAfter time.Duration `yaml:"stale_after" default:"2m"`
}

type ProvidersConfig struct {
	Institutional analytics.ServiceConfig `yaml:"institutional"`
	Macro         MacroConfig             `yaml:"macro"`
}

type MacroConfig struct {
	// Source is "bars" (derive from the benchmark's bars) or "http".
	Source    string                  `yaml:"source" default:"bars" validate:"oneof=bars http"`
	Service   analytics.ServiceConfig `yaml:"service"`
	Benchmark string                  `yaml:"benchmark" default:"SPY"`
	Lookback  time.Duration           `yaml:"lookback" default:"2h"`
}

type PipelineConfig struct {
	usecase.PipelineConfig `yaml:",inline"`
	LevelPolicy            string `yaml:"level_policy" default:"prior_session" validate:"oneof=prior_session live_price declared"`
	BarTimeframe           string `yaml:"bar_timeframe" default:"1m"`
}

type RegimeConfig struct {
	Detector regime.DetectorConfig `yaml:"detector"`
	Filter   regime.FilterConfig   `yaml:"filter"`
}

type BacktestConfig struct {
	usecase.BacktestConfig `yaml:",inline"`
	// ReportPath, when set, receives every report as JSON.
	ReportPath string `yaml:"report_path"`
	// Persist writes reports to ClickHouse when it is enabled.
	Persist bool `yaml:"persist"`
}

type AlertsConfig struct {
	Backend      string        `yaml:"backend" default:"log" validate:"oneof=kafka clickhouse log"`
	MaxPerMinute int           `yaml:"max_per_minute" default:"30" validate:"gte=0"`
	Burst        int           `yaml:"burst" default:"5" validate:"gte=0"`
	BufferSize   int           `yaml:"buffer_size" default:"1000" validate:"gte=1"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"50ms"`
	BookSize     int           `yaml:"book_size" default:"500" validate:"gte=1"`
}

var validate = validator.New()

// Parse applies defaults, then the YAML document, then validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration holding only defaults. It is not validated
// against the live-service rules and suits offline commands such as replay.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadOffline reads a YAML file on top of defaults without the live-service
// checks. Replays only need the trading and dedup sections.
func LoadOffline(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

// LoadWithEnv loads .env (if present) and the YAML file, then applies
// environment overrides before validating again.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = xutil.SplitList(v)
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("APP_ENV", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("FINNHUB_API_KEY", &c.Finnhub.APIKey)
	flag("FINNHUB_ENABLED", &c.Finnhub.Enabled)
	list("SYMBOLS", &c.Scanner.Symbols)
	str("ALERT_BACKEND", &c.Alerts.Backend)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_SIGNALS_TOPIC", &c.Kafka.SignalsTopic)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	flag("CLICKHOUSE_ENABLED", &c.ClickHouse.Enabled)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	flag("REDIS_ENABLED", &c.Redis.Enabled)
	str("INSTITUTIONAL_URL", &c.Providers.Institutional.BaseURL)
	str("INSTITUTIONAL_API_KEY", &c.Providers.Institutional.APIKey)
	str("MACRO_URL", &c.Providers.Macro.Service.BaseURL)
}

// Validate checks field rules and the dependencies between sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	var problems []string
	if len(c.Scanner.Symbols) == 0 {
		problems = append(problems, "scanner.symbols cannot be empty")
	}
	if c.Providers.Institutional.BaseURL == "" {
		problems = append(problems, "providers.institutional.base_url is required")
	}
	if c.Providers.Macro.Source == "http" && c.Providers.Macro.Service.BaseURL == "" {
		problems = append(problems, "providers.macro.service.base_url is required for source http")
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		problems = append(problems, "finnhub.api_key is required when finnhub is enabled")
	}
	if (c.Alerts.Backend == "kafka" || c.Kafka.Consumer.Enabled) && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers is required for the kafka backend and consumer")
	}
	if (c.Alerts.Backend == "clickhouse" || c.Kafka.Consumer.Enabled) && !c.ClickHouse.Enabled {
		problems = append(problems, "clickhouse must be enabled to persist signals")
	}
	if !c.ClickHouse.Enabled && !c.Finnhub.Enabled {
		problems = append(problems, "market data needs clickhouse bars or the finnhub stream")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kafkago "github.com/segmentio/kafka-go"

	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/handler/api"
	mid "SignalForge/internal/middleware"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/service/finnhub"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/services/analytics"
	"SignalForge/internal/services/confluence"
	"SignalForge/internal/services/dedup"
	"SignalForge/internal/services/institutional"
	"SignalForge/internal/services/levels"
	"SignalForge/internal/services/normalizer"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/services/signals"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/server"
)

// BarRepository reads and writes 1m bars.
type BarRepository interface {
	domrepo.BarStore
	domrepo.BarWriter
}

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry returns a dedicated registry with Go runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideClickHouseClient connects and applies the schema. Nil when disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx, cfg.ClickHouse.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", client.Database()))
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close", applogger.Error(err))
		}
	}, nil
}

// ProvideRedisCache connects to Redis. Nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	r := cfg.Redis
	rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
		Timeout:  r.Timeout,
		Prefix:   r.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache layers an in-process LRU over Redis when Redis is enabled.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func()) {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(5000))
	if rc == nil {
		return mem, func() { _ = mem.Close() }
	}
	return cache.NewLayeredCache(rc, mem, cfg.Redis.L1TTL), func() { _ = mem.Close() }
}

// ProvideCooldownStore shares cooldowns through Redis when available.
func ProvideCooldownStore(cfg *config.Config, rc *cache.RedisCache) domrepo.CooldownStore {
	if rc == nil {
		return dedup.NewMemoryStore()
	}
	return internalrepo.NewRedisCooldownStore(rc.Client(), cfg.Redis.Prefix+":cooldown")
}

func ProvideBarRepository(ch *pkgch.Client, l *applogger.Logger) BarRepository {
	if ch == nil {
		return internalrepo.NewMemoryBarStore(0)
	}
	return internalrepo.NewCHBarStore(ch.DB(), ch.Database(), l)
}

func ProvideQuoteBook(cfg *config.Config) (*usecase.QuoteBook, error) {
	loc, err := time.LoadLocation(cfg.Pipeline.Location)
	if err != nil {
		return nil, fmt.Errorf("pipeline location: %w", err)
	}
	return usecase.NewQuoteBook(loc), nil
}

func ProvideMarketData(cfg *config.Config, bars BarRepository, book *usecase.QuoteBook) (*usecase.MarketData, error) {
	loc, err := time.LoadLocation(cfg.Pipeline.Location)
	if err != nil {
		return nil, fmt.Errorf("pipeline location: %w", err)
	}
	tf, err := domrepo.ParseTimeframe(cfg.Pipeline.BarTimeframe)
	if err != nil {
		return nil, fmt.Errorf("pipeline bar timeframe: %w", err)
	}
	return usecase.NewMarketData(bars, book, loc, cfg.Finnhub.StaleAfter).WithTimeframe(tf), nil
}

func ProvideInstitutionalClient(cfg *config.Config) *analytics.HTTPInstitutionalClient {
	return analytics.NewHTTPInstitutionalClient(cfg.Providers.Institutional)
}

func ProvideMacroProvider(cfg *config.Config, market *usecase.MarketData) domrepo.MacroContextProvider {
	m := cfg.Providers.Macro
	if m.Source == "http" {
		return analytics.NewHTTPMacroClient(m.Service)
	}
	return regime.NewBarMacroProvider(market, regime.NewBarDetector(cfg.Regime.Detector), m.Benchmark, m.Lookback)
}

func ProvideGateway(
	cfg *config.Config,
	market *usecase.MarketData,
	inst *analytics.HTTPInstitutionalClient,
	c cache.Service,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Gateway {
	return usecase.NewGateway(market, inst, c, rec, l.With(applogger.String("component", "gateway")), cfg.Gateway)
}

func ProvideTracker(cfg *config.Config, store domrepo.CooldownStore) *dedup.Tracker {
	return dedup.NewTracker(store, cfg.Dedup)
}

// ProvidePipeline assembles the stateless scoring services around the gateway.
func ProvidePipeline(cfg *config.Config, gw *usecase.Gateway, tracker *dedup.Tracker, l *applogger.Logger) (*usecase.Pipeline, error) {
	policy, err := levels.ParsePolicy(cfg.Pipeline.LevelPolicy)
	if err != nil {
		return nil, err
	}
	return usecase.NewPipeline(
		gw,
		normalizer.New(cfg.Normalizer),
		institutional.NewBuilder(cfg.Institutional, levels.NewClassifier(policy)),
		signals.NewGenerator(cfg.Signals),
		confluence.NewScorer(cfg.Confluence),
		tracker,
		regime.NewFilter(cfg.Regime.Filter),
		l.With(applogger.String("component", "pipeline")),
		cfg.Pipeline.PipelineConfig,
	)
}

// ProvideSignalStore returns the ClickHouse signal history, or nil without ClickHouse.
func ProvideSignalStore(ch *pkgch.Client) domrepo.SignalStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHSignalStore(ch.DB(), ch.Database())
}

// ProvideKafkaProducer returns nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	k := cfg.Kafka
	p, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatch(k.Producer.BatchSize, k.Producer.BatchTimeout),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

func ProvideAlertPublisher(cfg *config.Config, p *pkgkafka.Producer) domrepo.AlertPublisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(p, cfg.Kafka.SignalsTopic)
}

func ProvideAlertRouter(
	cfg *config.Config,
	pub domrepo.AlertPublisher,
	store domrepo.SignalStore,
	rec *metrics.Recorder,
	l *applogger.Logger,
) (*usecase.AlertRouter, func()) {
	r := usecase.NewAlertRouter(pub, store, rec, l.With(applogger.String("component", "alerts")), cfg.Alerts.Backend)
	return r, r.Close
}

func ProvideAlertPipeline(cfg *config.Config, router *usecase.AlertRouter, rec *metrics.Recorder, l *applogger.Logger) *mid.AlertPipeline {
	a := cfg.Alerts
	return mid.NewAlertPipeline(router, rec,
		mid.WithMaxPerMinute(a.MaxPerMinute, a.Burst),
		mid.WithBufferSize(a.BufferSize),
		mid.WithRetryBackoff(a.RetryBackoff),
		mid.WithLogger(l.With(applogger.String("component", "alert_pipeline"))),
	)
}

func ProvideSignalBook(cfg *config.Config) *usecase.SignalBook {
	return usecase.NewSignalBook(cfg.Alerts.BookSize)
}

func ProvideScanner(
	cfg *config.Config,
	p *usecase.Pipeline,
	macro domrepo.MacroContextProvider,
	alerts *mid.AlertPipeline,
	book *usecase.SignalBook,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(p, macro, alerts, book, rec, l.With(applogger.String("component", "scanner")), cfg.Scanner)
}

// ProvideQuoteCollector streams Finnhub prints into the quote book and bar
// repository. Nil when the stream is disabled.
func ProvideQuoteCollector(
	cfg *config.Config,
	book *usecase.QuoteBook,
	bars BarRepository,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.QuoteCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	f := cfg.Finnhub
	stream := finnhub.New(finnhub.Config{
		APIKey:         f.APIKey,
		WebsocketURL:   f.WebSocketURL,
		Symbols:        cfg.Scanner.Symbols,
		ReconnectDelay: f.ReconnectDelay,
		PingInterval:   f.PingInterval,
	}, l.With(applogger.String("component", "finnhub")))
	agg := usecase.NewBarAggregator(bars, rec, l)
	return usecase.NewQuoteCollector(stream, book, agg, rec, l.With(applogger.String("component", "collector")))
}

// ProvideBacktestUseCase attaches the JSON report file and, when enabled, the
// ClickHouse report tables as sinks.
func ProvideBacktestUseCase(cfg *config.Config, ch *pkgch.Client, rec *metrics.Recorder, l *applogger.Logger) *usecase.BacktestUseCase {
	var sinks []domrepo.BacktestReportSink
	if cfg.Backtest.ReportPath != "" {
		sinks = append(sinks, internalrepo.NewJSONReportSink(cfg.Backtest.ReportPath, nil))
	}
	if cfg.Backtest.Persist && ch != nil {
		sinks = append(sinks, internalrepo.NewCHBacktestSink(ch.DB(), ch.Database()))
	}
	return usecase.NewBacktestUseCase(cfg.Backtest.BacktestConfig, rec, l.With(applogger.String("component", "backtest")), sinks...)
}

// ProvideSinkConsumer persists published signals from Kafka. Nil unless enabled.
func ProvideSinkConsumer(
	cfg *config.Config,
	store domrepo.SignalStore,
	rec *metrics.Recorder,
	reg *prometheus.Registry,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Consumer.Enabled || store == nil {
		return nil, nil
	}
	c, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, _ kafkago.Message, _ error) {
				rec.RecordError("consumer_" + topic)
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	c.RegisterHandler(usecase.NewSignalSinkHandler(k.SignalsTopic, store, rec))
	return c, nil
}

func ProvideHTTPHandler(
	cfg *config.Config,
	p *usecase.Pipeline,
	book *usecase.SignalBook,
	bt *usecase.BacktestUseCase,
	store domrepo.SignalStore,
	c cache.Service,
	rc *cache.RedisCache,
	ch *pkgch.Client,
	collector *usecase.QuoteCollector,
	l *applogger.Logger,
) *api.SignalsEchoHandler {
	opts := []api.HandlerOption{
		api.WithContextCache(c, cfg.HTTP.ContextCacheTTL),
		api.WithRateLimit(ratelimit.New(cfg.HTTP.RatePerSec, cfg.HTTP.Burst)),
	}
	if store != nil {
		opts = append(opts, api.WithSignalStore(store))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", rc.Ping))
	}
	if collector != nil {
		opts = append(opts, api.WithHealthCheck("stream", func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("disconnected")
			}
			return nil
		}))
	}
	return api.NewSignalsEchoHandler(l.With(applogger.String("component", "http")), p, book, bt, opts...)
}

func ProvideHTTPServer(cfg *config.Config, h *api.SignalsEchoHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.HTTP.Host),
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.HTTP.SlowRequest),
		xhttp.WithCORS(!cfg.HTTP.DisableCORS),
		xhttp.WithLogger(l),
		xhttp.WithRegistry(reg),
	)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	alerts *mid.AlertPipeline,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	srv *xhttp.Server,
) *server.App {
	return server.New(cfg, l, scanner, alerts, collector, consumer, srv)
}

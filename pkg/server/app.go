package server

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mid "SignalForge/internal/middleware"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
)

// App runs the live service: quote stream, scanner, alert delivery, the
// Kafka signal sink and the HTTP API.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	scanner   *usecase.Scanner
	alerts    *mid.AlertPipeline
	collector *usecase.QuoteCollector
	consumer  *pkgkafka.Consumer
	http      *xhttp.Server
	cleanup   func()
	wg        sync.WaitGroup
}

// New builds an App. collector and consumer may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	alerts *mid.AlertPipeline,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	srv *xhttp.Server,
) *App {
	return &App{
		cfg:       cfg,
		log:       l,
		scanner:   scanner,
		alerts:    alerts,
		collector: collector,
		consumer:  consumer,
		http:      srv,
		cleanup:   func() {},
	}
}

// SetCleanup registers the resource cleanup produced by dependency wiring.
func (a *App) SetCleanup(f func()) {
	if f != nil {
		a.cleanup = f
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.alerts.Start(ctx)

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			// Scanning continues on stored bars.
			a.log.Error("quote stream start", applogger.Error(err))
		} else {
			a.log.Info("quote stream started", applogger.Strings("symbols", a.cfg.Scanner.Symbols))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start", applogger.Error(err))
		}
	}

	if err := a.http.Start(); err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.scanner.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("scanner stopped", applogger.Error(err))
		}
	}()
	a.log.Info("signalforge running",
		applogger.Int("symbols", len(a.cfg.Scanner.Symbols)),
		applogger.String("alerts", a.cfg.Alerts.Backend))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer cancel()

	a.scanner.Stop()
	a.wg.Wait()

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown", applogger.Error(err))
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("quote stream stop", applogger.Error(err))
		}
	}
	a.alerts.Stop()
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	a.cleanup()
	a.log.Info("shutdown complete")
	return nil
}

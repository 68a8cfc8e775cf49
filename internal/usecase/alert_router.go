package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendLog        = "log"
)

var _ drepo.AlertManager = (*AlertRouter)(nil)

// AlertRouter delivers signals to the configured backend. Every emitted signal
// is also logged so a deployment without a bus still has an audit trail.
type AlertRouter struct {
	pub     drepo.AlertPublisher
	store   drepo.SignalStore
	metrics drepo.Metrics
	log     *applogger.Logger
	backend string
}

func NewAlertRouter(pub drepo.AlertPublisher, store drepo.SignalStore, metrics drepo.Metrics, log *applogger.Logger, backend string) *AlertRouter {
	if log == nil {
		log = applogger.Nop()
	}
	if backend == "" {
		backend = BackendLog
	}
	return &AlertRouter{pub: pub, store: store, metrics: metrics, log: log, backend: backend}
}

func (r *AlertRouter) Backend() string { return r.backend }

func (r *AlertRouter) Emit(ctx context.Context, s models.Signal) error {
	return r.EmitBatch(ctx, []models.Signal{s})
}

func (r *AlertRouter) EmitBatch(ctx context.Context, sigs []models.Signal) error {
	if len(sigs) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	switch r.backend {
	case BackendKafka:
		if r.pub == nil {
			err = fmt.Errorf("kafka backend without publisher")
		} else {
			err = r.pub.PublishBatch(ctx, sigs)
		}
	case BackendClickHouse:
		if r.store == nil {
			err = fmt.Errorf("clickhouse backend without store")
		} else {
			err = r.store.StoreSignals(ctx, sigs)
		}
	case BackendLog:
	default:
		err = fmt.Errorf("unknown alert backend: %s", r.backend)
	}
	if err != nil {
		r.metrics.RecordError("alert_" + r.backend)
		return fmt.Errorf("emit alerts: %w", err)
	}
	for _, s := range sigs {
		r.log.Info("signal",
			applogger.String("id", s.ID),
			applogger.Symbol(s.Symbol),
			applogger.String("action", string(s.Action)),
			applogger.String("kind", string(s.Kind)),
			applogger.Float64("confidence", s.Confidence),
			applogger.Float64("entry", s.Entry),
			applogger.Float64("stop", s.Stop),
			applogger.Float64("target", s.Target),
			applogger.Bool("master", s.IsMaster),
			applogger.String("backend", r.backend),
		)
	}
	r.metrics.RecordLatency("alert_emit", time.Since(start).Seconds())
	return nil
}

func (r *AlertRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}

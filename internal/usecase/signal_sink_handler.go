package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

var _ pkgkafka.MessageHandler = (*SignalSinkHandler)(nil)

// SignalSinkHandler consumes published signals and persists them.
type SignalSinkHandler struct {
	topic   string
	store   domrepo.SignalStore
	metrics domrepo.Metrics
}

func NewSignalSinkHandler(topic string, store domrepo.SignalStore, metrics domrepo.Metrics) *SignalSinkHandler {
	return &SignalSinkHandler{topic: topic, store: store, metrics: metrics}
}

func (h *SignalSinkHandler) Topic() string { return h.topic }

func (h *SignalSinkHandler) Handle(ctx context.Context, b []byte) error {
	var s models.Signal
	if err := json.Unmarshal(b, &s); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode signal: %w", err)
	}
	if s.ID == "" || s.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("signal missing id or symbol")
	}
	if !s.Timestamp.IsZero() {
		h.metrics.RecordLatency("signal_e2e", time.Since(s.Timestamp).Seconds())
	}

	start := time.Now()
	err := h.store.StoreSignals(ctx, []models.Signal{s})
	h.metrics.RecordLatency("signal_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

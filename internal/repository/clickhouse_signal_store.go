package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
)

var _ domrepo.SignalStore = (*CHSignalStore)(nil)

// CHSignalStore persists emitted signals. Rows are keyed by id, so replays of a
// message collapse on merge.
type CHSignalStore struct {
	db       *sql.DB
	database string
	table    string
}

func NewCHSignalStore(db *sql.DB, database string) *CHSignalStore {
	return &CHSignalStore{db: db, database: database, table: database + ".signals"}
}

func (s *CHSignalStore) Init(ctx context.Context) error {
	for _, stmt := range pkgch.Schema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init signals schema: %w", err)
		}
	}
	return nil
}

var signalColumns = []string{
	"id", "ts", "symbol", "action", "kind", "confidence", "entry", "stop", "target",
	"level_price", "rationale", "supporting_factors", "warnings", "is_master", "position_size_pct", "risk_reward",
}

func signalArgs(sig models.Signal) []any {
	master := uint8(0)
	if sig.IsMaster {
		master = 1
	}
	factors := sig.SupportingFactors
	if factors == nil {
		factors = []string{}
	}
	warnings := sig.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return []any{
		sig.ID, sig.Timestamp.UTC(), sig.Symbol, string(sig.Action), string(sig.Kind),
		sig.Confidence, sig.Entry, sig.Stop, sig.Target, sig.LevelPrice, sig.Rationale,
		factors, warnings, master, sig.PositionSizePct, sig.RiskRewardRatio,
	}
}

func (s *CHSignalStore) StoreSignals(ctx context.Context, signals []models.Signal) error {
	rows := make([][]any, 0, len(signals))
	for _, sig := range signals {
		if sig.ID == "" || sig.Symbol == "" {
			continue
		}
		rows = append(rows, signalArgs(sig))
	}
	if err := pkgch.BulkInsert(ctx, s.db, s.table, signalColumns, rows, pkgch.DefaultChunk); err != nil {
		return fmt.Errorf("store signals: %w", err)
	}
	return nil
}

// QuerySignals returns signals for symbol in [from, to], newest first.
func (s *CHSignalStore) QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", strings.Join(signalColumns, ", "), s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var (
			sig          models.Signal
			action, kind string
			master       uint8
		)
		if err := rows.Scan(&sig.ID, &sig.Timestamp, &sig.Symbol, &action, &kind,
			&sig.Confidence, &sig.Entry, &sig.Stop, &sig.Target, &sig.LevelPrice, &sig.Rationale,
			&sig.SupportingFactors, &sig.Warnings, &master, &sig.PositionSizePct, &sig.RiskRewardRatio); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Action = models.Action(action)
		sig.Kind = models.SignalKind(kind)
		sig.IsMaster = master == 1
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *CHSignalStore) Close() error { return nil }

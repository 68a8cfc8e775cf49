package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
	applogger "SignalForge/pkg/logger"
)

var (
	_ domrepo.BarStore  = (*CHBarStore)(nil)
	_ domrepo.BarWriter = (*CHBarStore)(nil)
)

// CHBarStore reads and writes 1m bars in ClickHouse. Coarser timeframes are
// aggregated from the 1m table at query time.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(db *sql.DB, database string, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{db: db, table: database + ".bars_1m", l: l}
}

const barSelect = `
        SELECT toStartOfInterval(ts, INTERVAL %d MINUTE) AS bucket, symbol,
               argMin(open, ts), max(high), min(low), argMax(close, ts), sum(volume)
        FROM %s
        WHERE %s
        GROUP BY bucket, symbol
        ORDER BY bucket %s
        %s`

func minutes(tf domrepo.Timeframe) (int, error) {
	if !tf.Valid() {
		return 0, fmt.Errorf("%w: %s", domrepo.ErrUnsupportedTimeframe, tf)
	}
	return int(tf.Duration() / time.Minute), nil
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	n, err := minutes(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(barSelect, n, s.table, "symbol = ? AND ts >= ? AND ts <= ?", "ASC", "")
	bars, err := s.query(ctx, "get_bars", q, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	return bars, nil
}

// GetLatestNBars returns the n most recent bars, oldest first.
func (s *CHBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	m, err := minutes(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(barSelect, m, s.table, "symbol = ?", "DESC", "LIMIT ?")
	bars, err := s.query(ctx, "latest_bars", q, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func (s *CHBarStore) query(ctx context.Context, op, q string, args ...any) ([]models.Bar, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse "+op+" query error", applogger.String("table", s.table), applogger.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 128)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.l.Error("clickhouse "+op+" scan error", applogger.String("table", s.table), applogger.Error(err))
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse "+op+" ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

var barColumns = []string{"ts", "symbol", "open", "high", "low", "close", "volume"}

func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		if b.Symbol == "" || b.Time.IsZero() {
			continue
		}
		rows = append(rows, []any{b.Time.UTC(), b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	if err := pkgch.BulkInsert(ctx, s.db, s.table, barColumns, rows, pkgch.DefaultChunk); err != nil {
		return fmt.Errorf("store bars: %w", err)
	}
	return nil
}

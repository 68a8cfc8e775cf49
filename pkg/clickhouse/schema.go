package clickhouse

import "fmt"

// Schema returns idempotent DDL for the tables the service reads and writes.
func Schema(database string) []string {
	if database == "" {
		database = "default"
	}
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars_1m (
			ts DateTime64(3, 'UTC'),
			symbol LowCardinality(String),
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signals (
			id String,
			ts DateTime64(3, 'UTC'),
			symbol LowCardinality(String),
			action LowCardinality(String),
			kind LowCardinality(String),
			confidence Float64,
			entry Float64,
			stop Float64,
			target Float64,
			level_price Float64,
			rationale String,
			supporting_factors Array(String),
			warnings Array(String),
			is_master UInt8,
			position_size_pct Float64,
			risk_reward Float64
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts, id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_trades (
			run_id String,
			signal_id String,
			symbol LowCardinality(String),
			action LowCardinality(String),
			kind LowCardinality(String),
			entry_time DateTime64(3, 'UTC'),
			entry_price Float64,
			stop_price Float64,
			target_price Float64,
			exit_time DateTime64(3, 'UTC'),
			exit_price Float64,
			exit_reason LowCardinality(String),
			pnl_pct Float64,
			position_pnl_pct Float64,
			outcome LowCardinality(String)
		) ENGINE = MergeTree
		ORDER BY (run_id, entry_time, symbol)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_runs (
			run_id String,
			created_at DateTime64(3, 'UTC'),
			total_trades UInt32,
			wins UInt32,
			losses UInt32,
			breakevens UInt32,
			win_rate Float64,
			avg_pnl Float64,
			total_pnl Float64,
			profit_factor Float64,
			max_drawdown Float64,
			sharpe Float64,
			skipped_signals UInt32
		) ENGINE = MergeTree
		ORDER BY (created_at, run_id)`, database),
	}
}

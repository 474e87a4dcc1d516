package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"stratgen/internal/history"
	"stratgen/internal/logger"
)

// ReportStore 报告历史的读写能力：生成管线只读，seed/回填负责写入。
type ReportStore interface {
	history.Repository
	RecordOutcome(ctx context.Context, o history.Outcome) (int64, error)
	Count(ctx context.Context, symbol string) (int, error)
	Close() error
}

var (
	_ ReportStore = (*SQLiteReportStore)(nil)
	_ ReportStore = (*MemoryReportStore)(nil)
)

// SQLiteReportStore persists outcomes in the report_outcomes table.
type SQLiteReportStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string) (*SQLiteReportStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &SQLiteReportStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Infof("✓ 报告历史库已打开: %s", path)
	return s, nil
}

func (s *SQLiteReportStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_outcomes (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol         TEXT NOT NULL,
			source         TEXT,
			horizon        TEXT,
			rsi            REAL NOT NULL,
			macd_histogram REAL NOT NULL,
			entry_price    REAL,
			return_pct     REAL NOT NULL,
			success        INTEGER NOT NULL,
			generated_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_symbol_ts ON report_outcomes(symbol, generated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteReportStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("report store 未初始化")
	}
	return db, nil
}

// RecordOutcome 写入一条历史结果，返回自增 id。
func (s *SQLiteReportStore) RecordOutcome(ctx context.Context, o history.Outcome) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(o.Symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol 必填")
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO report_outcomes
			(symbol, source, horizon, rsi, macd_histogram, entry_price, return_pct, success, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, nullIfEmpty(o.Source), nullIfEmpty(o.Horizon), o.RSI, o.MACDHistogram,
		o.EntryPrice, o.ReturnPct, boolToInt(o.Success), o.GeneratedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindSimilar 单次只读查询；MACD 方向按 histogram >= 0 判定。
func (s *SQLiteReportStore) FindSimilar(ctx context.Context, q history.Query) ([]history.Outcome, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	sign := "macd_histogram < 0"
	if q.MACDPositive {
		sign = "macd_histogram >= 0"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, symbol, source, horizon, rsi, macd_histogram, entry_price, return_pct, success, generated_at
		FROM report_outcomes
		WHERE symbol=? AND rsi BETWEEN ? AND ? AND `+sign+` AND generated_at >= ?
		ORDER BY generated_at DESC`,
		strings.ToUpper(strings.TrimSpace(q.Symbol)), q.RSIMin, q.RSIMax, q.Since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []history.Outcome
	for rows.Next() {
		var (
			o       history.Outcome
			source  sql.NullString
			horizon sql.NullString
			entry   sql.NullFloat64
			success int
			ts      int64
		)
		if err := rows.Scan(&o.ID, &o.Symbol, &source, &horizon, &o.RSI, &o.MACDHistogram, &entry, &o.ReturnPct, &success, &ts); err != nil {
			return nil, err
		}
		o.Source = source.String
		o.Horizon = horizon.String
		o.EntryPrice = entry.Float64
		o.Success = success != 0
		o.GeneratedAt = time.UnixMilli(ts)
		list = append(list, o)
	}
	return list, rows.Err()
}

// Count returns rows for a symbol, or all rows when symbol is empty.
func (s *SQLiteReportStore) Count(ctx context.Context, symbol string) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		err = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM report_outcomes`).Scan(&n)
	} else {
		err = db.QueryRowContext(ctx, `SELECT COUNT(1) FROM report_outcomes WHERE symbol=?`, symbol).Scan(&n)
	}
	return n, err
}

func (s *SQLiteReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nullIfEmpty(v string) interface{} {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

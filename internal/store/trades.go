// Package store is the append-only SQLite trade-history audit log, adapted
// from the teacher's store/strategy.go database/sql CRUD-plus-trigger
// pattern. The decision core never reads this back — it is populated
// solely by sink/storesink as trades open and close.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// TradeStore persists closed-trade history and the latest bot-status
// reason list per (symbol, bot kind).
type TradeStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// its schema exists.
func Open(path string) (*TradeStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &TradeStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *TradeStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			bot_kind TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL,
			lot_size REAL NOT NULL,
			entry_time DATETIME NOT NULL,
			exit_time DATETIME,
			realized_pnl REAL,
			close_reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("store: create trades table: %w", err)
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`)
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_bot_kind ON trades(bot_kind)`)

	_, err = s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS update_trades_updated_at
		AFTER UPDATE ON trades
		BEGIN
			UPDATE trades SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END
	`)
	if err != nil {
		return fmt.Errorf("store: create trades trigger: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_status_log (
			symbol TEXT NOT NULL,
			bot_kind TEXT NOT NULL,
			ready INTEGER NOT NULL,
			reasons TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, bot_kind)
		)
	`)
	if err != nil {
		return fmt.Errorf("store: create bot_status_log table: %w", err)
	}
	return nil
}

// RecordEntry inserts a newly-opened trade.
func (s *TradeStore) RecordEntry(id, symbol, botKind, side string, entryPrice, lotSize float64, entryTime time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO trades (id, symbol, bot_kind, side, entry_price, lot_size, entry_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, symbol, botKind, side, entryPrice, lotSize, entryTime)
	if err != nil {
		return fmt.Errorf("store: record entry: %w", err)
	}
	return nil
}

// RecordExit fills in the close side of a trade row.
func (s *TradeStore) RecordExit(id string, exitPrice float64, exitTime time.Time, realizedPnl float64, reason string) error {
	_, err := s.db.Exec(`
		UPDATE trades SET exit_price = ?, exit_time = ?, realized_pnl = ?, close_reason = ?
		WHERE id = ?
	`, exitPrice, exitTime, realizedPnl, reason, id)
	if err != nil {
		return fmt.Errorf("store: record exit: %w", err)
	}
	return nil
}

// UpsertBotStatus replaces the latest status row for (symbol, botKind).
// The package has no reader for bot_status_log; rows are write-only.
func (s *TradeStore) UpsertBotStatus(symbol, botKind string, ready bool, reasonsJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO bot_status_log (symbol, bot_kind, ready, reasons)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, bot_kind) DO UPDATE SET
			ready = excluded.ready, reasons = excluded.reasons, updated_at = CURRENT_TIMESTAMP
	`, symbol, botKind, boolToInt(ready), reasonsJSON)
	if err != nil {
		return fmt.Errorf("store: upsert bot status: %w", err)
	}
	return nil
}

// TradeRecord is one row of trade history for reporting.
type TradeRecord struct {
	ID          string
	Symbol      string
	BotKind     string
	Side        string
	EntryPrice  float64
	ExitPrice   sql.NullFloat64
	LotSize     float64
	EntryTime   time.Time
	ExitTime    sql.NullTime
	RealizedPnl sql.NullFloat64
	CloseReason sql.NullString
}

// RecentTrades returns the most recent limit trades for symbol (all
// symbols when symbol is empty), newest first.
func (s *TradeStore) RecentTrades(symbol string, limit int) ([]TradeRecord, error) {
	var rows *sql.Rows
	var err error
	if symbol == "" {
		rows, err = s.db.Query(`SELECT id, symbol, bot_kind, side, entry_price, exit_price, lot_size, entry_time, exit_time, realized_pnl, close_reason FROM trades ORDER BY entry_time DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(`SELECT id, symbol, bot_kind, side, entry_price, exit_price, lot_size, entry_time, exit_time, realized_pnl, close_reason FROM trades WHERE symbol = ? ORDER BY entry_time DESC LIMIT ?`, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.BotKind, &r.Side, &r.EntryPrice, &r.ExitPrice, &r.LotSize, &r.EntryTime, &r.ExitTime, &r.RealizedPnl, &r.CloseReason); err != nil {
			return nil, fmt.Errorf("store: scan trade row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *TradeStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

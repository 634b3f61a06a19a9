// Package journal persists per-tick decision records to SQLite
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"arb_engine/internal/core"
	"arb_engine/pkg/concurrency"

	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}
	return d, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS ticks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         INTEGER NOT NULL,
	buy_price  TEXT NOT NULL,
	sell_price TEXT NOT NULL,
	gap        TEXT NOT NULL,
	action     TEXT NOT NULL,
	amount     TEXT NOT NULL,
	suppressed INTEGER NOT NULL,
	intents    TEXT NOT NULL
)`

// SQLiteJournal implements core.ITickJournal. Writes go through a small
// non-blocking worker pool so recording never stalls a decision tick.
type SQLiteJournal struct {
	db     *sql.DB
	pool   *concurrency.WorkerPool
	logger core.ILogger
}

func NewSQLiteJournal(dbPath string, logger core.ILogger) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "tick_journal",
		MaxWorkers:  1,
		MaxCapacity: 1000,
		NonBlocking: true,
	}, logger)

	return &SQLiteJournal{
		db:     db,
		pool:   pool,
		logger: logger.WithField("component", "tick_journal"),
	}, nil
}

// Record queues the tick record for asynchronous insertion. A full queue
// drops the record with a warning rather than blocking the caller.
func (j *SQLiteJournal) Record(rec *core.TickRecord) {
	if err := j.pool.Submit(func() {
		if err := j.insert(rec); err != nil {
			j.logger.Error("Failed to record tick", "error", err.Error())
		}
	}); err != nil {
		j.logger.Warn("Tick record dropped", "error", err.Error())
	}
}

// RecordSync inserts the tick record on the calling goroutine
func (j *SQLiteJournal) RecordSync(rec *core.TickRecord) error {
	return j.insert(rec)
}

func (j *SQLiteJournal) insert(rec *core.TickRecord) error {
	intents, err := json.Marshal(rec.Intents)
	if err != nil {
		return fmt.Errorf("failed to marshal intents: %w", err)
	}

	suppressed := 0
	if rec.Suppressed {
		suppressed = 1
	}

	query := `INSERT INTO ticks (ts, buy_price, sell_price, gap, action, amount, suppressed, intents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = j.db.Exec(query,
		rec.Timestamp.UnixNano(),
		rec.BuyPrice.String(),
		rec.SellPrice.String(),
		rec.Gap.String(),
		rec.Action,
		rec.Amount.String(),
		suppressed,
		string(intents),
	)
	if err != nil {
		return fmt.Errorf("failed to write tick to db: %w", err)
	}
	return nil
}

// Recent returns the newest n tick records, newest first
func (j *SQLiteJournal) Recent(n int) ([]*core.TickRecord, error) {
	query := `SELECT ts, buy_price, sell_price, gap, action, amount, suppressed, intents
		FROM ticks ORDER BY id DESC LIMIT ?`
	rows, err := j.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticks from db: %w", err)
	}
	defer rows.Close()

	var records []*core.TickRecord
	for rows.Next() {
		var (
			ts                                       int64
			buyPrice, sellPrice, gap, action, amount string
			suppressed                               int
			intentsJSON                              string
		)
		if err := rows.Scan(&ts, &buyPrice, &sellPrice, &gap, &action, &amount, &suppressed, &intentsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan tick row: %w", err)
		}

		rec := &core.TickRecord{
			Timestamp:  time.Unix(0, ts),
			Action:     action,
			Suppressed: suppressed != 0,
		}
		if rec.BuyPrice, err = parseDecimal(buyPrice); err != nil {
			return nil, err
		}
		if rec.SellPrice, err = parseDecimal(sellPrice); err != nil {
			return nil, err
		}
		if rec.Gap, err = parseDecimal(gap); err != nil {
			return nil, err
		}
		if rec.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(intentsJSON), &rec.Intents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intents: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close drains pending writes and closes the database
func (j *SQLiteJournal) Close() error {
	j.pool.Stop()
	return j.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tidemark/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy     TEXT NOT NULL,
	universe     TEXT NOT NULL,
	initial_cash REAL NOT NULL,
	start_date   TEXT NOT NULL,
	end_date     TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id   INTEGER NOT NULL REFERENCES runs(id),
	seq      INTEGER NOT NULL,
	date     TEXT NOT NULL,
	symbol   TEXT NOT NULL,
	side     TEXT NOT NULL,
	shares   INTEGER NOT NULL,
	price    REAL NOT NULL,
	notional REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS closed_trades (
	run_id       INTEGER NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	symbol       TEXT NOT NULL,
	entry_date   TEXT NOT NULL,
	exit_date    TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	shares       INTEGER NOT NULL,
	realized_pnl REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id          INTEGER NOT NULL REFERENCES runs(id),
	date            TEXT NOT NULL,
	cash            REAL NOT NULL,
	portfolio_value REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS equity_positions (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	date   TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares INTEGER NOT NULL,
	PRIMARY KEY (run_id, date, symbol)
);

CREATE TABLE IF NOT EXISTS report (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	metric TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, metric)
);
`

const dateLayout = "2006-01-02"

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a completed run and all of its outputs in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (strategy, universe, initial_cash, start_date, end_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.Strategy,
		strings.Join(run.Universe, ","),
		run.InitialCash,
		run.StartDate.Format(dateLayout),
		run.EndDate.Format(dateLayout),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, t := range run.Trades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (run_id, seq, date, symbol, side, shares, price, notional)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, t.Date.Format(dateLayout), t.Symbol, string(t.Side), t.Shares, t.Price, t.Notional,
		); err != nil {
			return 0, fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for i, ct := range run.ClosedTrades {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO closed_trades (run_id, seq, symbol, entry_date, exit_date, entry_price, exit_price, shares, realized_pnl)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, ct.Symbol, ct.EntryDate.Format(dateLayout), ct.ExitDate.Format(dateLayout),
			ct.EntryPrice, ct.ExitPrice, ct.Shares, ct.RealizedPnL,
		); err != nil {
			return 0, fmt.Errorf("inserting closed trade %d: %w", i, err)
		}
	}

	for _, snap := range run.EquityCurve {
		date := snap.Date.Format(dateLayout)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO equity (run_id, date, cash, portfolio_value) VALUES (?, ?, ?, ?)`,
			runID, date, snap.Cash, snap.PortfolioValue,
		); err != nil {
			return 0, fmt.Errorf("inserting equity row %s: %w", date, err)
		}
		for _, sym := range run.Universe {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO equity_positions (run_id, date, symbol, shares) VALUES (?, ?, ?, ?)`,
				runID, date, sym, snap.Positions[sym],
			); err != nil {
				return 0, fmt.Errorf("inserting position row %s/%s: %w", date, sym, err)
			}
		}
	}

	for metric, value := range run.Report {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report (run_id, metric, value) VALUES (?, ?, ?)`,
			runID, metric, value,
		); err != nil {
			return 0, fmt.Errorf("inserting report metric %q: %w", metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// GetReport returns the metric → value report for a run.
func (s *SQLiteStore) GetReport(ctx context.Context, runID int64) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, value FROM report WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make(map[string]float64)
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, err
		}
		report[metric] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(report) == 0 {
		return nil, fmt.Errorf("no report for run %d", runID)
	}
	return report, nil
}

// ListRuns returns summaries of all persisted runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, start_date, end_date, created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			sum                  RunSummary
			startStr, endStr, at string
		)
		if err := rows.Scan(&sum.ID, &sum.Strategy, &startStr, &endStr, &at); err != nil {
			return nil, err
		}
		if sum.StartDate, err = time.Parse(dateLayout, startStr); err != nil {
			return nil, fmt.Errorf("run %d: bad start_date %q: %w", sum.ID, startStr, err)
		}
		if sum.EndDate, err = time.Parse(dateLayout, endStr); err != nil {
			return nil, fmt.Errorf("run %d: bad end_date %q: %w", sum.ID, endStr, err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("run %d: bad created_at %q: %w", sum.ID, at, err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// GetEquityCurve returns a run's persisted equity curve with per-symbol
// positions, ordered by date.
func (s *SQLiteStore) GetEquityCurve(ctx context.Context, runID int64) ([]domain.EquitySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, cash, portfolio_value FROM equity WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curve []domain.EquitySnapshot
	for rows.Next() {
		var (
			snap    domain.EquitySnapshot
			dateStr string
		)
		if err := rows.Scan(&dateStr, &snap.Cash, &snap.PortfolioValue); err != nil {
			return nil, err
		}
		if snap.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("run %d: bad equity date %q: %w", runID, dateStr, err)
		}
		snap.Positions = make(map[string]int)
		curve = append(curve, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	posRows, err := s.db.QueryContext(ctx,
		`SELECT date, symbol, shares FROM equity_positions WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer posRows.Close()

	byDate := make(map[string]*domain.EquitySnapshot, len(curve))
	for i := range curve {
		byDate[curve[i].Date.Format(dateLayout)] = &curve[i]
	}
	for posRows.Next() {
		var (
			dateStr, symbol string
			shares          int
		)
		if err := posRows.Scan(&dateStr, &symbol, &shares); err != nil {
			return nil, err
		}
		if snap, ok := byDate[dateStr]; ok {
			snap.Positions[symbol] = shares
		}
	}
	return curve, posRows.Err()
}

// Package store provides persistence for the backtesting system: daily bars
// in Parquet files, completed run results in SQLite, and CSV import/export of
// price tables and equity curves.
package store

import (
	"context"
	"time"

	"tidemark/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in storage.
	ListSymbols(ctx context.Context) ([]string, error)
}

// RunRecord is one completed backtest: its configuration echo plus the full
// outputs the engine produced.
type RunRecord struct {
	Strategy     string
	Universe     domain.Universe
	InitialCash  float64
	StartDate    time.Time
	EndDate      time.Time
	Report       map[string]float64
	Trades       []domain.Trade
	ClosedTrades []domain.ClosedTrade
	EquityCurve  []domain.EquitySnapshot
}

// RunSummary is a listing row for a persisted run.
type RunSummary struct {
	ID        int64
	Strategy  string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// RunStore persists completed backtest runs.
type RunStore interface {
	// SaveRun persists a completed run and returns its assigned ID.
	SaveRun(ctx context.Context, run *RunRecord) (int64, error)

	// GetReport returns the metric → value report for a run.
	GetReport(ctx context.Context, runID int64) (map[string]float64, error)

	// ListRuns returns summaries of all persisted runs, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
}

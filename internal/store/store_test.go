package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tidemark/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "daily", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
	}

	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	// Write one bar, then a second for the same symbol+year — the file
	// should merge, not overwrite.
	bars1 := []domain.Bar{
		{Symbol: "MSFT", Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Close: 403.0},
	}
	if err := ps.WriteBars(ctx, bars1); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}
	bars2 := []domain.Bar{
		{Symbol: "MSFT", Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Close: 408.0},
	}
	if err := ps.WriteBars(ctx, bars2); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "MSFT", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 185.5},
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 140.5},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestBuildPriceTable(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	universe := domain.Universe{"AAPL", "SPY"}

	var bars []domain.Bar
	for i := 0; i < 3; i++ {
		ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		bars = append(bars,
			domain.Bar{Symbol: "AAPL", Timestamp: ts, Close: 100 + float64(i)},
			domain.Bar{Symbol: "SPY", Timestamp: ts, Close: 200 + float64(i)},
		)
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows, err := BuildPriceTable(ctx, ps, universe, start, end)
	if err != nil {
		t.Fatalf("BuildPriceTable: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Date.After(rows[i-1].Date) {
			t.Errorf("row dates not strictly increasing at %d", i)
		}
	}
	if rows[0].Closes["AAPL"] != 100 || rows[0].Closes["SPY"] != 200 {
		t.Errorf("first row closes = %v, want AAPL:100 SPY:200", rows[0].Closes)
	}
}

func TestBuildPriceTableMissingBar(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	universe := domain.Universe{"AAPL", "SPY"}

	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: ts, Close: 100},
		{Symbol: "AAPL", Timestamp: ts.AddDate(0, 0, 1), Close: 101},
		{Symbol: "SPY", Timestamp: ts, Close: 200},
		// SPY is missing the second day.
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := BuildPriceTable(ctx, ps, universe, start, end)
	if err == nil {
		t.Fatal("BuildPriceTable = nil error with a missing bar, want error")
	}
	if !strings.Contains(err.Error(), "SPY") {
		t.Errorf("error = %q, want it to name SPY", err)
	}
}

func TestSQLiteStoreSaveAndLoadRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &RunRecord{
		Strategy:    "trend-following",
		Universe:    domain.Universe{"AAPL"},
		InitialCash: 10000,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 4),
		Report:      map[string]float64{"Total Return": 0.002, "Sharpe": 1.1},
		Trades: []domain.Trade{
			{Date: start.AddDate(0, 0, 2), Symbol: "AAPL", Side: domain.SideBuy, Shares: 10, Price: 102, Notional: 1020},
		},
		ClosedTrades: []domain.ClosedTrade{
			{Symbol: "AAPL", EntryDate: start.AddDate(0, 0, 2), ExitDate: start.AddDate(0, 0, 4), EntryPrice: 102, ExitPrice: 104, Shares: 10, RealizedPnL: 20},
		},
		EquityCurve: []domain.EquitySnapshot{
			{Date: start.AddDate(0, 0, -1), Cash: 10000, PortfolioValue: 10000, Positions: map[string]int{"AAPL": 0}},
			{Date: start, Cash: 10000, PortfolioValue: 10000, Positions: map[string]int{"AAPL": 0}},
			{Date: start.AddDate(0, 0, 2), Cash: 8980, PortfolioValue: 10000, Positions: map[string]int{"AAPL": 10}},
		},
	}

	runID, err := s.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID <= 0 {
		t.Fatalf("SaveRun returned id %d, want positive", runID)
	}

	report, err := s.GetReport(ctx, runID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if report["Total Return"] != 0.002 || report["Sharpe"] != 1.1 {
		t.Errorf("GetReport = %v, want the saved metrics", report)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	if runs[0].ID != runID || runs[0].Strategy != "trend-following" {
		t.Errorf("ListRuns[0] = %+v, want run %d trend-following", runs[0], runID)
	}

	curve, err := s.GetEquityCurve(ctx, runID)
	if err != nil {
		t.Fatalf("GetEquityCurve: %v", err)
	}
	if len(curve) != 3 {
		t.Fatalf("GetEquityCurve returned %d rows, want 3", len(curve))
	}
	if curve[2].Positions["AAPL"] != 10 {
		t.Errorf("last curve row positions = %v, want AAPL:10", curve[2].Positions)
	}
	for i := 1; i < len(curve); i++ {
		if !curve[i].Date.After(curve[i-1].Date) {
			t.Errorf("persisted equity dates not strictly increasing at %d", i)
		}
	}
}

func TestSQLiteStoreGetReportMissingRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	if _, err := s.GetReport(context.Background(), 42); err == nil {
		t.Error("GetReport for missing run = nil error, want error")
	}
}

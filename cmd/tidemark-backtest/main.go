package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tidemark/internal/config"
	"tidemark/internal/domain"
	"tidemark/internal/engine"
	"tidemark/internal/portfolio"
	"tidemark/internal/store"
	"tidemark/internal/strategy"
	"tidemark/internal/util"
)

func main() {
	equityOut := flag.String("equity-out", "", "write the equity curve to this CSV file")
	flag.Parse()

	cfgPath := "config/tidemark.yaml"
	if p := os.Getenv("TIDEMARK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Backtest.Validate(); err != nil {
		log.Fatalf("invalid backtest config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	universe := domain.Universe(cfg.Backtest.Universe)

	strat, err := buildStrategy(cfg.Backtest.Strategy)
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}

	rows, err := loadPrices(cfg, universe)
	if err != nil {
		log.Fatalf("loading prices: %v", err)
	}

	pf := portfolio.New(universe, cfg.Backtest.InitialCash)
	eng := engine.New(universe, strat, pf, logger)

	result, err := eng.Run(rows)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	printReport(result)

	if *equityOut != "" {
		if err := store.WriteEquityCurveCSV(*equityOut, result.EquityCurve, universe); err != nil {
			log.Fatalf("writing equity curve: %v", err)
		}
		fmt.Printf("\nequity curve written to %s\n", *equityOut)
	}

	if cfg.Storage.SQLitePath != "" {
		runID, err := saveRun(cfg, result)
		if err != nil {
			log.Fatalf("saving run: %v", err)
		}
		fmt.Printf("run saved as #%d\n", runID)
	}
}

// buildStrategy resolves the configured strategy through the registry so only
// registered names are runnable.
func buildStrategy(sc config.StrategyConfig) (strategy.Strategy, error) {
	reg := strategy.NewRegistry()
	tf := sc.TrendFollowing
	reg.Register(strategy.NewTrendFollowing(tf.ShortWindow, tf.LongWindow, tf.PositionSize))
	mr := sc.MeanReversion
	reg.Register(strategy.NewMeanReversion(mr.MeanWindow, mr.ThresholdPct, mr.PositionSize))

	strat, ok := reg.Get(sc.Name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", sc.Name, reg.List())
	}
	return strat, nil
}

// loadPrices reads the price table either from a CSV file or from the Parquet
// bar store, depending on configuration.
func loadPrices(cfg *config.Config, universe domain.Universe) ([]domain.PriceRow, error) {
	if cfg.Backtest.CSVPath != "" {
		return store.LoadPriceTableCSV(cfg.Backtest.CSVPath, universe)
	}

	start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", cfg.Backtest.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", cfg.Backtest.EndDate, err)
	}

	bs := store.NewParquetStore(cfg.Storage.DataDir)
	return store.BuildPriceTable(context.Background(), bs, universe, start, end)
}

func printReport(result *engine.Result) {
	r := result.Report
	fmt.Println("=== Performance Report ===")
	fmt.Printf("Total Return: %8.4f\n", r.TotalReturn)
	fmt.Printf("Sharpe:       %8.4f\n", r.Sharpe)
	fmt.Printf("Sortino:      %8.4f\n", r.Sortino)
	fmt.Printf("Max Drawdown: %8.4f\n", r.MaxDrawdown)
	fmt.Printf("Win Rate:     %8.4f\n", r.WinRate)
	fmt.Printf("Average Gain: %8.4f\n", r.AverageGain)
	fmt.Printf("Average Loss: %8.4f\n", r.AverageLoss)
	fmt.Printf("Exposure:     %8.4f\n", r.Exposure)
	fmt.Printf("Trades: %d executed, %d closed\n", len(result.Trades), len(result.ClosedTrades))
}

func saveRun(cfg *config.Config, result *engine.Result) (int64, error) {
	rs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return 0, err
	}
	defer rs.Close()

	start, end := runRange(result.EquityCurve)
	run := &store.RunRecord{
		Strategy:     cfg.Backtest.Strategy.Name,
		Universe:     domain.Universe(cfg.Backtest.Universe),
		InitialCash:  cfg.Backtest.InitialCash,
		StartDate:    start,
		EndDate:      end,
		Report:       result.Report.Map(),
		Trades:       result.Trades,
		ClosedTrades: result.ClosedTrades,
		EquityCurve:  result.EquityCurve,
	}
	return rs.SaveRun(context.Background(), run)
}

// runRange derives the simulated date range from a completed equity curve.
// The first row is the pre-trading baseline, so the range starts at the
// second row.
func runRange(curve []domain.EquitySnapshot) (start, end time.Time) {
	start = curve[0].Date
	if len(curve) > 1 {
		start = curve[1].Date
	}
	return start, curve[len(curve)-1].Date
}

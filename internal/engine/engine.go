// Package engine drives the day-by-day simulation loop: it feeds closing
// prices to a strategy, executes the resulting intents against the portfolio
// ledger, and derives a performance report from the equity curve.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"tidemark/internal/domain"
	"tidemark/internal/portfolio"
	"tidemark/internal/strategy"
)

// runState tracks the engine's lifecycle. A run is all-or-nothing: there is
// no partial or resumable state.
type runState int

const (
	stateNotStarted runState = iota
	stateRunning
	stateCompleted
)

// Engine orchestrates one backtest over a fixed universe.
type Engine struct {
	universe domain.Universe
	strat    strategy.Strategy
	pf       *portfolio.Portfolio
	log      *slog.Logger
	state    runState
}

// Result bundles the performance report with the full trade log, realized
// P&L log, and equity curve of a completed run.
type Result struct {
	Report       Report
	Trades       []domain.Trade
	ClosedTrades []domain.ClosedTrade
	EquityCurve  []domain.EquitySnapshot
}

// New creates an Engine wiring the shared universe, the strategy, and the
// portfolio ledger. If logger is nil the default slog logger is used.
func New(universe domain.Universe, strat strategy.Strategy, pf *portfolio.Portfolio, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		universe: universe,
		strat:    strat,
		pf:       pf,
		log:      logger.With("strategy", strat.Name()),
	}
}

// Run replays the price rows in order through the strategy and ledger.
//
// Per day: every instrument's close is fed to the strategy in universe order,
// the day's intents are drained and executed in generation order, the
// portfolio is marked to market, and one equity snapshot is recorded. Before
// the first trading day a baseline snapshot establishes the starting value
// for return calculations.
//
// Ledger rejections (insufficient funds or shares, repeat buys on an open
// position) are logged and skipped; the run continues. Structural defects —
// unordered dates, a missing universe column, a non-finite price — abort the
// run with an error.
func (e *Engine) Run(rows []domain.PriceRow) (*Result, error) {
	switch e.state {
	case stateRunning:
		return nil, errors.New("engine: run already in progress")
	case stateCompleted:
		return nil, errors.New("engine: run already completed")
	}
	if len(rows) == 0 {
		return nil, errors.New("engine: no price rows to simulate")
	}
	e.state = stateRunning

	// Baseline snapshot before any trading, dated just before the first row.
	if len(e.pf.EquityCurve()) == 0 {
		e.pf.RecordEquity(rows[0].Date.AddDate(0, 0, -1))
	}

	prevDate := rows[0].Date.AddDate(0, 0, -1)
	for _, row := range rows {
		if !row.Date.After(prevDate) {
			return nil, fmt.Errorf("engine: price dates not strictly increasing at %s", row.Date.Format("2006-01-02"))
		}
		prevDate = row.Date

		for _, sym := range e.universe {
			close, ok := row.Closes[sym]
			if !ok {
				return nil, fmt.Errorf("engine: missing close for %s on %s", sym, row.Date.Format("2006-01-02"))
			}
			if !domain.IsFinite(close) {
				return nil, fmt.Errorf("engine: non-finite close %v for %s on %s", close, sym, row.Date.Format("2006-01-02"))
			}
			if err := e.strat.ProcessDay(sym, close); err != nil {
				return nil, fmt.Errorf("engine: %s on %s: %w", sym, row.Date.Format("2006-01-02"), err)
			}
		}

		for _, intent := range e.strat.Drain() {
			if err := e.execute(intent, row); err != nil {
				return nil, err
			}
		}

		if err := e.pf.Update(row.Closes); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.pf.RecordEquity(row.Date)
	}

	report, err := ComputePerformance(e.pf.EquityCurve(), e.pf.ClosedTrades())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.state = stateCompleted
	return &Result{
		Report:       report,
		Trades:       e.pf.Trades(),
		ClosedTrades: e.pf.ClosedTrades(),
		EquityCurve:  e.pf.EquityCurve(),
	}, nil
}

// execute runs one intent against the ledger. Rejections degrade to logged
// no-ops; anything else is fatal to the run.
func (e *Engine) execute(intent domain.TradeIntent, row domain.PriceRow) error {
	price := row.Closes[intent.Symbol]

	var err error
	switch intent.Side {
	case domain.SideBuy:
		err = e.pf.Buy(intent.Symbol, intent.Qty, price, row.Date)
	case domain.SideSell:
		err = e.pf.Sell(intent.Symbol, intent.Qty, price, row.Date)
	default:
		return fmt.Errorf("engine: unknown intent side %q", intent.Side)
	}

	if err == nil {
		return nil
	}
	if errors.Is(err, portfolio.ErrInsufficientFunds) ||
		errors.Is(err, portfolio.ErrInsufficientShares) ||
		errors.Is(err, portfolio.ErrPositionOpen) {
		e.log.Warn("trade rejected",
			"symbol", intent.Symbol,
			"side", string(intent.Side),
			"qty", intent.Qty,
			"price", price,
			"date", row.Date.Format("2006-01-02"),
			"reason", err.Error(),
		)
		return nil
	}
	return fmt.Errorf("engine: executing %s %d %s: %w", intent.Side, intent.Qty, intent.Symbol, err)
}

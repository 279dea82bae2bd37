// Package domain defines the core data types shared across the backtesting
// system: price data, trade intents, ledger records, and equity snapshots.
package domain

import (
	"math"
	"time"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one OHLCV bar for a single symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PriceRow holds one trading day's closing price for every instrument in the
// universe, keyed by symbol. Rows are consumed by the engine in strictly
// ascending date order.
type PriceRow struct {
	Date   time.Time
	Closes map[string]float64
}

// Universe is the fixed, ordered set of instruments known to a simulation.
// Portfolio, strategies, and the engine all share one Universe by
// construction; every trade intent must reference a member.
type Universe []string

// Contains reports whether symbol is a member of the universe.
func (u Universe) Contains(symbol string) bool {
	for _, s := range u {
		if s == symbol {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Trading
// ---------------------------------------------------------------------------

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeIntent is a strategy's request to trade a fixed quantity of one
// instrument. Intents are ephemeral: the engine drains them once per
// simulated day and discards them after execution.
type TradeIntent struct {
	Symbol string
	Side   Side
	Qty    int
}

// Trade is one executed buy or sell, appended to the portfolio's trade log.
// Immutable once appended.
type Trade struct {
	Date     time.Time
	Symbol   string
	Side     Side
	Shares   int
	Price    float64
	Notional float64
}

// OpenPosition records an instrument's currently held entry. Created when a
// position goes from flat to non-flat, removed when it returns to flat.
type OpenPosition struct {
	EntryPrice float64
	Shares     int
	EntryDate  time.Time
}

// ClosedTrade is the realized-PnL record created when a position is fully
// closed. Immutable once appended.
type ClosedTrade struct {
	Symbol      string
	EntryDate   time.Time
	ExitDate    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Shares      int
	RealizedPnL float64
}

// EquitySnapshot is one row of the equity curve: cash, total portfolio value,
// and per-instrument share counts as of Date.
type EquitySnapshot struct {
	Date           time.Time
	Cash           float64
	PortfolioValue float64
	Positions      map[string]int
}

// IsFinite reports whether v is a usable price: not NaN and not infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

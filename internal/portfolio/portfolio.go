// Package portfolio implements the authoritative simulation ledger: cash,
// share positions, trade history, realized P&L, and the equity curve.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"tidemark/internal/domain"
)

// Rejection sentinels. A rejected trade mutates nothing; callers assert on
// these with errors.Is and decide whether to continue.
var (
	// ErrInsufficientFunds is returned when a buy would overdraw cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds held shares.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrUnknownSymbol is returned for a trade outside the universe.
	ErrUnknownSymbol = errors.New("symbol not in universe")

	// ErrPositionOpen is returned for a buy while a position is already open.
	// The ledger tracks one open entry per instrument, so adding to an open
	// position would lose the original entry price.
	ErrPositionOpen = errors.New("position already open")

	// ErrInvalidTrade is returned for non-positive quantities or non-finite
	// or non-positive prices.
	ErrInvalidTrade = errors.New("invalid trade")
)

// Portfolio owns the ledger state for one simulation run. It is not safe for
// concurrent use; a run is single-threaded by design.
type Portfolio struct {
	universe domain.Universe

	cash           float64
	positions      map[string]int
	portfolioValue float64

	trades        []domain.Trade
	closedTrades  []domain.ClosedTrade
	openPositions map[string]domain.OpenPosition
	equityCurve   []domain.EquitySnapshot
}

// New creates a Portfolio over the given universe with startCash available.
func New(universe domain.Universe, startCash float64) *Portfolio {
	positions := make(map[string]int, len(universe))
	for _, sym := range universe {
		positions[sym] = 0
	}
	return &Portfolio{
		universe:       universe,
		cash:           startCash,
		positions:      positions,
		portfolioValue: startCash,
		openPositions:  make(map[string]domain.OpenPosition),
	}
}

// Buy debits cash, credits the position, and records the trade and its open
// entry. It rejects without mutation when the symbol is unknown, the cost
// exceeds available cash, or a position is already open for the symbol.
func (p *Portfolio) Buy(symbol string, shares int, price float64, date time.Time) error {
	if err := p.checkTrade(symbol, shares, price); err != nil {
		return err
	}
	if _, open := p.openPositions[symbol]; open {
		return fmt.Errorf("buy %d %s: %w", shares, symbol, ErrPositionOpen)
	}

	cost := float64(shares) * price
	if cost > p.cash {
		return fmt.Errorf("buy %d %s at %v (cost %v, cash %v): %w",
			shares, symbol, price, cost, p.cash, ErrInsufficientFunds)
	}

	p.cash -= cost
	p.positions[symbol] += shares
	p.trades = append(p.trades, domain.Trade{
		Date:     date,
		Symbol:   symbol,
		Side:     domain.SideBuy,
		Shares:   shares,
		Price:    price,
		Notional: cost,
	})
	p.openPositions[symbol] = domain.OpenPosition{
		EntryPrice: price,
		Shares:     shares,
		EntryDate:  date,
	}
	return nil
}

// Sell credits cash and debits the position. When the position returns to
// exactly zero it closes the open entry and appends one ClosedTrade with
// realized P&L of (exit − entry) × shares. It rejects without mutation when
// the symbol is unknown or more shares are sold than held.
func (p *Portfolio) Sell(symbol string, shares int, price float64, date time.Time) error {
	if err := p.checkTrade(symbol, shares, price); err != nil {
		return err
	}

	held := p.positions[symbol]
	if shares > held {
		return fmt.Errorf("sell %d %s (held %d): %w",
			shares, symbol, held, ErrInsufficientShares)
	}

	proceeds := float64(shares) * price
	p.cash += proceeds
	p.positions[symbol] -= shares
	p.trades = append(p.trades, domain.Trade{
		Date:     date,
		Symbol:   symbol,
		Side:     domain.SideSell,
		Shares:   shares,
		Price:    price,
		Notional: proceeds,
	})

	if p.positions[symbol] == 0 {
		if entry, ok := p.openPositions[symbol]; ok {
			delete(p.openPositions, symbol)
			p.closedTrades = append(p.closedTrades, domain.ClosedTrade{
				Symbol:      symbol,
				EntryDate:   entry.EntryDate,
				ExitDate:    date,
				EntryPrice:  entry.EntryPrice,
				ExitPrice:   price,
				Shares:      entry.Shares,
				RealizedPnL: (price - entry.EntryPrice) * float64(entry.Shares),
			})
		}
	}
	return nil
}

// checkTrade validates the shared preconditions for Buy and Sell.
func (p *Portfolio) checkTrade(symbol string, shares int, price float64) error {
	if !p.universe.Contains(symbol) {
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	if shares <= 0 {
		return fmt.Errorf("%s: %d shares: %w", symbol, shares, ErrInvalidTrade)
	}
	if !domain.IsFinite(price) || price <= 0 {
		return fmt.Errorf("%s: price %v: %w", symbol, price, ErrInvalidTrade)
	}
	return nil
}

// Update recomputes portfolio value as cash plus the marked-to-market value
// of all positions. It is a pure recomputation: calling it repeatedly with
// the same prices yields the same value and appends nothing.
func (p *Portfolio) Update(prices map[string]float64) error {
	holdings := 0.0
	for _, sym := range p.universe {
		shares := p.positions[sym]
		if shares == 0 {
			continue
		}
		price, ok := prices[sym]
		if !ok {
			return fmt.Errorf("update: missing price for held symbol %s", sym)
		}
		holdings += float64(shares) * price
	}
	p.portfolioValue = p.cash + holdings
	return nil
}

// RecordEquity appends one equity snapshot for date: cash, portfolio value,
// and every instrument's share count at this instant. Call once per
// simulated day, after Update.
func (p *Portfolio) RecordEquity(date time.Time) {
	snapshot := domain.EquitySnapshot{
		Date:           date,
		Cash:           p.cash,
		PortfolioValue: p.portfolioValue,
		Positions:      make(map[string]int, len(p.universe)),
	}
	for _, sym := range p.universe {
		snapshot.Positions[sym] = p.positions[sym]
	}
	p.equityCurve = append(p.equityCurve, snapshot)
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the share count held for symbol.
func (p *Portfolio) Position(symbol string) int { return p.positions[symbol] }

// Value returns the portfolio value as of the last Update.
func (p *Portfolio) Value() float64 { return p.portfolioValue }

// Trades returns the append-only trade log.
func (p *Portfolio) Trades() []domain.Trade { return p.trades }

// ClosedTrades returns the realized P&L log.
func (p *Portfolio) ClosedTrades() []domain.ClosedTrade { return p.closedTrades }

// OpenPosition returns the open entry for symbol, if any.
func (p *Portfolio) OpenPosition(symbol string) (domain.OpenPosition, bool) {
	op, ok := p.openPositions[symbol]
	return op, ok
}

// EquityCurve returns the recorded equity snapshots in order.
func (p *Portfolio) EquityCurve() []domain.EquitySnapshot { return p.equityCurve }

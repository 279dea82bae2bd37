package strategy

import (
	"fmt"

	"tidemark/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*TrendFollowing)(nil)

// TrendFollowing implements a simple moving average crossover strategy. Per
// instrument it is a two-state machine: flat until the short-period SMA rises
// above the long-period SMA (buy a fixed quantity), long until the short SMA
// falls back below (sell the same quantity). Ties produce no signal.
type TrendFollowing struct {
	shortWindow  int
	longWindow   int
	positionSize int

	states  map[string]*trendState
	pending []domain.TradeIntent
}

// trendState is the per-instrument rolling history and position flag.
type trendState struct {
	prices     *Window
	inPosition bool
}

// NewTrendFollowing creates a TrendFollowing strategy with the given SMA
// periods and fixed per-trade quantity. Both periods must be positive and
// shortWindow less than longWindow; config.Validate enforces this for
// configured runs, and the rolling window panics on a non-positive period.
func NewTrendFollowing(shortWindow, longWindow, positionSize int) *TrendFollowing {
	return &TrendFollowing{
		shortWindow:  shortWindow,
		longWindow:   longWindow,
		positionSize: positionSize,
		states:       make(map[string]*trendState),
	}
}

// Name returns "trend-following".
func (s *TrendFollowing) Name() string {
	return "trend-following"
}

// ProcessDay feeds one day's closing price for symbol into its state machine.
func (s *TrendFollowing) ProcessDay(symbol string, close float64) error {
	if !domain.IsFinite(close) {
		return fmt.Errorf("trend-following: non-finite close %v for %s", close, symbol)
	}

	state, ok := s.states[symbol]
	if !ok {
		state = &trendState{prices: NewWindow(s.longWindow)}
		s.states[symbol] = state
	}
	state.prices.Push(close)

	if state.prices.Len() < s.longWindow {
		return nil
	}

	shortMA, err := state.prices.SMA(s.shortWindow)
	if err != nil {
		return fmt.Errorf("trend-following: %w", err)
	}
	longMA, err := state.prices.SMA(s.longWindow)
	if err != nil {
		return fmt.Errorf("trend-following: %w", err)
	}

	switch {
	case shortMA > longMA && !state.inPosition:
		s.pending = append(s.pending, domain.TradeIntent{
			Symbol: symbol,
			Side:   domain.SideBuy,
			Qty:    s.positionSize,
		})
		state.inPosition = true

	case shortMA < longMA && state.inPosition:
		s.pending = append(s.pending, domain.TradeIntent{
			Symbol: symbol,
			Side:   domain.SideSell,
			Qty:    s.positionSize,
		})
		state.inPosition = false
	}

	return nil
}

// Drain returns the pending intents in generation order and clears the buffer.
func (s *TrendFollowing) Drain() []domain.TradeIntent {
	out := s.pending
	s.pending = nil
	return out
}

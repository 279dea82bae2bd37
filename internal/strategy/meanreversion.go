package strategy

import (
	"fmt"

	"tidemark/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*MeanReversion)(nil)

// posState is the discrete position state of one instrument's machine.
type posState int

const (
	posFlat posState = iota
	posLong
	posShort
)

// MeanReversion trades reversions to a rolling mean. It maintains a single
// moving average per instrument with bands at ± thresholdPct of that mean and
// runs a three-state machine: flat, long, short.
//
//   - Flat, close below the lower band: buy a fixed quantity, go long. The
//     long check runs first, so a (theoretically impossible) double breach
//     resolves to long.
//   - Flat, close above the upper band: go short.
//   - Long, close at or above the mean: sell, back to flat.
//   - Short, close at or below the mean: back to flat.
//
// The short side of the machine is signal-tracked only: the ledger holds
// non-negative share counts, so short entries and exits emit no intents.
type MeanReversion struct {
	meanWindow   int
	thresholdPct float64
	positionSize int

	states  map[string]*reversionState
	pending []domain.TradeIntent
}

// reversionState is the per-instrument rolling history and machine state.
type reversionState struct {
	prices *Window
	pos    posState
}

// NewMeanReversion creates a MeanReversion strategy. thresholdPct is the band
// distance as a fraction of the rolling mean, e.g. 0.02 for 2% bands.
// meanWindow must be positive; config.Validate enforces this for configured
// runs, and the rolling window panics on a non-positive period.
func NewMeanReversion(meanWindow int, thresholdPct float64, positionSize int) *MeanReversion {
	return &MeanReversion{
		meanWindow:   meanWindow,
		thresholdPct: thresholdPct,
		positionSize: positionSize,
		states:       make(map[string]*reversionState),
	}
}

// Name returns "mean-reversion".
func (s *MeanReversion) Name() string {
	return "mean-reversion"
}

// ProcessDay feeds one day's closing price for symbol into its state machine.
func (s *MeanReversion) ProcessDay(symbol string, close float64) error {
	if !domain.IsFinite(close) {
		return fmt.Errorf("mean-reversion: non-finite close %v for %s", close, symbol)
	}

	state, ok := s.states[symbol]
	if !ok {
		state = &reversionState{prices: NewWindow(s.meanWindow)}
		s.states[symbol] = state
	}
	state.prices.Push(close)

	if state.prices.Len() < s.meanWindow {
		return nil
	}

	mean, err := state.prices.SMA(s.meanWindow)
	if err != nil {
		return fmt.Errorf("mean-reversion: %w", err)
	}
	upperBand := mean * (1 + s.thresholdPct)
	lowerBand := mean * (1 - s.thresholdPct)

	switch state.pos {
	case posFlat:
		if close < lowerBand {
			s.pending = append(s.pending, domain.TradeIntent{
				Symbol: symbol,
				Side:   domain.SideBuy,
				Qty:    s.positionSize,
			})
			state.pos = posLong
		} else if close > upperBand {
			state.pos = posShort
		}

	case posLong:
		if close >= mean {
			s.pending = append(s.pending, domain.TradeIntent{
				Symbol: symbol,
				Side:   domain.SideSell,
				Qty:    s.positionSize,
			})
			state.pos = posFlat
		}

	case posShort:
		if close <= mean {
			state.pos = posFlat
		}
	}

	return nil
}

// Drain returns the pending intents in generation order and clears the buffer.
func (s *MeanReversion) Drain() []domain.TradeIntent {
	out := s.pending
	s.pending = nil
	return out
}

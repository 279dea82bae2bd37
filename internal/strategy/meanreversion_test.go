package strategy

import (
	"math"
	"testing"

	"tidemark/internal/domain"
)

// With mean_window=3 and 2% bands: day 3 closes at the mean (no signal), day
// 4's drop to 90 lands below the lower band of the rolling mean of
// [100,100,90] (≈96.67 × 0.98 ≈ 94.73) and enters long.
func TestMeanReversionLongEntryBelowLowerBand(t *testing.T) {
	s := NewMeanReversion(3, 0.02, 10)
	prices := []float64{100, 100, 100, 90}

	var intents []domain.TradeIntent
	for i, p := range prices {
		if err := s.ProcessDay("AAPL", p); err != nil {
			t.Fatalf("ProcessDay(%v): %v", p, err)
		}
		day := s.Drain()
		if i < 3 && len(day) != 0 {
			t.Fatalf("day %d intents = %v, want none", i+1, day)
		}
		intents = append(intents, day...)
	}

	if len(intents) != 1 {
		t.Fatalf("got %d intents, want 1: %v", len(intents), intents)
	}
	got := intents[0]
	if got.Symbol != "AAPL" || got.Side != domain.SideBuy || got.Qty != 10 {
		t.Errorf("intent = %+v, want BUY 10 AAPL", got)
	}
}

func TestMeanReversionLongExitAtMean(t *testing.T) {
	s := NewMeanReversion(3, 0.02, 10)

	// Enter long on the drop, then recover back to the rolling mean.
	// After [100,100,90]: long. Next close 100 vs mean of [100,90,100]≈96.67,
	// 100 ≥ mean → exit.
	prices := []float64{100, 100, 90, 100}
	var intents []domain.TradeIntent
	for _, p := range prices {
		if err := s.ProcessDay("AAPL", p); err != nil {
			t.Fatalf("ProcessDay(%v): %v", p, err)
		}
		intents = append(intents, s.Drain()...)
	}

	if len(intents) != 2 {
		t.Fatalf("got %d intents, want 2 (BUY then SELL): %v", len(intents), intents)
	}
	if intents[0].Side != domain.SideBuy || intents[1].Side != domain.SideSell {
		t.Errorf("intents = %v, want [BUY SELL]", intents)
	}
}

// The short side of the machine tracks state without emitting intents: a
// breach of the upper band flips to short, reversion to the mean flips back
// to flat, and no orders are generated along the way.
func TestMeanReversionShortSideEmitsNoIntents(t *testing.T) {
	s := NewMeanReversion(3, 0.02, 10)

	prices := []float64{100, 100, 110, 100, 90}
	for _, p := range prices {
		if err := s.ProcessDay("AAPL", p); err != nil {
			t.Fatalf("ProcessDay(%v): %v", p, err)
		}
		if got := s.Drain(); len(got) != 0 {
			// [100,100,110]: mean≈103.33, upper≈105.4, close 110 → short, no intent.
			// [100,110,100]: mean≈103.33, close 100 ≤ mean → flat, no intent.
			// [110,100,90]: mean=100, lower=98, close 90 → long entry, the
			// first permitted intent.
			if got[0].Side != domain.SideBuy || p != 90 {
				t.Fatalf("unexpected intents %v at close %v", got, p)
			}
			return
		}
	}
	t.Error("expected a long entry after the short round trip")
}

func TestMeanReversionNoSignalInsideBands(t *testing.T) {
	s := NewMeanReversion(3, 0.05, 10)

	// Small oscillations stay inside 5% bands.
	for _, p := range []float64{100, 101, 99, 100, 101} {
		if err := s.ProcessDay("AAPL", p); err != nil {
			t.Fatalf("ProcessDay(%v): %v", p, err)
		}
	}
	if got := s.Drain(); len(got) != 0 {
		t.Errorf("got intents %v inside bands, want none", got)
	}
}

func TestMeanReversionRejectsNonFinitePrice(t *testing.T) {
	s := NewMeanReversion(3, 0.02, 10)

	if err := s.ProcessDay("AAPL", math.NaN()); err == nil {
		t.Error("ProcessDay(NaN) = nil, want error")
	}
}

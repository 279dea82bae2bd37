package engine

import (
	"errors"
	"math"

	"tidemark/internal/domain"
)

// tradingDaysPerYear annualizes daily return ratios.
const tradingDaysPerYear = 252

// Report holds the summary statistics of one completed run.
type Report struct {
	TotalReturn float64
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64
	WinRate     float64
	AverageGain float64
	AverageLoss float64
	Exposure    float64
}

// Map returns the report as the fixed metric-name → value mapping consumed
// by persistence and display layers.
func (r Report) Map() map[string]float64 {
	return map[string]float64{
		"Total Return": r.TotalReturn,
		"Sharpe":       r.Sharpe,
		"Sortino":      r.Sortino,
		"Max Drawdown": r.MaxDrawdown,
		"Win Rate":     r.WinRate,
		"Average Gain": r.AverageGain,
		"Average Loss": r.AverageLoss,
		"Exposure":     r.Exposure,
	}
}

// ComputePerformance derives summary statistics from a completed equity curve
// and the realized-trade log.
//
// The first curve row is the pre-trading baseline: it anchors total return
// and the first daily return, and is excluded from exposure. Trade-outcome
// statistics degrade to zero when there are no closed trades — an empty
// trading history is a valid result, not an error. An empty curve is a
// construction defect and returns an error.
func ComputePerformance(curve []domain.EquitySnapshot, closed []domain.ClosedTrade) (Report, error) {
	if len(curve) == 0 {
		return Report{}, errors.New("performance: equity curve is empty")
	}

	values := make([]float64, len(curve))
	for i, snap := range curve {
		values[i] = snap.PortfolioValue
	}

	var report Report

	// Total return and drawdown over the value series.
	if values[0] != 0 {
		report.TotalReturn = values[len(values)-1]/values[0] - 1
	}
	runningMax := values[0]
	for _, v := range values {
		if v > runningMax {
			runningMax = v
		}
		if runningMax > 0 {
			dd := (v - runningMax) / runningMax
			if dd < report.MaxDrawdown {
				report.MaxDrawdown = dd
			}
		}
	}

	// Daily simple returns; the first day has no predecessor and is dropped.
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}

	report.Sharpe = annualizedRatio(returns, returns)

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	report.Sortino = annualizedRatio(returns, downside)

	// Trade-outcome statistics, zero-safe on an empty trade set.
	var wins, losses int
	var gainSum, lossSum float64
	for _, ct := range closed {
		if ct.RealizedPnL > 0 {
			wins++
			gainSum += ct.RealizedPnL
		} else if ct.RealizedPnL < 0 {
			losses++
			lossSum += ct.RealizedPnL
		}
	}
	if len(closed) > 0 {
		report.WinRate = float64(wins) / float64(len(closed))
	}
	if wins > 0 {
		report.AverageGain = gainSum / float64(wins)
	}
	if losses > 0 {
		report.AverageLoss = lossSum / float64(losses)
	}

	// Exposure: fraction of simulated days holding anything, baseline excluded.
	if len(curve) > 1 {
		held := 0
		for _, snap := range curve[1:] {
			for _, shares := range snap.Positions {
				if shares != 0 {
					held++
					break
				}
			}
		}
		report.Exposure = float64(held) / float64(len(curve)-1)
	}

	return report, nil
}

// annualizedRatio computes mean(returns)/stdev(vol) × √252, where vol is the
// return subset whose sample deviation forms the denominator (all returns
// for Sharpe, negative returns only for Sortino). Zero when undefined.
func annualizedRatio(returns, vol []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sd := stdev(vol)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(tradingDaysPerYear)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation; zero for fewer than two values.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

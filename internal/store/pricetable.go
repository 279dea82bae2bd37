package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tidemark/internal/domain"
)

// BuildPriceTable assembles the engine's input rows from stored bars: one row
// per trading day with the closing price of every universe member. A day on
// which any member lacks a bar is a data defect and fails the build — a
// partial row would corrupt rolling statistics downstream.
func BuildPriceTable(ctx context.Context, bs BarStore, universe domain.Universe, start, end time.Time) ([]domain.PriceRow, error) {
	byDate := make(map[time.Time]map[string]float64)

	for _, sym := range universe {
		bars, err := bs.ReadBars(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("no bars for %s in [%s, %s]",
				sym, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		for _, b := range bars {
			day := b.Timestamp.UTC().Truncate(24 * time.Hour)
			closes, ok := byDate[day]
			if !ok {
				closes = make(map[string]float64, len(universe))
				byDate[day] = closes
			}
			closes[sym] = b.Close
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]domain.PriceRow, 0, len(dates))
	for _, d := range dates {
		closes := byDate[d]
		for _, sym := range universe {
			if _, ok := closes[sym]; !ok {
				return nil, fmt.Errorf("missing bar for %s on %s", sym, d.Format("2006-01-02"))
			}
		}
		rows = append(rows, domain.PriceRow{Date: d, Closes: closes})
	}
	return rows, nil
}

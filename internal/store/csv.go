package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"tidemark/internal/domain"
)

// LoadPriceTableCSV reads a date-indexed price table: a "Date" column
// followed by one closing-price column per instrument. Every universe member
// must have a column; extra columns are ignored. Dates must be strictly
// increasing and every price finite and positive.
func LoadPriceTableCSV(path string, universe domain.Universe) ([]domain.PriceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	header := records[0]
	if len(header) == 0 || header[0] != "Date" {
		return nil, fmt.Errorf("%s: first column must be Date, got %q", path, header)
	}

	colIdx := make(map[string]int, len(universe))
	for i, name := range header[1:] {
		colIdx[name] = i + 1
	}
	for _, sym := range universe {
		if _, ok := colIdx[sym]; !ok {
			return nil, fmt.Errorf("%s: missing column for %s", path, sym)
		}
	}

	rows := make([]domain.PriceRow, 0, len(records)-1)
	var prev time.Time
	for lineNo, rec := range records[1:] {
		date, err := time.Parse(dateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q: %w", path, lineNo+2, rec[0], err)
		}
		if !prev.IsZero() && !date.After(prev) {
			return nil, fmt.Errorf("%s row %d: dates not strictly increasing at %s", path, lineNo+2, rec[0])
		}
		prev = date

		closes := make(map[string]float64, len(universe))
		for _, sym := range universe {
			idx := colIdx[sym]
			if idx >= len(rec) {
				return nil, fmt.Errorf("%s row %d: missing value for %s", path, lineNo+2, sym)
			}
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad price %q for %s: %w", path, lineNo+2, rec[idx], sym, err)
			}
			if !domain.IsFinite(v) || v <= 0 {
				return nil, fmt.Errorf("%s row %d: price %v for %s is not finite and positive", path, lineNo+2, v, sym)
			}
			closes[sym] = v
		}
		rows = append(rows, domain.PriceRow{Date: date, Closes: closes})
	}
	return rows, nil
}

// WriteEquityCurveCSV exports an equity curve for plotting layers: columns
// Date, Cash, Portfolio_value, then one share-count column per instrument.
func WriteEquityCurveCSV(path string, curve []domain.EquitySnapshot, universe domain.Universe) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"Date", "Cash", "Portfolio_value"}, universe...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, snap := range curve {
		rec := make([]string, 0, len(header))
		rec = append(rec,
			snap.Date.Format(dateLayout),
			strconv.FormatFloat(snap.Cash, 'f', -1, 64),
			strconv.FormatFloat(snap.PortfolioValue, 'f', -1, 64),
		)
		for _, sym := range universe {
			rec = append(rec, strconv.Itoa(snap.Positions[sym]))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

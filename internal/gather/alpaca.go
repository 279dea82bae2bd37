package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tidemark/internal/domain"
	"tidemark/internal/store"
	"tidemark/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ Gatherer = (*DailyBarGatherer)(nil)

// ---------------------------------------------------------------------------
// DailyBarGatherer — daily OHLCV bars from the Alpaca API.
// ---------------------------------------------------------------------------

// DailyBarGatherer gathers daily bar data for a fixed universe of US equities
// via the Alpaca market-data API and writes it to the bar store.
type DailyBarGatherer struct {
	client      *marketdata.Client
	store       store.BarStore
	universe    domain.Universe
	startDate   string
	maxAttempts int
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials, target store, universe, and fetch parameters.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, universe domain.Universe, startDate string, rateLimitPerMin, maxAttempts int) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &DailyBarGatherer{
		client:      marketdata.NewClient(opts),
		store:       s,
		universe:    universe,
		startDate:   startDate,
		maxAttempts: maxAttempts,
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		log:         slog.Default().With("gatherer", "daily-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "daily-bars" }

// Run fetches daily bars for every universe symbol from the configured start
// date through the most recent finished trading day, and writes them to the
// bar store. Re-running is idempotent: the store merges by symbol and day.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.universe) == 0 {
		return fmt.Errorf("empty universe")
	}

	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}
	end := util.PreviousTradingDay(time.Now().UTC())

	rng := DateRange{Start: start, End: end}
	g.log.Info("starting daily-bars",
		"symbols", len(g.universe),
		"start", rng.Start.Format("2006-01-02"),
		"end", rng.End.Format("2006-01-02"),
	)

	runStart := time.Now()
	var total int
	for _, symbol := range g.universe {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		bars, err := g.fetchBars(ctx, symbol, rng)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			g.log.Warn("no bars returned", "symbol", symbol)
			continue
		}

		if err := g.store.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing %s bars: %w", symbol, err)
		}
		total += len(bars)
		g.log.Info("symbol done", "symbol", symbol, "bars", len(bars))
	}

	g.log.Info("complete",
		"bars", total,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchBars fetches daily bars for one symbol, retrying transient failures.
func (g *DailyBarGatherer) fetchBars(ctx context.Context, symbol string, rng DateRange) ([]domain.Bar, error) {
	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, g.maxAttempts, time.Second, func() error {
		var ferr error
		alpacaBars, ferr = g.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     rng.Start,
			End:       rng.End,
		})
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:     strings.ToUpper(symbol),
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}

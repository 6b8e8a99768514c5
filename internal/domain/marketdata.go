package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one closing price reported by a market-data provider
type Bar struct {
	Date  time.Time
	Close decimal.Decimal
}

// MarketDataProvider is the external source of equity prices and exchange rates.
// Implementations return ErrProviderUnavailable (wrapped) on network failures or empty results.
type MarketDataProvider interface {
	// DailyBars returns daily closes between start and end inclusive, ordered by date
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)

	// MonthlyBars returns one close per month between start and end inclusive
	MonthlyBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)

	// SpotPrice returns the latest traded price
	SpotPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	// FxRate converts one unit of currency into the home currency; the home currency is always 1
	FxRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

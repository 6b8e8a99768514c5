package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/adapter/marketdata/marketdatatest"
	"github.com/simaogato/assetflow-backend/internal/adapter/repository/sqlstore/sqlstoretest"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func bar(date time.Time, close int64) domain.Bar {
	return domain.Bar{Date: date, Close: dec(close)}
}

func holding(id, ticker string, qty int64, history ...domain.HistoryEntry) *domain.Asset {
	return &domain.Asset{
		ID:               id,
		Name:             id,
		AcquisitionDate:  day(2023, 3, 1),
		AcquisitionPrice: dec(100),
		Quantity:         dec(qty),
		Details:          &domain.StockDetails{AccountName: "A", Ticker: ticker},
		History:          history,
	}
}

func newService(t *testing.T, market *marketdatatest.MockProvider) (*Service, domain.Store, *sqlstoretest.Invalidations) {
	store := sqlstoretest.New(t)
	inv := &sqlstoretest.Invalidations{}
	cfg := DefaultConfig()
	cfg.Concurrency = 2
	svc := NewService(store, market, inv, logging.NewSilentLogger(), cfg,
		WithClock(func() time.Time { return today }))
	return svc, store, inv
}

func TestUpdateAll_MergeKeepsStoredQuantities(t *testing.T) {
	ctx := context.Background()
	market := new(marketdatatest.MockProvider)
	svc, store, inv := newService(t, market)

	sqlstoretest.Seed(t, store, holding("acme", " acme ", 8,
		domain.NewPriceEntry(day(2023, 12, 29), dec(100), dec(10), dec(1)),
		domain.NewPriceEntry(day(2023, 12, 30), dec(101), dec(8), dec(1)),
	))

	market.On("DailyBars", mock.Anything, "ACME", day(2023, 12, 30), day(2024, 1, 2)).
		Return([]domain.Bar{bar(day(2023, 12, 30), 105), bar(day(2023, 12, 31), 106), bar(day(2024, 1, 2), 107)}, nil)
	market.On("SpotPrice", mock.Anything, "ACME").Return(dec(110), nil)

	report, err := svc.UpdateAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.Rewound)

	history, err := store.History().List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.True(t, history[0].Quantity.Decimal.Equal(dec(10)), "untouched day keeps its quantity")
	assert.True(t, history[1].Quantity.Decimal.Equal(dec(8)))
	assert.True(t, history[1].Price.Decimal.Equal(dec(105)))
	assert.True(t, history[1].Value.Decimal.Equal(dec(840)))
	assert.True(t, history[2].Quantity.Decimal.Equal(dec(8)))
	assert.Equal(t, day(2024, 1, 2), history[3].Date)

	asset, err := store.Assets().GetByID(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, asset.CurrentValue.Equal(dec(880)))
	assert.True(t, asset.Quantity.Equal(dec(8)))
	assert.Contains(t, inv.IDs, "acme")
	market.AssertExpectations(t)
	market.AssertNotCalled(t, "FxRate", mock.Anything, mock.Anything)
}

func TestUpdateAll_FailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	market := new(marketdatatest.MockProvider)
	svc, store, _ := newService(t, market)

	sqlstoretest.Seed(t, store, holding("good", "GOOD", 1), holding("bad", "BAD", 1))

	market.On("DailyBars", mock.Anything, "BAD", mock.Anything, mock.Anything).
		Return(nil, domain.ErrProviderUnavailable)
	market.On("DailyBars", mock.Anything, "GOOD", mock.Anything, mock.Anything).
		Return([]domain.Bar{bar(day(2024, 1, 2), 50)}, nil)
	market.On("SpotPrice", mock.Anything, "GOOD").Return(decimal.Zero, errors.New("no quote"))

	report, err := svc.UpdateAll(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Tickers)
	assert.Equal(t, 1, report.Updated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BAD", report.Failures[0].Ticker)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrProviderUnavailable)

	good, err := store.Assets().GetByID(ctx, "good")
	require.NoError(t, err)
	// spot price fell back to the last close
	assert.True(t, good.CurrentValue.Equal(dec(50)))

	bad, err := store.Assets().GetByID(ctx, "bad")
	require.NoError(t, err)
	assert.Empty(t, bad.History)
}

func TestUpdateAll_DriftRewindsHistory(t *testing.T) {
	ctx := context.Background()
	market := new(marketdatatest.MockProvider)
	svc, store, _ := newService(t, market)

	sqlstoretest.Seed(t, store, holding("acme", "ACME", 20,
		domain.NewPriceEntry(day(2023, 3, 1), dec(100), dec(10), dec(1)),
		domain.NewPriceEntry(day(2023, 12, 30), dec(120), dec(10), dec(1)),
	))

	market.On("DailyBars", mock.Anything, "ACME", domain.DefaultEpoch, day(2024, 1, 2)).
		Return([]domain.Bar{bar(day(2024, 1, 2), 130)}, nil)
	market.On("MonthlyBars", mock.Anything, "ACME", domain.DefaultEpoch, day(2024, 1, 2)).
		Return([]domain.Bar{bar(day(2023, 1, 1), 90), bar(day(2023, 6, 1), 110), bar(day(2023, 12, 1), 125)}, nil)
	market.On("SpotPrice", mock.Anything, "ACME").Return(dec(131), nil)

	report, err := svc.UpdateAll(ctx, []string{"acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, report.Rewound)

	history, err := store.History().List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, day(2023, 1, 1), history[0].Date)
	assert.True(t, history[0].Quantity.Decimal.IsZero(), "before acquisition")
	assert.True(t, history[0].Value.Decimal.IsZero())
	assert.True(t, history[1].Quantity.Decimal.Equal(dec(20)))
	assert.True(t, history[1].Value.Decimal.Equal(dec(2200)))
	assert.True(t, history[3].Value.Decimal.Equal(dec(2600)))

	asset, err := store.Assets().GetByID(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, asset.CurrentValue.Equal(dec(2620)))
}

func TestUpdateAll_FxFetchedOncePerCurrency(t *testing.T) {
	ctx := context.Background()
	market := new(marketdatatest.MockProvider)
	svc, store, _ := newService(t, market)

	a := holding("a", "AAA", 1)
	a.Stock().Currency = "USD"
	b := holding("b", "BBB", 2)
	b.Stock().Currency = "USD"
	sqlstoretest.Seed(t, store, a, b)

	market.On("DailyBars", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.Bar{}, nil)
	market.On("SpotPrice", mock.Anything, mock.Anything).Return(dec(10), nil)
	market.On("FxRate", mock.Anything, "USD").Return(dec(1300), nil).Once()

	report, err := svc.UpdateAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)

	got, err := store.Assets().GetByID(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(dec(26000)))
	market.AssertNumberOfCalls(t, "FxRate", 1)
}

func TestUpdateAll_SkipsAdjustmentsAndDisposed(t *testing.T) {
	market := new(marketdatatest.MockProvider)
	svc, store, _ := newService(t, market)

	sold := holding("sold", "OLD", 1)
	sold.DisposalDate = day(2023, 6, 1)
	adj := holding("adj", "ADJ", 1)
	adj.Stock().BalanceAdjustment = true
	sqlstoretest.Seed(t, store, sold, adj)

	report, err := svc.UpdateAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Tickers)
	market.AssertNotCalled(t, "DailyBars", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMergeBars_IgnoresBarsBeforeAcquisition(t *testing.T) {
	a := holding("x", "X", 5)
	merged, changed := MergeBars(a, nil, []domain.Bar{bar(day(2023, 2, 1), 1), bar(day(2023, 3, 1), 2)}, dec(1))

	require.Len(t, merged, 1)
	require.Len(t, changed, 1)
	assert.True(t, merged[0].Value.Decimal.Equal(dec(10)))
}

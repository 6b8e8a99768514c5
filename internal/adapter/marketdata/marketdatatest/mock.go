// Package marketdatatest provides a testify mock of domain.MarketDataProvider
package marketdatatest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of MarketDataProvider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bar), args.Error(1)
}

func (m *MockProvider) MonthlyBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Bar), args.Error(1)
}

func (m *MockProvider) SpotPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockProvider) FxRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// Package correction rewrites a historical share count and carries it forward
package correction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
)

// Result reports what a correction changed
type Result struct {
	AssetID      string
	Inserted     bool
	Changed      int // history entries written, including the corrected one
	CurrentValue decimal.Decimal
	Quantity     decimal.Decimal
}

// Service handles quantity corrections
type Service struct {
	store  domain.Store
	market domain.MarketDataProvider
	series reconcile.Invalidator
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new correction Service instance
func NewService(store domain.Store, market domain.MarketDataProvider, series reconcile.Invalidator, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		market: market,
		series: series,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CorrectQuantity sets the price and quantity held on date. When an existing
// entry's quantity changes, every later entry takes the new quantity and its
// value is recomputed at its own price; earlier entries are never touched.
// Non-home currencies are converted with one rate fetched now and applied to
// every rewritten entry.
func (s *Service) CorrectQuantity(ctx context.Context, assetID string, date time.Time, price, quantity decimal.Decimal) (*Result, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: correction needs a date", domain.ErrInvalidInput)
	}
	if quantity.IsNegative() || price.IsNegative() {
		return nil, fmt.Errorf("%w: price and quantity must not be negative", domain.ErrInvalidInput)
	}
	date = domain.Today(date)

	asset, err := s.store.Assets().GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.IsQuantityBased() {
		return nil, fmt.Errorf("%w: %s is not valued by quantity", domain.ErrInvalidInput, asset.Name)
	}
	if asset.IsBalanceAdjustment() {
		return nil, fmt.Errorf("%w: balance adjustment entries cannot be corrected", domain.ErrInvalidInput)
	}
	if err := asset.ValidateEntry(domain.HistoryEntry{Date: date}); err != nil {
		return nil, err
	}

	fx := decimal.NewFromInt(1)
	if currency := asset.Currency(); currency != "" {
		fx, err = s.market.FxRate(ctx, currency)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s exchange rate: %w", currency, err)
		}
	}

	var result *Result
	var adjustmentID string
	err = s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		stored, err := uow.History().List(ctx, asset.ID)
		if err != nil {
			return err
		}

		var rewritten domain.History
		result, rewritten = propagate(stored, date, price, quantity, fx)
		result.AssetID = asset.ID

		if err := uow.History().UpsertBatch(ctx, asset.ID, rewritten.Since(date)); err != nil {
			return err
		}

		// resync the denormalized fields from the latest entry
		latest, _ := rewritten.Latest()
		result.CurrentValue = latest.EffectiveValue()
		result.Quantity = asset.Quantity
		if latest.Quantity.Valid {
			result.Quantity = latest.Quantity.Decimal
		}
		if err := uow.Assets().UpdateValue(ctx, asset.ID, result.CurrentValue, result.Quantity); err != nil {
			return err
		}

		refreshed, err := reconcile.Refresh(ctx, uow, asset.AccountName(), domain.Today(s.now()))
		if err != nil {
			return err
		}
		if refreshed != nil {
			adjustmentID = refreshed.AdjustmentID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.series.Invalidate(asset.ID, adjustmentID)
	s.logger.Info().
		Str("asset", asset.ID).
		Str("date", domain.FormatDate(date)).
		Str("quantity", quantity.String()).
		Int("changed", result.Changed).
		Msg("quantity corrected")
	return result, nil
}

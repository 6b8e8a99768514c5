package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
)

var errAdjustmentReadOnly = fmt.Errorf("%w: balance adjustment entries are maintained by reconciliation", domain.ErrInvalidInput)

// CreateAsset stores a new asset together with any history it carries
func (s *PortfolioService) CreateAsset(ctx context.Context, asset *domain.Asset) (*domain.Asset, error) {
	if asset.IsBalanceAdjustment() {
		return nil, errAdjustmentReadOnly
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	created := asset.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.History = created.History.Sorted()
	if len(created.History) > 0 {
		resync(created, created.History)
	}

	touched := []string{created.ID}
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		if err := uow.Assets().Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create asset: %w", err)
		}
		id, err := s.refresh(ctx, uow, created.AccountName())
		touched = append(touched, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.series.Invalidate(touched...)
	s.logger.Info().Str("asset", created.ID).Str("type", string(created.Type())).Msg("asset created")
	return created, nil
}

// UpdateAsset rewrites the attributes of an asset. The type cannot change and
// the stored history is kept as is.
func (s *PortfolioService) UpdateAsset(ctx context.Context, asset *domain.Asset) (*domain.Asset, error) {
	touched := []string{asset.ID}
	var updated *domain.Asset
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		existing, err := uow.Assets().GetByID(ctx, asset.ID)
		if err != nil {
			return err
		}
		if existing.IsBalanceAdjustment() || asset.IsBalanceAdjustment() {
			return errAdjustmentReadOnly
		}
		if existing.Type() != asset.Type() {
			return fmt.Errorf("%w: asset type cannot change from %s to %s",
				domain.ErrInvalidInput, existing.Type(), asset.Type())
		}

		updated = asset.Clone()
		updated.History = existing.History
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := uow.Assets().Update(ctx, updated); err != nil {
			return fmt.Errorf("failed to update asset: %w", err)
		}

		accounts := []string{existing.AccountName()}
		if updated.AccountName() != existing.AccountName() {
			accounts = append(accounts, updated.AccountName())
		}
		for _, account := range accounts {
			id, err := s.refresh(ctx, uow, account)
			if err != nil {
				return err
			}
			touched = append(touched, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.series.Invalidate(touched...)
	s.logger.Info().Str("asset", updated.ID).Msg("asset updated")
	return updated, nil
}

// DeleteAsset removes an asset and its history
func (s *PortfolioService) DeleteAsset(ctx context.Context, id string) error {
	touched := []string{id}
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		existing, err := uow.Assets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.IsBalanceAdjustment() {
			return errAdjustmentReadOnly
		}
		if err := uow.Assets().Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
		adjustmentID, err := s.refresh(ctx, uow, existing.AccountName())
		touched = append(touched, adjustmentID)
		return err
	})
	if err != nil {
		return err
	}

	s.series.Invalidate(touched...)
	s.logger.Info().Str("asset", id).Msg("asset deleted")
	return nil
}

// AddHistoryEntry records an observation, overwriting any entry on the same
// date, and resyncs the asset's current value and quantity from its latest entry.
// Price × quantity entries are valued in the home currency at today's rate.
func (s *PortfolioService) AddHistoryEntry(ctx context.Context, id string, entry domain.HistoryEntry) (*domain.Asset, error) {
	entry.Date = domain.Today(entry.Date)
	entries := domain.History{entry}
	if err := s.price(ctx, id, entries); err != nil {
		return nil, err
	}
	return s.rewriteHistory(ctx, id, func(a *domain.Asset) (domain.History, error) {
		if err := a.ValidateEntry(entries[0]); err != nil {
			return nil, err
		}
		return entries, nil
	}, false)
}

// ReplaceHistory swaps the whole history of an asset for entries
func (s *PortfolioService) ReplaceHistory(ctx context.Context, id string, entries domain.History) (*domain.Asset, error) {
	sorted := entries.Sorted()
	for i := range sorted {
		sorted[i].Date = domain.Today(sorted[i].Date)
	}
	if err := s.price(ctx, id, sorted); err != nil {
		return nil, err
	}
	return s.rewriteHistory(ctx, id, func(a *domain.Asset) (domain.History, error) {
		for _, e := range sorted {
			if err := a.ValidateEntry(e); err != nil {
				return nil, err
			}
		}
		return sorted, nil
	}, true)
}

// price sets value = price × quantity × fx on every entry carrying a price and
// a quantity. One rate is fetched per call, only when some entry needs it.
func (s *PortfolioService) price(ctx context.Context, id string, entries domain.History) error {
	var fx decimal.Decimal
	for i, e := range entries {
		if !e.Price.Valid || !e.Quantity.Valid {
			continue
		}
		if fx.IsZero() {
			rate, err := s.fxRate(ctx, id)
			if err != nil {
				return err
			}
			fx = rate
		}
		entries[i].Value = decimal.NewNullDecimal(e.Price.Decimal.Mul(e.Quantity.Decimal).Mul(fx))
	}
	return nil
}

func (s *PortfolioService) fxRate(ctx context.Context, id string) (decimal.Decimal, error) {
	asset, err := s.store.Assets().GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	currency := asset.Currency()
	if currency == "" {
		return decimal.NewFromInt(1), nil
	}
	rate, err := s.market.FxRate(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get %s exchange rate: %w", currency, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no %s exchange rate", domain.ErrProviderUnavailable, currency)
	}
	return rate, nil
}

func (s *PortfolioService) rewriteHistory(ctx context.Context, id string, build func(*domain.Asset) (domain.History, error), replace bool) (*domain.Asset, error) {
	touched := []string{id}
	var asset *domain.Asset
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		asset, err = uow.Assets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if asset.IsBalanceAdjustment() {
			return errAdjustmentReadOnly
		}

		entries, err := build(asset)
		if err != nil {
			return err
		}
		if replace {
			if err := uow.History().DeleteAll(ctx, id); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
		}
		if err := uow.History().UpsertBatch(ctx, id, entries); err != nil {
			return fmt.Errorf("failed to write history: %w", err)
		}

		asset.History, err = uow.History().List(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to reload history: %w", err)
		}
		if len(asset.History) > 0 {
			resync(asset, asset.History)
			if err := uow.Assets().UpdateValue(ctx, id, asset.CurrentValue, asset.Quantity); err != nil {
				return fmt.Errorf("failed to update current value: %w", err)
			}
		}

		adjustmentID, err := s.refresh(ctx, uow, asset.AccountName())
		touched = append(touched, adjustmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.series.Invalidate(touched...)
	s.logger.Info().Str("asset", id).Int("entries", len(asset.History)).Msg("history updated")
	return asset, nil
}

// resync copies the latest entry's value and quantity onto the asset
func resync(a *domain.Asset, h domain.History) {
	latest, ok := h.Latest()
	if !ok {
		return
	}
	a.CurrentValue = latest.EffectiveValue()
	if latest.Quantity.Valid {
		a.Quantity = latest.Quantity.Decimal
	}
}

// refresh re-applies the stored total of a reconciled account and returns the
// id of its adjustment entry, or "" when the account is not reconciled
func (s *PortfolioService) refresh(ctx context.Context, uow domain.UnitOfWork, account string) (string, error) {
	result, err := reconcile.Refresh(ctx, uow, account, domain.Today(s.now()))
	if err != nil || result == nil {
		return "", err
	}
	return result.AdjustmentID, nil
}

package legacycsv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
)

// Result counts what an import changed
type Result struct {
	Created  int
	Updated  int
	Settings int
}

// Importer writes a parsed sheet into the store
type Importer struct {
	store  domain.Store
	series reconcile.Invalidator
	logger *logging.Logger
	now    func() time.Time
}

// Option configures an Importer
type Option func(*Importer)

// WithClock overrides the wall clock used to date balance adjustments
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an importer
func NewImporter(store domain.Store, series reconcile.Invalidator, logger *logging.Logger, opts ...Option) *Importer {
	im := &Importer{store: store, series: series, logger: logger.Component("legacycsv"), now: time.Now}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import upserts every asset of the sheet in one transaction. An asset whose
// id already exists is rewritten and its history replaced; its type cannot
// change. Reconciled accounts touched by the sheet keep their asserted totals.
func (im *Importer) Import(ctx context.Context, sheet *Sheet) (Result, error) {
	var res Result
	ids := make([]string, 0, len(sheet.Assets))

	err := im.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		accounts := make(map[string]struct{})
		touch := func(a *domain.Asset) {
			if a.Type() == domain.AssetTypeStock {
				accounts[a.AccountName()] = struct{}{}
			}
		}

		for _, a := range sheet.Assets {
			ids = append(ids, a.ID)
			touch(a)

			existing, err := uow.Assets().GetByID(ctx, a.ID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				if err := uow.Assets().Create(ctx, a); err != nil {
					return fmt.Errorf("failed to create asset %s: %w", a.ID, err)
				}
				res.Created++
				continue
			case err != nil:
				return err
			}

			if existing.Type() != a.Type() {
				return fmt.Errorf("%w: asset %s is %s, cannot import it as %s", domain.ErrInvalidInput, a.ID, existing.Type(), a.Type())
			}
			touch(existing)

			if err := uow.Assets().Update(ctx, a); err != nil {
				return fmt.Errorf("failed to update asset %s: %w", a.ID, err)
			}
			if err := uow.History().DeleteAll(ctx, a.ID); err != nil {
				return err
			}
			if err := uow.History().UpsertBatch(ctx, a.ID, a.History); err != nil {
				return fmt.Errorf("failed to write history of %s: %w", a.ID, err)
			}
			res.Updated++
		}

		if len(sheet.Settings) > 0 {
			if err := uow.Settings().Set(ctx, sheet.Settings); err != nil {
				return fmt.Errorf("failed to store settings: %w", err)
			}
			res.Settings = len(sheet.Settings)
		}

		names := make([]string, 0, len(accounts))
		for name := range accounts {
			names = append(names, name)
		}
		sort.Strings(names)
		today := domain.Today(im.now())
		for _, name := range names {
			r, err := reconcile.Refresh(ctx, uow, name, today)
			if err != nil {
				return fmt.Errorf("failed to refresh account %s: %w", name, err)
			}
			if r != nil {
				ids = append(ids, r.AdjustmentID)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	im.series.Invalidate(ids...)
	for _, w := range sheet.Warnings {
		im.logger.Warn().Msg(w)
	}
	im.logger.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("settings", res.Settings).
		Msg("legacy sheet imported")
	return res, nil
}

package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

// apply writes one ticker's fetched prices to every asset of the group and
// returns the ids of the assets whose history was rebuilt
func (s *Service) apply(ctx context.Context, uow domain.UnitOfWork, g *group, f *fetchResult, today time.Time) ([]string, error) {
	var rewound []string
	for _, a := range g.assets {
		history := a.History.Sorted()
		rebuilt := g.rewind && drifted(a)

		if rebuilt {
			if err := uow.History().DeleteFrom(ctx, a.ID, s.cfg.RewindStart); err != nil {
				return nil, err
			}
			history = Rewind(a, history, f.monthly, s.cfg.RewindStart, f.fx)
			rewound = append(rewound, a.ID)
			s.logger.Info().Str("asset", a.ID).Str("ticker", g.ticker).
				Str("quantity", a.Quantity.String()).Msg("quantity drift, history rebuilt")
		}

		merged, changed := MergeBars(a, history, f.daily, f.fx)
		if rebuilt {
			changed = merged.Since(s.cfg.RewindStart)
		}
		if err := uow.History().UpsertBatch(ctx, a.ID, changed); err != nil {
			return nil, fmt.Errorf("failed to write %s history: %w", a.ID, err)
		}

		value := a.Quantity.Mul(f.spot).Mul(f.fx)
		if err := uow.Assets().UpdateValue(ctx, a.ID, value, a.Quantity); err != nil {
			return nil, err
		}
	}
	return rewound, nil
}

// MergeBars folds provider closes into a history without touching stored quantities.
// A bar landing on an existing entry only updates its price and value; a bar on
// a new date inserts an entry carrying the most recent known quantity. Bars before
// the acquisition date are ignored. It returns the merged history and the entries it wrote.
func MergeBars(a *domain.Asset, history domain.History, bars []domain.Bar, fx decimal.Decimal) (domain.History, domain.History) {
	merged := history.Sorted()
	acquired := domain.Today(a.AcquiredOn())

	var changed domain.History
	for _, bar := range bars {
		date := domain.Today(bar.Date)
		if date.Before(acquired) {
			continue
		}

		qty := quantityAsOf(merged, date, a.Quantity)
		entry := domain.NewPriceEntry(date, bar.Close, qty, fx)
		merged = merged.Upsert(entry)
		changed = append(changed, entry)
	}
	return merged, changed
}

// quantityAsOf returns the quantity of the latest entry on or before date,
// falling back to def when no earlier entry records one
func quantityAsOf(h domain.History, date time.Time, def decimal.Decimal) decimal.Decimal {
	qty := def
	for _, e := range h {
		if e.Date.After(date) {
			break
		}
		if e.Quantity.Valid {
			qty = e.Quantity.Decimal
		}
	}
	return qty
}

// Rewind rebuilds the history from start with monthly closes: quantity is zero
// before the acquisition date and the holding's current quantity from then on.
// Entries before start are kept as they are.
func Rewind(a *domain.Asset, history domain.History, monthly []domain.Bar, start time.Time, fx decimal.Decimal) domain.History {
	var kept domain.History
	for _, e := range history.Sorted() {
		if e.Date.Before(start) {
			kept = append(kept, e)
		}
	}

	acquired := domain.Today(a.AcquiredOn())
	for _, bar := range monthly {
		date := domain.Today(bar.Date)
		if date.Before(start) {
			continue
		}
		qty := a.Quantity
		if date.Before(acquired) {
			qty = decimal.Zero
		}
		kept = append(kept, domain.NewPriceEntry(date, bar.Close, qty, fx))
	}
	return kept.Sorted()
}

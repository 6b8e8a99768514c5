package timeseries

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

// Window lengths in years. A year is counted as 365 days, leap days are ignored.
const (
	LongWindowYears  = 10
	ShortWindowYears = 3
	daysPerYear      = 365
)

// Row is one asset's reconstructed value on one day, in long format
type Row struct {
	Date    string // YYYY-MM-DD
	AssetID string
	Value   decimal.Decimal
	Name    string
	Type    domain.AssetType
	Account string
}

// Event is a sparse valuation point before resampling
type Event struct {
	Date  time.Time
	Value decimal.Decimal
}

// Window is an inclusive range of calendar days
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// WindowFor returns the reconstruction window for a type filter.
// The dashboard (empty filter) and real estate look back ten years, everything else three.
func WindowFor(filter domain.AssetType, today time.Time) Window {
	years := ShortWindowYears
	if filter == "" || filter == domain.AssetTypeRealEstate {
		years = LongWindowYears
	}
	end := domain.Today(today)
	return Window{
		Start: end.AddDate(0, 0, -years*daysPerYear),
		End:   end,
	}
}

// SeedValue is the value recorded on the acquisition date
func SeedValue(a *domain.Asset) decimal.Decimal {
	if a.IsQuantityBased() && a.Quantity.IsPositive() {
		return a.AcquisitionPrice.Mul(a.Quantity)
	}
	return a.AcquisitionPrice
}

// SparseEvents turns an asset into its ordered list of valuation events:
// the acquisition seed, one event per history entry, and the terminal event
// (today's current value, or the disposal price followed by a zero the next day).
// Events sharing a date collapse to the last one.
func SparseEvents(a *domain.Asset, today time.Time) []Event {
	events := make([]Event, 0, len(a.History)+3)
	events = append(events, Event{Date: domain.Today(a.AcquiredOn()), Value: SeedValue(a)})

	for _, h := range a.History {
		date := h.Date
		if date.IsZero() {
			date = domain.DefaultEpoch
		}
		events = append(events, Event{Date: domain.Today(date), Value: h.EffectiveValue()})
	}

	if a.IsDisposed() {
		disposal := domain.Today(a.DisposalDate)
		events = append(events,
			Event{Date: disposal, Value: a.DisposalPrice},
			Event{Date: disposal.AddDate(0, 0, 1), Value: decimal.Zero},
		)
	} else {
		events = append(events, Event{Date: domain.Today(today), Value: a.CurrentValue})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	deduped := events[:0]
	for _, e := range events {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(e.Date) {
			deduped[n-1] = e
			continue
		}
		deduped = append(deduped, e)
	}
	return deduped
}

// denseValues resamples sorted events onto every day of the window.
// Gaps carry the last known value forward, including a value set before the
// window starts; days before the first event are zero.
func denseValues(events []Event, w Window) []decimal.Decimal {
	out := make([]decimal.Decimal, w.Days())
	current := decimal.Zero
	next := 0
	for i := range out {
		date := w.Start.AddDate(0, 0, i)
		for next < len(events) && !events[next].Date.After(date) {
			current = events[next].Value
			next++
		}
		out[i] = current
	}
	return out
}

// maskAndNet zeroes days outside the holding period and nets real estate liabilities.
// The liability is applied to every day alike, and the result never drops below zero.
func maskAndNet(a *domain.Asset, values []decimal.Decimal, w Window) {
	acquired := domain.Today(a.AcquiredOn())
	liability := domain.Liability(a)
	netLiability := a.Type() == domain.AssetTypeRealEstate && !liability.IsZero()

	for i := range values {
		date := w.Start.AddDate(0, 0, i)
		switch {
		case date.Before(acquired):
			values[i] = decimal.Zero
		case a.IsDisposed() && date.After(domain.Today(a.DisposalDate)):
			values[i] = decimal.Zero
		}
		if netLiability {
			values[i] = decimal.Max(values[i].Sub(liability), decimal.Zero)
		}
	}
}

// Resample reconstructs the dense daily series of a batch of assets.
// Rows are ordered by date, then by the order of assets.
func Resample(assets []*domain.Asset, w Window, today time.Time) []Row {
	if len(assets) == 0 {
		return nil
	}

	columns := make([][]decimal.Decimal, len(assets))
	for i, a := range assets {
		values := denseValues(SparseEvents(a, today), w)
		maskAndNet(a, values, w)
		columns[i] = values
	}

	days := w.Days()
	rows := make([]Row, 0, days*len(assets))
	for d := 0; d < days; d++ {
		date := domain.FormatDate(w.Start.AddDate(0, 0, d))
		for i, a := range assets {
			rows = append(rows, Row{
				Date:    date,
				AssetID: a.ID,
				Value:   columns[i][d],
				Name:    a.Name,
				Type:    a.Type(),
				Account: a.AccountName(),
			})
		}
	}
	return rows
}

package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is a dated observation of an asset.
// Flat-value assets record Value; quantity-based assets record Price and Quantity
// (and usually the derived Value as well).
type HistoryEntry struct {
	Date     time.Time
	Value    decimal.NullDecimal
	Price    decimal.NullDecimal
	Quantity decimal.NullDecimal
}

// NewValueEntry builds a flat-value entry
func NewValueEntry(date time.Time, value decimal.Decimal) HistoryEntry {
	return HistoryEntry{
		Date:  Today(date),
		Value: decimal.NewNullDecimal(value),
	}
}

// NewPriceEntry builds a price × quantity entry with the value already converted by fx
func NewPriceEntry(date time.Time, price, quantity, fx decimal.Decimal) HistoryEntry {
	return HistoryEntry{
		Date:     Today(date),
		Price:    decimal.NewNullDecimal(price),
		Quantity: decimal.NewNullDecimal(quantity),
		Value:    decimal.NewNullDecimal(price.Mul(quantity).Mul(fx)),
	}
}

// EffectiveValue is the explicit value when present, else price × quantity
func (e HistoryEntry) EffectiveValue() decimal.Decimal {
	if e.Value.Valid {
		return e.Value.Decimal
	}
	if e.Price.Valid && e.Quantity.Valid {
		return e.Price.Decimal.Mul(e.Quantity.Decimal)
	}
	return decimal.Zero
}

// History is the dated log of one asset, kept sorted by date with unique dates
type History []HistoryEntry

// Sorted returns a copy ordered by date. Entries sharing a date collapse to the
// last one written (stable sort, last write wins).
func (h History) Sorted() History {
	out := append(History(nil), h...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	deduped := out[:0]
	for _, e := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(e.Date) {
			deduped[n-1] = e
			continue
		}
		deduped = append(deduped, e)
	}
	return deduped
}

// Upsert inserts e or overwrites the entry already recorded on the same date
func (h History) Upsert(e HistoryEntry) History {
	e.Date = Today(e.Date)
	for i := range h {
		if h[i].Date.Equal(e.Date) {
			out := append(History(nil), h...)
			out[i] = e
			return out
		}
	}
	return append(append(History(nil), h...), e).Sorted()
}

// Find returns the index of the entry recorded on date, or -1
func (h History) Find(date time.Time) int {
	date = Today(date)
	for i := range h {
		if h[i].Date.Equal(date) {
			return i
		}
	}
	return -1
}

// Latest returns the entry with the greatest date
func (h History) Latest() (HistoryEntry, bool) {
	if len(h) == 0 {
		return HistoryEntry{}, false
	}
	latest := h[0]
	for _, e := range h[1:] {
		if !e.Date.Before(latest.Date) {
			latest = e
		}
	}
	return latest, true
}

// LastDate returns the date of the latest entry
func (h History) LastDate() (time.Time, bool) {
	e, ok := h.Latest()
	return e.Date, ok
}

// Since returns the entries dated on or after date, in their original order
func (h History) Since(date time.Time) History {
	var out History
	for _, e := range h {
		if !e.Date.Before(date) {
			out = append(out, e)
		}
	}
	return out
}

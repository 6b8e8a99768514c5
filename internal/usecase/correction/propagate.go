package correction

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

// propagate applies a correction to a history and returns the rewritten history
func propagate(h domain.History, date time.Time, price, quantity, fx decimal.Decimal) (*Result, domain.History) {
	h = h.Sorted()
	corrected := domain.NewPriceEntry(date, price, quantity, fx)

	idx := h.Find(date)
	if idx < 0 {
		return &Result{Inserted: true, Changed: 1}, h.Upsert(corrected)
	}

	previous := h[idx].Quantity
	h[idx] = corrected
	result := &Result{Changed: 1}
	if previous.Valid && previous.Decimal.Equal(quantity) {
		return result, h
	}

	for i := idx + 1; i < len(h); i++ {
		e := &h[i]
		e.Quantity = decimal.NewNullDecimal(quantity)
		if e.Price.Valid {
			e.Value = decimal.NewNullDecimal(e.Price.Decimal.Mul(quantity).Mul(fx))
		}
		result.Changed++
	}
	return result, h
}

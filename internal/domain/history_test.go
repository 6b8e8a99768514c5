package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHistory_SortedLastWriteWins(t *testing.T) {
	h := History{
		NewValueEntry(day(2023, 3, 1), decimal.NewFromInt(3)),
		NewValueEntry(day(2023, 1, 1), decimal.NewFromInt(1)),
		NewValueEntry(day(2023, 3, 1), decimal.NewFromInt(30)),
	}

	sorted := h.Sorted()

	require.Len(t, sorted, 2)
	assert.Equal(t, day(2023, 1, 1), sorted[0].Date)
	assert.True(t, sorted[1].Value.Decimal.Equal(decimal.NewFromInt(30)))
	// input untouched
	assert.Len(t, h, 3)
}

func TestHistory_UpsertOverwritesSameDate(t *testing.T) {
	h := History{NewValueEntry(day(2023, 1, 1), decimal.NewFromInt(1))}

	h = h.Upsert(NewValueEntry(day(2023, 2, 1), decimal.NewFromInt(2)))
	h = h.Upsert(HistoryEntry{
		Date:  time.Date(2023, 1, 1, 15, 30, 0, 0, time.UTC),
		Value: decimal.NewNullDecimal(decimal.NewFromInt(10)),
	})

	require.Len(t, h, 2)
	assert.True(t, h[0].Value.Decimal.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, h.Find(day(2023, 2, 1)))
	assert.Equal(t, -1, h.Find(day(2024, 1, 1)))
}

func TestHistoryEntry_EffectiveValue(t *testing.T) {
	price := HistoryEntry{
		Date:     day(2023, 1, 1),
		Price:    decimal.NewNullDecimal(decimal.NewFromInt(120)),
		Quantity: decimal.NewNullDecimal(decimal.NewFromInt(10)),
	}
	assert.True(t, price.EffectiveValue().Equal(decimal.NewFromInt(1200)))

	converted := NewPriceEntry(day(2023, 1, 1), decimal.NewFromInt(10), decimal.NewFromInt(2), decimal.NewFromInt(1300))
	assert.True(t, converted.EffectiveValue().Equal(decimal.NewFromInt(26000)))

	assert.True(t, HistoryEntry{}.EffectiveValue().IsZero())
}

func TestHistory_Latest(t *testing.T) {
	_, ok := History(nil).Latest()
	assert.False(t, ok)

	h := History{
		NewValueEntry(day(2023, 5, 1), decimal.NewFromInt(5)),
		NewValueEntry(day(2023, 1, 1), decimal.NewFromInt(1)),
	}
	last, ok := h.LastDate()
	require.True(t, ok)
	assert.Equal(t, day(2023, 5, 1), last)
}

func TestHistory_SinceIncludesBoundary(t *testing.T) {
	h := History{
		NewValueEntry(day(2023, 1, 1), decimal.NewFromInt(1)),
		NewValueEntry(day(2023, 3, 1), decimal.NewFromInt(3)),
		NewValueEntry(day(2023, 2, 1), decimal.NewFromInt(2)),
	}

	tail := h.Since(day(2023, 2, 1))
	require.Len(t, tail, 2)
	assert.Equal(t, day(2023, 3, 1), tail[0].Date)
	assert.Equal(t, day(2023, 2, 1), tail[1].Date)

	assert.Empty(t, h.Since(day(2024, 1, 1)))
	assert.Len(t, h.Since(time.Time{}), 3)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2023-06-01T12:00:00Z")
	require.True(t, ok)
	assert.Equal(t, day(2023, 6, 1), d)

	_, ok = ParseDate("not a date")
	assert.False(t, ok)

	assert.Equal(t, DefaultEpoch, ParseDateOr("", DefaultEpoch))
	assert.Equal(t, "", FormatDate(time.Time{}))
}

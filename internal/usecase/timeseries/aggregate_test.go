package timeseries

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

var decimalEqual = cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })

func sampleRows() []Row {
	return []Row{
		{Date: "2024-01-01", AssetID: "a", Value: dec(100), Name: "A", Type: domain.AssetTypeStock, Account: "X"},
		{Date: "2024-01-01", AssetID: "b", Value: dec(50), Name: "B", Type: domain.AssetTypeStock, Account: "Y"},
		{Date: "2024-01-01", AssetID: "c", Value: dec(10), Name: "C", Type: domain.AssetTypeSavings, Account: "Other"},
		{Date: "2024-01-02", AssetID: "a", Value: dec(110), Name: "A", Type: domain.AssetTypeStock, Account: "X"},
		{Date: "2024-01-02", AssetID: "b", Value: dec(55), Name: "B", Type: domain.AssetTypeStock, Account: "Y"},
		{Date: "2024-01-02", AssetID: "c", Value: dec(10), Name: "C", Type: domain.AssetTypeSavings, Account: "Other"},
	}
}

func TestAggregate_ByType(t *testing.T) {
	got := Aggregate(sampleRows(), ByType)

	want := []Point{
		{Date: "2024-01-01", Key: "SAVINGS", Value: dec(10)},
		{Date: "2024-01-01", Key: "STOCK", Value: dec(150)},
		{Date: "2024-01-02", Key: "SAVINGS", Value: dec(10)},
		{Date: "2024-01-02", Key: "STOCK", Value: dec(165)},
	}
	assert.Empty(t, cmp.Diff(want, got, decimalEqual))
}

func TestAggregate_TotalAndLatest(t *testing.T) {
	total := Aggregate(sampleRows(), Total)

	assert.Len(t, total, 2)
	latest := Latest(total)
	assert.True(t, latest[TotalKey].Equal(dec(175)))
}

func TestAggregate_ByAccountKeys(t *testing.T) {
	points := Aggregate(sampleRows(), ByAccount)
	assert.Equal(t, []string{"Other", "X", "Y"}, Keys(points))

	assert.Empty(t, Aggregate(nil, ByName))
	assert.Empty(t, Latest(nil))
}

func TestParseDimension(t *testing.T) {
	for raw, want := range map[string]Dimension{"": ByType, "account": ByAccount, "name": ByName, "asset": ByAsset, "total": Total} {
		got, err := ParseDimension(raw)
		assert.NoError(t, err)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseDimension("colour")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func stock(id, account string, value int64) *Asset {
	return &Asset{
		ID:           id,
		Name:         id,
		CurrentValue: d(value),
		Details:      &StockDetails{AccountName: account},
	}
}

func TestEvaluate_RealEstate(t *testing.T) {
	a := &Asset{
		Name:             "Apartment",
		CurrentValue:     d(500000),
		AcquisitionPrice: d(400000),
		Details:          &RealEstateDetails{LoanAmount: d(200000), TenantDeposit: d(50000)},
	}

	kpi := Evaluate(a)

	assert.True(t, kpi.Liability.Equal(d(250000)))
	assert.True(t, kpi.Net.Equal(d(250000)))
	assert.True(t, kpi.ProfitLoss.Equal(d(100000)))
	assert.True(t, kpi.ROI.Equal(d(25)))
}

func TestEvaluate_Stock(t *testing.T) {
	a := &Asset{
		Name:             "ACME",
		CurrentValue:     d(1500),
		AcquisitionPrice: d(100),
		Quantity:         d(10),
		Details:          &StockDetails{},
	}

	kpi := Evaluate(a)

	assert.True(t, kpi.InvestedCost.Equal(d(1000)))
	assert.True(t, kpi.Net.Equal(d(500)))
	assert.True(t, kpi.ROI.Equal(d(50)))
	assert.True(t, kpi.Liability.IsZero())
}

func TestEvaluate_DisposedUsesDisposalPrice(t *testing.T) {
	a := &Asset{
		Name:             "Gold",
		CurrentValue:     d(999),
		AcquisitionPrice: d(100),
		DisposalDate:     day(2023, 6, 1),
		DisposalPrice:    d(150),
		Details:          &OtherDetails{},
	}

	assert.True(t, Evaluate(a).Value.Equal(d(150)))
}

func TestROI_ZeroInvested(t *testing.T) {
	assert.True(t, ROI(d(100), decimal.Zero).IsZero())
}

func TestApplyBootstrapValue(t *testing.T) {
	a := &Asset{Name: "X", AcquisitionPrice: d(100), Quantity: d(3), Details: &StockDetails{}}
	require.True(t, ApplyBootstrapValue(a))
	assert.True(t, a.CurrentValue.Equal(d(300)))

	// not re-applied once a value exists
	a.AcquisitionPrice = d(200)
	assert.False(t, ApplyBootstrapValue(a))
	assert.True(t, a.CurrentValue.Equal(d(300)))

	flat := &Asset{Name: "Y", AcquisitionPrice: d(100), Quantity: d(3), Details: &SavingsDetails{}}
	assert.False(t, ApplyBootstrapValue(flat))
}

func TestSummarize_ExcludesDisposed(t *testing.T) {
	sold := stock("sold", "A", 700)
	sold.DisposalDate = day(2023, 1, 1)

	s := Summarize([]*Asset{stock("a", "A", 100), stock("b", "A", 200), sold})

	assert.True(t, s.TotalAsset.Equal(d(300)))
	assert.True(t, s.NetWorth.Equal(d(300)))
}

func TestSummarizeAccounts_IncludesAdjustment(t *testing.T) {
	adj := stock("adj", "Brokerage-A", 100)
	adj.Stock().BalanceAdjustment = true

	accounts := SummarizeAccounts([]*Asset{
		stock("a", "Brokerage-A", 400),
		stock("b", "Brokerage-A", 500),
		adj,
		stock("c", "Brokerage-B", 50),
	})

	require.Len(t, accounts, 2)
	assert.Equal(t, "Brokerage-A", accounts[0].Account)
	assert.Equal(t, 2, accounts[0].Holdings)
	assert.True(t, accounts[0].TotalAsset.Equal(d(1000)))
	assert.True(t, accounts[0].Adjustment.Equal(d(100)))
}

func TestAdjustmentFor(t *testing.T) {
	adj1 := stock("adj1", "A", 1)
	adj1.Stock().BalanceAdjustment = true
	adj2 := stock("adj2", "A", 2)
	adj2.Stock().BalanceAdjustment = true

	found, err := AdjustmentFor([]*Asset{stock("x", "A", 5), adj1}, "A")
	require.NoError(t, err)
	assert.Equal(t, "adj1", found.ID)

	found, err = AdjustmentFor([]*Asset{stock("x", "A", 5)}, "A")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = AdjustmentFor([]*Asset{adj1, adj2}, "A")
	assert.True(t, errors.Is(err, ErrIntegrityViolation))

	issues := FindDuplicateAdjustments([]*Asset{adj1, adj2})
	require.Len(t, issues, 1)
	assert.Equal(t, []string{"adj1", "adj2"}, issues[0].AssetIDs)
}

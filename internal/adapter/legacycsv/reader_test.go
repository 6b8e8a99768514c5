package legacycsv

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/assetflow-backend/internal/adapter/repository/sqlstore/sqlstoretest"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
)

const sheet = `CONFIG,CurrentAge,41
CONFIG,RetirementAge,60
CONFIG,Unknown,1
id,type,name,acqDate,acqPrice,quantity,currentValue,disposalDate,disposalPrice,detail1,detail2,detail3,detail4,detail5,ticker,history
re1,REAL_ESTATE,Flat,2020-03-01,"500,000,000",,"600,000,000",,,OWNED,HAS_TENANT,"100,000,000",Seoul,"200,000,000",,
st1,STOCK,Apple,2023-01-02,1000,10,,,,Brokerage-A,usd,,,PENSION_2035_500000,aapl,"[{""date"":""2023-02-01"",""price"":150,""quantity"":10},{""date"":""2023-01-02"",""value"":""1,000""}]"
st2,STOCK,계좌 보정,,,,"50",,,Brokerage-A,,,,,,
pe1,PENSION,National,,,,,,,,2040,"1,200,000",2070,2.5,,
,GOLD,Bar,,,,,,,,,,,,,not json
,,,,,,,,,,,,,,,
`

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader(sheet))
	require.NoError(t, err)

	assert.Equal(t, domain.Settings{
		domain.SettingCurrentAge:    "41",
		domain.SettingRetirementAge: "60",
	}, s.Settings)
	require.Len(t, s.Assets, 5)

	re := s.Assets[0]
	assert.Equal(t, domain.AssetTypeRealEstate, re.Type())
	details := re.RealEstate()
	assert.True(t, details.IsOwned)
	assert.True(t, details.HasTenant)
	assert.Equal(t, "Seoul", details.Address)
	assert.True(t, decimal.NewFromInt(100_000_000).Equal(details.TenantDeposit))
	assert.True(t, decimal.NewFromInt(200_000_000).Equal(details.LoanAmount))
	assert.True(t, decimal.NewFromInt(600_000_000).Equal(re.CurrentValue))
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), re.AcquisitionDate)

	st := s.Assets[1]
	require.NotNil(t, st.Stock())
	assert.Equal(t, "Brokerage-A", st.AccountName())
	assert.Equal(t, "USD", st.Stock().Currency)
	assert.Equal(t, "AAPL", st.Stock().Ticker)
	assert.True(t, st.Stock().Payout.PensionLike)
	assert.Equal(t, 2035, st.Stock().Payout.StartYear)
	assert.True(t, decimal.NewFromInt(500000).Equal(st.Stock().Payout.MonthlyPayout))
	require.Len(t, st.History, 2)
	assert.Equal(t, "2023-01-02", domain.FormatDate(st.History[0].Date))
	assert.True(t, st.History[0].Value.Valid)
	assert.False(t, st.History[0].Price.Valid)
	assert.True(t, st.History[1].Price.Valid)
	assert.False(t, st.History[1].Value.Valid)

	adj := s.Assets[2]
	assert.True(t, adj.IsBalanceAdjustment())
	assert.False(t, adj.Stock().Payout.PensionLike)

	pe := s.Assets[3]
	p, ok := pe.Details.(*domain.PensionDetails)
	require.True(t, ok)
	assert.Equal(t, "PERSONAL", p.PensionType)
	assert.Equal(t, 2040, p.ExpectedStartYear)
	assert.Equal(t, 2070, p.ExpectedEndYear)
	assert.True(t, decimal.NewFromInt(1_200_000).Equal(p.ExpectedMonthlyPayout))
	assert.Equal(t, "2.5", p.AnnualGrowthRate.String())

	other := s.Assets[4]
	assert.Equal(t, domain.AssetTypeOther, other.Type())
	assert.NotEmpty(t, other.ID)
	assert.Empty(t, other.History)

	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], `unknown type "GOLD"`)
}

func TestRead_MissingHeader(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\nc,d\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRead_BadHistoryDatesAreWarnings(t *testing.T) {
	raw := "id,type,name,history\n" +
		`s1,SAVINGS,Deposit,"[{""date"":""soon"",""value"":1},{""date"":""2024-01-01"",""value"":2}]"` + "\n"

	s, err := Read(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, s.Assets, 1)
	assert.Len(t, s.Assets[0].History, 1)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "line 2")
}

func TestParsePayout(t *testing.T) {
	tests := []struct {
		raw   string
		plan  domain.PayoutPlan
		month int64
	}{
		{"", domain.PayoutPlan{}, 0},
		{"Y", domain.PayoutPlan{PensionLike: true}, 0},
		{"PENSION_2030_300000", domain.PayoutPlan{PensionLike: true, StartYear: 2030}, 300000},
		{"PENSION", domain.PayoutPlan{PensionLike: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parsePayout(tt.raw)
			assert.Equal(t, tt.plan.PensionLike, got.PensionLike)
			assert.Equal(t, tt.plan.StartYear, got.StartYear)
			assert.True(t, decimal.NewFromInt(tt.month).Equal(got.MonthlyPayout))
		})
	}
}

type recorder struct{ ids []string }

func (r *recorder) Invalidate(ids ...string) { r.ids = append(r.ids, ids...) }

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	store := sqlstoretest.New(t)
	sqlstoretest.Seed(t, store, &domain.Asset{
		ID:           "st1",
		Name:         "Old name",
		CurrentValue: decimal.NewFromInt(1),
		Details:      &domain.StockDetails{AccountName: "Brokerage-A"},
		History:      domain.History{domain.NewValueEntry(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(1))},
	})

	s, err := Read(strings.NewReader(sheet))
	require.NoError(t, err)

	rec := &recorder{}
	res, err := NewImporter(store, rec, logging.NewSilentLogger()).Import(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 4, Updated: 1, Settings: 2}, res)
	assert.Len(t, rec.ids, 5)

	got, err := store.Assets().GetByID(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)
	require.Len(t, got.History, 2)
	assert.Equal(t, "2023-01-02", domain.FormatDate(got.History[0].Date))

	settings, err := store.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 41, settings.CurrentAge())
	assert.Equal(t, 60, settings.RetirementAge())
}

func TestImporter_RejectsTypeChange(t *testing.T) {
	ctx := context.Background()
	store := sqlstoretest.New(t)
	sqlstoretest.Seed(t, store, &domain.Asset{
		ID:           "x1",
		Name:         "Deposit",
		CurrentValue: decimal.NewFromInt(5000),
		Details:      &domain.SavingsDetails{},
	})

	s, err := Read(strings.NewReader("id,type,name,currentValue,detail1,ticker\nx1,STOCK,Deposit,5000,Brokerage-A,X\n"))
	require.NoError(t, err)

	rec := &recorder{}
	_, err = NewImporter(store, rec, logging.NewSilentLogger()).Import(ctx, s)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, rec.ids)

	got, err := store.Assets().GetByID(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetTypeSavings, got.Type())
}

func TestImporter_KeepsReconciledAccountTotal(t *testing.T) {
	ctx := context.Background()
	store := sqlstoretest.New(t)
	clock := func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	sqlstoretest.Seed(t, store, &domain.Asset{
		ID:              "h1",
		Name:            "Holding",
		CurrentValue:    decimal.NewFromInt(900),
		AcquisitionDate: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Quantity:        decimal.NewFromInt(1),
		Details:         &domain.StockDetails{AccountName: "Brokerage-A", Ticker: "H"},
	})

	rec := &recorder{}
	reconciled, err := reconcile.NewService(store, rec, logging.NewSilentLogger(), reconcile.WithClock(clock)).
		Reconcile(ctx, "Brokerage-A", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100).Equal(reconciled.Adjustment))

	s, err := Read(strings.NewReader("id,type,name,acqDate,currentValue,detail1,ticker\nh1,STOCK,Holding,2023-01-02,950,Brokerage-A,H\n"))
	require.NoError(t, err)
	rec.ids = nil
	res, err := NewImporter(store, rec, logging.NewSilentLogger(), WithClock(clock)).Import(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.ElementsMatch(t, []string{"h1", reconciled.AdjustmentID}, rec.ids)

	assets, err := store.Assets().List(ctx)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, a := range assets {
		if a.Type() == domain.AssetTypeStock && a.AccountName() == "Brokerage-A" && !a.IsDisposed() {
			sum = sum.Add(a.CurrentValue)
		}
	}
	assert.True(t, decimal.NewFromInt(1000).Equal(sum), sum.String())

	adjustment, err := store.Assets().GetByID(ctx, reconciled.AdjustmentID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(adjustment.CurrentValue))
}

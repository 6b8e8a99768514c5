package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		asset   *Asset
		wantErr bool
	}{
		{
			name:  "valid",
			asset: &Asset{Name: "Deposit", Details: &SavingsDetails{}},
		},
		{
			name:    "empty name",
			asset:   &Asset{Name: "  ", Details: &SavingsDetails{}},
			wantErr: true,
		},
		{
			name:    "missing details",
			asset:   &Asset{Name: "x"},
			wantErr: true,
		},
		{
			name: "disposal before acquisition",
			asset: &Asset{
				Name:            "x",
				Details:         &OtherDetails{},
				AcquisitionDate: day(2023, 5, 1),
				DisposalDate:    day(2023, 1, 1),
			},
			wantErr: true,
		},
		{
			name: "history after disposal",
			asset: &Asset{
				Name:         "x",
				Details:      &OtherDetails{},
				DisposalDate: day(2023, 1, 1),
				History:      History{NewValueEntry(day(2023, 2, 1), d(1))},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.asset.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAsset_AccountNameTrimmed(t *testing.T) {
	cases := []struct {
		name    string
		account string
		want    string
	}{
		{"plain", "Brokerage-A", "Brokerage-A"},
		{"padded", " Brokerage-A ", "Brokerage-A"},
		{"blank", "   ", DefaultAccountName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Asset{Name: "x", Details: &StockDetails{AccountName: tc.account}}
			assert.Equal(t, tc.want, a.AccountName())
		})
	}
}

func TestAsset_ValidateEntryAfterDisposal(t *testing.T) {
	a := &Asset{Name: "x", Details: &OtherDetails{}, DisposalDate: day(2023, 6, 1)}

	assert.NoError(t, a.ValidateEntry(NewValueEntry(day(2023, 6, 1), d(1))))
	assert.ErrorIs(t, a.ValidateEntry(NewValueEntry(day(2023, 6, 2), d(1))), ErrInvalidInput)
}

func TestAsset_Defaults(t *testing.T) {
	a := &Asset{Name: "x", Details: &StockDetails{}}

	assert.Equal(t, DefaultEpoch, a.AcquiredOn())
	assert.Equal(t, DefaultAccountName, a.AccountName())
	assert.True(t, a.IsQuantityBased())
	assert.False(t, a.IsBalanceAdjustment())
}

func TestAsset_Payout(t *testing.T) {
	pension := &Asset{Name: "p", Details: &PensionDetails{ExpectedStartYear: 2055, ExpectedMonthlyPayout: d(1000)}}
	plan, ok := pension.Payout()
	require.True(t, ok)
	assert.Equal(t, 2055, plan.StartYear)

	_, ok = (&Asset{Name: "s", Details: &SavingsDetails{}}).Payout()
	assert.False(t, ok)
}

func TestAsset_CloneIsDeep(t *testing.T) {
	a := &Asset{
		Name:    "x",
		Details: &StockDetails{AccountName: "A"},
		History: History{NewValueEntry(day(2023, 1, 1), d(1))},
	}

	c := a.Clone()
	c.Stock().AccountName = "B"
	c.History[0] = NewValueEntry(day(2024, 1, 1), d(2))

	assert.Equal(t, "A", a.AccountName())
	assert.Equal(t, day(2023, 1, 1), a.History[0].Date)
}

func TestParseAssetType(t *testing.T) {
	got, err := ParseAssetType(" stock ")
	require.NoError(t, err)
	assert.Equal(t, AssetTypeStock, got)

	_, err = ParseAssetType("CRYPTO")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

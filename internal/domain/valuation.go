package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// KPI is the per-asset (or per-group) valuation tuple shown next to every chart
type KPI struct {
	Value        decimal.Decimal // live value: current value, or disposal price once sold
	InvestedCost decimal.Decimal
	Liability    decimal.Decimal // loan + tenant deposit, real estate only
	Net          decimal.Decimal // equity for real estate, P/L for everything else
	ProfitLoss   decimal.Decimal
	ROI          decimal.Decimal // percent; zero when nothing was invested
}

// LiveValue is the current value of a held asset, or its disposal price once sold
func LiveValue(a *Asset) decimal.Decimal {
	if a.IsDisposed() {
		return a.DisposalPrice
	}
	return a.CurrentValue
}

// InvestedCost is acquisition price × quantity for quantity-based assets,
// else the acquisition price itself
func InvestedCost(a *Asset) decimal.Decimal {
	if a.IsQuantityBased() && !a.IsBalanceAdjustment() {
		return a.AcquisitionPrice.Mul(a.Quantity)
	}
	return a.AcquisitionPrice
}

// Liability is loan + tenant deposit for real estate and zero for every other type
func Liability(a *Asset) decimal.Decimal {
	if re := a.RealEstate(); re != nil {
		return re.LoanAmount.Add(re.TenantDeposit)
	}
	return decimal.Zero
}

// ROI returns pl / invested × 100, defined as zero when invested is zero
func ROI(pl, invested decimal.Decimal) decimal.Decimal {
	if invested.IsZero() {
		return decimal.Zero
	}
	return pl.Div(invested).Mul(hundred)
}

// Evaluate computes the KPI tuple of a single asset
func Evaluate(a *Asset) KPI {
	value := LiveValue(a)
	invested := InvestedCost(a)
	liability := Liability(a)
	pl := value.Sub(invested)

	net := pl
	if a.Type() == AssetTypeRealEstate {
		net = value.Sub(liability)
	}

	return KPI{
		Value:        value,
		InvestedCost: invested,
		Liability:    liability,
		Net:          net,
		ProfitLoss:   pl,
		ROI:          ROI(pl, invested),
	}
}

// ApplyBootstrapValue derives CurrentValue = quantity × acquisition price for
// quantity-based assets that were recorded with a quantity but no value yet.
// It reports whether the value was derived.
func ApplyBootstrapValue(a *Asset) bool {
	if !a.IsQuantityBased() {
		return false
	}
	if !a.CurrentValue.IsZero() || !a.Quantity.IsPositive() {
		return false
	}
	a.CurrentValue = a.Quantity.Mul(a.AcquisitionPrice)
	return true
}

// Summary aggregates held assets: totals exclude anything already disposed
type Summary struct {
	TotalAsset     decimal.Decimal
	TotalLiability decimal.Decimal
	NetWorth       decimal.Decimal
	InvestedCost   decimal.Decimal
	ProfitLoss     decimal.Decimal
	ROI            decimal.Decimal
}

// Summarize sums the live values and liabilities of the held assets
func Summarize(assets []*Asset) Summary {
	var s Summary
	for _, a := range assets {
		if a.IsDisposed() {
			continue
		}
		s.TotalAsset = s.TotalAsset.Add(a.CurrentValue)
		s.TotalLiability = s.TotalLiability.Add(Liability(a))
		s.InvestedCost = s.InvestedCost.Add(InvestedCost(a))
	}
	s.NetWorth = s.TotalAsset.Sub(s.TotalLiability)
	s.ProfitLoss = s.TotalAsset.Sub(s.InvestedCost)
	s.ROI = ROI(s.ProfitLoss, s.InvestedCost)
	return s
}

// AccountKPI summarises one brokerage account
type AccountKPI struct {
	Account    string
	Holdings   int
	Adjustment decimal.Decimal
	Summary
}

// SummarizeAccounts groups held STOCK assets by account. The account total is
// the plain sum of its members' current values, adjustment entry included.
func SummarizeAccounts(assets []*Asset) []AccountKPI {
	groups := make(map[string][]*Asset)
	for _, a := range assets {
		if a.Type() != AssetTypeStock || a.IsDisposed() {
			continue
		}
		groups[a.AccountName()] = append(groups[a.AccountName()], a)
	}

	out := make([]AccountKPI, 0, len(groups))
	for account, members := range groups {
		kpi := AccountKPI{Account: account, Summary: Summarize(members)}
		for _, m := range members {
			if m.IsBalanceAdjustment() {
				kpi.Adjustment = kpi.Adjustment.Add(m.CurrentValue)
				continue
			}
			kpi.Holdings++
		}
		out = append(out, kpi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// AllocationByType sums the current value of held assets per type
func AllocationByType(assets []*Asset) map[AssetType]decimal.Decimal {
	out := make(map[AssetType]decimal.Decimal)
	for _, a := range assets {
		if a.IsDisposed() {
			continue
		}
		out[a.Type()] = out[a.Type()].Add(a.CurrentValue)
	}
	return out
}

// FilterByType returns the assets of one type; an empty filter returns all of them
func FilterByType(assets []*Asset, t AssetType) []*Asset {
	if t == "" {
		return assets
	}
	out := make([]*Asset, 0, len(assets))
	for _, a := range assets {
		if a.Type() == t {
			out = append(out, a)
		}
	}
	return out
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetType represents the kind of holding; it never changes after creation
type AssetType string

const (
	AssetTypeRealEstate AssetType = "REAL_ESTATE"
	AssetTypeStock      AssetType = "STOCK"
	AssetTypePension    AssetType = "PENSION"
	AssetTypeSavings    AssetType = "SAVINGS"
	AssetTypePhysical   AssetType = "PHYSICAL"
	AssetTypeOther      AssetType = "ETC"
)

// AssetTypes lists every asset type in display order
var AssetTypes = []AssetType{
	AssetTypeRealEstate,
	AssetTypeStock,
	AssetTypePension,
	AssetTypeSavings,
	AssetTypePhysical,
	AssetTypeOther,
}

// DefaultAccountName groups assets that do not belong to a brokerage account
const DefaultAccountName = "Other"

// ParseAssetType validates a stored or user-provided type tag
func ParseAssetType(raw string) (AssetType, error) {
	t := AssetType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range AssetTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, raw)
}

// IsQuantityBased reports whether assets of this type are valued as price × quantity
func (t AssetType) IsQuantityBased() bool {
	return t == AssetTypeStock || t == AssetTypePhysical
}

// Details holds the type-specific attributes of an asset.
// The set of implementations is closed; switch over them exhaustively.
type Details interface {
	AssetType() AssetType
}

// RealEstateDetails carries the liabilities attached to a property
type RealEstateDetails struct {
	Address       string
	IsOwned       bool
	HasTenant     bool
	LoanAmount    decimal.Decimal
	TenantDeposit decimal.Decimal
}

// StockDetails describes a brokerage holding
type StockDetails struct {
	AccountName       string
	Currency          string
	Ticker            string
	BalanceAdjustment bool // synthetic entry absorbing the gap to the asserted account total
	Payout            PayoutPlan
}

// PensionDetails describes an expected retirement payout
type PensionDetails struct {
	PensionType           string
	ExpectedStartYear     int
	ExpectedEndYear       int
	ExpectedMonthlyPayout decimal.Decimal
	AnnualGrowthRate      decimal.Decimal // percent per year
}

// SavingsDetails describes a deposit account
type SavingsDetails struct {
	Payout PayoutPlan
}

// PhysicalDetails describes a physical good (gold, collectibles). Valued as price × quantity.
type PhysicalDetails struct{}

// OtherDetails is used for anything that does not fit another type
type OtherDetails struct{}

// PayoutPlan marks a STOCK or SAVINGS asset as feeding the retirement simulation
type PayoutPlan struct {
	PensionLike   bool
	StartYear     int
	MonthlyPayout decimal.Decimal
}

func (*RealEstateDetails) AssetType() AssetType { return AssetTypeRealEstate }
func (*StockDetails) AssetType() AssetType      { return AssetTypeStock }
func (*PensionDetails) AssetType() AssetType    { return AssetTypePension }
func (*SavingsDetails) AssetType() AssetType    { return AssetTypeSavings }
func (*PhysicalDetails) AssetType() AssetType   { return AssetTypePhysical }
func (*OtherDetails) AssetType() AssetType      { return AssetTypeOther }

// NewDetails returns the zero details value for a type
func NewDetails(t AssetType) (Details, error) {
	switch t {
	case AssetTypeRealEstate:
		return &RealEstateDetails{IsOwned: true}, nil
	case AssetTypeStock:
		return &StockDetails{}, nil
	case AssetTypePension:
		return &PensionDetails{}, nil
	case AssetTypeSavings:
		return &SavingsDetails{}, nil
	case AssetTypePhysical:
		return &PhysicalDetails{}, nil
	case AssetTypeOther:
		return &OtherDetails{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, t)
	}
}

// Asset is a tracked holding together with its history.
// The asset and its history entries form one aggregate.
type Asset struct {
	ID               string
	Name             string
	CurrentValue     decimal.Decimal
	AcquisitionDate  time.Time // zero when unknown
	AcquisitionPrice decimal.Decimal
	Quantity         decimal.Decimal
	DisposalDate     time.Time // zero while the asset is held
	DisposalPrice    decimal.Decimal
	Details          Details
	History          History
}

// Type returns the asset type as determined by its details
func (a *Asset) Type() AssetType {
	if a.Details == nil {
		return ""
	}
	return a.Details.AssetType()
}

// IsDisposed reports whether the asset has been sold
func (a *Asset) IsDisposed() bool {
	return !a.DisposalDate.IsZero()
}

// IsQuantityBased reports whether the asset is valued as price × quantity
func (a *Asset) IsQuantityBased() bool {
	return a.Type().IsQuantityBased()
}

// AcquiredOn returns the acquisition date, or DefaultEpoch when it is unknown
func (a *Asset) AcquiredOn() time.Time {
	if a.AcquisitionDate.IsZero() {
		return DefaultEpoch
	}
	return a.AcquisitionDate
}

// Stock returns the stock details, or nil for other types
func (a *Asset) Stock() *StockDetails {
	d, _ := a.Details.(*StockDetails)
	return d
}

// RealEstate returns the real estate details, or nil for other types
func (a *Asset) RealEstate() *RealEstateDetails {
	d, _ := a.Details.(*RealEstateDetails)
	return d
}

// IsBalanceAdjustment reports whether this is the synthetic per-account adjustment entry
func (a *Asset) IsBalanceAdjustment() bool {
	s := a.Stock()
	return s != nil && s.BalanceAdjustment
}

// AccountName returns the brokerage account for stocks and DefaultAccountName otherwise
func (a *Asset) AccountName() string {
	if s := a.Stock(); s != nil {
		if name := strings.TrimSpace(s.AccountName); name != "" {
			return name
		}
	}
	return DefaultAccountName
}

// Currency returns the asset's trading currency, or "" when it is held in the home currency
func (a *Asset) Currency() string {
	if s := a.Stock(); s != nil {
		return s.Currency
	}
	return ""
}

// Payout returns the retirement payout plan of pension-like assets
func (a *Asset) Payout() (PayoutPlan, bool) {
	switch d := a.Details.(type) {
	case *StockDetails:
		return d.Payout, d.Payout.PensionLike
	case *SavingsDetails:
		return d.Payout, d.Payout.PensionLike
	case *PensionDetails:
		return PayoutPlan{
			PensionLike:   true,
			StartYear:     d.ExpectedStartYear,
			MonthlyPayout: d.ExpectedMonthlyPayout,
		}, true
	default:
		return PayoutPlan{}, false
	}
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: asset name cannot be empty", ErrInvalidInput)
	}
	if a.Details == nil {
		return fmt.Errorf("%w: asset %q has no type", ErrInvalidInput, a.Name)
	}
	if a.IsDisposed() && !a.AcquisitionDate.IsZero() && a.DisposalDate.Before(a.AcquisitionDate) {
		return fmt.Errorf("%w: disposal date %s is before acquisition date %s",
			ErrInvalidInput, FormatDate(a.DisposalDate), FormatDate(a.AcquisitionDate))
	}
	if a.IsDisposed() {
		for _, h := range a.History {
			if h.Date.After(a.DisposalDate) {
				return fmt.Errorf("%w: history entry %s is after disposal date %s",
					ErrInvalidInput, FormatDate(h.Date), FormatDate(a.DisposalDate))
			}
		}
	}
	return nil
}

// ValidateEntry checks that a new history entry may be recorded on this asset
func (a *Asset) ValidateEntry(e HistoryEntry) error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: history entry needs a date", ErrInvalidInput)
	}
	if a.IsDisposed() && e.Date.After(a.DisposalDate) {
		return fmt.Errorf("%w: history entry %s is after disposal date %s",
			ErrInvalidInput, FormatDate(e.Date), FormatDate(a.DisposalDate))
	}
	return nil
}

// Clone returns a deep copy of the asset so a session can edit it without
// touching the stored aggregate
func (a *Asset) Clone() *Asset {
	c := *a
	switch d := a.Details.(type) {
	case *RealEstateDetails:
		cp := *d
		c.Details = &cp
	case *StockDetails:
		cp := *d
		c.Details = &cp
	case *PensionDetails:
		cp := *d
		c.Details = &cp
	case *SavingsDetails:
		cp := *d
		c.Details = &cp
	case *PhysicalDetails:
		c.Details = &PhysicalDetails{}
	case *OtherDetails:
		c.Details = &OtherDetails{}
	}
	c.History = append(History(nil), a.History...)
	return &c
}

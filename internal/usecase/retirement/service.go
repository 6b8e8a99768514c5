// Package retirement projects the monthly payouts of pensions and pension-like holdings
package retirement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

const (
	// HorizonYears is how far ahead the projection runs
	HorizonYears = 60

	// DefaultStartYear applies when a payout plan has no start year
	DefaultStartYear = 2060

	// OpenEndYear marks a payout without an end
	OpenEndYear = 9999
)

// Source is one asset feeding the projection
type Source struct {
	AssetID       string
	Name          string
	StartYear     int
	EndYear       int
	MonthlyPayout decimal.Decimal
	GrowthRate    decimal.Decimal // percent per year
}

// Year is the projected monthly income of one calendar year
type Year struct {
	Year    int
	Age     int
	Payouts map[string]decimal.Decimal // by source name
	Total   decimal.Decimal
}

// Plan is the full projection
type Plan struct {
	Sources             []Source
	Years               []Year
	RetirementAge       int
	MonthlyAtRetirement decimal.Decimal
}

// Sources collects PENSION assets and pension-like STOCK/SAVINGS holdings that are still held
func Sources(assets []*domain.Asset) []Source {
	var out []Source
	for _, a := range assets {
		if a.IsDisposed() {
			continue
		}
		plan, ok := a.Payout()
		if !ok {
			continue
		}

		src := Source{
			AssetID:       a.ID,
			Name:          a.Name,
			StartYear:     plan.StartYear,
			EndYear:       OpenEndYear,
			MonthlyPayout: plan.MonthlyPayout,
		}
		if p, ok := a.Details.(*domain.PensionDetails); ok {
			src.GrowthRate = p.AnnualGrowthRate
			if p.ExpectedEndYear > 0 {
				src.EndYear = p.ExpectedEndYear
			}
		}
		if src.StartYear <= 0 {
			src.StartYear = DefaultStartYear
		}
		out = append(out, src)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PayoutIn is the monthly payout of a source in year y, grown yearly from its start year.
// It is zero outside the payout period.
func (s Source) PayoutIn(y int) decimal.Decimal {
	if y < s.StartYear || y > s.EndYear {
		return decimal.Zero
	}
	growth := decimal.NewFromInt(1).Add(s.GrowthRate.Div(decimal.NewFromInt(100)))
	factor := growth.Pow(decimal.NewFromInt(int64(y - s.StartYear)))
	return s.MonthlyPayout.Mul(factor).Round(2)
}

// Simulate projects HorizonYears years starting at currentYear
func Simulate(assets []*domain.Asset, settings domain.Settings, currentYear int) *Plan {
	sources := Sources(assets)
	age := settings.CurrentAge()
	plan := &Plan{
		Sources:       sources,
		RetirementAge: settings.RetirementAge(),
	}

	for y := currentYear; y < currentYear+HorizonYears; y++ {
		row := Year{
			Year:    y,
			Age:     age + (y - currentYear),
			Payouts: make(map[string]decimal.Decimal),
		}
		for _, s := range sources {
			m := s.PayoutIn(y)
			if m.IsZero() {
				continue
			}
			row.Payouts[s.Name] = row.Payouts[s.Name].Add(m)
			row.Total = row.Total.Add(m)
		}
		if row.Age == plan.RetirementAge {
			plan.MonthlyAtRetirement = row.Total
		}
		plan.Years = append(plan.Years, row)
	}
	return plan
}

// Service builds projections from the stored portfolio
type Service struct {
	store domain.UnitOfWork
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new retirement Service instance
func NewService(store domain.UnitOfWork, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan projects payouts from the current year
func (s *Service) Plan(ctx context.Context) (*Plan, error) {
	assets, err := s.store.Assets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	settings, err := s.store.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return Simulate(assets, settings, s.now().Year()), nil
}

package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// Dashboard is the overview across every asset
type Dashboard struct {
	Summary    domain.Summary
	Allocation map[domain.AssetType]decimal.Decimal
	Accounts   []domain.AccountKPI
	Series     []timeseries.Point // daily totals by asset type
}

// TypeView is the overview of one asset type
type TypeView struct {
	Type      domain.AssetType
	Summary   domain.Summary
	Assets    []AssetKPI
	Dimension timeseries.Dimension
	Series    []timeseries.Point
}

// AssetKPI pairs an asset with its key figures
type AssetKPI struct {
	Asset *domain.Asset
	KPI   domain.KPI
}

// AssetDetail is the view of a single asset
type AssetDetail struct {
	AssetKPI
	Series []timeseries.Row
}

// GetDashboard calculates totals, allocation and the type series.
// Disposed assets are excluded from totals but still appear in the series
// up to their disposal date.
func (s *PortfolioService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	rows := s.series.Reconstruct(state.Assets, "")
	return &Dashboard{
		Summary:    domain.Summarize(state.Assets),
		Allocation: domain.AllocationByType(state.Assets),
		Accounts:   domain.SummarizeAccounts(state.Assets),
		Series:     timeseries.Aggregate(rows, timeseries.ByType),
	}, nil
}

// GetTypeView summarizes the assets of one type. Stocks are charted per
// account, everything else per asset name.
func (s *PortfolioService) GetTypeView(ctx context.Context, t domain.AssetType) (*TypeView, error) {
	if t == "" {
		return nil, fmt.Errorf("%w: asset type is required", domain.ErrInvalidInput)
	}
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	selected := domain.FilterByType(state.Assets, t)
	dim := timeseries.ByName
	if t == domain.AssetTypeStock {
		dim = timeseries.ByAccount
	}

	view := &TypeView{
		Type:      t,
		Summary:   domain.Summarize(selected),
		Dimension: dim,
		Series:    timeseries.Aggregate(s.series.Reconstruct(selected, t), dim),
	}
	for _, a := range selected {
		view.Assets = append(view.Assets, AssetKPI{Asset: a, KPI: domain.Evaluate(a)})
	}
	return view, nil
}

// GetAssetDetail returns the figures and dense series of one asset
func (s *PortfolioService) GetAssetDetail(ctx context.Context, id string) (*AssetDetail, error) {
	a, err := s.store.Assets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	domain.ApplyBootstrapValue(a)

	return &AssetDetail{
		AssetKPI: AssetKPI{Asset: a, KPI: domain.Evaluate(a)},
		Series:   s.series.AssetSeries(a),
	}, nil
}

// GetSeries aggregates the series of the assets matching filter along dim
func (s *PortfolioService) GetSeries(ctx context.Context, filter domain.AssetType, dim timeseries.Dimension) ([]timeseries.Point, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return timeseries.Aggregate(s.series.Reconstruct(state.Assets, filter), dim), nil
}

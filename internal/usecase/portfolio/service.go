// Package portfolio loads the application state and applies user edits to assets
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/timeseries"
)

// State is one consistent snapshot of everything the user tracks
type State struct {
	Assets   []*domain.Asset
	Settings domain.Settings
	Issues   []domain.IntegrityIssue
}

// Find returns the asset with the given id, or nil
func (st *State) Find(id string) *domain.Asset {
	for _, a := range st.Assets {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// PortfolioService handles portfolio views and asset edits
type PortfolioService struct {
	store  domain.Store
	market domain.MarketDataProvider
	series *timeseries.Engine
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a PortfolioService
type Option func(*PortfolioService)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *PortfolioService) {
		s.now = now
	}
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(store domain.Store, market domain.MarketDataProvider, series *timeseries.Engine, logger *logging.Logger, opts ...Option) *PortfolioService {
	s := &PortfolioService{
		store:  store,
		market: market,
		series: series,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads every asset and the settings. Quantity-based assets without a
// current value get their bootstrap value in memory; integrity problems are
// logged and returned with the state, never repaired.
func (s *PortfolioService) Load(ctx context.Context) (*State, error) {
	assets, err := s.store.Assets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	settings, err := s.store.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, a := range assets {
		domain.ApplyBootstrapValue(a)
	}

	issues, err := s.check(ctx, assets)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		s.logger.Warn().Str("kind", issue.Kind).Msg(issue.String())
	}

	return &State{Assets: assets, Settings: settings, Issues: issues}, nil
}

// Check reports duplicate adjustment entries and orphaned history rows
func (s *PortfolioService) Check(ctx context.Context) ([]domain.IntegrityIssue, error) {
	assets, err := s.store.Assets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	return s.check(ctx, assets)
}

func (s *PortfolioService) check(ctx context.Context, assets []*domain.Asset) ([]domain.IntegrityIssue, error) {
	issues := domain.FindDuplicateAdjustments(assets)

	orphans, err := s.store.History().OrphanAssetIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look for orphaned history: %w", err)
	}
	if len(orphans) > 0 {
		issues = append(issues, domain.IntegrityIssue{
			Kind:     domain.IssueOrphanHistory,
			AssetIDs: orphans,
		})
	}
	return issues, nil
}

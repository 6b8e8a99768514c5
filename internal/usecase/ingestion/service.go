// Package ingestion refreshes equity prices from the market-data provider and
// merges them into each holding's history.
package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
	"github.com/simaogato/assetflow-backend/internal/usecase/reconcile"
)

// Config tunes a price update batch
type Config struct {
	LookbackDays  int           // fetch window for holdings without history
	RewindStart   time.Time     // history is rebuilt from here when quantities drifted
	Concurrency   int           // tickers fetched in parallel
	TickerTimeout time.Duration // bound on all provider calls for one ticker
}

// DefaultConfig returns the batch settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		LookbackDays:  30,
		RewindStart:   domain.DefaultEpoch,
		Concurrency:   4,
		TickerTimeout: 30 * time.Second,
	}
}

// Failure records a ticker that could not be updated
type Failure struct {
	Ticker string
	Err    error
}

// Report summarises a batch
type Report struct {
	Tickers  int
	Updated  int      // assets whose value was refreshed
	Rewound  []string // assets whose history was rebuilt
	Failures []Failure
}

// Service handles price ingestion
type Service struct {
	store  domain.Store
	market domain.MarketDataProvider
	series reconcile.Invalidator
	logger *logging.Logger
	cfg    Config
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new ingestion Service instance
func NewService(store domain.Store, market domain.MarketDataProvider, series reconcile.Invalidator, logger *logging.Logger, cfg Config, opts ...Option) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.LookbackDays < 1 {
		cfg.LookbackDays = DefaultConfig().LookbackDays
	}
	if cfg.RewindStart.IsZero() {
		cfg.RewindStart = domain.DefaultEpoch
	}
	if cfg.TickerTimeout <= 0 {
		cfg.TickerTimeout = DefaultConfig().TickerTimeout
	}
	s := &Service{
		store:  store,
		market: market,
		series: series,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeTicker is the grouping key of a ticker
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// group is every tracked asset sharing one ticker
type group struct {
	ticker   string
	currency string
	assets   []*domain.Asset
	start    time.Time // earliest date needing a refresh
	rewind   bool      // at least one asset drifted
}

// UpdateAll refreshes the given tickers, or every tracked ticker when none are given.
// A failing ticker is logged and reported; the others still update.
func (s *Service) UpdateAll(ctx context.Context, tickers []string) (*Report, error) {
	assets, err := s.store.Assets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	today := domain.Today(s.now())
	groups := s.plan(assets, tickers, today)
	report := &Report{Tickers: len(groups)}
	if len(groups) == 0 {
		return report, nil
	}

	s.logger.Info().Int("tickers", len(groups)).Msg("price update started")

	fetched := s.fetchAll(ctx, groups, today)

	var touched []string
	for _, g := range groups {
		f := fetched[g.ticker]
		if f.err != nil {
			s.fail(report, g.ticker, f.err)
			continue
		}

		var ids, rewound []string
		err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
			ids = ids[:0]
			var err error
			rewound, err = s.apply(ctx, uow, g, f, today)
			if err != nil {
				return err
			}
			for _, a := range g.assets {
				ids = append(ids, a.ID)
			}
			accounts := make(map[string]struct{})
			for _, a := range g.assets {
				accounts[a.AccountName()] = struct{}{}
			}
			for account := range accounts {
				r, err := reconcile.Refresh(ctx, uow, account, today)
				if err != nil {
					return err
				}
				if r != nil {
					ids = append(ids, r.AdjustmentID)
				}
			}
			return nil
		})
		if err != nil {
			s.fail(report, g.ticker, err)
			continue
		}

		report.Updated += len(g.assets)
		report.Rewound = append(report.Rewound, rewound...)
		touched = append(touched, ids...)
	}

	s.series.Invalidate(touched...)
	s.logger.Info().
		Int("tickers", report.Tickers).
		Int("updated", report.Updated).
		Int("rewound", len(report.Rewound)).
		Int("failed", len(report.Failures)).
		Msg("price update finished")
	return report, nil
}

func (s *Service) fail(report *Report, ticker string, err error) {
	s.logger.Warn().Str("ticker", ticker).Err(err).Msg("price update failed")
	report.Failures = append(report.Failures, Failure{Ticker: ticker, Err: err})
}

// plan groups held, non-synthetic stocks by ticker and works out each group's fetch window
func (s *Service) plan(assets []*domain.Asset, only []string, today time.Time) []*group {
	wanted := make(map[string]bool, len(only))
	for _, t := range only {
		wanted[NormalizeTicker(t)] = true
	}

	lookback := today.AddDate(0, 0, -s.cfg.LookbackDays)
	byTicker := make(map[string]*group)
	for _, a := range assets {
		st := a.Stock()
		if st == nil || st.BalanceAdjustment || a.IsDisposed() {
			continue
		}
		ticker := NormalizeTicker(st.Ticker)
		if ticker == "" || (len(wanted) > 0 && !wanted[ticker]) {
			continue
		}

		g, ok := byTicker[ticker]
		if !ok {
			g = &group{ticker: ticker, currency: st.Currency, start: today}
			byTicker[ticker] = g
		}
		g.assets = append(g.assets, a)

		start := lookback
		if last, ok := a.History.LastDate(); ok {
			start = last
		}
		if start.Before(g.start) {
			g.start = start
		}
		if drifted(a) {
			g.rewind = true
		}
	}

	groups := make([]*group, 0, len(byTicker))
	for _, g := range byTicker {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ticker < groups[j].ticker })
	return groups
}

// drifted reports whether the holding's quantity was edited outside the
// history, i.e. it differs from the quantity of the latest entry recording one
func drifted(a *domain.Asset) bool {
	h := a.History.Sorted()
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Quantity.Valid {
			return !h[i].Quantity.Decimal.Equal(a.Quantity)
		}
	}
	return false
}

// fetchResult is everything the provider returned for one ticker
type fetchResult struct {
	daily   []domain.Bar
	monthly []domain.Bar
	spot    decimal.Decimal
	fx      decimal.Decimal
	err     error
}

// fetchAll queries the provider for every group, a bounded number at a time
func (s *Service) fetchAll(ctx context.Context, groups []*group, today time.Time) map[string]*fetchResult {
	results := make(map[string]*fetchResult, len(groups))
	fx := newFxMemo(s.market)

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, g := range groups {
		wg.Add(1)
		go func(g *group) {
			defer wg.Done()

			var r *fetchResult
			select {
			case sem <- struct{}{}:
				r = s.fetch(ctx, g, fx, today)
				<-sem
			case <-ctx.Done():
				r = &fetchResult{err: ctx.Err()}
			}

			mu.Lock()
			results[g.ticker] = r
			mu.Unlock()
		}(g)
	}

	wg.Wait()
	return results
}

func (s *Service) fetch(ctx context.Context, g *group, fx *fxMemo, today time.Time) *fetchResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TickerTimeout)
	defer cancel()

	r := &fetchResult{}
	start := g.start
	if g.rewind && s.cfg.RewindStart.Before(start) {
		start = s.cfg.RewindStart
	}

	r.daily, r.err = s.market.DailyBars(ctx, g.ticker, start, today)
	if r.err != nil {
		return r
	}

	if g.rewind {
		r.monthly, r.err = s.market.MonthlyBars(ctx, g.ticker, s.cfg.RewindStart, today)
		if r.err != nil {
			return r
		}
	}

	spot, err := s.market.SpotPrice(ctx, g.ticker)
	switch {
	case err == nil && spot.IsPositive():
		r.spot = spot
	case len(r.daily) > 0:
		s.logger.Debug().Str("ticker", g.ticker).Err(err).Msg("spot price unavailable, using last close")
		r.spot = r.daily[len(r.daily)-1].Close
	default:
		if err == nil {
			err = fmt.Errorf("%w: no price for %s", domain.ErrProviderUnavailable, g.ticker)
		}
		r.err = err
		return r
	}

	r.fx, r.err = fx.rate(ctx, g.currency)
	return r
}

// fxMemo fetches each currency's rate at most once per batch
type fxMemo struct {
	market domain.MarketDataProvider
	mu     sync.Mutex
	rates  map[string]decimal.Decimal
}

func newFxMemo(market domain.MarketDataProvider) *fxMemo {
	return &fxMemo{market: market, rates: make(map[string]decimal.Decimal)}
}

func (m *fxMemo) rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return decimal.NewFromInt(1), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rates[currency]; ok {
		return r, nil
	}
	r, err := m.market.FxRate(ctx, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get %s exchange rate: %w", currency, err)
	}
	m.rates[currency] = r
	return r, nil
}

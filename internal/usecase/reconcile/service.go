// Package reconcile keeps one synthetic adjustment entry per brokerage account
// so that the account's holdings add up to the total the user asserted.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
)

// AdjustmentNamePrefix prefixes the name of every adjustment entry
const AdjustmentNamePrefix = "[Adjustment] "

// Invalidator drops memoized series for the given assets
type Invalidator interface {
	Invalidate(ids ...string)
}

// Result describes the state of an account after reconciliation
type Result struct {
	Account      string
	Asserted     decimal.Decimal
	Holdings     decimal.Decimal // sum of tracked holdings, adjustment excluded
	Adjustment   decimal.Decimal
	AdjustmentID string
	Created      bool
}

// Service handles balance reconciliation
type Service struct {
	store  domain.Store
	series Invalidator
	logger *logging.Logger
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

// NewService creates a new reconcile Service instance
func NewService(store domain.Store, series Invalidator, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		series: series,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile records the asserted total of an account and rewrites its adjustment entry
func (s *Service) Reconcile(ctx context.Context, account string, asserted decimal.Decimal) (*Result, error) {
	var result *Result
	err := s.store.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		r, err := Apply(ctx, uow, account, asserted, domain.Today(s.now()))
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}

	s.series.Invalidate(result.AdjustmentID)
	s.logger.Info().
		Str("account", result.Account).
		Str("asserted", result.Asserted.String()).
		Str("adjustment", result.Adjustment.String()).
		Bool("created", result.Created).
		Msg("account reconciled")
	return result, nil
}

// Apply reconciles an account inside an existing unit of work.
// Afterwards the current values of the account's held assets, adjustment
// included, sum to asserted exactly.
func Apply(ctx context.Context, uow domain.UnitOfWork, account string, asserted decimal.Decimal, today time.Time) (*Result, error) {
	account = strings.TrimSpace(account)
	if account == "" || account == domain.DefaultAccountName {
		return nil, fmt.Errorf("%w: account %q cannot be reconciled", domain.ErrInvalidInput, account)
	}

	assets, err := uow.Assets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	adjustment, err := domain.AdjustmentFor(assets, account)
	if err != nil {
		return nil, err
	}

	holdings := decimal.Zero
	for _, a := range assets {
		if a.Type() != domain.AssetTypeStock || a.AccountName() != account {
			continue
		}
		if a.IsBalanceAdjustment() || a.IsDisposed() {
			continue
		}
		holdings = holdings.Add(a.CurrentValue)
	}
	diff := asserted.Sub(holdings)

	settings := domain.Settings{}
	settings.SetAccountTotal(account, asserted)
	if err := uow.Settings().Set(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save account total: %w", err)
	}

	entry := domain.HistoryEntry{
		Date:     today,
		Value:    decimal.NewNullDecimal(diff),
		Price:    decimal.NewNullDecimal(diff),
		Quantity: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	}
	result := &Result{
		Account:    account,
		Asserted:   asserted,
		Holdings:   holdings,
		Adjustment: diff,
	}

	if adjustment == nil {
		adjustment = &domain.Asset{
			ID:               uuid.NewString(),
			Name:             AdjustmentNamePrefix + account,
			CurrentValue:     diff,
			AcquisitionDate:  today,
			AcquisitionPrice: decimal.Zero,
			Quantity:         decimal.NewFromInt(1),
			Details: &domain.StockDetails{
				AccountName:       account,
				BalanceAdjustment: true,
			},
			History: domain.History{entry},
		}
		if err := uow.Assets().Create(ctx, adjustment); err != nil {
			return nil, fmt.Errorf("failed to create adjustment entry: %w", err)
		}
		result.AdjustmentID = adjustment.ID
		result.Created = true
		return result, nil
	}

	if err := uow.Assets().UpdateValue(ctx, adjustment.ID, diff, decimal.NewFromInt(1)); err != nil {
		return nil, fmt.Errorf("failed to update adjustment entry: %w", err)
	}
	if err := uow.History().Upsert(ctx, adjustment.ID, entry); err != nil {
		return nil, fmt.Errorf("failed to record adjustment history: %w", err)
	}
	result.AdjustmentID = adjustment.ID
	return result, nil
}

// Refresh re-applies the stored asserted total of an account after its holdings
// changed. It does nothing for accounts that were never reconciled.
func Refresh(ctx context.Context, uow domain.UnitOfWork, account string, today time.Time) (*Result, error) {
	if account == "" || account == domain.DefaultAccountName {
		return nil, nil
	}
	settings, err := uow.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	asserted, ok := settings.AccountTotal(account)
	if !ok {
		return nil, nil
	}
	return Apply(ctx, uow, account, asserted, today)
}

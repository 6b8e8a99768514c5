package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	s *Store
}

const assetColumns = `id, type, name, current_value, acquisition_date, acquisition_price,
	quantity, disposal_date, disposal_price`

// List retrieves every asset with its details and history
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	return r.load(ctx, "")
}

// GetByID retrieves one asset with its details and history
func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	assets, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
	}
	return assets[0], nil
}

// load reads assets (all of them when id is empty) and attaches details and history
func (r *assetRepository) load(ctx context.Context, id string) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets`
	var args []any
	if id != "" {
		query += ` WHERE id = $1`
		args = append(args, id)
	}
	query += ` ORDER BY name, id`

	rows, err := r.s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	byID := make(map[string]*domain.Asset)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}

	if err := r.loadDetails(ctx, byID, id); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, byID, id); err != nil {
		return nil, err
	}
	return assets, nil
}

func scanAsset(rows *sql.Rows) (*domain.Asset, error) {
	var (
		a                  domain.Asset
		typ                string
		acquired, disposed sql.NullString
	)
	err := rows.Scan(
		&a.ID,
		&typ,
		&a.Name,
		&a.CurrentValue,
		&acquired,
		&a.AcquisitionPrice,
		&a.Quantity,
		&disposed,
		&a.DisposalPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	assetType, err := domain.ParseAssetType(typ)
	if err != nil {
		assetType = domain.AssetTypeOther
	}
	// replaced by the stored details when a details row exists
	a.Details, _ = domain.NewDetails(assetType)

	if acquired.Valid {
		a.AcquisitionDate = domain.ParseDateOr(acquired.String, domain.DefaultEpoch)
	}
	if disposed.Valid {
		if d, ok := domain.ParseDate(disposed.String); ok {
			a.DisposalDate = d
		}
	}
	return &a, nil
}

func (r *assetRepository) loadDetails(ctx context.Context, byID map[string]*domain.Asset, id string) error {
	filter, args := "", []any(nil)
	if id != "" {
		filter, args = ` WHERE asset_id = $1`, []any{id}
	}

	// real estate
	rows, err := r.s.query(ctx, `SELECT asset_id, address, is_owned, has_tenant, loan_amount, tenant_deposit
		FROM real_estate_details`+filter, args...)
	if err != nil {
		return fmt.Errorf("failed to query real estate details: %w", err)
	}
	err = scanEach(rows, func() error {
		var assetID string
		var d domain.RealEstateDetails
		if err := rows.Scan(&assetID, &d.Address, &d.IsOwned, &d.HasTenant, &d.LoanAmount, &d.TenantDeposit); err != nil {
			return err
		}
		attach(byID, assetID, &d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan real estate details: %w", err)
	}

	// stock
	rows, err = r.s.query(ctx, `SELECT asset_id, account_name, currency, ticker, is_balance_adjustment,
		is_pension_like, pension_start_year, pension_monthly FROM stock_details`+filter, args...)
	if err != nil {
		return fmt.Errorf("failed to query stock details: %w", err)
	}
	err = scanEach(rows, func() error {
		var assetID string
		var d domain.StockDetails
		if err := rows.Scan(&assetID, &d.AccountName, &d.Currency, &d.Ticker, &d.BalanceAdjustment,
			&d.Payout.PensionLike, &d.Payout.StartYear, &d.Payout.MonthlyPayout); err != nil {
			return err
		}
		attach(byID, assetID, &d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan stock details: %w", err)
	}

	// pension
	rows, err = r.s.query(ctx, `SELECT asset_id, pension_type, expected_start_year, expected_end_year,
		expected_monthly_payout, annual_growth_rate FROM pension_details`+filter, args...)
	if err != nil {
		return fmt.Errorf("failed to query pension details: %w", err)
	}
	err = scanEach(rows, func() error {
		var assetID string
		var d domain.PensionDetails
		if err := rows.Scan(&assetID, &d.PensionType, &d.ExpectedStartYear, &d.ExpectedEndYear,
			&d.ExpectedMonthlyPayout, &d.AnnualGrowthRate); err != nil {
			return err
		}
		attach(byID, assetID, &d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan pension details: %w", err)
	}

	// savings
	rows, err = r.s.query(ctx, `SELECT asset_id, is_pension_like, pension_start_year, pension_monthly
		FROM savings_details`+filter, args...)
	if err != nil {
		return fmt.Errorf("failed to query savings details: %w", err)
	}
	err = scanEach(rows, func() error {
		var assetID string
		var d domain.SavingsDetails
		if err := rows.Scan(&assetID, &d.Payout.PensionLike, &d.Payout.StartYear, &d.Payout.MonthlyPayout); err != nil {
			return err
		}
		attach(byID, assetID, &d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan savings details: %w", err)
	}
	return nil
}

// attach sets details only when they match the asset's stored type
func attach(byID map[string]*domain.Asset, assetID string, d domain.Details) {
	a, ok := byID[assetID]
	if !ok || a.Type() != d.AssetType() {
		return
	}
	a.Details = d
}

func scanEach(rows *sql.Rows, scan func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *assetRepository) loadHistory(ctx context.Context, byID map[string]*domain.Asset, id string) error {
	query := `SELECT asset_id, date, value, price, quantity FROM asset_history`
	var args []any
	if id != "" {
		query += ` WHERE asset_id = $1`
		args = append(args, id)
	}
	query += ` ORDER BY asset_id, date`

	rows, err := r.s.query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	err = scanEach(rows, func() error {
		assetID, entry, err := scanHistoryEntry(rows)
		if err != nil {
			return err
		}
		if a, ok := byID[assetID]; ok {
			a.History = append(a.History, entry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan history: %w", err)
	}

	for _, a := range byID {
		a.History = a.History.Sorted()
	}
	return nil
}

// Create inserts an asset, its details and any history it carries
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	return r.s.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		s := uow.(*Store)

		_, err := s.exec(ctx, `
			INSERT INTO assets (`+assetColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			asset.ID,
			string(asset.Type()),
			asset.Name,
			asset.CurrentValue,
			nullDate(asset.AcquisitionDate),
			asset.AcquisitionPrice,
			asset.Quantity,
			nullDate(asset.DisposalDate),
			asset.DisposalPrice,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("asset %s already exists: %w", asset.ID, domain.ErrInvalidInput)
			}
			return fmt.Errorf("failed to insert asset: %w", err)
		}

		if err := insertDetails(ctx, s, asset); err != nil {
			return err
		}

		if len(asset.History) > 0 {
			return s.History().UpsertBatch(ctx, asset.ID, asset.History)
		}
		return nil
	})
}

// Update rewrites the asset row and its details; history is left untouched
func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	return r.s.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		s := uow.(*Store)

		res, err := s.exec(ctx, `
			UPDATE assets
			SET name = $2, current_value = $3, acquisition_date = $4, acquisition_price = $5,
				quantity = $6, disposal_date = $7, disposal_price = $8
			WHERE id = $1`,
			asset.ID,
			asset.Name,
			asset.CurrentValue,
			nullDate(asset.AcquisitionDate),
			asset.AcquisitionPrice,
			asset.Quantity,
			nullDate(asset.DisposalDate),
			asset.DisposalPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to update asset: %w", err)
		}
		if err := expectOneRow(res, asset.ID); err != nil {
			return err
		}

		if table := detailsTable(asset.Type()); table != "" {
			if _, err := s.exec(ctx, `DELETE FROM `+table+` WHERE asset_id = $1`, asset.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return insertDetails(ctx, s, asset)
	})
}

// UpdateValue updates only the denormalized current value and quantity
func (r *assetRepository) UpdateValue(ctx context.Context, id string, currentValue, quantity decimal.Decimal) error {
	res, err := r.s.exec(ctx, `UPDATE assets SET current_value = $2, quantity = $3 WHERE id = $1`,
		id, currentValue, quantity)
	if err != nil {
		return fmt.Errorf("failed to update asset value: %w", err)
	}
	return expectOneRow(res, id)
}

// Delete removes an asset with its details and history
func (r *assetRepository) Delete(ctx context.Context, id string) error {
	return r.s.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		s := uow.(*Store)

		if _, err := s.exec(ctx, `DELETE FROM asset_history WHERE asset_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}
		res, err := s.exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
		return expectOneRow(res, id)
	})
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func detailsTable(t domain.AssetType) string {
	switch t {
	case domain.AssetTypeRealEstate:
		return "real_estate_details"
	case domain.AssetTypeStock:
		return "stock_details"
	case domain.AssetTypePension:
		return "pension_details"
	case domain.AssetTypeSavings:
		return "savings_details"
	default:
		return ""
	}
}

func insertDetails(ctx context.Context, s *Store, asset *domain.Asset) error {
	var err error
	switch d := asset.Details.(type) {
	case *domain.RealEstateDetails:
		_, err = s.exec(ctx, `
			INSERT INTO real_estate_details (asset_id, address, is_owned, has_tenant, loan_amount, tenant_deposit)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			asset.ID, d.Address, d.IsOwned, d.HasTenant, d.LoanAmount, d.TenantDeposit)
	case *domain.StockDetails:
		_, err = s.exec(ctx, `
			INSERT INTO stock_details (asset_id, account_name, currency, ticker, is_balance_adjustment,
				is_pension_like, pension_start_year, pension_monthly)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			asset.ID, d.AccountName, d.Currency, d.Ticker, d.BalanceAdjustment,
			d.Payout.PensionLike, d.Payout.StartYear, d.Payout.MonthlyPayout)
		if err != nil && isUniqueViolation(err) {
			return fmt.Errorf("account %q already has a balance adjustment entry: %w",
				d.AccountName, domain.ErrIntegrityViolation)
		}
	case *domain.PensionDetails:
		_, err = s.exec(ctx, `
			INSERT INTO pension_details (asset_id, pension_type, expected_start_year, expected_end_year,
				expected_monthly_payout, annual_growth_rate)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			asset.ID, d.PensionType, d.ExpectedStartYear, d.ExpectedEndYear,
			d.ExpectedMonthlyPayout, d.AnnualGrowthRate)
	case *domain.SavingsDetails:
		_, err = s.exec(ctx, `
			INSERT INTO savings_details (asset_id, is_pension_like, pension_start_year, pension_monthly)
			VALUES ($1, $2, $3, $4)`,
			asset.ID, d.Payout.PensionLike, d.Payout.StartYear, d.Payout.MonthlyPayout)
	case *domain.PhysicalDetails, *domain.OtherDetails:
		return nil
	default:
		return fmt.Errorf("asset %s has no type: %w", asset.ID, domain.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s details: %w", asset.Type(), err)
	}
	return nil
}

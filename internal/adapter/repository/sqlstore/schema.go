package sqlstore

import (
	"context"
	"fmt"
)

// Money and quantities are NUMERIC on PostgreSQL and TEXT on SQLite so that
// decimals round-trip exactly. Dates are ISO calendar dates stored as TEXT.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id                TEXT PRIMARY KEY,
		type              TEXT NOT NULL,
		name              TEXT NOT NULL,
		current_value     NUMERIC NOT NULL DEFAULT 0,
		acquisition_date  TEXT,
		acquisition_price NUMERIC NOT NULL DEFAULT 0,
		quantity          NUMERIC NOT NULL DEFAULT 0,
		disposal_date     TEXT,
		disposal_price    NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS real_estate_details (
		asset_id       TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		address        TEXT NOT NULL DEFAULT '',
		is_owned       BOOLEAN NOT NULL DEFAULT TRUE,
		has_tenant     BOOLEAN NOT NULL DEFAULT FALSE,
		loan_amount    NUMERIC NOT NULL DEFAULT 0,
		tenant_deposit NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS stock_details (
		asset_id              TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		account_name          TEXT NOT NULL DEFAULT '',
		currency              TEXT NOT NULL DEFAULT '',
		ticker                TEXT NOT NULL DEFAULT '',
		is_balance_adjustment BOOLEAN NOT NULL DEFAULT FALSE,
		is_pension_like       BOOLEAN NOT NULL DEFAULT FALSE,
		pension_start_year    INTEGER NOT NULL DEFAULT 0,
		pension_monthly       NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_adjustment_account
		ON stock_details (account_name) WHERE is_balance_adjustment`,
	`CREATE TABLE IF NOT EXISTS pension_details (
		asset_id                TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		pension_type            TEXT NOT NULL DEFAULT '',
		expected_start_year     INTEGER NOT NULL DEFAULT 0,
		expected_end_year       INTEGER NOT NULL DEFAULT 0,
		expected_monthly_payout NUMERIC NOT NULL DEFAULT 0,
		annual_growth_rate      NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS savings_details (
		asset_id           TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		is_pension_like    BOOLEAN NOT NULL DEFAULT FALSE,
		pension_start_year INTEGER NOT NULL DEFAULT 0,
		pension_monthly    NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS asset_history (
		asset_id TEXT NOT NULL,
		date     TEXT NOT NULL,
		value    NUMERIC,
		price    NUMERIC,
		quantity NUMERIC,
		PRIMARY KEY (asset_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id                TEXT PRIMARY KEY,
		type              TEXT NOT NULL,
		name              TEXT NOT NULL,
		current_value     TEXT NOT NULL DEFAULT '0',
		acquisition_date  TEXT,
		acquisition_price TEXT NOT NULL DEFAULT '0',
		quantity          TEXT NOT NULL DEFAULT '0',
		disposal_date     TEXT,
		disposal_price    TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS real_estate_details (
		asset_id       TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		address        TEXT NOT NULL DEFAULT '',
		is_owned       BOOLEAN NOT NULL DEFAULT 1,
		has_tenant     BOOLEAN NOT NULL DEFAULT 0,
		loan_amount    TEXT NOT NULL DEFAULT '0',
		tenant_deposit TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS stock_details (
		asset_id              TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		account_name          TEXT NOT NULL DEFAULT '',
		currency              TEXT NOT NULL DEFAULT '',
		ticker                TEXT NOT NULL DEFAULT '',
		is_balance_adjustment BOOLEAN NOT NULL DEFAULT 0,
		is_pension_like       BOOLEAN NOT NULL DEFAULT 0,
		pension_start_year    INTEGER NOT NULL DEFAULT 0,
		pension_monthly       TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_adjustment_account
		ON stock_details (account_name) WHERE is_balance_adjustment = 1`,
	`CREATE TABLE IF NOT EXISTS pension_details (
		asset_id                TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		pension_type            TEXT NOT NULL DEFAULT '',
		expected_start_year     INTEGER NOT NULL DEFAULT 0,
		expected_end_year       INTEGER NOT NULL DEFAULT 0,
		expected_monthly_payout TEXT NOT NULL DEFAULT '0',
		annual_growth_rate      TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS savings_details (
		asset_id           TEXT PRIMARY KEY REFERENCES assets(id) ON DELETE CASCADE,
		is_pension_like    BOOLEAN NOT NULL DEFAULT 0,
		pension_start_year INTEGER NOT NULL DEFAULT 0,
		pension_monthly    TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS asset_history (
		asset_id TEXT NOT NULL,
		date     TEXT NOT NULL,
		value    TEXT,
		price    TEXT,
		quantity TEXT,
		PRIMARY KEY (asset_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Migrate creates any missing tables and indexes. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if db.Dialect == SQLite {
		statements = sqliteSchema
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

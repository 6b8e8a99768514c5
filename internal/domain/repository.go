package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AssetRepository defines the interface for asset persistence operations.
// Assets are always returned together with their history.
type AssetRepository interface {
	// List retrieves every asset with its details and history
	List(ctx context.Context) ([]*Asset, error)

	// GetByID retrieves one asset; ErrNotFound when it does not exist
	GetByID(ctx context.Context, id string) (*Asset, error)

	// Create inserts an asset, its type details and any history it carries
	Create(ctx context.Context, asset *Asset) error

	// Update rewrites the asset row and its type details (history is untouched)
	Update(ctx context.Context, asset *Asset) error

	// UpdateValue updates only the denormalized current value and quantity
	UpdateValue(ctx context.Context, id string, currentValue, quantity decimal.Decimal) error

	// Delete removes an asset together with its details and history
	Delete(ctx context.Context, id string) error
}

// HistoryRepository defines the interface for history persistence operations
type HistoryRepository interface {
	// List returns the entries of one asset ordered by date
	List(ctx context.Context, assetID string) (History, error)

	// Upsert writes an entry, overwriting any entry already recorded on that date
	Upsert(ctx context.Context, assetID string, entry HistoryEntry) error

	// UpsertBatch writes several entries with the same overwrite semantics
	UpsertBatch(ctx context.Context, assetID string, entries History) error

	// DeleteAll removes the whole history of an asset
	DeleteAll(ctx context.Context, assetID string) error

	// DeleteFrom removes every entry dated on or after from
	DeleteFrom(ctx context.Context, assetID string, from time.Time) error

	// LastDate returns the date of the most recent entry; ok is false without history
	LastDate(ctx context.Context, assetID string) (date time.Time, ok bool, err error)

	// OrphanAssetIDs lists asset ids referenced by history rows but missing from the asset table
	OrphanAssetIDs(ctx context.Context) ([]string, error)
}

// SettingsRepository defines the interface for the key-value settings
type SettingsRepository interface {
	// Get returns every stored setting
	Get(ctx context.Context) (Settings, error)

	// Set upserts the given keys, leaving other keys untouched
	Set(ctx context.Context, settings Settings) error
}

// UnitOfWork groups the repositories that share one transaction
type UnitOfWork interface {
	Assets() AssetRepository
	History() HistoryRepository
	Settings() SettingsRepository
}

// Store is a UnitOfWork that can open a transaction.
// Everything fn does through uow is committed together or not at all.
type Store interface {
	UnitOfWork
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}

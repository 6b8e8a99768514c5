package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/simaogato/assetflow-backend/internal/domain"
)

// historyRepository implements domain.HistoryRepository
type historyRepository struct {
	s *Store
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(row rowScanner) (string, domain.HistoryEntry, error) {
	var (
		assetID string
		rawDate string
		e       domain.HistoryEntry
	)
	if err := row.Scan(&assetID, &rawDate, &e.Value, &e.Price, &e.Quantity); err != nil {
		return "", e, err
	}
	e.Date = domain.ParseDateOr(rawDate, domain.DefaultEpoch)
	return assetID, e, nil
}

// List returns the entries of one asset ordered by date
func (r *historyRepository) List(ctx context.Context, assetID string) (domain.History, error) {
	rows, err := r.s.query(ctx, `
		SELECT asset_id, date, value, price, quantity
		FROM asset_history
		WHERE asset_id = $1
		ORDER BY date`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	var history domain.History
	err = scanEach(rows, func() error {
		_, e, err := scanHistoryEntry(rows)
		if err != nil {
			return err
		}
		history = append(history, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return history.Sorted(), nil
}

// Upsert writes an entry, overwriting any entry recorded on the same date
func (r *historyRepository) Upsert(ctx context.Context, assetID string, e domain.HistoryEntry) error {
	if e.Date.IsZero() {
		return fmt.Errorf("history entry for %s has no date: %w", assetID, domain.ErrInvalidInput)
	}
	_, err := r.s.exec(ctx, `
		INSERT INTO asset_history (asset_id, date, value, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (asset_id, date)
		DO UPDATE SET value = excluded.value, price = excluded.price, quantity = excluded.quantity`,
		assetID,
		domain.FormatDate(e.Date),
		e.Value,
		e.Price,
		e.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}
	return nil
}

// UpsertBatch writes several entries in one transaction
func (r *historyRepository) UpsertBatch(ctx context.Context, assetID string, entries domain.History) error {
	return r.s.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		repo := uow.History()
		for _, e := range entries {
			if err := repo.Upsert(ctx, assetID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll removes the whole history of an asset
func (r *historyRepository) DeleteAll(ctx context.Context, assetID string) error {
	if _, err := r.s.exec(ctx, `DELETE FROM asset_history WHERE asset_id = $1`, assetID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// DeleteFrom removes every entry dated on or after from
func (r *historyRepository) DeleteFrom(ctx context.Context, assetID string, from time.Time) error {
	_, err := r.s.exec(ctx, `DELETE FROM asset_history WHERE asset_id = $1 AND date >= $2`,
		assetID, domain.FormatDate(from))
	if err != nil {
		return fmt.Errorf("failed to delete history from %s: %w", domain.FormatDate(from), err)
	}
	return nil
}

// LastDate returns the date of the most recent entry
func (r *historyRepository) LastDate(ctx context.Context, assetID string) (time.Time, bool, error) {
	var last sql.NullString
	err := r.s.queryRow(ctx, `SELECT MAX(date) FROM asset_history WHERE asset_id = $1`, assetID).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last history date: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return domain.ParseDateOr(last.String, domain.DefaultEpoch), true, nil
}

// OrphanAssetIDs lists asset ids referenced by history rows but missing from assets
func (r *historyRepository) OrphanAssetIDs(ctx context.Context) ([]string, error) {
	rows, err := r.s.query(ctx, `
		SELECT DISTINCT h.asset_id
		FROM asset_history h
		LEFT JOIN assets a ON a.id = h.asset_id
		WHERE a.id IS NULL
		ORDER BY h.asset_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned history: %w", err)
	}

	var ids []string
	err = scanEach(rows, func() error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orphaned history: %w", err)
	}
	return ids, nil
}

// settingsRepository implements domain.SettingsRepository
type settingsRepository struct {
	s *Store
}

// Get returns every stored setting
func (r *settingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	rows, err := r.s.query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	settings := make(domain.Settings)
	err = scanEach(rows, func() error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		settings[k] = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan settings: %w", err)
	}
	return settings, nil
}

// Set upserts the given keys
func (r *settingsRepository) Set(ctx context.Context, settings domain.Settings) error {
	return r.s.WithinTx(ctx, func(uow domain.UnitOfWork) error {
		s := uow.(*Store)
		for k, v := range settings {
			_, err := s.exec(ctx, `
				INSERT INTO settings (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = excluded.value`, k, v)
			if err != nil {
				return fmt.Errorf("failed to save setting %s: %w", k, err)
			}
		}
		return nil
	})
}

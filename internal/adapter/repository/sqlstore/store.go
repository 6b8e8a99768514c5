package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/simaogato/assetflow-backend/internal/domain"
)

// Store implements domain.Store on top of a DB. A Store returned inside
// WithinTx routes every query through the open transaction.
type Store struct {
	db *DB
	q  querier
	tx *sql.Tx
}

// NewStore creates a new Store
func NewStore(db *DB) *Store {
	return &Store{db: db, q: db.DB}
}

// Assets returns the asset repository bound to this store
func (s *Store) Assets() domain.AssetRepository {
	return &assetRepository{s: s}
}

// History returns the history repository bound to this store
func (s *Store) History() domain.HistoryRepository {
	return &historyRepository{s: s}
}

// Settings returns the settings repository bound to this store
func (s *Store) Settings() domain.SettingsRepository {
	return &settingsRepository{s: s}
}

// WithinTx runs fn in a database transaction, committing when fn returns nil.
// Nested calls join the transaction that is already open.
func (s *Store) WithinTx(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	if s.tx != nil {
		return fn(s)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&Store{db: s.db, q: dbTx, tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.db.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.db.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.db.rebind(query), args...)
}

// isUniqueViolation recognises unique constraint failures from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// nullDate maps the zero time to NULL
func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: domain.FormatDate(t), Valid: true}
}

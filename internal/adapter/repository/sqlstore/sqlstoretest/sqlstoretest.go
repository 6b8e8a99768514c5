// Package sqlstoretest provides migrated in-memory stores for use case tests
package sqlstoretest

import (
	"context"
	"testing"

	"github.com/simaogato/assetflow-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/stretchr/testify/require"
)

// New returns an empty, migrated SQLite store closed at the end of the test
func New(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.NewDB("sqlite3", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return sqlstore.NewStore(db)
}

// Seed creates the given assets
func Seed(t *testing.T, store domain.Store, assets ...*domain.Asset) {
	t.Helper()
	for _, a := range assets {
		require.NoError(t, store.Assets().Create(context.Background(), a))
	}
}

// Invalidations records cache invalidations
type Invalidations struct {
	IDs []string
}

// Invalidate records ids
func (i *Invalidations) Invalidate(ids ...string) {
	i.IDs = append(i.IDs, ids...)
}

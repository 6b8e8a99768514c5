//go:build integration

package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "assetflow",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=assetflow sslmode=disable",
		host, port.Port())
	db, err := NewDB("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))

	return NewStore(db)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newPostgresStore(t)

	require.NoError(t, store.Assets().Create(ctx, sampleStock("s1", "A")))
	require.NoError(t, store.History().Upsert(ctx, "s1", domain.NewValueEntry(day(2023, 6, 1), dec("42.5"))))

	got, err := store.Assets().GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(dec("1500.25")))
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].Value.Decimal.Equal(dec("42.5")))

	adj := &domain.Asset{
		ID:      "adj",
		Name:    "[Adjustment] A",
		Details: &domain.StockDetails{AccountName: "A", BalanceAdjustment: true},
	}
	require.NoError(t, store.Assets().Create(ctx, adj))
	adj.ID = "adj2"
	assert.ErrorIs(t, store.Assets().Create(ctx, adj), domain.ErrIntegrityViolation)
}

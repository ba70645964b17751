package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-NAV-Backend/internal/database"
)

// TestMigrate tests applying the embedded migrations to an empty database.
//
// WHY: The server migrates on every start, so a second run must be a no-op and
// the schema must enforce the cascade from portfolio to holding.
func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	version, err := database.Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	t.Run("second run is a no-op", func(t *testing.T) {
		again, err := database.Migrate(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, version, again)
	})

	t.Run("schema version", func(t *testing.T) {
		v, err := database.SchemaVersion(ctx, db)
		require.NoError(t, err)
		assert.Equal(t, version, v)
	})

	t.Run("holdings cascade with their portfolio", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO portfolio (id, user_id, name, currency, created_at)
			VALUES ('p1', 'u1', 'Main', 'MAD', '2024-01-01 00:00:00')`)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO holding (id, portfolio_id, ticker, entry_date, entry_price, quantity)
			VALUES ('h1', 'p1', 'IAM', '2024-01-02', 110, 5)`)
		require.NoError(t, err)

		_, err = db.ExecContext(ctx, `DELETE FROM portfolio WHERE id = 'p1'`)
		require.NoError(t, err)

		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holding`).Scan(&n))
		assert.Zero(t, n)
	})

	t.Run("holding rejects non-positive quantity", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO portfolio (id, user_id, name, currency, created_at)
			VALUES ('p2', 'u1', 'Other', 'MAD', '2024-01-01 00:00:00')`)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `INSERT INTO holding (id, portfolio_id, ticker, entry_date, entry_price, quantity)
			VALUES ('h2', 'p2', 'IAM', '2024-01-02', 110, 0)`)
		assert.Error(t, err)
	})
}

func TestHealthCheck(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)

	require.NoError(t, database.HealthCheck(context.Background(), db))

	require.NoError(t, db.Close())
	assert.Error(t, database.HealthCheck(context.Background(), db))
}

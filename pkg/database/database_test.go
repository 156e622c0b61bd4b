package database

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM feedback WHERE booth_id = ? AND id > ?"

	assert.Equal(t, q, Rebind(DialectSQLite, q))
	assert.Equal(t, "SELECT id FROM feedback WHERE booth_id = $1 AND id > $2", Rebind(DialectPostgres, q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	d, err = DialectFor("Postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("in-memory sqlite uses a single connection", func(t *testing.T) {
		db, err := New(ctx, WithDriver("sqlite3"), WithDataSource(":memory:"))
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, 1, db.Stats().MaxOpenConnections)

		_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, "INSERT INTO t VALUES (1)")
		require.NoError(t, err)
	})

	t.Run("empty driver", func(t *testing.T) {
		_, err := New(ctx, WithDriver(""))
		assert.Error(t, err)
	})

	t.Run("unknown driver fails after retries", func(t *testing.T) {
		_, err := New(ctx, WithDriver("nope"), WithRetry(2, time.Millisecond))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})
}

package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NgigiN/prosperledger/internal/app"
)

func subscribers(db *Database) (transactions, obligations int) {
	return db.transactions.Subscribers(), db.obligations.Subscribers()
}

func TestSessionReleasesStoreSubscriptions(t *testing.T) {
	db := newTestDatabase(t)
	a := app.New(db, zerolog.Nop())
	require.NoError(t, a.Start(context.Background()))

	tx, ob := subscribers(db)
	assert.Equal(t, 0, tx)
	assert.Equal(t, 0, ob)

	_, err := a.Login("admin", "password123")
	require.NoError(t, err)
	tx, ob = subscribers(db)
	assert.Equal(t, 1, tx, "logged in")
	assert.Equal(t, 1, ob, "logged in")

	_, err = a.Login("admin", "password123")
	require.NoError(t, err)
	tx, ob = subscribers(db)
	assert.Equal(t, 1, tx, "after replacing login")
	assert.Equal(t, 1, ob, "after replacing login")

	a.Logout()
	tx, ob = subscribers(db)
	assert.Equal(t, 0, tx, "after logout")
	assert.Equal(t, 0, ob, "after logout")

	_, err = a.Login("admin", "password123")
	require.NoError(t, err)
	a.Close()
	tx, ob = subscribers(db)
	assert.Equal(t, 0, tx, "after close")
	assert.Equal(t, 0, ob, "after close")
}

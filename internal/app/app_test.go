package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NgigiN/prosperledger/internal/ledger"
	"github.com/NgigiN/prosperledger/internal/storage"
)

var testNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.Database {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestApp(t *testing.T, store Store) *App {
	t.Helper()
	a := New(store, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(a.Close)
	return a
}

// waitFor reads snapshots until one satisfies ok.
func waitFor(t *testing.T, ch <-chan Snapshot, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, open := <-ch:
			require.True(t, open, "feed closed")
			if ok(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestStartCreatesDefaultConfig(t *testing.T) {
	store := newTestStore(t)
	a := newTestApp(t, store)

	assert.Equal(t, ledger.DefaultConfig(), a.Config())
	_, found, err := store.GetConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	a := newTestApp(t, newTestStore(t))

	_, err := a.Login("admin", "Password123")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = a.Login("Admin", "password123")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = a.Watch()
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionLifecycle(t *testing.T) {
	a := newTestApp(t, newTestStore(t))

	session, err := a.Login("admin", "password123")
	require.NoError(t, err)
	assert.True(t, a.Authorized(session))
	assert.False(t, a.Authorized(""))
	assert.False(t, a.Authorized("other"))

	assert.Equal(t, 0, a.Streams())
	ch, cancel, err := a.Watch()
	require.NoError(t, err)
	defer cancel()
	assert.Equal(t, 1, a.Streams())
	waitFor(t, ch, func(s Snapshot) bool { return !s.Loading })

	a.Logout()
	assert.False(t, a.Authorized(session))
	assert.Equal(t, 0, a.Streams())
	for range ch {
	}

	next, err := a.Login("admin", "password123")
	require.NoError(t, err)
	assert.NotEqual(t, session, next)
	assert.False(t, a.Authorized(session))
}

func TestNewLoginReplacesSession(t *testing.T) {
	a := newTestApp(t, newTestStore(t))

	first, err := a.Login("admin", "password123")
	require.NoError(t, err)
	ch, cancel, err := a.Watch()
	require.NoError(t, err)
	defer cancel()

	second, err := a.Login("admin", "password123")
	require.NoError(t, err)

	for range ch {
	}
	assert.False(t, a.Authorized(first))
	assert.True(t, a.Authorized(second))
}

func TestAddTransactionFlowsThroughSubscription(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx := context.Background()
	_, err := a.Login("admin", "password123")
	require.NoError(t, err)
	ch, cancel, err := a.Watch()
	require.NoError(t, err)
	defer cancel()

	_, err = a.SaveSettings(ctx, SettingsRequest{SettingsUpdate: ledger.SettingsUpdate{
		Username: "admin",
		SeedCash: amountPtr(10000),
	}})
	require.NoError(t, err)

	_, err = a.AddTransaction(ctx, ledger.Transaction{Type: ledger.Income, Category: "Hosting", Amount: 5000, Method: ledger.Cash})
	require.NoError(t, err)
	_, err = a.AddTransaction(ctx, ledger.Transaction{Type: ledger.Expense, Category: "Transport", Amount: 2000, Method: ledger.Cash})
	require.NoError(t, err)

	snap := waitFor(t, ch, func(s Snapshot) bool { return len(s.Transactions) == 2 })
	assert.Equal(t, "2026-10-14", snap.Transactions[0].Date)

	ov := a.Overview(ledger.Monthly)
	assert.Equal(t, ledger.Amount(13000), ov.Totals.Cash)
	assert.Equal(t, ledger.Amount(13000), ov.Totals.Balance)
	assert.InDelta(t, 1300, float64(ov.Totals.Tithe), 1e-9)
	assert.False(t, ov.Loading)
}

func TestAddTransactionValidates(t *testing.T) {
	a := newTestApp(t, newTestStore(t))
	ctx := context.Background()

	cases := map[string]ledger.Transaction{
		"bad type":     {Type: "gift", Category: "x", Amount: 1, Method: ledger.Cash},
		"bad method":   {Type: ledger.Income, Category: "x", Amount: 1, Method: "Card"},
		"no category":  {Type: ledger.Income, Category: "  ", Amount: 1, Method: ledger.Cash},
		"negative":     {Type: ledger.Income, Category: "x", Amount: -1, Method: ledger.Cash},
		"not a number": {Type: ledger.Income, Category: "x", Amount: ledger.CoerceAmount("x"), Method: ledger.Cash},
	}
	for name, tx := range cases {
		_, err := a.AddTransaction(ctx, tx)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}
}

func TestObligationToggleAndDelete(t *testing.T) {
	store := newTestStore(t)
	a := newTestApp(t, store)
	ctx := context.Background()
	_, err := a.Login("admin", "password123")
	require.NoError(t, err)
	ch, cancel, err := a.Watch()
	require.NoError(t, err)
	defer cancel()

	id, err := a.AddObligation(ctx, ledger.Obligation{Type: ledger.Debtor, Name: "Nakato", Amount: 50000})
	require.NoError(t, err)
	_, err = a.AddObligation(ctx, ledger.Obligation{Type: ledger.Debtor, Name: "Okello", Amount: 20000})
	require.NoError(t, err)
	waitFor(t, ch, func(s Snapshot) bool { return len(s.Obligations) == 2 })
	assert.Equal(t, ledger.Amount(70000), a.Overview(ledger.All).Debts.TotalOwedToMe)

	toggled, err := a.ToggleObligation(ctx, id)
	require.NoError(t, err)
	assert.True(t, toggled.IsPaid)
	require.NotNil(t, toggled.PaidAt)
	waitFor(t, ch, func(s Snapshot) bool {
		return ledger.SummarizeDebts(s.Obligations).TotalOwedToMe == 20000
	})

	stored, err := store.Obligation(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.True(t, testNow.Equal(*stored.PaidAt))

	toggled, err = a.ToggleObligation(ctx, id)
	require.NoError(t, err)
	assert.False(t, toggled.IsPaid)
	assert.Nil(t, toggled.PaidAt)

	require.NoError(t, a.DeleteObligation(ctx, id))
	waitFor(t, ch, func(s Snapshot) bool { return len(s.Obligations) == 1 })

	_, err = a.ToggleObligation(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = a.AddObligation(ctx, ledger.Obligation{Type: ledger.Creditor, Name: " ", Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = a.AddObligation(ctx, ledger.Obligation{Type: "friend", Name: "x", Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveSettingsKeepsPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetConfig(ctx, ledger.AdminConfig{Username: "admin", Password: "secret"}))
	a := newTestApp(t, store)

	cfg, err := a.SaveSettings(ctx, SettingsRequest{SettingsUpdate: ledger.SettingsUpdate{Username: "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)

	_, err = a.Login("bob", "secret")
	assert.NoError(t, err)
	_, err = a.Login("admin", "secret")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSaveSettingsRejectsMismatchedPasswords(t *testing.T) {
	a := newTestApp(t, newTestStore(t))

	_, err := a.SaveSettings(context.Background(), SettingsRequest{
		SettingsUpdate:  ledger.SettingsUpdate{Username: "admin", Password: "one"},
		ConfirmPassword: "two",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = a.SaveSettings(context.Background(), SettingsRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, ledger.DefaultConfig(), a.Config())
}

type failingConfigStore struct {
	*storage.Database
}

func (failingConfigStore) SetConfig(context.Context, ledger.AdminConfig) error {
	return errors.New("disk full")
}

func TestSaveSettingsFailureLeavesConfig(t *testing.T) {
	a := newTestApp(t, failingConfigStore{newTestStore(t)})
	before := a.Config()

	_, err := a.SaveSettings(context.Background(), SettingsRequest{
		SettingsUpdate: ledger.SettingsUpdate{Username: "bob", SeedCash: amountPtr(5)},
	})

	require.Error(t, err)
	assert.Equal(t, before, a.Config())
}

func amountPtr(v ledger.Amount) *ledger.Amount {
	return &v
}

// Package app holds the root controller: the one owner of session state,
// the live config and the most recent snapshots of both collections.
// Transports read derived views from it and route write actions through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NgigiN/prosperledger/internal/feed"
	"github.com/NgigiN/prosperledger/internal/ledger"
)

var (
	// ErrUnauthorized covers both an unknown user and a wrong password.
	ErrUnauthorized     = errors.New("invalid credentials")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidInput     = errors.New("invalid input")
)

// Store is the document store contract the controller depends on.
type Store interface {
	SubscribeTransactions() (<-chan []ledger.Transaction, func())
	SubscribeObligations() (<-chan []ledger.Obligation, func())

	AppendTransaction(ctx context.Context, tx ledger.Transaction) (string, error)
	DeleteTransaction(ctx context.Context, id string) error

	AppendObligation(ctx context.Context, o ledger.Obligation) (string, error)
	Obligation(ctx context.Context, id string) (ledger.Obligation, error)
	SetObligationPaid(ctx context.Context, id string, paid bool, at time.Time) error
	DeleteObligation(ctx context.Context, id string) error

	LoadConfig(ctx context.Context) (ledger.AdminConfig, error)
	SetConfig(ctx context.Context, cfg ledger.AdminConfig) error
}

// Snapshot is the controller state at one point in time.
type Snapshot struct {
	Transactions []ledger.Transaction
	Obligations  []ledger.Obligation
	Config       ledger.AdminConfig
	Loading      bool
}

// App is the root controller. At most one session is authenticated at a
// time; the store subscriptions live exactly as long as that session.
type App struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.RWMutex
	cfg      ledger.AdminConfig
	session  string
	txs      []ledger.Transaction
	obs      []ledger.Obligation
	txLoaded bool
	obLoaded bool
	updates  *feed.Feed[Snapshot]
	stop     func()
}

type Option func(*App)

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(store Store, log zerolog.Logger, opts ...Option) *App {
	a := &App{
		store: store,
		log:   log.With().Str("component", "app").Logger(),
		now:   time.Now,
		cfg:   ledger.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start loads the admin config, creating the default document when the
// store has none. On failure the default stays in memory and the error is
// returned for logging.
func (a *App) Start(ctx context.Context) error {
	cfg, err := a.store.LoadConfig(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("Error fetching config")
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	return nil
}

// Now is the controller's clock.
func (a *App) Now() time.Time {
	return a.now()
}

// Login checks the credentials against the stored config and opens a new
// session, replacing any previous one. It returns the session id.
func (a *App) Login(username, password string) (string, error) {
	a.mu.Lock()
	if !ledger.Authenticate(username, password, a.cfg) {
		a.mu.Unlock()
		a.log.Warn().Str("username", username).Msg("Rejected login")
		return "", ErrUnauthorized
	}
	stop := a.endSessionLocked()
	a.session = uuid.NewString()
	a.startSessionLocked()
	session := a.session
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.log.Info().Msg("Session started")
	return session, nil
}

// Logout ends the session and tears down its subscriptions. It is safe to
// call without a session.
func (a *App) Logout() {
	a.mu.Lock()
	stop := a.endSessionLocked()
	a.mu.Unlock()

	if stop != nil {
		stop()
		a.log.Info().Msg("Session ended")
	}
}

// Close releases everything Logout does.
func (a *App) Close() {
	a.Logout()
}

// Authorized reports whether session is the current session.
func (a *App) Authorized(session string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return session != "" && session == a.session
}

func (a *App) startSessionLocked() {
	updates := feed.New[Snapshot]()
	txCh, cancelTx := a.store.SubscribeTransactions()
	obCh, cancelOb := a.store.SubscribeObligations()

	var wg sync.WaitGroup
	a.updates = updates
	a.txLoaded, a.obLoaded = false, false
	a.stop = func() {
		cancelTx()
		cancelOb()
		wg.Wait()
	}

	wg.Add(2)
	go a.consumeTransactions(&wg, txCh, updates)
	go a.consumeObligations(&wg, obCh, updates)
}

// endSessionLocked clears the session and returns its teardown func, which
// must be called after the lock is released.
func (a *App) endSessionLocked() func() {
	stop := a.stop
	if a.updates != nil {
		a.updates.Close()
	}
	a.session = ""
	a.updates = nil
	a.stop = nil
	a.txs, a.obs = nil, nil
	a.txLoaded, a.obLoaded = false, false
	return stop
}

// Snapshots are published under the lock so subscribers never see an
// older state after a newer one.
func (a *App) consumeTransactions(wg *sync.WaitGroup, ch <-chan []ledger.Transaction, updates *feed.Feed[Snapshot]) {
	defer wg.Done()
	for txs := range ch {
		a.mu.Lock()
		if a.updates == updates {
			a.txs, a.txLoaded = txs, true
			updates.Publish(a.snapshotLocked())
		}
		a.mu.Unlock()
	}
}

func (a *App) consumeObligations(wg *sync.WaitGroup, ch <-chan []ledger.Obligation, updates *feed.Feed[Snapshot]) {
	defer wg.Done()
	for obs := range ch {
		a.mu.Lock()
		if a.updates == updates {
			a.obs, a.obLoaded = obs, true
			updates.Publish(a.snapshotLocked())
		}
		a.mu.Unlock()
	}
}

func (a *App) snapshotLocked() Snapshot {
	return Snapshot{
		Transactions: a.txs,
		Obligations:  a.obs,
		Config:       a.cfg,
		Loading:      !(a.txLoaded && a.obLoaded),
	}
}

// Snapshot returns the current state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

// Config returns the live admin config.
func (a *App) Config() ledger.AdminConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Watch subscribes to state changes of the current session. The channel is
// closed when the session ends.
func (a *App) Watch() (<-chan Snapshot, func(), error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == "" || a.updates == nil {
		return nil, nil, ErrUnauthorized
	}
	ch, cancel := a.updates.Subscribe()
	return ch, cancel, nil
}

// Streams reports how many watchers follow the current session.
func (a *App) Streams() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.updates == nil {
		return 0
	}
	return a.updates.Subscribers()
}

// Overview derives the dashboard for window f from the current state.
func (a *App) Overview(f ledger.Filter) ledger.Overview {
	return OverviewOf(a.Snapshot(), f, a.now())
}

// OverviewOf derives the dashboard for window f from snap.
func OverviewOf(snap Snapshot, f ledger.Filter, now time.Time) ledger.Overview {
	ov := ledger.Summarize(snap.Transactions, snap.Obligations, snap.Config, f, now)
	ov.Loading = snap.Loading
	return ov
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NgigiN/prosperledger/internal/feed"
	"github.com/NgigiN/prosperledger/internal/ledger"
)

// ErrNotFound is returned when an update targets a missing document.
var ErrNotFound = errors.New("document not found")

// Database is the document store behind the tracker. Every successful write
// re-reads the affected collection and publishes the full ordered list to
// that collection's subscribers.
type Database struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time

	// Each mutex spans a collection's re-read and publish, so the feed
	// always ends on the latest read.
	txRefresh    sync.Mutex
	obRefresh    sync.Mutex
	transactions *feed.Feed[[]ledger.Transaction]
	obligations  *feed.Feed[[]ledger.Obligation]
}

type Option func(*Database)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

func NewDatabase(dbPath string, log zerolog.Logger, opts ...Option) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite allows one writer; a single connection queues writers instead
	// of failing them with "database is locked".
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&TransactionDoc{}, &ObligationDoc{}, &ConfigDoc{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	d := &Database{
		db:           db,
		log:          log.With().Str("component", "storage").Logger(),
		now:          time.Now,
		transactions: feed.New[[]ledger.Transaction](),
		obligations:  feed.New[[]ledger.Obligation](),
	}
	for _, opt := range opts {
		opt(d)
	}

	ctx := context.Background()
	txs, err := d.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	d.transactions.Publish(txs)
	obs, err := d.Obligations(ctx)
	if err != nil {
		return nil, err
	}
	d.obligations.Publish(obs)

	return d, nil
}

// Close ends all subscriptions and closes the connection.
func (d *Database) Close() error {
	d.transactions.Close()
	d.obligations.Close()
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	return sqlDB.Close()
}

// SubscribeTransactions delivers the full transaction list, newest first,
// now and after every change.
func (d *Database) SubscribeTransactions() (<-chan []ledger.Transaction, func()) {
	return d.transactions.Subscribe()
}

// SubscribeObligations delivers the full obligation list, newest first,
// now and after every change.
func (d *Database) SubscribeObligations() (<-chan []ledger.Obligation, func()) {
	return d.obligations.Subscribe()
}

func (d *Database) Transactions(ctx context.Context) ([]ledger.Transaction, error) {
	var docs []TransactionDoc
	if err := d.db.WithContext(ctx).Order("created_at desc").Order("rowid desc").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]ledger.Transaction, 0, len(docs))
	for _, doc := range docs {
		txs = append(txs, doc.toLedger())
	}
	return txs, nil
}

// AppendTransaction stores tx under a new id and creation timestamp.
func (d *Database) AppendTransaction(ctx context.Context, tx ledger.Transaction) (string, error) {
	doc := newTransactionDoc(tx)
	doc.ID = uuid.NewString()
	doc.CreatedAt = d.now().UTC()

	if err := d.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", fmt.Errorf("failed to save transaction: %w", err)
	}
	d.refreshTransactions(ctx)
	return doc.ID, nil
}

// DeleteTransaction removes a transaction. Deleting a missing id is not an
// error.
func (d *Database) DeleteTransaction(ctx context.Context, id string) error {
	if err := d.db.WithContext(ctx).Delete(&TransactionDoc{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	d.refreshTransactions(ctx)
	return nil
}

func (d *Database) Obligations(ctx context.Context) ([]ledger.Obligation, error) {
	var docs []ObligationDoc
	if err := d.db.WithContext(ctx).Order("created_at desc").Order("rowid desc").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	obs := make([]ledger.Obligation, 0, len(docs))
	for _, doc := range docs {
		obs = append(obs, doc.toLedger())
	}
	return obs, nil
}

func (d *Database) Obligation(ctx context.Context, id string) (ledger.Obligation, error) {
	var doc ObligationDoc
	err := d.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.Obligation{}, fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ledger.Obligation{}, fmt.Errorf("failed to load debt %s: %w", id, err)
	}
	return doc.toLedger(), nil
}

// AppendObligation stores o unpaid, under a new id and creation timestamp.
func (d *Database) AppendObligation(ctx context.Context, o ledger.Obligation) (string, error) {
	doc := newObligationDoc(o)
	doc.ID = uuid.NewString()
	doc.CreatedAt = d.now().UTC()
	doc.IsPaid = false
	doc.PaidAt = nil

	if err := d.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", fmt.Errorf("failed to save debt record: %w", err)
	}
	d.refreshObligations(ctx)
	return doc.ID, nil
}

// UpdateObligation applies a partial update keyed by column name.
func (d *Database) UpdateObligation(ctx context.Context, id string, fields map[string]any) error {
	res := d.db.WithContext(ctx).Model(&ObligationDoc{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update debt %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	d.refreshObligations(ctx)
	return nil
}

// SetObligationPaid marks a record paid at the given instant, or unpaid
// with no paid timestamp.
func (d *Database) SetObligationPaid(ctx context.Context, id string, paid bool, at time.Time) error {
	var paidAt any
	if paid {
		paidAt = at.UTC()
	}
	return d.UpdateObligation(ctx, id, map[string]any{
		"is_paid": paid,
		"paid_at": paidAt,
	})
}

func (d *Database) DeleteObligation(ctx context.Context, id string) error {
	if err := d.db.WithContext(ctx).Delete(&ObligationDoc{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete debt %s: %w", id, err)
	}
	d.refreshObligations(ctx)
	return nil
}

// GetConfig loads the admin config document. found is false when it does
// not exist yet.
func (d *Database) GetConfig(ctx context.Context) (cfg ledger.AdminConfig, found bool, err error) {
	var doc ConfigDoc
	err = d.db.WithContext(ctx).First(&doc, "doc_key = ?", AdminConfigKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.AdminConfig{}, false, nil
	}
	if err != nil {
		return ledger.AdminConfig{}, false, fmt.Errorf("failed to load config: %w", err)
	}
	return doc.toLedger(), true, nil
}

// SetConfig replaces the admin config document.
func (d *Database) SetConfig(ctx context.Context, cfg ledger.AdminConfig) error {
	doc := newConfigDoc(cfg)
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		UpdateAll: true,
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LoadConfig returns the admin config, writing the default first when none
// exists.
func (d *Database) LoadConfig(ctx context.Context) (ledger.AdminConfig, error) {
	cfg, found, err := d.GetConfig(ctx)
	if err != nil {
		return ledger.AdminConfig{}, err
	}
	if found {
		return cfg, nil
	}
	cfg = ledger.DefaultConfig()
	if err := d.SetConfig(ctx, cfg); err != nil {
		return ledger.AdminConfig{}, err
	}
	d.log.Info().Msg("Created default admin config")
	return cfg, nil
}

// A failed re-read keeps the previous snapshot in place.
func (d *Database) refreshTransactions(ctx context.Context) {
	d.txRefresh.Lock()
	defer d.txRefresh.Unlock()

	txs, err := d.Transactions(context.WithoutCancel(ctx))
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to refresh transactions feed")
		return
	}
	d.transactions.Publish(txs)
}

func (d *Database) refreshObligations(ctx context.Context) {
	d.obRefresh.Lock()
	defer d.obRefresh.Unlock()

	obs, err := d.Obligations(context.WithoutCancel(ctx))
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to refresh debts feed")
		return
	}
	d.obligations.Publish(obs)
}

// gormWriter routes gorm's log lines into zerolog.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msgf(format, args...)
}

// A missing document is an expected lookup result, not worth a log line.
func newGormLogger(log zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

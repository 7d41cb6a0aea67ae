package storage

import (
	"database/sql"
	"math"
	"time"

	"github.com/NgigiN/prosperledger/internal/ledger"
)

// Collection names. Each is one table.
const (
	TransactionsCollection = "transactions"
	DebtsCollection        = "debts"
	ConfigCollection       = "config"

	// AdminConfigKey is the key of the singleton config document.
	AdminConfigKey = "admin"
)

// TransactionDoc is a stored transaction. A NULL amount reads back as NaN.
type TransactionDoc struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index"`
	Category  string
	Amount    sql.NullFloat64
	Method    string
	Date      string `gorm:"index"`
	Note      string
	CreatedAt time.Time `gorm:"index"`
}

func (TransactionDoc) TableName() string { return TransactionsCollection }

func newTransactionDoc(tx ledger.Transaction) TransactionDoc {
	return TransactionDoc{
		ID:        tx.ID,
		Type:      string(tx.Type),
		Category:  tx.Category,
		Amount:    toNullFloat(tx.Amount),
		Method:    string(tx.Method),
		Date:      tx.Date,
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt,
	}
}

func (d TransactionDoc) toLedger() ledger.Transaction {
	return ledger.Transaction{
		ID:        d.ID,
		Type:      ledger.TxType(d.Type),
		Category:  d.Category,
		Amount:    fromNullFloat(d.Amount),
		Method:    ledger.Method(d.Method),
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
		Note:      d.Note,
	}
}

// ObligationDoc is a stored debtor or creditor record.
type ObligationDoc struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index"`
	Name      string
	Amount    sql.NullFloat64
	Note      string
	DueDate   string
	IsPaid    bool
	PaidAt    *time.Time
	CreatedAt time.Time `gorm:"index"`
}

func (ObligationDoc) TableName() string { return DebtsCollection }

func newObligationDoc(o ledger.Obligation) ObligationDoc {
	return ObligationDoc{
		ID:        o.ID,
		Type:      string(o.Type),
		Name:      o.Name,
		Amount:    toNullFloat(o.Amount),
		Note:      o.Note,
		DueDate:   o.DueDate,
		IsPaid:    o.IsPaid,
		PaidAt:    o.PaidAt,
		CreatedAt: o.CreatedAt,
	}
}

func (d ObligationDoc) toLedger() ledger.Obligation {
	return ledger.Obligation{
		ID:        d.ID,
		Type:      ledger.ObligationType(d.Type),
		Name:      d.Name,
		Amount:    fromNullFloat(d.Amount),
		Note:      d.Note,
		DueDate:   d.DueDate,
		IsPaid:    d.IsPaid,
		PaidAt:    d.PaidAt,
		CreatedAt: d.CreatedAt,
	}
}

// ConfigDoc is a keyed singleton document.
type ConfigDoc struct {
	DocKey     string `gorm:"column:doc_key;primaryKey"`
	Username   string
	Password   string
	SeedCash   float64
	SeedBank   float64
	SeedMobile float64
	UpdatedAt  time.Time
}

func (ConfigDoc) TableName() string { return ConfigCollection }

func newConfigDoc(cfg ledger.AdminConfig) ConfigDoc {
	return ConfigDoc{
		DocKey:     AdminConfigKey,
		Username:   cfg.Username,
		Password:   cfg.Password,
		SeedCash:   finiteOrZero(cfg.SeedCash),
		SeedBank:   finiteOrZero(cfg.SeedBank),
		SeedMobile: finiteOrZero(cfg.SeedMobile),
	}
}

func (d ConfigDoc) toLedger() ledger.AdminConfig {
	return ledger.AdminConfig{
		Username:   d.Username,
		Password:   d.Password,
		SeedCash:   ledger.Amount(d.SeedCash),
		SeedBank:   ledger.Amount(d.SeedBank),
		SeedMobile: ledger.Amount(d.SeedMobile),
	}
}

func toNullFloat(a ledger.Amount) sql.NullFloat64 {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNullFloat(n sql.NullFloat64) ledger.Amount {
	if !n.Valid {
		return ledger.Amount(math.NaN())
	}
	return ledger.Amount(n.Float64)
}

func finiteOrZero(a ledger.Amount) float64 {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

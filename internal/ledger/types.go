// Package ledger holds the domain model of the tracker and the pure
// computations over it: balance aggregation, time-window filtering, debt
// summaries and the credential gate. Nothing in this package performs I/O.
package ledger

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// TxType is the direction of a transaction.
type TxType string

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Valid reports whether t is one of the known directions.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Method is the payment method a transaction went through.
type Method string

const (
	Cash        Method = "Cash"
	Bank        Method = "Bank"
	MobileMoney Method = "Mobile Money"
)

// Methods lists the payment methods that have their own balance.
var Methods = []Method{Cash, Bank, MobileMoney}

// Valid reports whether m is one of the three known methods.
func (m Method) Valid() bool {
	return m == Cash || m == Bank || m == MobileMoney
}

// ParseMethod accepts the canonical names plus the short forms used in chat
// commands ("cash", "bank", "mobile", "momo").
func ParseMethod(s string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash":
		return Cash, true
	case "bank":
		return Bank, true
	case "mobile", "mobile money", "mobilemoney", "momo", "mpesa", "m-pesa":
		return MobileMoney, true
	}
	return "", false
}

// Amount is a money amount in whole currency units. It decodes from JSON
// the way a loosely typed form value would be coerced: numbers pass
// through, numeric strings parse, null is zero and anything else is NaN.
// NaN encodes as null.
type Amount float64

// CoerceAmount converts a raw form value to an Amount. Non-numeric input
// yields NaN rather than an error.
func CoerceAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount(math.NaN())
	}
	return Amount(v)
}

// IsNaN reports whether the amount is not a number.
func (a Amount) IsNaN() bool {
	return math.IsNaN(float64(a))
}

func (a Amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*a = 0
	case bytes.Equal(data, []byte("true")):
		*a = 1
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount(math.NaN())
			return nil
		}
		*a = CoerceAmount(s)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*a = Amount(math.NaN())
			return nil
		}
		*a = Amount(v)
	}
	return nil
}

// Transaction is a single income or expense entry. Amount is never
// negative; the direction is carried by Type.
type Transaction struct {
	ID        string    `json:"id"`
	Type      TxType    `json:"type"`
	Category  string    `json:"category"`
	Amount    Amount    `json:"amount"`
	Method    Method    `json:"method"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	Note      string    `json:"note,omitempty"`
}

// ObligationType says who owes whom.
type ObligationType string

const (
	// Debtor records money owed to the user.
	Debtor ObligationType = "debtor"
	// Creditor records money the user owes.
	Creditor ObligationType = "creditor"
)

// Valid reports whether t is debtor or creditor.
func (t ObligationType) Valid() bool {
	return t == Debtor || t == Creditor
}

// Obligation is a debt tracked independently of transactions. PaidAt is
// set exactly when IsPaid is true.
type Obligation struct {
	ID        string         `json:"id"`
	Type      ObligationType `json:"type"`
	Name      string         `json:"name"`
	Amount    Amount         `json:"amount"`
	Note      string         `json:"note,omitempty"`
	DueDate   string         `json:"dueDate,omitempty"`
	IsPaid    bool           `json:"isPaid"`
	PaidAt    *time.Time     `json:"paidAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Toggled returns the record with IsPaid flipped. Marking paid stamps
// PaidAt with at; reverting clears it.
func (o Obligation) Toggled(at time.Time) Obligation {
	o.IsPaid = !o.IsPaid
	if o.IsPaid {
		paidAt := at
		o.PaidAt = &paidAt
	} else {
		o.PaidAt = nil
	}
	return o
}

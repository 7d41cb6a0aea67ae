package ledger

import "math"

// TitheRate is the share of the non-negative balance suggested as tithe.
const TitheRate = 0.10

// Seeds are manually configured starting offsets per payment method.
type Seeds struct {
	Cash   Amount `json:"cash"`
	Bank   Amount `json:"bank"`
	Mobile Amount `json:"mobile"`
}

// MethodTotals holds the income and expense sums of one payment method.
type MethodTotals struct {
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
}

// Totals is the result of folding a transaction list.
type Totals struct {
	Income   Amount `json:"income"`
	Expenses Amount `json:"expenses"`

	ByMethod map[Method]MethodTotals `json:"byMethod"`

	Cash   Amount `json:"cash"`
	Bank   Amount `json:"bank"`
	Mobile Amount `json:"mobile"`

	Balance Amount `json:"balance"`
	Tithe   Amount `json:"tithe"`
}

// Aggregate folds txs into totals. Anything that is not income counts as
// an expense. A transaction whose method is not one of Methods still counts
// toward Income and Expenses but toward no per-method balance. Seeds enter
// once, through the per-method balances.
//
// The fold only sums, so the order of txs does not matter.
func Aggregate(txs []Transaction, seeds Seeds) Totals {
	buckets := make(map[Method]*MethodTotals, len(Methods))
	for _, m := range Methods {
		buckets[m] = &MethodTotals{}
	}

	var t Totals
	for _, tx := range txs {
		bucket := buckets[tx.Method]
		if tx.Type == Income {
			t.Income += tx.Amount
			if bucket != nil {
				bucket.Income += tx.Amount
			}
			continue
		}
		t.Expenses += tx.Amount
		if bucket != nil {
			bucket.Expense += tx.Amount
		}
	}

	t.ByMethod = make(map[Method]MethodTotals, len(buckets))
	for m, b := range buckets {
		t.ByMethod[m] = *b
	}

	t.Cash = seeds.Cash + buckets[Cash].Income - buckets[Cash].Expense
	t.Bank = seeds.Bank + buckets[Bank].Income - buckets[Bank].Expense
	t.Mobile = seeds.Mobile + buckets[MobileMoney].Income - buckets[MobileMoney].Expense

	t.Balance = t.Cash + t.Bank + t.Mobile
	t.Tithe = Tithe(t.Balance)
	return t
}

// Tithe returns TitheRate of balance, or zero for a negative balance.
// NaN propagates.
func Tithe(balance Amount) Amount {
	return Amount(math.Max(0, float64(balance)) * TitheRate)
}

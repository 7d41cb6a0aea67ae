package ledger

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSeededCashScenario(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: 5000, Method: Cash},
		{Type: Expense, Amount: 2000, Method: Cash},
	}

	got := Aggregate(txs, Seeds{Cash: 10000})

	assert.Equal(t, Amount(13000), got.Cash)
	assert.Equal(t, Amount(0), got.Bank)
	assert.Equal(t, Amount(0), got.Mobile)
	assert.Equal(t, Amount(13000), got.Balance)
	assert.InDelta(t, 1300, float64(got.Tithe), 1e-9)
	assert.Equal(t, Amount(5000), got.Income)
	assert.Equal(t, Amount(2000), got.Expenses)
}

func TestAggregateBalanceIsSumOfMethods(t *testing.T) {
	cases := []struct {
		name  string
		txs   []Transaction
		seeds Seeds
	}{
		{name: "empty", seeds: Seeds{}},
		{name: "seeds only", seeds: Seeds{Cash: 100, Bank: -250, Mobile: 40}},
		{
			name: "mixed methods",
			txs: []Transaction{
				{Type: Income, Amount: 100000, Method: Bank},
				{Type: Expense, Amount: 5000, Method: MobileMoney},
				{Type: Expense, Amount: 10000, Method: Cash},
				{Type: Income, Amount: 700, Method: MobileMoney},
			},
			seeds: Seeds{Cash: 20000, Bank: 0, Mobile: 1500},
		},
		{
			name: "deficit",
			txs: []Transaction{
				{Type: Expense, Amount: 90000, Method: Bank},
			},
			seeds: Seeds{Bank: 10000},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(tc.txs, tc.seeds)
			assert.Equal(t, got.Cash+got.Bank+got.Mobile, got.Balance)
			assert.GreaterOrEqual(t, float64(got.Tithe), 0.0)
			assert.InDelta(t, math.Max(0, float64(got.Balance))*TitheRate, float64(got.Tithe), 1e-9)
		})
	}
}

func TestAggregateNegativeBalanceHasNoTithe(t *testing.T) {
	got := Aggregate([]Transaction{{Type: Expense, Amount: 500, Method: Cash}}, Seeds{})

	assert.Equal(t, Amount(-500), got.Balance)
	assert.Equal(t, Amount(0), got.Tithe)
}

func TestAggregateUnknownMethodOnlyCountsInTotals(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: 300, Method: "Crypto"},
		{Type: Expense, Amount: 100, Method: ""},
		{Type: Income, Amount: 50, Method: Bank},
	}

	got := Aggregate(txs, Seeds{})

	assert.Equal(t, Amount(350), got.Income)
	assert.Equal(t, Amount(100), got.Expenses)
	assert.Equal(t, Amount(50), got.Balance)
	assert.Len(t, got.ByMethod, 3)
	assert.Equal(t, MethodTotals{Income: 50}, got.ByMethod[Bank])
}

func TestAggregateNonIncomeTypeCountsAsExpense(t *testing.T) {
	got := Aggregate([]Transaction{{Type: "transfer", Amount: 40, Method: Cash}}, Seeds{})

	assert.Equal(t, Amount(40), got.Expenses)
	assert.Equal(t, Amount(-40), got.Cash)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: 1, Method: Cash},
		{Type: Expense, Amount: 2, Method: Bank},
		{Type: Income, Amount: 4, Method: MobileMoney},
		{Type: Expense, Amount: 8, Method: Cash},
	}
	reversed := make([]Transaction, len(txs))
	for i, tx := range txs {
		reversed[len(txs)-1-i] = tx
	}
	seeds := Seeds{Cash: 3, Bank: 5, Mobile: 7}

	assert.Equal(t, Aggregate(txs, seeds), Aggregate(reversed, seeds))
	assert.Equal(t, Aggregate(txs, seeds), Aggregate(txs, seeds))
}

func TestAggregateNaNPropagates(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: CoerceAmount("abc"), Method: Cash},
		{Type: Income, Amount: 10, Method: Bank},
	}

	got := Aggregate(txs, Seeds{})

	assert.True(t, got.Income.IsNaN())
	assert.True(t, got.Cash.IsNaN())
	assert.Equal(t, Amount(10), got.Bank)
	assert.True(t, got.Balance.IsNaN())
	assert.True(t, got.Tithe.IsNaN())
}

func TestCoerceAmount(t *testing.T) {
	assert.Equal(t, Amount(0), CoerceAmount(""))
	assert.Equal(t, Amount(0), CoerceAmount("   "))
	assert.Equal(t, Amount(5000), CoerceAmount("5000"))
	assert.Equal(t, Amount(12.5), CoerceAmount(" 12.5 "))
	assert.True(t, CoerceAmount("5,000").IsNaN())
	assert.True(t, CoerceAmount("ten").IsNaN())
}

func TestAmountJSON(t *testing.T) {
	var payload struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
		D Amount `json:"d"`
		E Amount `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 5000, "b": "2000", "c": null, "d": "oops", "e": {"x": 1}}`), &payload)
	require.NoError(t, err)

	assert.Equal(t, Amount(5000), payload.A)
	assert.Equal(t, Amount(2000), payload.B)
	assert.Equal(t, Amount(0), payload.C)
	assert.True(t, payload.D.IsNaN())
	assert.True(t, payload.E.IsNaN())

	out, err := json.Marshal(map[string]Amount{"ok": 1300, "bad": Amount(math.NaN())})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": 1300, "bad": null}`, string(out))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "UGX 13,000", FormatAmount(13000))
	assert.Equal(t, "UGX 0", FormatAmount(0))
	assert.Equal(t, "-UGX 2,500", FormatAmount(-2500))
	assert.Equal(t, "UGX 1,300", FormatAmount(1299.6))
	assert.Equal(t, "UGX NaN", FormatAmount(Amount(math.NaN())))
}

package ledger

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Advisory category lists offered when entering a transaction. The store
// accepts any category.
var (
	IncomeCategories = []string{
		"Web Design",
		"Hosting",
		"Product Sales",
		"Tips/Gifts",
		"Other Income",
	}
	ExpenseCategories = []string{
		"Transport",
		"Home/Family",
		"Water Bill",
		"Electricity",
		"Data/Internet",
		"Business Expense",
		"Other Expense",
	}
)

// Categories returns the advisory list for t.
func Categories(t TxType) []string {
	if t == Income {
		return IncomeCategories
	}
	return ExpenseCategories
}

// DefaultCategory is the first advisory category for t.
func DefaultCategory(t TxType) string {
	return Categories(t)[0]
}

// maxCategoryDistance bounds how far a typed category may be from a known
// one and still be corrected to it.
const maxCategoryDistance = 2

// MatchCategory resolves free-form input against the advisory list for t.
// Exact (case-insensitive) and near matches return the canonical spelling
// with ok true; anything else comes back trimmed and unchanged.
func MatchCategory(t TxType, input string) (category string, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return DefaultCategory(t), true
	}
	needle := strings.ToLower(input)

	best, bestDist := "", maxCategoryDistance+1
	for _, c := range Categories(t) {
		candidate := strings.ToLower(c)
		if candidate == needle {
			return c, true
		}
		if d := levenshtein.ComputeDistance(needle, candidate); d < bestDist {
			best, bestDist = c, d
		}
	}
	if best != "" {
		return best, true
	}
	return input, false
}

// QuickAction is a predefined transaction template. Applying it fills a
// draft the user can still edit before saving.
type QuickAction struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     TxType `json:"type"`
	Amount   Amount `json:"amount"`
	Category string `json:"category"`
	Method   Method `json:"method"`
	Note     string `json:"note"`
}

var QuickActions = []QuickAction{
	{Key: "coffee", Label: "Morning Coffee", Type: Expense, Amount: 5000, Category: "Food & Dining", Method: MobileMoney, Note: "Morning Coffee"},
	{Key: "taxi", Label: "Transport (Taxi)", Type: Expense, Amount: 10000, Category: "Transportation", Method: Cash, Note: "Taxi to Town"},
	{Key: "groceries", Label: "Groceries", Type: Expense, Amount: 30000, Category: "Groceries", Method: MobileMoney, Note: "Quick Grocery Run"},
	{Key: "client", Label: "Client Payment", Type: Income, Amount: 100000, Category: "Salary / Wages", Method: Bank, Note: "Client Payment"},
	{Key: "withdraw", Label: "Withdraw Cash", Type: Expense, Amount: 50000, Category: "Other", Method: Bank, Note: "ATM Withdrawal (Update Cash manually)"},
}

// FindQuickAction looks an action up by key or label, ignoring case.
func FindQuickAction(name string) (QuickAction, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, qa := range QuickActions {
		if qa.Key == name || strings.ToLower(qa.Label) == name {
			return qa, true
		}
	}
	return QuickAction{}, false
}

// Draft turns the template into a transaction dated date.
func (qa QuickAction) Draft(date string) Transaction {
	return Transaction{
		Type:     qa.Type,
		Category: qa.Category,
		Amount:   qa.Amount,
		Method:   qa.Method,
		Date:     date,
		Note:     qa.Note,
	}
}

package ledger

import "time"

// Overview is everything a dashboard shows for one time window.
type Overview struct {
	Filter       Filter        `json:"filter"`
	Label        string        `json:"label"`
	Totals       Totals        `json:"totals"`
	Debts        DebtSummary   `json:"debts"`
	Transactions []Transaction `json:"transactions"`
	Loading      bool          `json:"loading"`
}

// Summarize filters txs to window f and derives the dashboard from the
// result. The debt summary is not windowed.
func Summarize(txs []Transaction, obs []Obligation, cfg AdminConfig, f Filter, now time.Time) Overview {
	filtered := FilterByWindow(txs, f, now)
	if filtered == nil {
		filtered = []Transaction{}
	}
	return Overview{
		Filter:       f,
		Label:        f.Label(),
		Totals:       Aggregate(filtered, cfg.Seeds()),
		Debts:        SummarizeDebts(obs),
		Transactions: filtered,
	}
}

package ledger

import "time"

// DebtSummary splits obligations by direction and totals what is still
// unpaid on each side. Paid records stay in the lists.
type DebtSummary struct {
	Debtors       []Obligation `json:"debtors"`
	Creditors     []Obligation `json:"creditors"`
	TotalOwedToMe Amount       `json:"totalOwedToMe"`
	TotalIOwe     Amount       `json:"totalIOwe"`
}

// SummarizeDebts partitions obs, keeping input order inside each side.
func SummarizeDebts(obs []Obligation) DebtSummary {
	s := DebtSummary{
		Debtors:   []Obligation{},
		Creditors: []Obligation{},
	}
	for _, o := range obs {
		switch o.Type {
		case Debtor:
			s.Debtors = append(s.Debtors, o)
			if !o.IsPaid {
				s.TotalOwedToMe += o.Amount
			}
		case Creditor:
			s.Creditors = append(s.Creditors, o)
			if !o.IsPaid {
				s.TotalIOwe += o.Amount
			}
		}
	}
	return s
}

// DueObligations returns the unpaid records whose due date is today or
// earlier. Records without a parseable due date are never due.
func DueObligations(obs []Obligation, now time.Time) []Obligation {
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())

	var due []Obligation
	for _, o := range obs {
		if o.IsPaid {
			continue
		}
		t, ok := ParseDate(o.DueDate, now.Location())
		if !ok || !t.Before(endOfToday) {
			continue
		}
		due = append(due, o)
	}
	return due
}

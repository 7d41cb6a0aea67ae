package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filter names a relative time window anchored to now.
type Filter string

const (
	All     Filter = "all"
	Daily   Filter = "daily"
	Weekly  Filter = "weekly"
	Monthly Filter = "monthly"
	Yearly  Filter = "yearly"
)

// Filters lists every window in display order.
var Filters = []Filter{All, Daily, Weekly, Monthly, Yearly}

var ErrUnknownFilter = errors.New("unknown time filter")

// ParseFilter maps surface input to a Filter. An empty string means All.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return All, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Label is the human name of the window ("This month").
func (f Filter) Label() string {
	switch f {
	case Daily:
		return "Today"
	case Weekly:
		return "This week"
	case Monthly:
		return "This month"
	case Yearly:
		return "This year"
	}
	return "All time"
}

// Cutoff returns the earliest instant inside window f, in now's location.
// The week starts on Sunday. ok is false for All and for unknown names,
// which have no cutoff.
func Cutoff(f Filter, now time.Time) (cutoff time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch f {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case Weekly:
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc), true
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

var localDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseDate parses a transaction date. Bare dates and zone-less date-times
// are read in loc; RFC 3339 values carry their own offset.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InWindow reports whether tx falls inside window f. Under All every
// transaction passes; under a named window a missing or unparseable date
// never does.
func InWindow(tx Transaction, f Filter, now time.Time) bool {
	cutoff, ok := Cutoff(f, now)
	if !ok {
		return true
	}
	t, ok := ParseDate(tx.Date, now.Location())
	if !ok {
		return false
	}
	return !t.Before(cutoff)
}

// FilterByWindow selects the transactions of txs inside window f. All
// returns txs itself; other windows return a new slice in input order.
func FilterByWindow(txs []Transaction, f Filter, now time.Time) []Transaction {
	if _, ok := Cutoff(f, now); !ok {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if InWindow(tx, f, now) {
			out = append(out, tx)
		}
	}
	return out
}

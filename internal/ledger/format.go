package ledger

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the display currency. It has no minor unit.
const Currency = "UGX"

// DateLayout is the layout of transaction and due dates.
const DateLayout = "2006-01-02"

var printer = message.NewPrinter(language.English)

// FormatAmount renders a rounded amount with digit grouping, for example
// "UGX 13,000" or "-UGX 2,500".
func FormatAmount(a Amount) string {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Currency + " NaN"
	}
	n := decimal.NewFromFloat(f).Round(0).IntPart()
	if n < 0 {
		return printer.Sprintf("-%s %d", Currency, -n)
	}
	return printer.Sprintf("%s %d", Currency, n)
}

// Today formats now as a transaction date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

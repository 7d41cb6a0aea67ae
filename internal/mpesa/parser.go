package mpesa

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NgigiN/prosperledger/internal/ledger"
)

var ErrNotConfirmation = errors.New("not a valid M-PESA confirmation message")

type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

type ParsedTransaction struct {
	TransactionID string
	Direction     Direction
	Amount        float64
	Counterparty  string
	DateTime      time.Time
	Balance       float64
	Cost          float64
}

// Currency prefix, then digits with optional thousands commas and decimals.
const money = `(?:Ksh|UGX|USh|Shs)\s?[\d,]+(?:\.\d+)?`

const stamp = `on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2})\s?(AM|PM)\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)`

var (
	// Tolerates a missing space before "New", "for account ..." in the
	// recipient and trailing promotional text.
	outgoingRe = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s+(` + money + `)\s+(sent|paid)\s+to\s+(.*?)\s*\.?\s+` + stamp + `\.\s*Transaction\s+cost,?\s*(` + money + `)(?:\.|\b)`)
	incomingRe = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s*You\s+have\s+received\s+(` + money + `)\s+from\s+(.*?)\s*\.?\s+` + stamp)

	trailingPhoneRe = regexp.MustCompile(`\s+\+?\d{9,13}$`)
)

// ParseMessage reads one outgoing ("sent to", "paid to") or incoming
// ("You have received") confirmation SMS. Times are read in loc.
func ParseMessage(msg string, loc *time.Location) (*ParsedTransaction, error) {
	if m := outgoingRe.FindStringSubmatch(msg); m != nil {
		p, err := build(m[1], m[2], m[4], m[5], m[6], m[7], m[8], loc)
		if err != nil {
			return nil, err
		}
		if p.Cost, err = parseMoney(m[9]); err != nil {
			return nil, fmt.Errorf("failed to parse cost: %w", err)
		}
		p.Direction = Outgoing
		return p, nil
	}
	if m := incomingRe.FindStringSubmatch(msg); m != nil {
		p, err := build(m[1], m[2], m[3], m[4], m[5], m[6], m[7], loc)
		if err != nil {
			return nil, err
		}
		p.Counterparty = trailingPhoneRe.ReplaceAllString(p.Counterparty, "")
		p.Direction = Incoming
		return p, nil
	}
	return nil, ErrNotConfirmation
}

func build(id, amount, counterparty, date, clock, meridiem, balance string, loc *time.Location) (*ParsedTransaction, error) {
	amt, err := parseMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	bal, err := parseMoney(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	when, err := parseStamp(date, clock, meridiem, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date/time: %w", err)
	}

	counterparty = strings.TrimSpace(strings.TrimSuffix(counterparty, "."))
	counterparty = strings.Join(strings.Fields(counterparty), " ")

	return &ParsedTransaction{
		TransactionID: strings.ToUpper(id),
		Amount:        amt,
		Counterparty:  counterparty,
		DateTime:      when,
		Balance:       bal,
	}, nil
}

// parseStamp reads d/m/yy plus a 12-hour clock.
func parseStamp(date, clock, meridiem string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, err
	}
	s := fmt.Sprintf("%d-%02d-%02d %s %s", 2000+year, month, day, clock, strings.ToUpper(meridiem))
	return time.ParseInLocation("2006-01-02 3:04 PM", s, loc)
}

func parseMoney(s string) (float64, error) {
	digits := strings.TrimLeft(s, "KkSsHhUuGgXx ")
	digits = strings.ReplaceAll(digits, ",", "")
	return strconv.ParseFloat(digits, 64)
}

// Transaction converts a parsed SMS into a Mobile Money transaction.
// Outgoing transfers are expenses that include the transaction cost.
func (p *ParsedTransaction) Transaction(category, note string) ledger.Transaction {
	tx := ledger.Transaction{
		Type:     ledger.Income,
		Category: category,
		Amount:   ledger.Amount(p.Amount),
		Method:   ledger.MobileMoney,
		Date:     p.DateTime.Format(ledger.DateLayout),
	}
	party := "from " + p.Counterparty
	if p.Direction == Outgoing {
		tx.Type = ledger.Expense
		tx.Amount = ledger.Amount(p.Amount + p.Cost)
		party = "to " + p.Counterparty
	}

	parts := []string{p.TransactionID, party}
	if note != "" {
		parts = append(parts, note)
	}
	tx.Note = strings.Join(parts, " · ")
	return tx
}

// IsConfirmation reports whether line starts a confirmation SMS.
func IsConfirmation(line string) bool {
	if !strings.Contains(line, "Confirmed") {
		return false
	}
	return strings.Contains(line, "sent to") ||
		strings.Contains(line, "paid to") ||
		strings.Contains(line, "received")
}

// Message is one confirmation SMS plus the metadata lines that followed it.
type Message struct {
	Text     string
	Metadata []string
}

// SplitBatch groups pasted lines into messages. Only "c:", "Category:",
// "r:" and "Reason:" lines count as metadata; anything before the first
// confirmation is ignored.
func SplitBatch(lines []string) []Message {
	var (
		msgs    []Message
		current Message
		open    bool
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsConfirmation(line) {
			if open {
				msgs = append(msgs, current)
			}
			current = Message{Text: line}
			open = true
			continue
		}
		if open && IsMetadata(line) {
			current.Metadata = append(current.Metadata, line)
		}
	}
	if open {
		msgs = append(msgs, current)
	}
	return msgs
}

func IsMetadata(line string) bool {
	for _, prefix := range []string{"c:", "Category:", "r:", "Reason:"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// ParseMetadata extracts the category and reason from metadata lines.
// Category is empty when none was given.
func ParseMetadata(lines []string) (category, reason string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Category:"):
			category = strings.TrimSpace(strings.TrimPrefix(line, "Category:"))
		case strings.HasPrefix(line, "c:"):
			category = strings.TrimSpace(strings.TrimPrefix(line, "c:"))
		case strings.HasPrefix(line, "Reason:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "Reason:"))
		case strings.HasPrefix(line, "r:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "r:"))
		}
	}
	return category, reason
}

package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/NgigiN/prosperledger/internal/ledger"
	"github.com/NgigiN/prosperledger/internal/mpesa"
)

// Store is the read side the bot summarizes from.
type Store interface {
	Transactions(ctx context.Context) ([]ledger.Transaction, error)
	Obligations(ctx context.Context) ([]ledger.Obligation, error)
	LoadConfig(ctx context.Context) (ledger.AdminConfig, error)
}

// Recorder validates and appends transactions.
type Recorder interface {
	AddTransaction(ctx context.Context, tx ledger.Transaction) (string, error)
}

type Bot struct {
	session   *discordgo.Session
	store     Store
	recorder  Recorder
	channelID string
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Bot)

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

func NewBot(token, channelID string, store Store, recorder Recorder, log zerolog.Logger, opts ...Option) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := newBot(channelID, store, recorder, log, opts...)
	bot.session = session

	session.AddHandler(bot.handleMessage)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	return bot, nil
}

func newBot(channelID string, store Store, recorder Recorder, log zerolog.Logger, opts ...Option) *Bot {
	b := &Bot{
		store:     store,
		recorder:  recorder,
		channelID: channelID,
		log:       log.With().Str("component", "discord").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.log.Info().Str("channel", b.channelID).Msg("Discord bot connected")
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.log.Warn().Err(err).Msg("Error closing Discord session")
	}
}

// Notify posts content to the bot's channel.
func (b *Bot) Notify(ctx context.Context, content string) error {
	if _, err := b.session.ChannelMessageSend(b.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if m.ChannelID != b.channelID {
		return
	}

	reply := b.Respond(context.Background(), m.Content)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.log.Error().Err(err).Msg("Error sending reply")
	}
}

// Respond handles one message and returns the reply. An empty reply means
// nothing should be sent.
func (b *Bot) Respond(ctx context.Context, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	args := strings.Fields(lines[0])

	switch strings.ToLower(args[0]) {
	case "!summary":
		return b.summary(ctx, args[1:])
	case "!debts":
		return b.debts(ctx)
	case "!add":
		return b.add(ctx, args[1:], lines[1:])
	case "!quick":
		return b.quick(ctx, args[1:])
	case "!help":
		return helpText
	}
	if strings.HasPrefix(args[0], "!") {
		return fmt.Sprintf("Unknown command %s. Try !help", args[0])
	}

	msgs := mpesa.SplitBatch(lines)
	switch len(msgs) {
	case 0:
		return b.single(ctx, mpesa.Message{Text: lines[0], Metadata: lines[1:]})
	case 1:
		return b.single(ctx, msgs[0])
	default:
		return b.batch(ctx, msgs)
	}
}

const helpText = "**ProsperLedger commands**\n" +
	"`!summary [all|daily|weekly|monthly|yearly]` balances for a window\n" +
	"`!debts` outstanding debtors and creditors\n" +
	"`!add <income|expense> <amount> <cash|bank|mobile> [category]` record a transaction, add `r: note` on a new line\n" +
	"`!quick <action>` record a quick action\n" +
	"Paste one or more M-PESA confirmations to record them, with optional `c: category` and `r: reason` lines."

func (b *Bot) summary(ctx context.Context, args []string) string {
	if len(args) > 1 {
		return "Usage: !summary [all|daily|weekly|monthly|yearly]"
	}
	f := ledger.All
	if len(args) == 1 {
		var err error
		if f, err = ledger.ParseFilter(strings.ToLower(args[0])); err != nil {
			return fmt.Sprintf("Invalid filter: %s. Use: all, daily, weekly, monthly, yearly", args[0])
		}
	}

	txs, err := b.store.Transactions(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Error fetching transactions")
		return "Failed to get summary."
	}
	obs, err := b.store.Obligations(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Error fetching debts")
		return "Failed to get summary."
	}
	cfg, err := b.store.LoadConfig(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Error fetching config")
		return "Failed to get summary."
	}

	ov := ledger.Summarize(txs, obs, cfg, f, b.now())
	t := ov.Totals

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **Summary: %s**\n\n", ov.Label)
	fmt.Fprintf(&sb, "Income: %s\n", ledger.FormatAmount(t.Income))
	fmt.Fprintf(&sb, "Expenses: %s\n\n", ledger.FormatAmount(t.Expenses))
	fmt.Fprintf(&sb, "**Cash**: %s\n", ledger.FormatAmount(t.Cash))
	fmt.Fprintf(&sb, "**Bank**: %s\n", ledger.FormatAmount(t.Bank))
	fmt.Fprintf(&sb, "**Mobile Money**: %s\n\n", ledger.FormatAmount(t.Mobile))
	fmt.Fprintf(&sb, "**Balance**: %s\n", ledger.FormatAmount(t.Balance))
	fmt.Fprintf(&sb, "**Tithe (10%%)**: %s\n", ledger.FormatAmount(t.Tithe))
	fmt.Fprintf(&sb, "\n%d transactions", len(ov.Transactions))
	return sb.String()
}

func (b *Bot) debts(ctx context.Context) string {
	obs, err := b.store.Obligations(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Error fetching debts")
		return "Failed to get debts."
	}
	s := ledger.SummarizeDebts(obs)

	var sb strings.Builder
	sb.WriteString("📒 **Debts**\n\n")
	fmt.Fprintf(&sb, "Owed to me: %s\n", ledger.FormatAmount(s.TotalOwedToMe))
	fmt.Fprintf(&sb, "I owe: %s\n", ledger.FormatAmount(s.TotalIOwe))

	if due := ledger.DueObligations(obs, b.now()); len(due) > 0 {
		sb.WriteString("\n**Due**\n")
		for _, o := range due {
			sb.WriteString(formatObligation(o))
		}
	}
	return sb.String()
}

func formatObligation(o ledger.Obligation) string {
	direction := "owes you"
	if o.Type == ledger.Creditor {
		direction = "you owe"
	}
	line := fmt.Sprintf("• %s %s %s", o.Name, direction, ledger.FormatAmount(o.Amount))
	if o.DueDate != "" {
		line += " (due " + o.DueDate + ")"
	}
	return line + "\n"
}

const addUsage = "Usage: !add <income|expense> <amount> <cash|bank|mobile> [category]"

func (b *Bot) add(ctx context.Context, args, metadata []string) string {
	if len(args) < 3 {
		return addUsage
	}
	txType := ledger.TxType(strings.ToLower(args[0]))
	if !txType.Valid() {
		return addUsage
	}
	amount := ledger.CoerceAmount(strings.ReplaceAll(args[1], ",", ""))
	if amount.IsNaN() || amount < 0 {
		return fmt.Sprintf("Invalid amount: %s", args[1])
	}
	method, ok := ledger.ParseMethod(args[2])
	if !ok {
		return fmt.Sprintf("Invalid method: %s. Use: cash, bank, mobile", args[2])
	}

	category, note := mpesa.ParseMetadata(metadata)
	if category == "" {
		category = strings.Join(args[3:], " ")
	}
	category, _ = ledger.MatchCategory(txType, category)

	tx := ledger.Transaction{
		Type:     txType,
		Category: category,
		Amount:   amount,
		Method:   method,
		Date:     ledger.Today(b.now()),
		Note:     note,
	}
	if _, err := b.recorder.AddTransaction(ctx, tx); err != nil {
		return fmt.Sprintf("Failed to save transaction: %v", err)
	}
	return fmt.Sprintf("Recorded %s %s · %s · %s", txType, ledger.FormatAmount(amount), category, method)
}

func (b *Bot) quick(ctx context.Context, args []string) string {
	qa, ok := ledger.FindQuickAction(strings.Join(args, " "))
	if !ok {
		keys := make([]string, 0, len(ledger.QuickActions))
		for _, qa := range ledger.QuickActions {
			keys = append(keys, qa.Key)
		}
		return "Usage: !quick <action>\nActions: " + strings.Join(keys, ", ")
	}

	if _, err := b.recorder.AddTransaction(ctx, qa.Draft(ledger.Today(b.now()))); err != nil {
		return fmt.Sprintf("Failed to save transaction: %v", err)
	}
	return fmt.Sprintf("Recorded %s: %s", qa.Label, ledger.FormatAmount(qa.Amount))
}

// record parses one confirmation and saves it.
func (b *Bot) record(ctx context.Context, msg mpesa.Message) (*mpesa.ParsedTransaction, ledger.Transaction, error) {
	parsed, err := mpesa.ParseMessage(msg.Text, b.now().Location())
	if err != nil {
		return nil, ledger.Transaction{}, err
	}

	txType := ledger.Income
	if parsed.Direction == mpesa.Outgoing {
		txType = ledger.Expense
	}
	category, reason := mpesa.ParseMetadata(msg.Metadata)
	category, _ = ledger.MatchCategory(txType, category)

	tx := parsed.Transaction(category, reason)
	if _, err := b.recorder.AddTransaction(ctx, tx); err != nil {
		return nil, ledger.Transaction{}, err
	}
	return parsed, tx, nil
}

func (b *Bot) single(ctx context.Context, msg mpesa.Message) string {
	parsed, tx, err := b.record(ctx, msg)
	if errors.Is(err, mpesa.ErrNotConfirmation) {
		return fmt.Sprintf("Invalid M-PESA message: %v", err)
	}
	if err != nil {
		return fmt.Sprintf("Failed to save transaction: %v", err)
	}

	direction := "to"
	if parsed.Direction == mpesa.Incoming {
		direction = "from"
	}
	return fmt.Sprintf("Tracked %s: %s %s %s in %s", parsed.TransactionID,
		ledger.FormatAmount(tx.Amount), direction, parsed.Counterparty, tx.Category)
}

func (b *Bot) batch(ctx context.Context, msgs []mpesa.Message) string {
	var failures []string
	for i, msg := range msgs {
		if _, _, err := b.record(ctx, msg); err != nil {
			failures = append(failures, fmt.Sprintf("Transaction %d: %v", i+1, err))
		}
	}

	var sb strings.Builder
	sb.WriteString("📊 **Batch Processing Complete**\n")
	fmt.Fprintf(&sb, "✅ **Successfully processed**: %d transactions\n", len(msgs)-len(failures))
	if len(failures) > 0 {
		fmt.Fprintf(&sb, "❌ **Failed**: %d transactions\n**Errors:**\n", len(failures))
		for _, f := range failures {
			sb.WriteString("• " + f + "\n")
		}
	}
	b.log.Info().Int("processed", len(msgs)-len(failures)).Int("failed", len(failures)).Msg("Batch processed")
	return sb.String()
}

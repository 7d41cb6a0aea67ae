package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NgigiN/prosperledger/internal/ledger"
)

type ObligationSource interface {
	Obligations(ctx context.Context) ([]ledger.Obligation, error)
}

type Notifier interface {
	Notify(ctx context.Context, content string) error
}

const jobTimeout = 30 * time.Second

// DueJob posts unpaid obligations that are due today or overdue. Nothing is
// sent when none are due.
type DueJob struct {
	source   ObligationSource
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewDueJob(source ObligationSource, notifier Notifier, log zerolog.Logger, now func() time.Time) *DueJob {
	if now == nil {
		now = time.Now
	}
	return &DueJob{
		source:   source,
		notifier: notifier,
		log:      log.With().Str("job", "due-obligations").Logger(),
		now:      now,
	}
}

func (j *DueJob) Name() string {
	return "due-obligations"
}

func (j *DueJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	obs, err := j.source.Obligations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load obligations: %w", err)
	}
	now := j.now()
	due := ledger.DueObligations(obs, now)
	if len(due) == 0 {
		return nil
	}

	if err := j.notifier.Notify(ctx, Digest(due, now)); err != nil {
		return err
	}
	j.log.Info().Int("due", len(due)).Msg("Reminder sent")
	return nil
}

// Digest renders due obligations, overdue ones marked as such.
func Digest(due []ledger.Obligation, now time.Time) string {
	today := ledger.Today(now)

	var sb strings.Builder
	fmt.Fprintf(&sb, "⏰ **%d obligation(s) due**\n", len(due))
	for _, o := range due {
		who := o.Name + " owes you"
		if o.Type == ledger.Creditor {
			who = "You owe " + o.Name
		}
		status := "due today"
		if o.DueDate < today {
			status = "overdue since " + o.DueDate
		}
		fmt.Fprintf(&sb, "• %s %s (%s)\n", who, ledger.FormatAmount(o.Amount), status)
	}
	return sb.String()
}

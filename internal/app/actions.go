package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/NgigiN/prosperledger/internal/ledger"
)

// AddTransaction validates tx and appends it. An empty date defaults to
// today. The state catches up through the subscription, never here.
func (a *App) AddTransaction(ctx context.Context, tx ledger.Transaction) (string, error) {
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Note = strings.TrimSpace(tx.Note)
	if tx.Date == "" {
		tx.Date = ledger.Today(a.now())
	}
	if err := validateTransaction(tx); err != nil {
		return "", err
	}

	id, err := a.store.AppendTransaction(ctx, tx)
	if err != nil {
		a.log.Error().Err(err).Msg("Error adding transaction")
		return "", err
	}
	a.log.Info().
		Str("id", id).
		Str("type", string(tx.Type)).
		Str("method", string(tx.Method)).
		Float64("amount", float64(tx.Amount)).
		Msg("Transaction added")
	return id, nil
}

func validateTransaction(tx ledger.Transaction) error {
	switch {
	case !tx.Type.Valid():
		return fmt.Errorf("%w: type must be income or expense", ErrInvalidInput)
	case !tx.Method.Valid():
		return fmt.Errorf("%w: method must be Cash, Bank or Mobile Money", ErrInvalidInput)
	case tx.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	return validateAmount(tx.Amount)
}

func validateAmount(amount ledger.Amount) error {
	if amount.IsNaN() {
		return fmt.Errorf("%w: amount must be a number", ErrInvalidInput)
	}
	if amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return nil
}

func (a *App) DeleteTransaction(ctx context.Context, id string) error {
	if err := a.store.DeleteTransaction(ctx, id); err != nil {
		a.log.Error().Err(err).Str("id", id).Msg("Error deleting transaction")
		return err
	}
	return nil
}

// AddObligation appends an unpaid debtor or creditor record.
func (a *App) AddObligation(ctx context.Context, o ledger.Obligation) (string, error) {
	o.Name = strings.TrimSpace(o.Name)
	switch {
	case !o.Type.Valid():
		return "", fmt.Errorf("%w: type must be debtor or creditor", ErrInvalidInput)
	case o.Name == "":
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateAmount(o.Amount); err != nil {
		return "", err
	}
	o.IsPaid, o.PaidAt = false, nil

	id, err := a.store.AppendObligation(ctx, o)
	if err != nil {
		a.log.Error().Err(err).Msg("Error adding debt record")
		return "", err
	}
	return id, nil
}

// ToggleObligation flips the paid status of a record, stamping or clearing
// its paid time.
func (a *App) ToggleObligation(ctx context.Context, id string) (ledger.Obligation, error) {
	o, ok := a.cachedObligation(id)
	if !ok {
		var err error
		if o, err = a.store.Obligation(ctx, id); err != nil {
			a.log.Error().Err(err).Str("id", id).Msg("Error updating status")
			return ledger.Obligation{}, err
		}
	}

	at := a.now()
	next := o.Toggled(at)
	if err := a.store.SetObligationPaid(ctx, id, next.IsPaid, at); err != nil {
		a.log.Error().Err(err).Str("id", id).Msg("Error updating status")
		return ledger.Obligation{}, err
	}
	return next, nil
}

func (a *App) cachedObligation(id string) (ledger.Obligation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, o := range a.obs {
		if o.ID == id {
			return o, true
		}
	}
	return ledger.Obligation{}, false
}

func (a *App) DeleteObligation(ctx context.Context, id string) error {
	if err := a.store.DeleteObligation(ctx, id); err != nil {
		a.log.Error().Err(err).Str("id", id).Msg("Error deleting debt record")
		return err
	}
	return nil
}

// SettingsRequest is a settings save. ConfirmPassword must repeat Password
// when a new password is given.
type SettingsRequest struct {
	ledger.SettingsUpdate
	ConfirmPassword string `json:"confirmPassword"`
}

// SaveSettings merges req into the live config and writes the result. On a
// failed write the in-memory config is left as it was.
func (a *App) SaveSettings(ctx context.Context, req SettingsRequest) (ledger.AdminConfig, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return ledger.AdminConfig{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if req.Password != "" && req.Password != req.ConfirmPassword {
		return ledger.AdminConfig{}, ErrPasswordMismatch
	}

	next := ledger.UpdateConfig(a.Config(), req.SettingsUpdate)
	if err := a.store.SetConfig(ctx, next); err != nil {
		a.log.Error().Err(err).Msg("Error updating config")
		return ledger.AdminConfig{}, fmt.Errorf("failed to update credentials: %w", err)
	}

	a.mu.Lock()
	a.cfg = next
	if a.updates != nil {
		a.updates.Publish(a.snapshotLocked())
	}
	a.mu.Unlock()

	a.log.Info().Str("username", next.Username).Msg("Settings saved")
	return next, nil
}

package ledger

import (
	"context"
	"fmt"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Services is empty: per SPEC_FULL.md §4.4, "Apply function is pure delta
// accumulation; it never rejects. All rejection happens in §4.5 before
// DebitHold is issued" — so Handle needs no external collaborators. Kept as
// a named type (rather than instantiating aggregate.Runtime with `any`) so
// call sites read the same way as BankAccount's.
type Services struct{}

// Handle implements aggregate.Root[Command, Event, Services].
func (s State) Handle(_ context.Context, cmd Command, _ Services) ([]Event, error) {
	switch c := cmd.(type) {
	case Init:
		return s.handleInit(c)
	case DebitHold:
		return s.handleDebitHold(c)
	case DebitRelease:
		return s.handleDebitRelease(c)
	case Credit:
		return s.handleCredit(c)
	default:
		return nil, fmt.Errorf("%w: unknown ledger command %T", apperr.ErrValidation, cmd)
	}
}

func (s State) handleInit(c Init) ([]Event, error) {
	return []Event{LedgerInitiated{
		ID:        c.ID,
		AccountID: c.AccountID,
		Amount:    c.Amount,
	}}, nil
}

func (s State) handleDebitHold(c DebitHold) ([]Event, error) {
	return []Event{LedgerUpdated{
		ID:              c.ID,
		AccountID:       c.AccountID,
		TransactionID:   c.TransactionID,
		TransactionType: TxDebitHold,
		Amount:          c.Amount,
		AvailableDelta:  c.Amount.Neg(),
		PendingDelta:    c.Amount,
	}}, nil
}

func (s State) handleDebitRelease(c DebitRelease) ([]Event, error) {
	return []Event{LedgerUpdated{
		ID:              c.ID,
		AccountID:       c.AccountID,
		TransactionID:   c.TransactionID,
		TransactionType: TxDebitRelease,
		Amount:          c.Amount,
		AvailableDelta:  money.Zero(c.Amount.Currency),
		PendingDelta:    c.Amount.Neg(),
	}}, nil
}

func (s State) handleCredit(c Credit) ([]Event, error) {
	return []Event{
		LedgerUpdated{
			ID:              c.ID,
			AccountID:       c.AccountID,
			TransactionID:   c.TransactionID,
			TransactionType: CreditHold,
			Amount:          c.Amount,
			AvailableDelta:  money.Zero(c.Amount.Currency),
			PendingDelta:    c.Amount,
		},
		LedgerUpdated{
			ID:              c.ID,
			AccountID:       c.AccountID,
			TransactionID:   c.TransactionID,
			TransactionType: CreditRelease,
			Amount:          c.Amount,
			AvailableDelta:  c.Amount,
			PendingDelta:    c.Amount.Neg(),
		},
	}, nil
}

// Apply implements aggregate.Root[Command, Event, Services]. It never
// rejects; all validation happens before DebitHold is dispatched.
func (s *State) Apply(event Event) {
	switch e := event.(type) {
	case LedgerInitiated:
		s.ID = e.ID
		s.AccountID = e.AccountID
		s.Currency = e.Amount.Currency
		s.Available = e.Amount
		s.Pending = money.Zero(e.Amount.Currency)
		s.Timestamp = e.Timestamp
	case LedgerUpdated:
		s.ID = e.ID
		s.AccountID = e.AccountID
		s.Available = money.New(s.Available.Amount.Add(e.AvailableDelta.Amount), s.Currency)
		s.Pending = money.New(s.Pending.Amount.Add(e.PendingDelta.Amount), s.Currency)
		s.Timestamp = e.Timestamp
	}
}

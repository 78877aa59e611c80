// Package projector updates the BankAccountView and LedgerView read models
// from newly appended events (SPEC_FULL.md §4.8). Grounded on the teacher's
// internal/projector/projector.go idempotent-upsert-by-event shape; adapted
// to run inline from aggregate.Runtime's per-event fan-out (SPEC_FULL.md
// §4.2 step 4) rather than the teacher's separate ticker+offset-table
// cursor, since here every event's target view_id is already known at
// append time and no cross-aggregate join is required to project it.
package projector

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/view"
)

// BankAccountView is the read-side projection of a BankAccount aggregate.
type BankAccountView struct {
	ID          uuid.UUID               `json:"id"`
	UserID      string                  `json:"user_id"`
	AccountType bankaccount.AccountType `json:"account_type"`
	Kind        bankaccount.Kind        `json:"kind"`
	Currency    string                  `json:"currency"`
	LedgerID    uuid.UUID               `json:"ledger_id"`
	Status      bankaccount.Status      `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// BankAccountProjector implements aggregate.Projector[bankaccount.Event].
type BankAccountProjector struct {
	Store  *view.Store
	Logger *slog.Logger
}

func (p *BankAccountProjector) Project(ctx context.Context, aggregateID uuid.UUID, e bankaccount.Event) error {
	var current BankAccountView
	_ = p.Store.Get(ctx, aggregateID, &current) // zero value if not found yet

	switch ev := e.(type) {
	case bankaccount.AccountOpened:
		current = BankAccountView{
			ID:          ev.ID,
			UserID:      ev.UserID,
			AccountType: ev.AccountType,
			Kind:        ev.Kind,
			Currency:    string(ev.Currency),
			Status:      bankaccount.StatusPending,
			CreatedAt:   ev.Timestamp,
			UpdatedAt:   ev.Timestamp,
		}
	case bankaccount.AccountKycApproved:
		current.LedgerID = ev.LedgerID
		current.Status = bankaccount.StatusApproved
		current.UpdatedAt = ev.Timestamp
	}
	return p.Store.Upsert(ctx, aggregateID, current)
}

// LedgerView is the read-side projection of a Ledger aggregate.
type LedgerView struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Currency  string    `json:"currency"`
	Available string    `json:"available"`
	Pending   string    `json:"pending"`
	Current   string    `json:"current"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerProjector implements aggregate.Projector[ledger.Event].
type LedgerProjector struct {
	Store  *view.Store
	Logger *slog.Logger
}

func (p *LedgerProjector) Project(ctx context.Context, aggregateID uuid.UUID, e ledger.Event) error {
	var current LedgerView
	_ = p.Store.Get(ctx, aggregateID, &current)

	switch ev := e.(type) {
	case ledger.LedgerInitiated:
		current = LedgerView{
			ID:        ev.ID,
			AccountID: ev.AccountID,
			Currency:  string(ev.Amount.Currency),
			Available: ev.Amount.String(),
			Pending:   "0",
			Current:   ev.Amount.String(),
			UpdatedAt: ev.Timestamp,
		}
	case ledger.LedgerUpdated:
		st := ledger.State{Currency: ev.Amount.Currency}
		st.Available = parseOrZero(current.Available, ev.Amount.Currency)
		st.Pending = parseOrZero(current.Pending, ev.Amount.Currency)
		st.Apply(ev)

		current = LedgerView{
			ID:        ev.ID,
			AccountID: ev.AccountID,
			Currency:  string(ev.Amount.Currency),
			Available: st.Available.String(),
			Pending:   st.Pending.String(),
			Current:   st.Current().String(),
			UpdatedAt: ev.Timestamp,
		}
	}
	return p.Store.Upsert(ctx, aggregateID, current)
}

package ledger

import (
	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Command is the sealed set of Ledger commands from SPEC_FULL.md §4.4.
type Command interface{ isLedgerCommand() }

// Init bootstraps the ledger once, from BankAccount's ApproveAccount.
type Init struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    money.Money
}

// Credit is the two-phase deposit settlement, dispatched only by the outbox
// worker.
type Credit struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        money.Money
}

// DebitHold reserves funds synchronously from Withdrawal command handling.
type DebitHold struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        money.Money
}

// DebitRelease settles a held withdrawal, dispatched only by the outbox
// worker.
type DebitRelease struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        money.Money
}

func (Init) isLedgerCommand()         {}
func (Credit) isLedgerCommand()       {}
func (DebitHold) isLedgerCommand()    {}
func (DebitRelease) isLedgerCommand() {}

package ledger

import (
	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// CompensateFailedWithdrawal builds the SPEC_FULL.md §7 compensation event
// for a withdrawal whose DebitRelease has permanently failed after
// apperr.ErrLedgerWriteFailed retries were exhausted. It reverses the
// original debit_hold: pending -= amount, available += amount, restoring
// the customer's spendable balance to its pre-hold level since the
// withdrawal was never actually settled.
func CompensateFailedWithdrawal(ledgerID, accountID, transactionID uuid.UUID, amount money.Money) LedgerUpdated {
	return LedgerUpdated{
		ID:              ledgerID,
		AccountID:       accountID,
		TransactionID:   transactionID,
		TransactionType: CompensatingRelease,
		Amount:          amount,
		AvailableDelta:  amount,
		PendingDelta:    amount.Neg(),
	}
}

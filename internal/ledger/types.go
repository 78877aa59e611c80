// Package ledger implements the Ledger aggregate from SPEC_FULL.md §4.4:
// the two-phase hold/release available/pending/current balance protocol,
// grounded on original_source/src/event_sourcing/aggregate/ledger.rs.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// State is fully described by (available, pending); current is derived.
// Invariant: current == available + pending (SPEC_FULL.md §3).
type State struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Currency  money.Currency
	Available money.Money
	Pending   money.Money
	Timestamp time.Time
}

func New() State {
	return State{}
}

// Current returns available + pending. Apply always maintains both in the
// same currency, so this adds the underlying decimals directly rather than
// going through Money.Add's currency check.
func (s State) Current() money.Money {
	return money.New(s.Available.Amount.Add(s.Pending.Amount), s.Currency)
}

// Package bankaccount implements the BankAccount aggregate from
// SPEC_FULL.md §4.3, grounded on
// original_source/src/event_sourcing/aggregate/bank_account.rs.
package bankaccount

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

type AccountType string

const (
	Retail      AccountType = "Retail"
	Institution AccountType = "Institution"
	Tax         AccountType = "Tax"
	House       AccountType = "House"
)

type Kind string

const (
	Checking Kind = "Checking"
	Interest Kind = "Interest"
	Yield    Kind = "Yield"
)

type Status string

const (
	StatusPending        Status = "Pending"
	StatusApproved       Status = "Approved"
	StatusFreeze         Status = "Freeze"
	StatusCustomerClosed Status = "CustomerClosed"
	StatusTerminated     Status = "Terminated"
)

// Terminal reports whether the status can never transition again, used by
// the OpenAccount duplicate check ("no existing non-terminal account").
func (s Status) Terminal() bool {
	return s == StatusCustomerClosed || s == StatusTerminated
}

// State is the BankAccount aggregate's in-memory state, rebuilt by
// replaying AccountOpened/AccountKycApproved events.
type State struct {
	ID          uuid.UUID
	UserID      string
	AccountType AccountType
	Kind        Kind
	Currency    money.Currency
	LedgerID    uuid.UUID
	Status      Status
	Timestamp   time.Time
}

func New() State {
	return State{}
}

package bankaccount

import (
	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Command is the sealed set of BankAccount commands from SPEC_FULL.md §4.3.
type Command interface{ isBankAccountCommand() }

type OpenAccount struct {
	ID          uuid.UUID
	AccountType AccountType
	Kind        Kind
	UserID      string
	Currency    money.Currency
}

type ApproveAccount struct {
	ID       uuid.UUID
	LedgerID uuid.UUID
}

type Deposit struct {
	ID     uuid.UUID
	Amount money.Money
}

type Withdrawal struct {
	ID     uuid.UUID
	Amount money.Money
}

func (OpenAccount) isBankAccountCommand()    {}
func (ApproveAccount) isBankAccountCommand() {}
func (Deposit) isBankAccountCommand()        {}
func (Withdrawal) isBankAccountCommand()     {}

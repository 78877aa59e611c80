package bankaccount

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// HouseAccountRef is the minimal house-account information BankAccount
// command handling needs: which Ledger is the settlement counterparty for a
// given currency.
type HouseAccountRef struct {
	LedgerID uuid.UUID
}

// Services is the external-collaborator interface BankAccount command
// handling depends on. Per SPEC_FULL.md §9 this replaces the Rust source's
// trait-object Services parameter with an ordinary Go interface; a
// production implementation talks to the database and the Ledger aggregate
// runtime, a test implementation uses in-memory stubs.
type Services interface {
	// CheckDuplicateAccount reports whether a non-terminal BankAccount
	// already exists for (userID, currency, kind).
	CheckDuplicateAccount(ctx context.Context, userID string, currency money.Currency, kind Kind) (bool, error)

	// InitLedger synchronously bootstraps the child Ledger aggregate with
	// a zero balance. Called once, from ApproveAccount.
	InitLedger(ctx context.Context, ledgerID, accountID uuid.UUID, currency money.Currency) error

	// GetHouseAccount resolves the bank's own settlement side for a
	// currency.
	GetHouseAccount(ctx context.Context, currency money.Currency) (HouseAccountRef, error)

	// ValidateWithdrawal checks ledger.available >= amount at validation
	// time, returning apperr.ErrInsufficientFunds otherwise.
	ValidateWithdrawal(ctx context.Context, ledgerID uuid.UUID, amount money.Money) error

	// CreateDepositTransaction atomically writes Transaction+Journal+
	// Outbox (event_type "Credit") per SPEC_FULL.md §4.5.
	CreateDepositTransaction(ctx context.Context, accountID, ledgerID, houseLedgerID uuid.UUID, amount money.Money) (transactionID uuid.UUID, err error)

	// CreateWithdrawalTransaction atomically writes Transaction+Journal+
	// Outbox (event_type "Debit") per SPEC_FULL.md §4.5.
	CreateWithdrawalTransaction(ctx context.Context, accountID, ledgerID, houseLedgerID uuid.UUID, amount money.Money) (transactionID uuid.UUID, err error)

	// DebitHold synchronously reserves funds against the Ledger aggregate
	// (SPEC_FULL.md §4.4), dispatched from Withdrawal command handling.
	DebitHold(ctx context.Context, ledgerID, accountID, transactionID uuid.UUID, amount money.Money) error

	// FailTransaction marks a Transaction (and its outbox row) failed
	// when the synchronous DebitHold could not be applied, so no
	// Transaction is left dangling in "processing".
	FailTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// Handle implements aggregate.Root[Command, Event, Services].
func (s State) Handle(ctx context.Context, cmd Command, services Services) ([]Event, error) {
	switch c := cmd.(type) {
	case OpenAccount:
		return s.handleOpenAccount(ctx, c, services)
	case ApproveAccount:
		return s.handleApproveAccount(ctx, c, services)
	case Deposit:
		return s.handleDeposit(ctx, c, services)
	case Withdrawal:
		return s.handleWithdrawal(ctx, c, services)
	default:
		return nil, fmt.Errorf("%w: unknown bank account command %T", apperr.ErrValidation, cmd)
	}
}

func (s State) handleOpenAccount(ctx context.Context, c OpenAccount, services Services) ([]Event, error) {
	if s.Status != "" {
		return nil, fmt.Errorf("%w: account %s already exists", apperr.ErrValidation, c.ID)
	}
	duplicate, err := services.CheckDuplicateAccount(ctx, c.UserID, c.Currency, c.Kind)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, fmt.Errorf("%w: a non-terminal account already exists for user=%s currency=%s kind=%s", apperr.ErrValidation, c.UserID, c.Currency, c.Kind)
	}
	return []Event{AccountOpened{
		ID:          c.ID,
		AccountType: c.AccountType,
		Kind:        c.Kind,
		UserID:      c.UserID,
		Currency:    c.Currency,
	}}, nil
}

func (s State) handleApproveAccount(ctx context.Context, c ApproveAccount, services Services) ([]Event, error) {
	if s.Status != StatusPending {
		return nil, fmt.Errorf("%w: account %s is not pending (status=%s)", apperr.ErrValidation, s.ID, s.Status)
	}
	if err := services.InitLedger(ctx, c.LedgerID, c.ID, s.Currency); err != nil {
		return nil, err
	}
	return []Event{AccountKycApproved{ID: c.ID, LedgerID: c.LedgerID}}, nil
}

func (s State) handleDeposit(ctx context.Context, c Deposit, services Services) ([]Event, error) {
	if err := s.validateMoneyMovement(c.Amount); err != nil {
		return nil, err
	}
	house, err := services.GetHouseAccount(ctx, c.Amount.Currency)
	if err != nil {
		return nil, err
	}
	if _, err := services.CreateDepositTransaction(ctx, s.ID, s.LedgerID, house.LedgerID, c.Amount); err != nil {
		return nil, err
	}
	// No BankAccount events: money movement is the Ledger's concern.
	return nil, nil
}

func (s State) handleWithdrawal(ctx context.Context, c Withdrawal, services Services) ([]Event, error) {
	if err := s.validateMoneyMovement(c.Amount); err != nil {
		return nil, err
	}
	if err := services.ValidateWithdrawal(ctx, s.LedgerID, c.Amount); err != nil {
		return nil, err
	}
	house, err := services.GetHouseAccount(ctx, c.Amount.Currency)
	if err != nil {
		return nil, err
	}
	transactionID, err := services.CreateWithdrawalTransaction(ctx, s.ID, s.LedgerID, house.LedgerID, c.Amount)
	if err != nil {
		return nil, err
	}
	// DebitHold runs synchronously so available drops immediately,
	// matching SPEC_FULL.md §4.4: "DebitHold synchronously... DebitRelease
	// asynchronously". If the hold fails after the transaction was
	// written, the transaction must not be left dangling.
	if err := services.DebitHold(ctx, s.LedgerID, s.ID, transactionID, c.Amount); err != nil {
		if failErr := services.FailTransaction(ctx, transactionID); failErr != nil {
			return nil, fmt.Errorf("debit hold failed (%v) and so did fail-transaction: %w", err, failErr)
		}
		return nil, err
	}
	return nil, nil
}

func (s State) validateMoneyMovement(amount money.Money) error {
	if s.Status != StatusApproved {
		return fmt.Errorf("%w: account %s is not approved (status=%s)", apperr.ErrValidation, s.ID, s.Status)
	}
	if amount.Currency != s.Currency {
		return fmt.Errorf("%w: amount currency %s does not match account currency %s", apperr.ErrValidation, amount.Currency, s.Currency)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", apperr.ErrValidation, amount)
	}
	return nil
}

// Apply implements aggregate.Root[Command, Event, Services].
func (s *State) Apply(event Event) {
	switch e := event.(type) {
	case AccountOpened:
		s.ID = e.ID
		s.AccountType = e.AccountType
		s.Kind = e.Kind
		s.UserID = e.UserID
		s.Currency = e.Currency
		s.Status = StatusPending
		s.Timestamp = e.Timestamp
	case AccountKycApproved:
		s.ID = e.ID
		s.LedgerID = e.LedgerID
		s.Status = StatusApproved
		s.Timestamp = e.Timestamp
	}
}

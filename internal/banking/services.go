package banking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/houseaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/journal"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Services implements bankaccount.Services against a real database, the
// house account registry, the journal writer, and the Ledger aggregate
// runtime. It is the production wiring SPEC_FULL.md §9 calls for in place
// of the Rust source's trait-object Services.
type Services struct {
	DB            *pgxpool.Pool
	Houses        *houseaccount.Registry
	Writer        *journal.Writer
	LedgerRuntime *LedgerRuntime
}

var _ bankaccount.Services = (*Services)(nil)

// CheckDuplicateAccount queries the BankAccount view store directly (rather
// than replaying every BankAccount's events) since the view's JSONB payload
// already carries user_id/currency/kind/status for every account.
func (s *Services) CheckDuplicateAccount(ctx context.Context, userID string, currency money.Currency, kind bankaccount.Kind) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bank_account_views
			WHERE payload->>'UserID' = $1
			  AND payload->>'Currency' = $2
			  AND payload->>'Kind' = $3
			  AND payload->>'Status' NOT IN ('CustomerClosed', 'Terminated')
		)
	`, userID, string(currency), string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("banking: check duplicate account: %w", err)
	}
	return exists, nil
}

// InitLedger bootstraps the child Ledger aggregate with a zero balance by
// executing Init against the Ledger runtime.
func (s *Services) InitLedger(ctx context.Context, ledgerID, accountID uuid.UUID, currency money.Currency) error {
	_, _, err := s.LedgerRuntime.Execute(ctx, ledgerID, ledger.Init{
		ID:        ledgerID,
		AccountID: accountID,
		Amount:    money.Zero(currency),
	}, ledger.Services{})
	return err
}

func (s *Services) GetHouseAccount(ctx context.Context, currency money.Currency) (bankaccount.HouseAccountRef, error) {
	ha, err := s.Houses.Get(ctx, currency)
	if err != nil {
		return bankaccount.HouseAccountRef{}, err
	}
	return bankaccount.HouseAccountRef{LedgerID: ha.LedgerID}, nil
}

// ValidateWithdrawal loads the Ledger aggregate's current state (no
// snapshotting shortcut skipped: Load already folds the latest snapshot
// plus tail) and compares available funds against the requested amount.
func (s *Services) ValidateWithdrawal(ctx context.Context, ledgerID uuid.UUID, amount money.Money) error {
	st, _, err := s.LedgerRuntime.Load(ctx, ledgerID)
	if err != nil {
		return err
	}
	cmp, err := st.Available.Cmp(amount)
	if err != nil {
		return err
	}
	if cmp < 0 {
		return fmt.Errorf("%w: available=%s requested=%s", apperr.ErrInsufficientFunds, st.Available, amount)
	}
	return nil
}

func (s *Services) CreateDepositTransaction(ctx context.Context, accountID, ledgerID, houseLedgerID uuid.UUID, amount money.Money) (uuid.UUID, error) {
	return s.Writer.WriteDeposit(ctx, accountID, ledgerID, houseLedgerID, amount)
}

func (s *Services) CreateWithdrawalTransaction(ctx context.Context, accountID, ledgerID, houseLedgerID uuid.UUID, amount money.Money) (uuid.UUID, error) {
	return s.Writer.WriteWithdrawal(ctx, accountID, ledgerID, houseLedgerID, amount)
}

// DebitHold dispatches a synchronous DebitHold command against the Ledger
// aggregate (SPEC_FULL.md §4.4), reserving funds at withdrawal time.
func (s *Services) DebitHold(ctx context.Context, ledgerID, accountID, transactionID uuid.UUID, amount money.Money) error {
	_, _, err := s.LedgerRuntime.Execute(ctx, ledgerID, ledger.DebitHold{
		ID:            ledgerID,
		AccountID:     accountID,
		TransactionID: transactionID,
		Amount:        amount,
	}, ledger.Services{})
	return err
}

func (s *Services) FailTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return s.Writer.FailTransaction(ctx, transactionID)
}

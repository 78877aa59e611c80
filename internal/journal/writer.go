package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/idgen"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Writer atomically persists a Transaction, its JournalEntry and
// JournalLines, and an Outbox row (SPEC_FULL.md §4.5). It also exposes the
// finalization paths the outbox worker and BankAccount's synchronous
// DebitHold failure path need.
type Writer struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Writer {
	return &Writer{DB: db}
}

// WriteDeposit builds the deposit-side journal entry: the house account is
// debited, the user's ledger is credited (SPEC_FULL.md §4.5), and an
// OutboxCredit row is enqueued for the worker.
func (w *Writer) WriteDeposit(ctx context.Context, bankAccountID, accountLedgerID, houseLedgerID uuid.UUID, amount money.Money) (uuid.UUID, error) {
	return w.write(ctx, bankAccountID, accountLedgerID, houseLedgerID, amount, "DE", OutboxCredit, false)
}

// WriteWithdrawal builds the withdrawal-side journal entry: the house
// account is credited, the user's ledger is debited, and an OutboxDebit row
// is enqueued (consumed by the worker as DebitRelease, since DebitHold
// already ran synchronously).
func (w *Writer) WriteWithdrawal(ctx context.Context, bankAccountID, accountLedgerID, houseLedgerID uuid.UUID, amount money.Money) (uuid.UUID, error) {
	return w.write(ctx, bankAccountID, accountLedgerID, houseLedgerID, amount, "WI", OutboxDebit, true)
}

func (w *Writer) write(ctx context.Context, bankAccountID, accountLedgerID, houseLedgerID uuid.UUID, amount money.Money, refPrefix string, eventType OutboxEventType, userLineIsDebit bool) (uuid.UUID, error) {
	tx, err := w.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	entryID := uuid.New()
	txnID := uuid.New()
	houseLine := JournalLine{ID: uuid.New(), JournalEntryID: entryID, LedgerID: houseLedgerID}
	userLine := JournalLine{ID: uuid.New(), JournalEntryID: entryID, LedgerID: accountLedgerID}

	if userLineIsDebit {
		houseLine.Credit = amount
		houseLine.Debit = money.Zero(amount.Currency)
		userLine.Debit = amount
		userLine.Credit = money.Zero(amount.Currency)
	} else {
		houseLine.Debit = amount
		houseLine.Credit = money.Zero(amount.Currency)
		userLine.Credit = amount
		userLine.Debit = money.Zero(amount.Currency)
	}

	if err := validateBalanced([]JournalLine{houseLine, userLine}); err != nil {
		return uuid.Nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO journal_entries (id, status) VALUES ($1, $2)
	`, entryID, JournalEntryPosted); err != nil {
		return uuid.Nil, fmt.Errorf("journal: insert entry: %w", err)
	}

	for _, line := range []JournalLine{houseLine, userLine} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO journal_lines (id, journal_entry_id, ledger_id, debit_amount, debit_currency, credit_amount, credit_currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, line.ID, line.JournalEntryID, line.LedgerID, line.Debit.Amount, line.Debit.Currency, line.Credit.Amount, line.Credit.Currency); err != nil {
			return uuid.Nil, fmt.Errorf("journal: insert line: %w", err)
		}
	}

	reference := idgen.GenerateTransactionReference(refPrefix)
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, bank_account_id, reference, date, amount, currency, status, journal_entry_id)
		VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7)
	`, txnID, bankAccountID, reference, amount.Amount, amount.Currency, StatusProcessing, entryID); err != nil {
		return uuid.Nil, fmt.Errorf("journal: insert transaction: %w", err)
	}

	payload := OutboxPayload{
		LedgerID:      accountLedgerID,
		AccountID:     bankAccountID,
		TransactionID: txnID,
		Currency:      amount.Currency,
		Amount:        amount.Amount.String(),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("journal: marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO outbox (transaction_id, event_type, payload, processed)
		VALUES ($1, $2, $3, false)
	`, txnID, eventType, payloadJSON); err != nil {
		return uuid.Nil, fmt.Errorf("journal: insert outbox row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("journal: commit: %w", err)
	}
	return txnID, nil
}

// validateBalanced enforces SPEC_FULL.md §4.5: Σdebit == Σcredit per
// currency, failing the write with apperr.ErrUnbalancedJournal otherwise.
func validateBalanced(lines []JournalLine) error {
	totals := map[money.Currency]struct{ debit, credit decimal.Decimal }{}
	for _, l := range lines {
		if l.Debit.IsPositive() && l.Credit.IsPositive() {
			return fmt.Errorf("%w: journal line has both debit and credit set", apperr.ErrUnbalancedJournal)
		}
		t := totals[l.Debit.Currency]
		t.debit = t.debit.Add(l.Debit.Amount)
		t.credit = t.credit.Add(l.Credit.Amount)
		totals[l.Debit.Currency] = t
	}
	for currency, t := range totals {
		if !t.debit.Equal(t.credit) {
			return fmt.Errorf("%w: currency %s debits=%s credits=%s", apperr.ErrUnbalancedJournal, currency, t.debit, t.credit)
		}
	}
	return nil
}

// FailTransaction marks a Transaction failed and deletes its outbox row,
// used when a synchronous DebitHold could not be applied right after the
// transaction was written (SPEC_FULL.md §4.3/§7).
func (w *Writer) FailTransaction(ctx context.Context, transactionID uuid.UUID) error {
	tx, err := w.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("journal: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, StatusFailed, transactionID); err != nil {
		return fmt.Errorf("journal: fail transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM outbox WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("journal: delete outbox row: %w", err)
	}
	return tx.Commit(ctx)
}

// MarkCompleted marks both the outbox row processed and the transaction
// completed in one database transaction (SPEC_FULL.md §4.6 step 3),
// guaranteeing the idempotence invariant: a row is consumed exactly once
// because it is marked processed atomically with the settlement it records.
func (w *Writer) MarkCompleted(ctx context.Context, tx pgx.Tx, outboxID int64, transactionID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `UPDATE outbox SET processed = true, processed_at = NOW() WHERE id = $1`, outboxID); err != nil {
		return fmt.Errorf("journal: mark outbox processed: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, StatusCompleted, transactionID); err != nil {
		return fmt.Errorf("journal: mark transaction completed: %w", err)
	}
	return nil
}

// UnprocessedOutboxRows fetches up to limit unprocessed rows ordered by
// created_at (SPEC_FULL.md §4.6 step 2).
func (w *Writer) UnprocessedOutboxRows(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := w.DB.Query(ctx, `
		SELECT id, transaction_id, event_type, payload, processed, created_at, processed_at
		FROM outbox
		WHERE processed = false
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: unprocessed outbox rows: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		var payloadJSON []byte
		if err := rows.Scan(&row.ID, &row.TransactionID, &row.EventType, &payloadJSON, &row.Processed, &row.CreatedAt, &row.ProcessedAt); err != nil {
			return nil, fmt.Errorf("journal: scan outbox row: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &row.Payload); err != nil {
			return nil, fmt.Errorf("journal: unmarshal outbox payload: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// BeginTx exposes a raw transaction for the outbox worker's per-row
// settlement, which must mark the outbox row processed in the same
// transaction as the ledger append.
func (w *Writer) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return w.DB.BeginTx(ctx, pgx.TxOptions{})
}

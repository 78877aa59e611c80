// Package journal implements the Transaction + JournalEntry + JournalLines
// atomic writer from SPEC_FULL.md §4.5, grounded on the teacher's
// internal/ledger/service.go PostTransaction (BeginTx -> validate -> insert
// -> commit shape) with the teacher's River-enqueue replaced by a hand
// rolled outbox row insert in the same transaction, per SPEC_FULL.md §4.6.
package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

type TransactionStatus string

const (
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
)

type Transaction struct {
	ID             uuid.UUID
	BankAccountID  uuid.UUID
	Reference      string
	Date           time.Time
	Amount         money.Money
	Description    string
	Metadata       map[string]any
	Status         TransactionStatus
	JournalEntryID uuid.UUID
}

type JournalEntryStatus string

const JournalEntryPosted JournalEntryStatus = "posted"

type JournalEntry struct {
	ID     uuid.UUID
	Status JournalEntryStatus
}

type JournalLine struct {
	ID             uuid.UUID
	JournalEntryID uuid.UUID
	LedgerID       uuid.UUID
	Debit          money.Money
	Credit         money.Money
}

// OutboxEventType mirrors the stored ledger command the worker must issue:
// "Credit" settles a deposit, "Debit" settles a withdrawal's DebitRelease.
type OutboxEventType string

const (
	OutboxCredit OutboxEventType = "Credit"
	OutboxDebit  OutboxEventType = "Debit"
)

// OutboxPayload is the JSON-serialized ledger command embedded in an Outbox
// row (SPEC_FULL.md §3).
type OutboxPayload struct {
	LedgerID      uuid.UUID      `json:"ledger_id"`
	AccountID     uuid.UUID      `json:"account_id"`
	TransactionID uuid.UUID      `json:"transaction_id"`
	Currency      money.Currency `json:"currency"`
	Amount        string         `json:"amount"`
}

type OutboxRow struct {
	ID            int64
	TransactionID uuid.UUID
	EventType     OutboxEventType
	Payload       OutboxPayload
	Processed     bool
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// Package outbox implements the fixed-cadence worker from SPEC_FULL.md §4.6:
// acquire the distributed lock, fetch a batch of unprocessed outbox rows,
// dispatch each to the Ledger aggregate runtime, and mark it processed in
// the same transaction as the ledger append. Grounded on
// original_source/src/job.rs's process_event dispatch table, with the
// Rust source's single global worker loop replaced by an explicitly
// constructed *Worker per SPEC_FULL.md §9.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/ledgerkiro/ledgerkiro/internal/journal"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/lock"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
	"github.com/ledgerkiro/ledgerkiro/internal/webhook"
)

// LedgerRuntime is the subset of *banking.LedgerRuntime the worker needs,
// kept as an interface so tests can supply a stub without wiring a real
// database.
type LedgerRuntime interface {
	ExecuteAtomic(ctx context.Context, id uuid.UUID, cmd ledger.Command, services ledger.Services, txHook func(ctx context.Context, tx pgx.Tx) error) (*ledger.State, []ledger.Event, error)
}

// Worker polls the outbox table on a fixed tick, settling each row's ledger
// command (SPEC_FULL.md §4.6). Only one Worker across the fleet does work
// per tick: the others find the Redis lock already held and skip.
type Worker struct {
	Journal      *journal.Writer
	Lock         *lock.RedisLock
	Ledgers      LedgerRuntime
	River        *river.Client[pgx.Tx]
	Logger       *slog.Logger
	TickInterval time.Duration
	LockTTL      time.Duration
	BatchSize    int
}

const (
	defaultTickInterval = 2 * time.Second
	defaultBatchSize    = 50
)

// Run blocks, ticking until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.TickInterval
	if interval == 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				w.Logger.Error("outbox tick failed", "error", err)
			}
		}
	}
}

func (w *Worker) tick(ctx context.Context) error {
	ttl := w.LockTTL
	if ttl == 0 {
		ttl = lock.DefaultTTL
	}
	token, acquired, err := w.Lock.Acquire(ctx, lock.OutboxLockKey, ttl)
	if err != nil {
		return fmt.Errorf("outbox: acquire lock: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := w.Lock.Release(ctx, lock.OutboxLockKey, token); err != nil {
			w.Logger.Error("outbox: release lock failed", "error", err)
		}
	}()

	batchSize := w.BatchSize
	if batchSize == 0 {
		batchSize = defaultBatchSize
	}
	rows, err := w.Journal.UnprocessedOutboxRows(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("outbox: fetch rows: %w", err)
	}

	for _, row := range rows {
		if err := w.settle(ctx, row); err != nil {
			w.Logger.Error("outbox: settle row failed", "outbox_id", row.ID, "transaction_id", row.TransactionID, "error", err)
		}
	}
	return nil
}

// settle dispatches one outbox row's embedded ledger command and marks the
// row processed atomically with the ledger event append (SPEC_FULL.md §4.6
// step 3), via ExecuteAtomic's txHook.
func (w *Worker) settle(ctx context.Context, row journal.OutboxRow) error {
	cmd, err := commandFor(row)
	if err != nil {
		return err
	}

	markProcessed := func(ctx context.Context, tx pgx.Tx) error {
		if err := w.Journal.MarkCompleted(ctx, tx, row.ID, row.TransactionID); err != nil {
			return err
		}
		// Enqueue the webhook delivery in the same transaction as the
		// ledger settlement, so a crash between the two never leaves a
		// settled transaction with no delivery attempt queued.
		_, err := w.River.InsertTx(ctx, tx, webhook.WebhookArgs{
			TransactionID: row.TransactionID.String(),
		}, nil)
		return err
	}

	_, _, err = w.Ledgers.ExecuteAtomic(ctx, row.Payload.LedgerID, cmd, ledger.Services{}, markProcessed)
	return err
}

// commandFor rebuilds the ledger.Command the outbox row was written for:
// "Credit" settles a deposit, "Debit" settles a withdrawal's held amount
// (DebitRelease), per SPEC_FULL.md §4.4's resolution of the sync-hold/
// async-release split.
func commandFor(row journal.OutboxRow) (ledger.Command, error) {
	amount, err := money.Parse(row.Payload.Amount, row.Payload.Currency)
	if err != nil {
		return nil, fmt.Errorf("outbox: parse amount: %w", err)
	}
	switch row.EventType {
	case journal.OutboxCredit:
		return ledger.Credit{
			ID:            row.Payload.LedgerID,
			AccountID:     row.Payload.AccountID,
			TransactionID: row.Payload.TransactionID,
			Amount:        amount,
		}, nil
	case journal.OutboxDebit:
		return ledger.DebitRelease{
			ID:            row.Payload.LedgerID,
			AccountID:     row.Payload.AccountID,
			TransactionID: row.Payload.TransactionID,
			Amount:        amount,
		}, nil
	default:
		return nil, fmt.Errorf("outbox: unknown event type %q", row.EventType)
	}
}

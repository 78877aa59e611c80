// Package apperr declares the sentinel error kinds surfaced across the
// ledger core (SPEC_FULL.md §7), following the sentinel-error-vars idiom
// used throughout the pack (e.g. anthonyalando8-pxyz's
// shared/utils/errors/x.errors.go) rather than a bespoke error-code enum.
package apperr

import "errors"

var (
	// ErrValidation: precondition failed (bad status, wrong currency,
	// duplicate account, amount<=0). Not retried.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds: ledger.available < amount at withdrawal
	// validation time. Not retried.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnbalancedJournal: sum(debit) != sum(credit) for a journal entry.
	// Internal invariant violation, fatal for the command.
	ErrUnbalancedJournal = errors.New("unbalanced journal entry")

	// ErrStorageUnavailable: database or cache unreachable.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLedgerWriteFailed: the asynchronous ledger command failed after
	// the Transaction was already persisted. The outbox worker retries;
	// operators may eventually compensate.
	ErrLedgerWriteFailed = errors.New("ledger write failed")

	// ErrOverloaded: the command dispatcher's channel is full.
	ErrOverloaded = errors.New("dispatcher overloaded")

	// ErrNotFound: no aggregate/view exists for the requested id.
	ErrNotFound = errors.New("not found")
)

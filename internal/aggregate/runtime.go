// Package aggregate implements the generic load/handle/append/apply/project
// cycle from SPEC_FULL.md §4.2. The Rust source dispatches through a trait
// object (cqrs_es::Aggregate); per SPEC_FULL.md §9's redesign note, that
// becomes a plain Go generic interface here, with external collaborators
// passed as an ordinary interface value rather than a trait object.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkiro/ledgerkiro/internal/eventstore"
)

// Root is implemented by each concrete aggregate state type (BankAccount,
// Ledger). Services is whatever external-collaborator interface that
// aggregate's command handling needs (house-account lookups, the
// transaction+journal writer, ...).
type Root[C any, E any, Services any] interface {
	// Handle validates a command against current state and returns the
	// events it produces, or an error. It must not mutate the receiver.
	Handle(ctx context.Context, cmd C, services Services) ([]E, error)
	// Apply mutates the receiver to reflect one event. It never rejects;
	// all validation happens in Handle.
	Apply(event E)
}

// EventCodec translates between the typed event E and the wire Envelope
// used by the event store. Kept separate from Root so aggregate state types
// stay free of encoding concerns.
type EventCodec[E any] interface {
	Encode(e E) (eventType string, payload json.RawMessage, err error)
	Decode(eventType string, payload json.RawMessage) (E, error)
}

// Projector receives every newly appended event, in per-aggregate order,
// after the append transaction has committed. Errors are logged by the
// runtime and never roll back the append (SPEC_FULL.md §4.2 step 4).
type Projector[E any] interface {
	Project(ctx context.Context, aggregateID uuid.UUID, e E) error
}

// Runtime wires a Store to a zero-value constructor for the aggregate state
// and drives the handle/append/apply cycle, retrying on concurrency
// conflicts up to MaxRetries times (recommended 3, per SPEC_FULL.md §4.2).
type Runtime[S Root[C, E, Services], C any, E any, Services any] struct {
	DB         *pgxpool.Pool
	Store      *eventstore.Store
	Codec      EventCodec[E]
	New        func() S
	Projectors []Projector[E]
	MaxRetries int
	OnProjectorError func(err error)
}

const defaultMaxRetries = 3

// Load rebuilds state from the latest snapshot plus tail events, or from
// scratch if the aggregate has no events yet. Returns the rebuilt state and
// its current sequence.
func (rt *Runtime[S, C, E, Services]) Load(ctx context.Context, id uuid.UUID) (S, int, error) {
	snap, events, err := rt.Store.LoadLatestSnapshot(ctx, id)
	if err != nil {
		var zero S
		return zero, 0, err
	}

	state := rt.New()
	seq := 0
	if snap != nil {
		if err := json.Unmarshal(snap.State, &state); err != nil {
			var zero S
			return zero, 0, fmt.Errorf("aggregate: unmarshal snapshot: %w", err)
		}
		seq = snap.Sequence
	}
	for _, env := range events {
		e, err := rt.Codec.Decode(env.EventType, env.Payload)
		if err != nil {
			var zero S
			return zero, 0, fmt.Errorf("aggregate: decode event: %w", err)
		}
		state.Apply(e)
		seq = env.Sequence
	}
	return state, seq, nil
}

// Execute loads current state, calls Handle, appends and applies the
// resulting events, then fans them out to projectors. It retries from the
// top on ErrConcurrencyConflict.
func (rt *Runtime[S, C, E, Services]) Execute(ctx context.Context, id uuid.UUID, cmd C, services Services) (S, []E, error) {
	return rt.ExecuteAtomic(ctx, id, cmd, services, nil)
}

// ExecuteAtomic behaves like Execute, but when txHook is non-nil it runs
// inside the same database transaction as the event append, right before
// commit. The outbox worker uses this to mark an outbox row processed
// atomically with the Ledger event it settles (SPEC_FULL.md §4.6 step 3):
// either both the append and the mark-processed land, or neither does, so a
// row is never left processed without its ledger effect (or vice versa).
func (rt *Runtime[S, C, E, Services]) ExecuteAtomic(ctx context.Context, id uuid.UUID, cmd C, services Services, txHook func(ctx context.Context, tx pgx.Tx) error) (S, []E, error) {
	maxRetries := rt.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		state, seq, err := rt.Load(ctx, id)
		if err != nil {
			var zero S
			return zero, nil, err
		}

		events, err := state.Handle(ctx, cmd, services)
		if err != nil {
			var zero S
			return zero, nil, err
		}
		if len(events) == 0 {
			if txHook != nil {
				if err := rt.runTxHookOnly(ctx, txHook); err != nil {
					return state, nil, err
				}
			}
			return state, nil, nil
		}

		err = rt.appendAndApply(ctx, id, seq, &state, events, txHook)
		if err == nil {
			rt.fanOut(ctx, id, events)
			return state, events, nil
		}
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			lastErr = err
			continue
		}
		var zero S
		return zero, nil, err
	}
	var zero S
	return zero, nil, fmt.Errorf("aggregate: %w after %d retries", lastErr, maxRetries)
}

func (rt *Runtime[S, C, E, Services]) runTxHookOnly(ctx context.Context, txHook func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := rt.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("aggregate: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := txHook(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (rt *Runtime[S, C, E, Services]) appendAndApply(ctx context.Context, id uuid.UUID, seq int, state *S, events []E, txHook func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := rt.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("aggregate: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	envelopes := make([]eventstore.Envelope, 0, len(events))
	for _, e := range events {
		eventType, payload, err := rt.Codec.Encode(e)
		if err != nil {
			return fmt.Errorf("aggregate: encode event: %w", err)
		}
		envelopes = append(envelopes, eventstore.Envelope{AggregateID: id, EventType: eventType, Payload: payload})
	}

	if err := rt.Store.Append(ctx, tx, id, seq, envelopes); err != nil {
		return err
	}
	if txHook != nil {
		if err := txHook(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("aggregate: commit: %w", err)
	}

	for _, e := range events {
		(*state).Apply(e)
	}
	return nil
}

func (rt *Runtime[S, C, E, Services]) fanOut(ctx context.Context, id uuid.UUID, events []E) {
	for _, p := range rt.Projectors {
		for _, e := range events {
			if err := p.Project(ctx, id, e); err != nil && rt.OnProjectorError != nil {
				rt.OnProjectorError(err)
			}
		}
	}
}

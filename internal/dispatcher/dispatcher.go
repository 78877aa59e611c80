// Package dispatcher implements the single-writer command channel from
// SPEC_FULL.md §4.7: HTTP handlers never call an aggregate runtime
// directly, they hand a command to a bounded channel that one goroutine
// drains into the runtime, serializing writes per process and returning
// Overloaded instead of blocking once the channel is full.
package dispatcher

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
)

// Execute is whatever the dispatcher drains into: an aggregate runtime's
// Execute method with its Services argument already bound by closure.
type Execute[C any, S any] func(ctx context.Context, id uuid.UUID, cmd C) (S, error)

type request[C any, S any] struct {
	ctx   context.Context
	id    uuid.UUID
	cmd   C
	reply chan result[S]
}

type result[S any] struct {
	state S
	err   error
}

// Dispatcher serializes commands of type C against aggregates that produce
// state S, per SPEC_FULL.md §4.7. One Dispatcher exists per aggregate type
// (BankAccount, Ledger); each wraps its own runtime's Execute via closure.
type Dispatcher[C any, S any] struct {
	execute Execute[C, S]
	reqs    chan request[C, S]
}

// New builds a Dispatcher with the given channel capacity. Run must be
// started in its own goroutine before Dispatch is called.
func New[C any, S any](capacity int, execute Execute[C, S]) *Dispatcher[C, S] {
	return &Dispatcher[C, S]{
		execute: execute,
		reqs:    make(chan request[C, S], capacity),
	}
}

// Run drains the dispatcher's channel until ctx is canceled. Exactly one
// goroutine should call Run for a given Dispatcher.
func (d *Dispatcher[C, S]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.reqs:
			state, err := d.execute(req.ctx, req.id, req.cmd)
			req.reply <- result[S]{state: state, err: err}
		}
	}
}

// Dispatch enqueues cmd and blocks for its result. It fails fast with
// apperr.ErrOverloaded rather than blocking the caller when the channel is
// already full (SPEC_FULL.md §4.7's bounded-backpressure requirement).
func (d *Dispatcher[C, S]) Dispatch(ctx context.Context, id uuid.UUID, cmd C) (S, error) {
	reply := make(chan result[S], 1)
	req := request[C, S]{ctx: ctx, id: id, cmd: cmd, reply: reply}

	select {
	case d.reqs <- req:
	default:
		var zero S
		return zero, apperr.ErrOverloaded
	}

	select {
	case res := <-reply:
		return res.state, res.err
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}

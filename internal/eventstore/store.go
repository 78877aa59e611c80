// Package eventstore implements the append-only per-aggregate event log
// described in SPEC_FULL.md §4.1: monotonic per-aggregate sequence, optimistic
// concurrency on append, and optional snapshotting. One Store instance is
// configured per aggregate family (BankAccount, Ledger) by pointing it at a
// different pair of tables.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConcurrencyConflict is returned by Append when the caller's
// expectedSequence no longer matches the stored max sequence for the
// aggregate.
var ErrConcurrencyConflict = errors.New("eventstore: concurrency conflict")

// Envelope is one persisted event: a sequence number, a typed payload, and
// free-form metadata, per SPEC_FULL.md §3's "Event envelope".
type Envelope struct {
	AggregateID uuid.UUID
	Sequence    int
	EventType   string
	Payload     json.RawMessage
	Metadata    json.RawMessage
}

// Snapshot is a point-in-time serialized aggregate state plus the sequence
// it was taken at; events with Sequence > Snapshot.Sequence must still be
// replayed on top of it.
type Snapshot struct {
	AggregateID uuid.UUID
	Sequence    int
	State       json.RawMessage
}

// Store is backed by two relational tables: <table>_events and
// <table>_snapshots, matching SPEC_FULL.md §6's persisted layout.
type Store struct {
	DB            *pgxpool.Pool
	EventsTable    string
	SnapshotsTable string
}

func New(db *pgxpool.Pool, aggregateTable string) *Store {
	return &Store{
		DB:             db,
		EventsTable:    aggregateTable + "_events",
		SnapshotsTable: aggregateTable + "_snapshots",
	}
}

// Load returns every event for the aggregate, ordered by sequence.
func (s *Store) Load(ctx context.Context, aggregateID uuid.UUID) ([]Envelope, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
		SELECT aggregate_id, sequence, event_type, payload, metadata
		FROM %s
		WHERE aggregate_id = $1
		ORDER BY sequence ASC
	`, s.EventsTable), aggregateID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: load: %w", err)
	}
	defer rows.Close()
	return scanEnvelopes(rows)
}

// LoadLatestSnapshot returns the most recent snapshot (if any) plus the
// events appended after it, so callers never replay more than necessary.
func (s *Store) LoadLatestSnapshot(ctx context.Context, aggregateID uuid.UUID) (*Snapshot, []Envelope, error) {
	var snap Snapshot
	err := s.DB.QueryRow(ctx, fmt.Sprintf(`
		SELECT aggregate_id, sequence, state
		FROM %s
		WHERE aggregate_id = $1
		ORDER BY sequence DESC
		LIMIT 1
	`, s.SnapshotsTable), aggregateID).Scan(&snap.AggregateID, &snap.Sequence, &snap.State)

	sinceSeq := 0
	var snapPtr *Snapshot
	switch {
	case err == nil:
		snapPtr = &snap
		sinceSeq = snap.Sequence
	case errors.Is(err, pgx.ErrNoRows):
		snapPtr = nil
	default:
		return nil, nil, fmt.Errorf("eventstore: load snapshot: %w", err)
	}

	rows, err := s.DB.Query(ctx, fmt.Sprintf(`
		SELECT aggregate_id, sequence, event_type, payload, metadata
		FROM %s
		WHERE aggregate_id = $1 AND sequence > $2
		ORDER BY sequence ASC
	`, s.EventsTable), aggregateID, sinceSeq)
	if err != nil {
		return nil, nil, fmt.Errorf("eventstore: load tail: %w", err)
	}
	defer rows.Close()

	events, err := scanEnvelopes(rows)
	if err != nil {
		return nil, nil, err
	}
	return snapPtr, events, nil
}

// CurrentSequence returns the highest persisted sequence for the aggregate,
// or 0 if it has no events yet.
func (s *Store) CurrentSequence(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT COALESCE(MAX(sequence), 0) FROM %s WHERE aggregate_id = $1
	`, s.EventsTable), aggregateID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("eventstore: current sequence: %w", err)
	}
	return seq, nil
}

// Append atomically inserts events starting at expectedSequence+1. If the
// current max sequence doesn't match expectedSequence, it fails with
// ErrConcurrencyConflict and inserts nothing. Must be called within a tx that
// the caller commits (so a multi-event command never appears partially).
func (s *Store) Append(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID, expectedSequence int, events []Envelope) error {
	if len(events) == 0 {
		return nil
	}

	current, err := s.CurrentSequence(ctx, tx, aggregateID)
	if err != nil {
		return err
	}
	if current != expectedSequence {
		return fmt.Errorf("%w: aggregate %s expected %d, got %d", ErrConcurrencyConflict, aggregateID, expectedSequence, current)
	}

	batch := &pgx.Batch{}
	seq := expectedSequence
	for _, e := range events {
		seq++
		metadata := e.Metadata
		if metadata == nil {
			metadata = json.RawMessage(`{}`)
		}
		batch.Queue(fmt.Sprintf(`
			INSERT INTO %s (aggregate_id, sequence, event_type, payload, metadata)
			VALUES ($1, $2, $3, $4, $5)
		`, s.EventsTable), aggregateID, seq, e.EventType, e.Payload, metadata)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("eventstore: append: %w", err)
		}
	}
	return nil
}

// SaveSnapshot upserts the aggregate's serialized state at a given sequence.
func (s *Store) SaveSnapshot(ctx context.Context, tx pgx.Tx, aggregateID uuid.UUID, state json.RawMessage, sequence int) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (aggregate_id, sequence, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (aggregate_id) DO UPDATE SET sequence = EXCLUDED.sequence, state = EXCLUDED.state
	`, s.SnapshotsTable), aggregateID, sequence, state)
	if err != nil {
		return fmt.Errorf("eventstore: save snapshot: %w", err)
	}
	return nil
}

func scanEnvelopes(rows pgx.Rows) ([]Envelope, error) {
	var out []Envelope
	for rows.Next() {
		var e Envelope
		if err := rows.Scan(&e.AggregateID, &e.Sequence, &e.EventType, &e.Payload, &e.Metadata); err != nil {
			return nil, fmt.Errorf("eventstore: scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return out, nil
}

// Package view implements the upsertable key->view projection store from
// SPEC_FULL.md §4.8/§6: one JSON payload per aggregate id, kept eventually
// consistent by the projectors in package projector.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
)

type Store struct {
	DB    *pgxpool.Pool
	Table string // "bank_account_views" | "ledger_views"
}

func New(db *pgxpool.Pool, table string) *Store {
	return &Store{DB: db, Table: table}
}

func (s *Store) Upsert(ctx context.Context, viewID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("view: marshal: %w", err)
	}
	_, err = s.DB.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (view_id, payload) VALUES ($1, $2)
		ON CONFLICT (view_id) DO UPDATE SET payload = EXCLUDED.payload
	`, s.Table), viewID, data)
	if err != nil {
		return fmt.Errorf("view: upsert: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, viewID uuid.UUID, out any) error {
	var data []byte
	err := s.DB.QueryRow(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE view_id = $1`, s.Table), viewID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("view: get: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("view: unmarshal: %w", err)
	}
	return nil
}

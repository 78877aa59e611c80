// Package houseaccount implements the per-currency "bank's own side" of
// double-entry, per SPEC_FULL.md §3/§4.3. Grounded on
// original_source/src/house_account.rs and the teacher's repository-style
// pgx data access.
package houseaccount

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

type HouseAccount struct {
	ID            uuid.UUID
	AccountNumber string
	AccountName   string
	AccountType   bankaccount.AccountType
	LedgerID      uuid.UUID
	Currency      money.Currency
	Status        Status
}

type Registry struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Registry {
	return &Registry{DB: db}
}

// Get returns the single active house account for a currency, the
// settlement counterparty for every deposit/withdrawal in that currency.
func (r *Registry) Get(ctx context.Context, currency money.Currency) (HouseAccount, error) {
	var ha HouseAccount
	err := r.DB.QueryRow(ctx, `
		SELECT id, account_number, account_name, account_type, ledger_id, currency, status
		FROM house_accounts
		WHERE currency = $1 AND status = 'Active'
		LIMIT 1
	`, currency).Scan(&ha.ID, &ha.AccountNumber, &ha.AccountName, &ha.AccountType, &ha.LedgerID, &ha.Currency, &ha.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return HouseAccount{}, fmt.Errorf("%w: no active house account for currency %s", apperr.ErrValidation, currency)
		}
		return HouseAccount{}, fmt.Errorf("houseaccount: get: %w", err)
	}
	return ha, nil
}

// List returns every house account, optionally filtered by currency (used
// by GET /v1/house_account?currency=USD).
func (r *Registry) List(ctx context.Context, currency money.Currency) ([]HouseAccount, error) {
	query := `SELECT id, account_number, account_name, account_type, ledger_id, currency, status FROM house_accounts`
	args := []any{}
	if currency != "" {
		query += ` WHERE currency = $1`
		args = append(args, currency)
	}
	query += ` ORDER BY currency`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("houseaccount: list: %w", err)
	}
	defer rows.Close()

	var out []HouseAccount
	for rows.Next() {
		var ha HouseAccount
		if err := rows.Scan(&ha.ID, &ha.AccountNumber, &ha.AccountName, &ha.AccountType, &ha.LedgerID, &ha.Currency, &ha.Status); err != nil {
			return nil, fmt.Errorf("houseaccount: scan: %w", err)
		}
		out = append(out, ha)
	}
	return out, rows.Err()
}

// Create registers a new house account for a currency, linked to ledgerID,
// and assigns it a random 10-digit account number. It does not bootstrap the
// Ledger itself: callers (HouseAccountHandler.Create) run ledger.Init for
// ledgerID first.
func (r *Registry) Create(ctx context.Context, name string, currency money.Currency, ledgerID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	accountNumber := generateAccountNumber()

	_, err := r.DB.Exec(ctx, `
		INSERT INTO house_accounts (id, account_number, account_name, account_type, ledger_id, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, accountNumber, name, bankaccount.House, ledgerID, currency, StatusActive)
	if err != nil {
		return uuid.Nil, fmt.Errorf("houseaccount: create: %w", err)
	}
	return id, nil
}

func generateAccountNumber() string {
	digits := make([]byte, 10)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}

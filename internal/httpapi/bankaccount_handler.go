// Package httpapi exposes the HTTP surface from SPEC_FULL.md §6: one
// command endpoint over the BankAccount aggregate, plus query endpoints
// over the BankAccount/Ledger views and the house-account registry.
// Routed on a bare net/http.ServeMux with method+path patterns (see NewMux)
// rather than a router dependency, per SPEC_FULL.md §6's "no new
// dependency" decision.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/apperr"
	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/dispatcher"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
	"github.com/ledgerkiro/ledgerkiro/internal/projector"
)

// BankAccountHandler implements POST /v1/bank_account and
// GET /v1/bank_account/:id.
type BankAccountHandler struct {
	Dispatch *dispatcher.Dispatcher[bankaccount.Command, *bankaccount.State]
	Views    ViewLoader
}

// ViewLoader is the subset of *view.Store a query handler needs, kept as an
// interface so handlers can be tested without a real database.
type ViewLoader interface {
	Get(ctx context.Context, viewID uuid.UUID, out any) error
}

// bankAccountCommandRequest mirrors spec.md §6's tagged-union request body:
// exactly one of these fields is set per request.
type bankAccountCommandRequest struct {
	OpenAccount    *openAccountBody    `json:"OpenAccount,omitempty"`
	ApproveAccount *approveAccountBody `json:"ApproveAccount,omitempty"`
	Deposit        *depositBody        `json:"Deposit,omitempty"`
	Withdrawal     *withdrawalBody     `json:"Withdrawal,omitempty"`
}

type openAccountBody struct {
	AccountType bankaccount.AccountType `json:"account_type"`
	Kind        bankaccount.Kind        `json:"kind"`
	UserID      string                  `json:"user_id"`
	Currency    money.Currency          `json:"currency"`
}

type approveAccountBody struct {
	ID string `json:"id"`
}

type depositBody struct {
	ID     string      `json:"id"`
	Amount money.Money `json:"amount"`
}

type withdrawalBody struct {
	ID     string      `json:"id"`
	Amount money.Money `json:"amount"`
}

// PostCommand handles POST /v1/bank_account. OpenAccount.id and
// ApproveAccount.ledger_id are always server-generated (spec.md §6), never
// taken from the request body.
func (h *BankAccountHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req bankAccountCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch {
	case req.OpenAccount != nil:
		id := uuid.New()
		cmd := bankaccount.OpenAccount{
			ID:          id,
			AccountType: req.OpenAccount.AccountType,
			Kind:        req.OpenAccount.Kind,
			UserID:      req.OpenAccount.UserID,
			Currency:    req.OpenAccount.Currency,
		}
		h.dispatchAndRespond(w, r, id, cmd, http.StatusCreated)

	case req.ApproveAccount != nil:
		id, err := uuid.Parse(req.ApproveAccount.ID)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		cmd := bankaccount.ApproveAccount{ID: id, LedgerID: uuid.New()}
		h.dispatchAndRespond(w, r, id, cmd, http.StatusOK)

	case req.Deposit != nil:
		id, err := uuid.Parse(req.Deposit.ID)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		cmd := bankaccount.Deposit{ID: id, Amount: req.Deposit.Amount}
		h.dispatchAndRespond(w, r, id, cmd, http.StatusOK)

	case req.Withdrawal != nil:
		id, err := uuid.Parse(req.Withdrawal.ID)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		cmd := bankaccount.Withdrawal{ID: id, Amount: req.Withdrawal.Amount}
		h.dispatchAndRespond(w, r, id, cmd, http.StatusOK)

	default:
		http.Error(w, "request must set exactly one of OpenAccount/ApproveAccount/Deposit/Withdrawal", http.StatusBadRequest)
	}
}

func (h *BankAccountHandler) dispatchAndRespond(w http.ResponseWriter, r *http.Request, id uuid.UUID, cmd bankaccount.Command, successStatus int) {
	_, err := h.Dispatch.Dispatch(r.Context(), id, cmd)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(successStatus)
	json.NewEncoder(w).Encode(map[string]string{"id": id.String()})
}

// GetByID handles GET /v1/bank_account/:id.
func (h *BankAccountHandler) GetByID(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var out projector.BankAccountView
	err := h.Views.Get(r.Context(), id, &out)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrOverloaded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

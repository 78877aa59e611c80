package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/dispatcher"
	"github.com/ledgerkiro/ledgerkiro/internal/houseaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// HouseAccountHandler implements GET/POST /v1/house_account, mirroring
// original_source/src/route.rs's house_account_create_handler: creating a
// house account always bootstraps a fresh zero-balance Ledger for it first.
type HouseAccountHandler struct {
	Registry       *houseaccount.Registry
	LedgerDispatch *dispatcher.Dispatcher[ledger.Command, *ledger.State]
}

type houseAccountListResponse struct {
	Entries []houseaccount.HouseAccount `json:"entries"`
}

// List handles GET /v1/house_account?currency=USD.
func (h *HouseAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	currency := money.Currency(r.URL.Query().Get("currency"))
	entries, err := h.Registry.List(r.Context(), currency)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if entries == nil {
		entries = []houseaccount.HouseAccount{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(houseAccountListResponse{Entries: entries})
}

type createHouseAccountRequest struct {
	AccountName string         `json:"account_name"`
	Currency    money.Currency `json:"currency"`
}

// Create handles POST /v1/house_account. id, account_number, and ledger_id
// are always server-generated, never taken from the request body.
func (h *HouseAccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHouseAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.AccountName == "" || req.Currency == "" {
		http.Error(w, "account_name and currency are required", http.StatusBadRequest)
		return
	}

	ledgerID := uuid.New()
	initCmd := ledger.Init{
		ID:        ledgerID,
		AccountID: uuid.Nil,
		Amount:    money.Zero(req.Currency),
	}
	if _, err := h.LedgerDispatch.Dispatch(r.Context(), ledgerID, initCmd); err != nil {
		writeCommandError(w, err)
		return
	}

	id, err := h.Registry.Create(r.Context(), req.AccountName, req.Currency, ledgerID)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id.String()})
}

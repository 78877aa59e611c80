package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/projector"
)

// LedgerHandler implements GET /v1/ledger/:id. The Ledger aggregate has no
// client-facing command endpoint of its own: Init/Credit/DebitHold/
// DebitRelease are only ever dispatched internally, by BankAccountHandler
// (through banking.Services), HouseAccountHandler (Init) and the outbox
// worker.
type LedgerHandler struct {
	Views ViewLoader
}

func (h *LedgerHandler) GetByID(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var out projector.LedgerView
	if err := h.Views.Get(r.Context(), id, &out); err != nil {
		writeQueryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

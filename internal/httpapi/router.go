package httpapi

import (
	"net/http"

	"github.com/google/uuid"
)

// NewMux builds the full /v1 surface from spec.md §6 on a bare
// net/http.ServeMux (SPEC_FULL.md §6: no router dependency), using Go's
// method+path-pattern ServeMux syntax introduced in 1.22 rather than the
// teacher's query-param disambiguation, since the spec's routes carry their
// id as a path segment rather than a query parameter.
func NewMux(bankAccounts *BankAccountHandler, ledgers *LedgerHandler, houses *HouseAccountHandler, authWrap func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("POST /v1/bank_account", authWrap(http.HandlerFunc(bankAccounts.PostCommand)))
	mux.Handle("GET /v1/bank_account/{id}", authWrap(http.HandlerFunc(withIDParam(bankAccounts.GetByID))))
	mux.Handle("GET /v1/ledger/{id}", authWrap(http.HandlerFunc(withIDParam(ledgers.GetByID))))
	mux.Handle("GET /v1/house_account", authWrap(http.HandlerFunc(houses.List)))
	mux.Handle("POST /v1/house_account", authWrap(http.HandlerFunc(houses.Create)))

	return mux
}

func withIDParam(handler func(w http.ResponseWriter, r *http.Request, id uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		handler(w, r, id)
	}
}

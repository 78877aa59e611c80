// Package banking wires the BankAccount and Ledger aggregate runtimes
// together into the concrete bankaccount.Services implementation, and
// exposes the two aggregate.Runtime instances shared by cmd/api and
// cmd/worker (SPEC_FULL.md §9: explicitly constructed handles, no hidden
// globals, replacing the Rust source's process-wide ApplicationState).
package banking

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkiro/ledgerkiro/internal/aggregate"
	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/eventstore"
	"github.com/ledgerkiro/ledgerkiro/internal/houseaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/idgen"
	"github.com/ledgerkiro/ledgerkiro/internal/journal"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/projector"
	"github.com/ledgerkiro/ledgerkiro/internal/view"
)

type BankAccountRuntime = aggregate.Runtime[*bankaccount.State, bankaccount.Command, bankaccount.Event, bankaccount.Services]
type LedgerRuntime = aggregate.Runtime[*ledger.State, ledger.Command, ledger.Event, ledger.Services]

// System bundles every handle an HTTP handler or the outbox worker needs:
// the two aggregate runtimes, the two view stores, the house-account
// registry, the journal writer and a snowflake id generator (transaction
// references are produced by idgen.GenerateTransactionReference, not by it).
type System struct {
	BankAccounts     *BankAccountRuntime
	Ledgers          *LedgerRuntime
	BankAccountViews *view.Store
	LedgerViews      *view.Store
	Houses           *houseaccount.Registry
	Journal          *journal.Writer
	IDs              *idgen.Snowflake
	services         bankaccount.Services
}

// New constructs a System with projectors wired to update views inline as
// events are appended (SPEC_FULL.md §4.2 step 4 / §4.8), and the BankAccount
// runtime's Services backed by the Ledger runtime so Deposit/Withdrawal can
// reach house accounts, validate balances, and (for withdrawals) dispatch a
// synchronous DebitHold.
func New(db *pgxpool.Pool, logger *slog.Logger, snowflakeNodeID int64) (*System, error) {
	bankAccountViews := view.New(db, "bank_account_views")
	ledgerViews := view.New(db, "ledger_views")

	onProjectorError := func(err error) {
		logger.Error("projector failed", "error", err)
	}

	ledgerRuntime := &LedgerRuntime{
		DB:    db,
		Store: eventstore.New(db, "ledger"),
		Codec: ledger.Codec{},
		New:   func() *ledger.State { return &ledger.State{} },
		Projectors: []aggregate.Projector[ledger.Event]{
			&projector.LedgerProjector{Store: ledgerViews, Logger: logger},
		},
		OnProjectorError: onProjectorError,
	}

	houses := houseaccount.New(db)
	writer := journal.New(db)

	ids, err := idgen.NewSnowflake(snowflakeNodeID)
	if err != nil {
		return nil, err
	}

	services := &Services{
		DB:            db,
		Houses:        houses,
		Writer:        writer,
		LedgerRuntime: ledgerRuntime,
	}

	bankAccountRuntime := &BankAccountRuntime{
		DB:    db,
		Store: eventstore.New(db, "bank_account"),
		Codec: bankaccount.Codec{},
		New:   func() *bankaccount.State { return &bankaccount.State{} },
		Projectors: []aggregate.Projector[bankaccount.Event]{
			&projector.BankAccountProjector{Store: bankAccountViews, Logger: logger},
		},
		OnProjectorError: onProjectorError,
	}

	return &System{
		BankAccounts:     bankAccountRuntime,
		Ledgers:          ledgerRuntime,
		BankAccountViews: bankAccountViews,
		LedgerViews:      ledgerViews,
		Houses:           houses,
		Journal:          writer,
		IDs:              ids,
		services:         services,
	}, nil
}

// BankAccountServices returns the bankaccount.Services implementation built
// by New, for passing to BankAccountRuntime.Execute.
func (sys *System) BankAccountServices() bankaccount.Services {
	return sys.services
}

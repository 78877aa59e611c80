package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

type Event interface{ isLedgerEvent() }

type LedgerInitiated struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    money.Money
	Timestamp time.Time
}

// TransactionType is the two-phase step this update represents: one of
// "debit_hold", "debit_release", "credit_hold", "credit_release", or
// "compensating_release" (SPEC_FULL.md §7's compensation path).
type TransactionType string

const (
	TxDebitHold         TransactionType = "debit_hold"
	TxDebitRelease      TransactionType = "debit_release"
	CreditHold          TransactionType = "credit_hold"
	CreditRelease       TransactionType = "credit_release"
	CompensatingRelease TransactionType = "compensating_release"
)

type LedgerUpdated struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	TransactionID   uuid.UUID
	TransactionType TransactionType
	Amount          money.Money
	AvailableDelta  money.Money
	PendingDelta    money.Money
	Timestamp       time.Time
}

func (LedgerInitiated) isLedgerEvent() {}
func (LedgerUpdated) isLedgerEvent()   {}

const (
	eventTypeLedgerInitiated = "LedgerInitiated"
	eventTypeLedgerUpdated   = "LedgerUpdated"
)

type Codec struct{}

func (Codec) Encode(e Event) (string, json.RawMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", nil, err
	}
	switch e.(type) {
	case LedgerInitiated:
		return eventTypeLedgerInitiated, payload, nil
	case LedgerUpdated:
		return eventTypeLedgerUpdated, payload, nil
	default:
		return "", nil, fmt.Errorf("ledger: unknown event type %T", e)
	}
}

func (Codec) Decode(eventType string, payload json.RawMessage) (Event, error) {
	switch eventType {
	case eventTypeLedgerInitiated:
		var e LedgerInitiated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case eventTypeLedgerUpdated:
		var e LedgerUpdated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("ledger: unknown event type %q", eventType)
	}
}

package bankaccount

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerkiro/ledgerkiro/internal/money"
)

// Event is the sealed set of BankAccount events from SPEC_FULL.md §4.3/§4.8.
// Deposit and Withdrawal never appear here: per spec, they emit no
// BankAccount events, since money movement belongs to the Ledger aggregate.
type Event interface{ isBankAccountEvent() }

type AccountOpened struct {
	ID          uuid.UUID
	AccountType AccountType
	Kind        Kind
	UserID      string
	Currency    money.Currency
	Timestamp   time.Time
}

type AccountKycApproved struct {
	ID        uuid.UUID
	LedgerID  uuid.UUID
	Timestamp time.Time
}

func (AccountOpened) isBankAccountEvent()      {}
func (AccountKycApproved) isBankAccountEvent() {}

const (
	eventTypeAccountOpened      = "AccountOpened"
	eventTypeAccountKycApproved = "AccountKycApproved"
)

// Codec implements aggregate.EventCodec[Event] for JSON-encoded payloads.
type Codec struct{}

func (Codec) Encode(e Event) (string, json.RawMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", nil, err
	}
	switch e.(type) {
	case AccountOpened:
		return eventTypeAccountOpened, payload, nil
	case AccountKycApproved:
		return eventTypeAccountKycApproved, payload, nil
	default:
		return "", nil, fmt.Errorf("bankaccount: unknown event type %T", e)
	}
}

func (Codec) Decode(eventType string, payload json.RawMessage) (Event, error) {
	switch eventType {
	case eventTypeAccountOpened:
		var e AccountOpened
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case eventTypeAccountKycApproved:
		var e AccountKycApproved
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("bankaccount: unknown event type %q", eventType)
	}
}

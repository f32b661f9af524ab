package events

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire discriminants for the event envelope. The set is open for extension:
// folds skip discriminants they do not recognize.
const (
	TypeAccountCreated   = "AccountCreated"
	TypeDepositConfirmed = "DepositConfirmed"
)

// Event is a single immutable entry in the event log. The producer assigns
// ID before ingestion; Type discriminates the payload variant. Once appended
// an event is never mutated and keeps its arrival order relative to other
// events of the same account.
type Event struct {
	ID      string
	Type    string
	Payload Payload
}

// Payload is the variant data of an event. Every variant carries the id of
// the account (aggregate) it belongs to.
type Payload interface {
	AccountID() string
	payload()
}

type AccountCreated struct {
	Account string
	Email   string
}

func (p AccountCreated) AccountID() string { return p.Account }
func (AccountCreated) payload()            {}

type DepositConfirmed struct {
	Account string
	Email   string
	Amount  decimal.Decimal
}

func (p DepositConfirmed) AccountID() string { return p.Account }
func (DepositConfirmed) payload()            {}

// Unrecognized holds the payload of an event whose type this build does not
// know. It is stored and retrieved verbatim so a newer build can replay it.
type Unrecognized struct {
	Account string
	Raw     json.RawMessage
}

func (p Unrecognized) AccountID() string { return p.Account }
func (Unrecognized) payload()            {}

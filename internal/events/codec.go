package events

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Envelope is the serialized form of an Event: a tagged record whose payload
// shape depends on the eventType discriminant.
type Envelope struct {
	EventID   string          `json:"eventId" validate:"required"`
	EventType string          `json:"eventType" validate:"required"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
}

type accountCreatedPayload struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

type depositConfirmedPayload struct {
	AccountID string          `json:"accountId"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
}

// unknownPayload pulls the aggregate key out of a payload whose full shape
// is not known.
type unknownPayload struct {
	AccountID string `json:"accountId"`
}

// Event converts the envelope into a typed Event. An unknown event type is
// not an error: the payload is kept raw so the event can still be appended
// and replayed later.
func (e Envelope) Event() (Event, error) {
	payload, err := DecodePayload(e.EventType, e.Payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: e.EventID, Type: e.EventType, Payload: payload}, nil
}

// DecodePayload parses variant data for the given event type.
func DecodePayload(eventType string, data []byte) (Payload, error) {
	switch eventType {
	case TypeAccountCreated:
		var p accountCreatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return AccountCreated{Account: p.AccountID, Email: p.Email}, nil
	case TypeDepositConfirmed:
		var p depositConfirmedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return DepositConfirmed{Account: p.AccountID, Email: p.Email, Amount: p.Amount}, nil
	default:
		var p unknownPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return Unrecognized{Account: p.AccountID, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}

// EncodePayload renders variant data back to JSON.
func EncodePayload(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case AccountCreated:
		return json.Marshal(accountCreatedPayload{AccountID: v.Account, Email: v.Email})
	case DepositConfirmed:
		return json.Marshal(depositConfirmedPayload{AccountID: v.Account, Email: v.Email, Amount: v.Amount})
	case Unrecognized:
		return append([]byte(nil), v.Raw...), nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", p)
	}
}

func (e Event) MarshalJSON() ([]byte, error) {
	payload, err := EncodePayload(e.Payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{EventID: e.ID, EventType: e.Type, Payload: payload})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	event, err := envelope.Event()
	if err != nil {
		return err
	}

	*e = event
	return nil
}

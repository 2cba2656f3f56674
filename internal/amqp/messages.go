package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// messageVersion is bumped whenever TransactionEvent changes shape.
const messageVersion = 1

// TransactionEvent is the wire form of a committed ledger mutation. It
// carries the full snapshot so consumers never read the database.
type TransactionEvent struct {
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Timestamp   time.Time `json:"timestamp"`
}

var errMalformedEvent = errors.New("malformed transaction event")

func NewTransactionEvent(e ledger.Event) *TransactionEvent {
	t := e.Transaction
	return &TransactionEvent{
		Version:     messageVersion,
		Type:        string(e.Type),
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Kind:        string(t.Kind),
		Category:    string(t.Category),
		AmountCents: t.Amount.Cents,
		OccurredAt:  t.OccurredAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Timestamp:   e.At,
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks a message. Anything that
// fails here can never be processed and should not be requeued.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedEvent, err)
	}
	switch ledger.EventType(msg.Type) {
	case ledger.EventCreated, ledger.EventUpdated, ledger.EventDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errMalformedEvent, msg.Type)
	}
	if msg.ID == "" || msg.OwnerID == "" {
		return nil, fmt.Errorf("%w: missing id or owner", errMalformedEvent)
	}
	return &msg, nil
}

func (m *TransactionEvent) EventType() ledger.EventType {
	return ledger.EventType(m.Type)
}

func (m *TransactionEvent) Transaction() core.Transaction {
	return core.Transaction{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Kind:       core.Kind(m.Kind),
		Category:   core.Category(m.Category),
		Amount:     core.Money{Cents: m.AmountCents},
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

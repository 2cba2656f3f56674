// Package ledger defines the owner-scoped transaction store and the event
// port that mutations are announced on.
package ledger

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// Store persists transactions. Every method takes the owner id and
	// includes it in its lookup, so no call can observe or change another
	// owner's records. Update and Delete report a missing or foreign record
	// as core.ErrNotFoundOrForbidden; infrastructure failures wrap
	// core.ErrStorage.
	Store interface {
		// List returns all of owner's transactions, most recent OccurredAt first.
		List(ctx context.Context, ownerID string) ([]core.Transaction, error)
		// Insert persists a fully formed transaction (id and owner already set).
		Insert(ctx context.Context, t core.Transaction) error
		// Update replaces the mutable fields of the (id, owner) record.
		Update(ctx context.Context, ownerID, id string, in core.TransactionInput, updatedAt time.Time) (core.Transaction, error)
		// Delete removes the (id, owner) record permanently.
		Delete(ctx context.Context, ownerID, id string) (core.Transaction, error)
		// Ping reports whether the store can serve requests.
		Ping(ctx context.Context) error
	}

	// EventPublisher announces committed mutations. Implementations must not
	// block indefinitely.
	EventPublisher interface {
		Publish(ctx context.Context, e Event) error
	}
)

// EventType names a committed mutation.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a snapshot of a transaction right after a mutation committed.
type Event struct {
	Type        EventType
	Transaction core.Transaction
	At          time.Time
}

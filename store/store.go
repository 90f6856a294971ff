// Package store provides interfaces and types for webmail message storage.
// Implementations are in store/mongo, store/postgres, and store/memory
// subpackages; store/cached wraps any of them with a Redis read cache.
//
// # Architectural Principle: No Distributed Locks
//
// This package avoids distributed locks entirely. All concurrency concerns
// are handled through:
//
//  1. Atomic Database Operations: mailbox creation uses database-native
//     atomic upserts (MongoDB findOneAndUpdate with upsert, PostgreSQL
//     INSERT ON CONFLICT) guarded by a unique constraint on the owning
//     user id. Two concurrent first-resolutions of the same user can never
//     create two mailboxes.
//
//  2. Single-Record Conditional Writes: read-state changes and deletes
//     match by id and are atomic at the database level.
//
// Example - Atomic Mailbox Resolution:
//
//	// WRONG: Lookup-then-insert (DO NOT USE - races under concurrency)
//	mb, err := store.GetMailboxByUser(ctx, userID)
//	if errors.Is(err, store.ErrNotFound) {
//	    mb, err = store.CreateMailbox(ctx, userID)
//	}
//
//	// CORRECT: Single atomic upsert
//	mb, err := store.EnsureMailbox(ctx, userID)
package store

import (
	"context"
)

// Store is the storage interface for the webmail backend.
//
// All operations must be safe for concurrent use. Implementations must use
// database-level atomicity rather than external locking mechanisms. See the
// package documentation for details.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// User operations - read-only reference data owned by the
	// authentication collaborator
	UserReader

	// Mailbox operations - one mailbox per user, created lazily
	MailboxStore

	// Message operations
	MessageStore

	// Stats operations - aggregate mailbox counts
	StatsStore
}

// UserReader provides read access to user records. Users are created and
// mutated by the authentication layer; this package only resolves them.
type UserReader interface {
	// GetUser retrieves a user by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id string) (User, error)

	// GetUserByEmail retrieves a user by email address. The lookup is
	// case-insensitive. Returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// SearchUsers returns up to limit users whose email or name matches
	// the query (case-insensitive substring match).
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}

// MailboxStore provides mailbox resolution operations.
//
// Concurrency: EnsureMailbox MUST be atomic at the database level. The
// unique constraint on the owning user id is the only coordination point.
type MailboxStore interface {
	// EnsureMailbox atomically gets or creates the mailbox for a user.
	//
	// This operation MUST be a single conditional upsert:
	//   - MongoDB: findOneAndUpdate with upsert and $setOnInsert
	//   - PostgreSQL: INSERT ... ON CONFLICT (user_id) DO NOTHING
	//
	// Repeated and concurrent calls for the same user always yield a
	// mailbox with the same identity.
	EnsureMailbox(ctx context.Context, userID string) (Mailbox, error)

	// GetMailbox retrieves a mailbox by ID.
	// Returns ErrNotFound if the mailbox doesn't exist.
	GetMailbox(ctx context.Context, id string) (Mailbox, error)

	// GetMailboxByUser retrieves the mailbox owned by a user without
	// creating it. Returns ErrNotFound if the user has no mailbox yet.
	GetMailboxByUser(ctx context.Context, userID string) (Mailbox, error)
}

// MessageReader provides read operations for messages.
type MessageReader interface {
	// GetMessage retrieves a message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	GetMessage(ctx context.Context, id string) (Message, error)

	// Find retrieves messages matching the filters.
	//
	// Results are totally ordered: the sort field first, then id, so that
	// timestamp ties resolve deterministically. When opts.StartAfter names
	// a message id, results begin strictly after that message in the
	// requested order (keyset cursor).
	Find(ctx context.Context, filters []Filter, opts ListOptions) (*MessagePage, error)

	// Count returns the count of messages matching the filters.
	Count(ctx context.Context, filters []Filter) (int64, error)
}

// MessageWriter provides mutation operations for messages.
// Mutations are specific operations, not general setters.
type MessageWriter interface {
	// SetRead sets the read state of a message. Idempotent.
	// Returns ErrNotFound if the message doesn't exist.
	SetRead(ctx context.Context, id string, read bool) error

	// DeleteMessage permanently removes exactly one message record.
	// Copies held by other mailboxes are independent and unaffected.
	// Returns ErrNotFound if the message doesn't exist.
	DeleteMessage(ctx context.Context, id string) error
}

// MessageCreator provides message creation operations.
type MessageCreator interface {
	// CreateMessage creates a new message record from the given data.
	// The store assigns the id and timestamp.
	CreateMessage(ctx context.Context, data MessageData) (Message, error)

	// CreateMessages creates multiple message records in order.
	// Used by the fan-out engine for recipient copies; each record is an
	// independent write (partial completion is reported by the caller's
	// delivery policy, not rolled back here).
	CreateMessages(ctx context.Context, data []MessageData) ([]Message, error)
}

// MessageStore provides operations for message records.
type MessageStore interface {
	MessageReader
	MessageWriter
	MessageCreator
}

// FindWithCounter is an optional interface that Store implementations can
// implement to return messages and total count in a single query.
// When implemented, paged list operations avoid a separate Count round-trip.
type FindWithCounter interface {
	FindWithCount(ctx context.Context, filters []Filter, opts ListOptions) (*MessagePage, int64, error)
}

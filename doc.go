// Package webmail provides the mailbox and message store for a webmail
// backend.
//
// Every user owns exactly one mailbox, created lazily the first time it
// is needed. Sending a message to k recipients writes k+1 independent
// records: one unread copy in each recipient's mailbox addressed to that
// recipient alone, and one read copy in the sender's mailbox carrying the
// full recipient list. All functionality is exposed via interfaces, with
// pluggable storage backends (MongoDB, PostgreSQL, in-memory) and an
// optional Redis read cache.
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	st := memory.New()
//
//	// Create webmail service
//	svc, err := webmail.NewService(
//	    webmail.WithStore(st),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes indexes/schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Get a mailbox client for a user
//	mb := svc.Client("user123")
//
//	// Send a message
//	result, err := mb.Send(ctx, webmail.SendRequest{
//	    To:      []string{"alice@example.com"},
//	    Subject: "Hello",
//	    Body:    "World",
//	})
//
// # Mailbox Operations
//
//   - Send: Fan-out delivery with per-recipient failure reporting
//   - Get: Retrieve an owned message by ID
//   - Messages/Inbox/Sent: Paged listing, newest first
//   - Unread: Offset-windowed unread listing
//   - MarkRead/MarkUnread: Idempotent read-state changes
//   - Next/Prev: Neighbor navigation within the mailbox
//   - Delete: Permanent owner-only deletion
//   - Stats: Uncached total and unread counts
//
// # Storage Backends
//
// The store package provides implementations for:
//   - MongoDB (store/mongo) - accepts *mongo.Client
//   - PostgreSQL (store/postgres) - accepts *sqlx.DB
//   - In-memory (store/memory) - for testing
//   - Redis cache (store/cached) - wraps any of the above
//
// # Error Handling
//
// Operations return sentinel errors checkable with errors.Is: ErrNotFound
// variants for missing resources, ErrUnauthorized for cross-mailbox
// access, ErrInvalidRequest (via *ValidationError) for bad input, and
// ErrUnavailable when the backend cannot be reached. Send reports
// per-recipient failures through *DeliveryError.
package webmail

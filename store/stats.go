package store

import (
	"context"
)

// MailboxStats holds aggregate counts for a single mailbox.
// Counts always reflect the current store state; callers must not cache them.
type MailboxStats struct {
	// TotalMessages is the total number of messages in the mailbox.
	TotalMessages int64
	// UnreadCount is the number of unread messages in the mailbox.
	UnreadCount int64
}

// StatsStore provides aggregate mailbox counts.
type StatsStore interface {
	// MailboxStats returns current counts for a mailbox in a single query
	// (MongoDB $facet, PostgreSQL conditional aggregation) rather than two
	// round-trips.
	MailboxStats(ctx context.Context, mailboxID string) (*MailboxStats, error)
}

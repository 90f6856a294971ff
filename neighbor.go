package webmail

import (
	"context"
	"fmt"

	"github.com/rbaliyan/webmail/store"
)

// Next returns the chronologically next message in the same mailbox,
// the one with the smallest (timestamp, id) greater than the given
// message's. At the newest message it returns ErrMessageNotFound.
func (m *userMailbox) Next(ctx context.Context, messageID string) (Message, error) {
	return m.neighbor(ctx, messageID, store.SortAsc)
}

// Prev returns the chronologically previous message in the same mailbox,
// the one with the largest (timestamp, id) smaller than the given
// message's. At the oldest message it returns ErrMessageNotFound.
func (m *userMailbox) Prev(ctx context.Context, messageID string) (Message, error) {
	return m.neighbor(ctx, messageID, store.SortDesc)
}

// neighbor finds the adjacent message by walking the mailbox's
// (timestamp, id) total order one step in the given direction. The keyset
// cursor guarantees equal timestamps resolve the same way on every
// backend, so Next and Prev are exact inverses away from the boundaries.
func (m *userMailbox) neighbor(ctx context.Context, messageID string, order store.SortOrder) (Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// Ownership check also confirms the anchor message exists.
	if _, err := m.getOwned(ctx, messageID); err != nil {
		return nil, err
	}

	mbox, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	page, err := m.service.store.Find(ctx,
		[]store.Filter{store.MailboxIs(mbox.GetID())},
		store.ListOptions{
			Limit:      1,
			SortBy:     "timestamp",
			SortOrder:  order,
			StartAfter: messageID,
		})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("find neighbor: %w", err)
	}
	if len(page.Messages) == 0 {
		return nil, ErrMessageNotFound
	}
	return page.Messages[0], nil
}

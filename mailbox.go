package webmail

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/webmail/store"
)

// MessageReader provides single message retrieval.
type MessageReader interface {
	// Get retrieves a message owned by this mailbox.
	// Returns ErrUnauthorized when the message belongs to another mailbox.
	Get(ctx context.Context, messageID string) (Message, error)
}

// MessageLister provides paged and windowed message listing.
type MessageLister interface {
	// Messages returns a page of all messages in the mailbox,
	// newest first.
	Messages(ctx context.Context, req PageRequest) (*Page, error)
	// Inbox returns a page of received messages, newest first.
	Inbox(ctx context.Context, req PageRequest) (*Page, error)
	// Sent returns a page of messages sent by this user, newest first.
	Sent(ctx context.Context, req PageRequest) (*Page, error)
	// Unread returns up to length unread messages, newest first,
	// skipping the first startAfter of them. A zero startAfter begins
	// at the newest unread message.
	Unread(ctx context.Context, length, startAfter int) ([]Message, error)
}

// MessageSender provides message sending with per-recipient fan-out.
type MessageSender interface {
	// Send delivers a message to every unique recipient in the request.
	// See SendResult and DeliveryError for partial delivery semantics.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// ReadStateMutator provides idempotent read-state changes.
type ReadStateMutator interface {
	// MarkRead marks a message as read and returns the updated message.
	// Marking an already-read message is a no-op that still succeeds.
	MarkRead(ctx context.Context, messageID string) (Message, error)
	// MarkUnread marks a message as unread and returns the updated message.
	MarkUnread(ctx context.Context, messageID string) (Message, error)
}

// MessageDeleter provides permanent message deletion.
type MessageDeleter interface {
	// Delete permanently removes a message owned by this mailbox.
	// Other mailboxes' copies of the same conversation are unaffected.
	Delete(ctx context.Context, messageID string) error
}

// Navigator provides neighbor navigation within the mailbox along the
// chronological (timestamp, id) order. Timestamp ties resolve
// deterministically by message ID.
type Navigator interface {
	// Next returns the chronologically next (newer) message in the
	// mailbox. Returns ErrMessageNotFound at the newest message.
	Next(ctx context.Context, messageID string) (Message, error)
	// Prev returns the chronologically previous (older) message in the
	// mailbox. Returns ErrMessageNotFound at the oldest message.
	Prev(ctx context.Context, messageID string) (Message, error)
}

// Mailbox provides webmail operations for a single user.
//
// Composed of focused interfaces:
//   - MessageReader: Single message retrieval (Get)
//   - MessageLister: Paged and windowed listing (Messages, Inbox, Sent, Unread)
//   - MessageSender: Fan-out sending (Send)
//   - ReadStateMutator: Read-state changes (MarkRead, MarkUnread)
//   - MessageDeleter: Permanent deletion (Delete)
//   - Navigator: Neighbor navigation (Next, Prev)
//
// The underlying mailbox record is created lazily on first use; Resolve
// forces creation and returns its identity.
type Mailbox interface {
	UserID() string

	// Resolve atomically gets or creates the user's mailbox record.
	// Repeated and concurrent calls always yield the same mailbox.
	Resolve(ctx context.Context) (store.Mailbox, error)

	// Stats returns current total and unread counts for the mailbox.
	// Counts are computed from store state on every call, never cached.
	Stats(ctx context.Context) (*Stats, error)

	MessageReader
	MessageLister
	MessageSender
	ReadStateMutator
	MessageDeleter
	Navigator
}

// userMailbox is the default implementation of Mailbox.
type userMailbox struct {
	userID      string
	service     *service
	validUserID bool // set by Client() after validation
}

// UserID returns the user ID of this mailbox.
func (m *userMailbox) UserID() string {
	return m.userID
}

// isConnected checks if the service is connected.
func (m *userMailbox) isConnected() bool {
	return atomic.LoadInt32(&m.service.state) == stateConnected
}

// checkAccess verifies the mailbox is ready for operations.
// Returns ErrNotConnected if the service isn't connected,
// or ErrInvalidUserID if the user ID failed validation.
func (m *userMailbox) checkAccess() error {
	if !m.isConnected() {
		return ErrNotConnected
	}
	if !m.validUserID {
		return ErrInvalidUserID
	}
	return nil
}

// Resolve atomically gets or creates the user's mailbox record.
func (m *userMailbox) Resolve(ctx context.Context) (store.Mailbox, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	mbox, err := m.service.store.EnsureMailbox(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("ensure mailbox: %w", err)
	}
	return mbox, nil
}

// user resolves this mailbox owner's user record.
func (m *userMailbox) user(ctx context.Context) (store.User, error) {
	u, err := m.service.store.GetUser(ctx, m.userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Stats returns current total and unread counts for the mailbox.
func (m *userMailbox) Stats(ctx context.Context) (*Stats, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	mbox, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := m.service.store.MailboxStats(ctx, mbox.GetID())
	if err != nil {
		return nil, fmt.Errorf("mailbox stats: %w", err)
	}
	return stats, nil
}

// Get retrieves a message owned by this mailbox.
func (m *userMailbox) Get(ctx context.Context, messageID string) (Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.get",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var getErr error
	defer func() {
		endSpan(getErr)
		m.service.otel.recordGet(ctx, time.Since(start), getErr)
	}()

	msg, err := m.getOwned(ctx, messageID)
	if err != nil {
		getErr = err
		return nil, err
	}
	return msg, nil
}

// getOwned retrieves a message and verifies it belongs to this mailbox.
// Returns ErrMessageNotFound when the message doesn't exist and
// ErrUnauthorized when it belongs to another mailbox.
func (m *userMailbox) getOwned(ctx context.Context, messageID string) (Message, error) {
	msg, err := m.service.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	mbox, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if msg.GetMailboxID() != mbox.GetID() {
		return nil, ErrUnauthorized
	}

	return msg, nil
}

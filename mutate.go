package webmail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// MarkRead marks a message as read and returns the updated message.
// Marking an already-read message succeeds without change.
func (m *userMailbox) MarkRead(ctx context.Context, messageID string) (Message, error) {
	return m.setRead(ctx, messageID, true)
}

// MarkUnread marks a message as unread and returns the updated message.
// Marking an already-unread message succeeds without change.
func (m *userMailbox) MarkUnread(ctx context.Context, messageID string) (Message, error) {
	return m.setRead(ctx, messageID, false)
}

// setRead applies an idempotent read-state change after verifying
// ownership, then re-reads the message so the caller sees the stored state.
func (m *userMailbox) setRead(ctx context.Context, messageID string, read bool) (Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	operation := "mark_unread"
	if read {
		operation = "mark_read"
	}
	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.update",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
		attribute.String("operation", operation),
	)
	start := time.Now()
	var updateErr error
	defer func() {
		endSpan(updateErr)
		m.service.otel.recordUpdate(ctx, time.Since(start), operation, updateErr)
	}()

	if _, err := m.getOwned(ctx, messageID); err != nil {
		updateErr = err
		return nil, err
	}

	if err := m.service.store.SetRead(ctx, messageID, read); err != nil {
		if IsNotFound(err) {
			updateErr = ErrMessageNotFound
			return nil, updateErr
		}
		updateErr = fmt.Errorf("set read: %w", err)
		return nil, updateErr
	}

	msg, err := m.service.store.GetMessage(ctx, messageID)
	if err != nil {
		if IsNotFound(err) {
			updateErr = ErrMessageNotFound
			return nil, updateErr
		}
		updateErr = fmt.Errorf("reload message: %w", err)
		return nil, updateErr
	}
	return msg, nil
}

// Delete permanently removes a message owned by this mailbox. Copies of
// the same conversation in other mailboxes are independent records and
// are not touched.
func (m *userMailbox) Delete(ctx context.Context, messageID string) error {
	if err := m.checkAccess(); err != nil {
		return err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.delete",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", messageID),
	)
	start := time.Now()
	var deleteErr error
	defer func() {
		endSpan(deleteErr)
		m.service.otel.recordDelete(ctx, time.Since(start), deleteErr)
	}()

	if _, err := m.getOwned(ctx, messageID); err != nil {
		deleteErr = err
		return err
	}

	if err := m.service.store.DeleteMessage(ctx, messageID); err != nil {
		if IsNotFound(err) {
			deleteErr = ErrMessageNotFound
			return deleteErr
		}
		deleteErr = fmt.Errorf("delete message: %w", err)
		return deleteErr
	}

	m.service.logger.Debug("message deleted",
		"user_id", m.userID,
		"message_id", messageID)
	return nil
}

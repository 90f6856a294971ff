package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rbaliyan/webmail/store"
)

// CreateMessage creates a new message record from the given data.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if data.MailboxID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (mailbox_id, from_addr, to_addrs, cc_addrs, bcc_addrs,
		                subject, body, is_read, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		        CASE WHEN $8 THEN NOW() ELSE NULL END)
		RETURNING %s
	`, s.opts.messagesTable, messageColumns)

	var row messageRow
	err := s.db.GetContext(ctx, &row, query,
		data.MailboxID, data.From,
		pq.Array(data.To), pq.Array(data.CC), pq.Array(data.BCC),
		data.Subject, data.Body, data.IsRead)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert message: %w", store.ErrUnavailable)
	}
	return rowToMessage(&row), nil
}

// CreateMessages creates multiple message records in order.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	messages := make([]store.Message, len(data))
	for i, d := range data {
		msg, err := s.CreateMessage(ctx, d)
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}
	return messages, nil
}

// SetRead sets the read state of a message. Idempotent.
func (s *Store) SetRead(ctx context.Context, id string, read bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE %s
		SET is_read = $2,
		    read_at = CASE WHEN $2 THEN NOW() ELSE NULL END
		WHERE id = $1
	`, s.opts.messagesTable)

	result, err := s.db.ExecContext(ctx, query, id, read)
	if err != nil {
		return fmt.Errorf("set read: %w", store.ErrUnavailable)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set read: %w", store.ErrUnavailable)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMessage permanently removes exactly one message record.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.opts.messagesTable)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", store.ErrUnavailable)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", store.ErrUnavailable)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, email, name, created_at FROM %s WHERE id = $1
	`, s.opts.usersTable)

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", store.ErrUnavailable)
	}
	return rowToUser(&row), nil
}

// GetUserByEmail retrieves a user by email address. Lookup is
// case-insensitive so that alice@example.com and Alice@Example.com
// resolve to the same user.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, email, name, created_at FROM %s WHERE LOWER(email) = LOWER($1)
	`, s.opts.usersTable)

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", store.ErrUnavailable)
	}
	return rowToUser(&row), nil
}

// SearchUsers returns users whose email or name matches the query.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]store.User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Escape LIKE wildcards in the user-supplied query.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	pattern := "%" + escaped + "%"

	sqlQuery := fmt.Sprintf(`
		SELECT id, email, name, created_at FROM %s
		WHERE email ILIKE $1 OR name ILIKE $1
		ORDER BY email
	`, s.opts.usersTable)
	args := []any{pattern}
	if limit > 0 {
		sqlQuery += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("search users: %w", store.ErrUnavailable)
	}

	users := make([]store.User, len(rows))
	for i := range rows {
		users[i] = rowToUser(&rows[i])
	}
	return users, nil
}

// EnsureMailbox atomically gets or creates the mailbox for a user.
//
// INSERT ... ON CONFLICT (user_id) DO NOTHING with the unique constraint is
// the atomic get-or-create; when the insert loses the race the winner's row
// is read back.
func (s *Store) EnsureMailbox(ctx context.Context, userID string) (store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	insert := fmt.Sprintf(`
		INSERT INTO %s (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, user_id, created_at
	`, s.opts.mailboxesTable)

	var row mailboxRow
	err := s.db.GetContext(ctx, &row, insert, userID)
	if err == nil {
		return rowToMailbox(&row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ensure mailbox: %w", store.ErrUnavailable)
	}

	// Conflict: the mailbox already exists.
	sel := fmt.Sprintf(`
		SELECT id, user_id, created_at FROM %s WHERE user_id = $1
	`, s.opts.mailboxesTable)
	if err := s.db.GetContext(ctx, &row, sel, userID); err != nil {
		return nil, fmt.Errorf("ensure mailbox: %w", store.ErrUnavailable)
	}
	return rowToMailbox(&row), nil
}

// GetMailbox retrieves a mailbox by ID.
func (s *Store) GetMailbox(ctx context.Context, id string) (store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, user_id, created_at FROM %s WHERE id = $1
	`, s.opts.mailboxesTable)

	var row mailboxRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get mailbox: %w", store.ErrUnavailable)
	}
	return rowToMailbox(&row), nil
}

// GetMailboxByUser retrieves the mailbox owned by a user without creating it.
func (s *Store) GetMailboxByUser(ctx context.Context, userID string) (store.Mailbox, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, user_id, created_at FROM %s WHERE user_id = $1
	`, s.opts.mailboxesTable)

	var row mailboxRow
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get mailbox by user: %w", store.ErrUnavailable)
	}
	return rowToMailbox(&row), nil
}

// MailboxStats returns current counts for a mailbox with one conditional
// aggregation query.
func (s *Store) MailboxStats(ctx context.Context, mailboxID string) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE NOT is_read) AS unread
		FROM %s WHERE mailbox_id = $1
	`, s.opts.messagesTable)

	var result struct {
		Total  int64 `db:"total"`
		Unread int64 `db:"unread"`
	}
	if err := s.db.GetContext(ctx, &result, query, mailboxID); err != nil {
		return nil, fmt.Errorf("mailbox stats: %w", store.ErrUnavailable)
	}

	return &store.MailboxStats{
		TotalMessages: result.Total,
		UnreadCount:   result.Unread,
	}, nil
}

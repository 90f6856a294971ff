package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rbaliyan/webmail/store"
)

// messageColumns is the select list shared by all message queries.
const messageColumns = `id, mailbox_id, from_addr, to_addrs, cc_addrs, bcc_addrs,
       subject, body, is_read, read_at, timestamp`

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.messagesTable)

	var row messageRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", store.ErrUnavailable)
	}
	return rowToMessage(&row), nil
}

// Find retrieves messages matching the filters.
//
// ORDER BY is always (sort column, id) so timestamp ties resolve
// deterministically. StartAfter adds a keyset condition instead of OFFSET.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	sortCol := "timestamp"
	if opts.SortBy != "" {
		if key, ok := store.MessageOrderingKey(opts.SortBy); ok {
			sortCol = columnFor(key)
		}
	}
	dir := "DESC"
	cmp := "<"
	if opts.SortOrder == store.SortAsc {
		dir = "ASC"
		cmp = ">"
	}

	// Total reflects the filters without the cursor condition.
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.opts.messagesTable, whereClause(where))
	var total int64
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count messages: %w", store.ErrUnavailable)
	}

	if opts.StartAfter != "" {
		if _, err := uuid.Parse(opts.StartAfter); err != nil {
			return nil, store.ErrInvalidID
		}
		cursorQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.messagesTable)
		var cursorRow messageRow
		if err := s.db.GetContext(ctx, &cursorRow, cursorQuery, opts.StartAfter); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, fmt.Errorf("fetch cursor row: %w", store.ErrUnavailable)
		}
		cursorVal := any(cursorRow.Timestamp)
		if sortCol == "id" {
			cursorVal = cursorRow.ID
		}
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(%s %s $%d OR (%s = $%d AND id %s $%d))",
			sortCol, cmp, n+1, sortCol, n+1, cmp, n+2))
		args = append(args, cursorVal, cursorRow.ID)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s %s, id %s`,
		messageColumns, s.opts.messagesTable, whereClause(where), sortCol, dir, dir)
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.StartAfter == "" && opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find messages: %w", store.ErrUnavailable)
	}

	messages := make([]store.Message, len(rows))
	for i := range rows {
		messages[i] = rowToMessage(&rows[i])
	}

	return &store.MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  opts.Limit > 0 && len(messages) >= opts.Limit,
	}, nil
}

// Count counts messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.opts.messagesTable, whereClause(where))
	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count messages: %w", store.ErrUnavailable)
	}
	return count, nil
}

// FindWithCount retrieves messages and total count in one store call.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, int64, error) {
	page, err := s.Find(ctx, filters, opts)
	if err != nil {
		return nil, 0, err
	}
	return page, page.Total, nil
}

// columnFor translates shared filter keys to column names.
func columnFor(key string) string {
	switch key {
	case "from":
		return "from_addr"
	case "to":
		return "to_addrs"
	case "cc":
		return "cc_addrs"
	case "bcc":
		return "bcc_addrs"
	default:
		return key
	}
}

// arrayColumns is the set of TEXT[] columns supporting contains.
var arrayColumns = map[string]bool{
	"to_addrs":  true,
	"cc_addrs":  true,
	"bcc_addrs": true,
}

// buildWhere converts store filters to WHERE clauses with positional args.
func buildWhere(filters []store.Filter) ([]string, []any, error) {
	var clauses []string
	var args []any

	for _, f := range filters {
		col := columnFor(f.Key())
		value := f.Value()
		n := len(args) + 1

		switch f.Operator() {
		case "eq":
			if arrayColumns[col] {
				clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
				args = append(args, pq.Array(value))
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, value)
		case "ne":
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", col, n))
			args = append(args, value)
		case "gt":
			clauses = append(clauses, fmt.Sprintf("%s > $%d", col, n))
			args = append(args, value)
		case "gte":
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", col, n))
			args = append(args, value)
		case "lt":
			clauses = append(clauses, fmt.Sprintf("%s < $%d", col, n))
			args = append(args, value)
		case "lte":
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", col, n))
			args = append(args, value)
		case "in":
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, n))
			args = append(args, pq.Array(value))
		case "contains":
			if !arrayColumns[col] {
				return nil, nil, fmt.Errorf("%w: contains on %s", store.ErrFilterInvalid, col)
			}
			clauses = append(clauses, fmt.Sprintf("$%d = ANY(%s)", n, col))
			args = append(args, value)
		default:
			return nil, nil, fmt.Errorf("%w: operator %s", store.ErrFilterInvalid, f.Operator())
		}
	}

	return clauses, args, nil
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

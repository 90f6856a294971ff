package webmail

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
)

// LookupUser resolves a user by email address.
func (s *service) LookupUser(ctx context.Context, email string) (User, error) {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return nil, ErrNotConnected
	}
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "email is required"}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// SearchUsers returns up to limit users whose email or name matches the
// query. A zero limit uses the default page size; oversized limits are
// capped at the maximum page size.
func (s *service) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return nil, ErrNotConnected
	}
	if query == "" {
		return nil, &ValidationError{Field: "query", Message: "query is required"}
	}
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "limit must not be negative"}
	}
	if limit == 0 {
		limit = s.opts.defaultPageSize
	}
	if limit > s.opts.maxPageSize {
		limit = s.opts.maxPageSize
	}

	users, err := s.store.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

package memory

import (
	"context"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
)

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (store.Message, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.messages.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*message).clone(), nil
}

// Find retrieves messages matching the filters.
//
// Results are ordered by (sort field, id) so timestamp ties resolve
// deterministically. Offset and StartAfter are mutually exclusive; when
// StartAfter names a message id, results begin strictly after it in the
// requested order.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	var all []*message
	s.messages.Range(func(_, v any) bool {
		m := v.(*message)
		if matchesFilters(m, filters) {
			all = append(all, m)
		}
		return true
	})

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "timestamp"
	}
	sortMessages(all, sortBy, opts.SortOrder)

	total := int64(len(all))

	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	if opts.StartAfter != "" {
		// The cursor is resolved against the whole store, not the filtered
		// set, so pagination keeps working when the cursor message itself
		// stops matching (e.g. it was marked read mid-listing).
		v, ok := s.messages.Load(opts.StartAfter)
		if !ok {
			return nil, store.ErrNotFound
		}
		cursor := v.(*message)
		order := opts.SortOrder
		if order == 0 {
			order = store.SortDesc
		}
		start = len(all)
		for i, m := range all {
			if messageBefore(cursor, m, sortBy, order) {
				start = i
				break
			}
		}
	}

	end := start + opts.Limit
	if opts.Limit == 0 {
		end = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	result := all[start:end]
	messages := make([]store.Message, len(result))
	for i, m := range result {
		messages[i] = m.clone()
	}

	return &store.MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  end < len(all),
	}, nil
}

// Count returns the count of messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return 0, store.ErrNotConnected
	}

	var count int64
	s.messages.Range(func(_, v any) bool {
		if matchesFilters(v.(*message), filters) {
			count++
		}
		return true
	})
	return count, nil
}

// FindWithCount retrieves messages and total count in a single pass.
// Implements store.FindWithCounter.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, int64, error) {
	page, err := s.Find(ctx, filters, opts)
	if err != nil {
		return nil, 0, err
	}
	return page, page.Total, nil
}

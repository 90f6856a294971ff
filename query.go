package webmail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/webmail/store"
)

// PageRequest selects a page of results. Page numbers are 1-based.
// A zero PageSize uses the service's default; oversized requests are
// capped at the configured maximum.
type PageRequest struct {
	Page     int
	PageSize int
}

// Page is one page of messages together with pagination bookkeeping.
type Page struct {
	// Messages holds this page's messages, newest first.
	Messages []Message
	// Total is the count of messages matching the view, across all pages.
	Total int64
	// TotalPages is the page count. An empty view still has one page.
	TotalPages int
	// StartIndex is the 1-based position of the first message on this
	// page within the full result, or -1 when the page is empty.
	StartIndex int
	// EndIndex is the 1-based position of the last message on this
	// page, or -1 when the page is empty.
	EndIndex int
	// HasMore is true when pages exist after this one.
	HasMore bool
}

// Messages returns a page of all messages in the mailbox, newest first.
func (m *userMailbox) Messages(ctx context.Context, req PageRequest) (*Page, error) {
	return m.listPage(ctx, "all", req, nil)
}

// Inbox returns a page of received messages, newest first. Received
// messages are the mailbox entries addressed to the owner; the sender's
// own sent copies carry the original recipient list and are excluded.
func (m *userMailbox) Inbox(ctx context.Context, req PageRequest) (*Page, error) {
	return m.listPage(ctx, "inbox", req, func(ownerEmail string) (store.Filter, error) {
		return store.RecipientIs(ownerEmail), nil
	})
}

// Sent returns a page of messages sent by this user, newest first.
func (m *userMailbox) Sent(ctx context.Context, req PageRequest) (*Page, error) {
	return m.listPage(ctx, "sent", req, func(ownerEmail string) (store.Filter, error) {
		return store.SenderIs(ownerEmail), nil
	})
}

// listPage runs a paged mailbox query for one of the list views.
// extraFilter, when non-nil, narrows the view using the owner's email.
func (m *userMailbox) listPage(ctx context.Context, view string, req PageRequest, extraFilter func(ownerEmail string) (store.Filter, error)) (*Page, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	page, size, err := m.normalizePageRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.list",
		attribute.String("user_id", m.userID),
		attribute.String("view", view),
		attribute.Int("page", page),
	)
	start := time.Now()
	var listErr error
	var resultCount int
	defer func() {
		endSpan(listErr)
		m.service.otel.recordList(ctx, time.Since(start), view, resultCount, listErr)
	}()

	mbox, err := m.Resolve(ctx)
	if err != nil {
		listErr = err
		return nil, err
	}

	filters := []store.Filter{store.MailboxIs(mbox.GetID())}
	if extraFilter != nil {
		owner, err := m.user(ctx)
		if err != nil {
			listErr = err
			return nil, err
		}
		f, err := extraFilter(owner.GetEmail())
		if err != nil {
			listErr = fmt.Errorf("build filter: %w", err)
			return nil, listErr
		}
		filters = append(filters, f)
	}

	skip := (page - 1) * size
	storePage, total, err := m.service.findWithCount(ctx, filters, store.ListOptions{
		Limit:     size,
		Offset:    skip,
		SortBy:    "timestamp",
		SortOrder: store.SortDesc,
	})
	if err != nil {
		listErr = fmt.Errorf("find messages: %w", err)
		return nil, listErr
	}

	// An empty view still has page 1; anything past the last page is
	// a missing resource, not an empty success.
	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		listErr = ErrPageNotFound
		return nil, listErr
	}

	resultCount = len(storePage.Messages)
	result := &Page{
		Messages:   storePage.Messages,
		Total:      total,
		TotalPages: totalPages,
		StartIndex: skip + 1,
		EndIndex:   skip + resultCount,
		HasMore:    int64(skip+resultCount) < total,
	}
	if resultCount == 0 {
		result.StartIndex = -1
		result.EndIndex = -1
	}
	return result, nil
}

// normalizePageRequest validates a page request and applies page size
// defaults and caps.
func (m *userMailbox) normalizePageRequest(req PageRequest) (page, size int, err error) {
	page = req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, &ValidationError{Field: "page", Message: "page must be at least 1"}
	}

	size = req.PageSize
	if size < 0 {
		return 0, 0, &ValidationError{Field: "page_size", Message: "page size must not be negative"}
	}
	if size == 0 {
		size = m.service.opts.defaultPageSize
	}
	if size > m.service.opts.maxPageSize {
		size = m.service.opts.maxPageSize
	}
	return page, size, nil
}

// Unread returns up to length unread messages, newest first, skipping
// the first startAfter of them. A zero startAfter begins at the newest
// unread message; a zero length uses the service's default page size.
func (m *userMailbox) Unread(ctx context.Context, length, startAfter int) ([]Message, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, &ValidationError{Field: "length", Message: "length must not be negative"}
	}
	if startAfter < 0 {
		return nil, &ValidationError{Field: "start_after", Message: "start after must not be negative"}
	}
	if length == 0 {
		length = m.service.opts.defaultPageSize
	}
	if length > m.service.opts.maxPageSize {
		length = m.service.opts.maxPageSize
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.list",
		attribute.String("user_id", m.userID),
		attribute.String("view", "unread"),
	)
	start := time.Now()
	var listErr error
	var resultCount int
	defer func() {
		endSpan(listErr)
		m.service.otel.recordList(ctx, time.Since(start), "unread", resultCount, listErr)
	}()

	mbox, err := m.Resolve(ctx)
	if err != nil {
		listErr = err
		return nil, err
	}

	filters := []store.Filter{
		store.MailboxIs(mbox.GetID()),
		store.IsReadFilter(false),
	}
	page, err := m.service.store.Find(ctx, filters, store.ListOptions{
		Limit:     length,
		Offset:    startAfter,
		SortBy:    "timestamp",
		SortOrder: store.SortDesc,
	})
	if err != nil {
		listErr = fmt.Errorf("find unread: %w", err)
		return nil, listErr
	}

	resultCount = len(page.Messages)
	return page.Messages, nil
}

package store

import (
	"fmt"
)

// SortOrder represents the sort direction.
type SortOrder int

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = 1
	// SortDesc sorts in descending order.
	SortDesc SortOrder = -1
)

// ListOptions configures message listing.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder SortOrder
	// StartAfter is a message id; results begin strictly after that
	// message in the requested order (keyset cursor). Ties on the sort
	// field are broken by id.
	StartAfter string
}

// Filter represents a query filter with a field key, comparison operator, and value.
type Filter struct {
	key      string
	value    any
	operator string
}

// Key returns the storage field key.
func (f Filter) Key() string { return f.key }

// Value returns the filter value.
func (f Filter) Value() any { return f.value }

// Operator returns the comparison operator (eq, ne, gt, gte, lt, lte, in, contains).
func (f Filter) Operator() string { return f.operator }

// FilterBuilder builds filters for a specific message field.
// Use MessageFilter() to create one, then chain a comparison method:
//
//	filter, err := store.MessageFilter("Timestamp").GreaterThan(cutoff)
type FilterBuilder struct {
	key string
	err error
}

// validOperators is the set of supported filter operators.
var validOperators = map[string]bool{
	"eq":       true,
	"ne":       true,
	"gt":       true,
	"gte":      true,
	"lt":       true,
	"lte":      true,
	"in":       true,
	"contains": true,
}

// NewFilter creates a filter with the given key, operator, and value.
// The key must be a valid message field (validated via MessageFieldKey).
// Returns ErrFilterInvalid if the key or operator is invalid.
func NewFilter(key, operator string, value any) (Filter, error) {
	storageKey, ok := MessageFieldKey(key)
	if !ok {
		return Filter{}, fmt.Errorf("%w: unsupported field: %s", ErrFilterInvalid, key)
	}
	if !validOperators[operator] {
		return Filter{}, fmt.Errorf("%w: unsupported operator: %s", ErrFilterInvalid, operator)
	}
	return Filter{key: storageKey, value: value, operator: operator}, nil
}

// FilterError represents an error in filter building.
type FilterError struct {
	Key string
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Key, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (b *FilterBuilder) build(op string, v any) (Filter, error) {
	if b.err != nil {
		return Filter{}, &FilterError{Key: b.key, Err: b.err}
	}
	return Filter{key: b.key, value: v, operator: op}, nil
}

func (b *FilterBuilder) Equal(v any) (Filter, error)            { return b.build("eq", v) }
func (b *FilterBuilder) NotEqual(v any) (Filter, error)         { return b.build("ne", v) }
func (b *FilterBuilder) GreaterThan(v any) (Filter, error)      { return b.build("gt", v) }
func (b *FilterBuilder) GreaterThanEqual(v any) (Filter, error) { return b.build("gte", v) }
func (b *FilterBuilder) LessThan(v any) (Filter, error)         { return b.build("lt", v) }
func (b *FilterBuilder) LessThanEqual(v any) (Filter, error)    { return b.build("lte", v) }
func (b *FilterBuilder) In(v ...any) (Filter, error)            { return b.build("in", v) }
func (b *FilterBuilder) Contains(v any) (Filter, error)         { return b.build("contains", v) }

// MessageFilter returns a filter builder for message fields.
func MessageFilter(field string) *FilterBuilder {
	key, ok := MessageFieldKey(field)
	if !ok {
		return &FilterBuilder{key: field, err: fmt.Errorf("unsupported field: %s", field)}
	}
	return &FilterBuilder{key: key}
}

// MessageFieldKey maps field names to storage keys.
func MessageFieldKey(field string) (string, bool) {
	switch field {
	case "ID", "id":
		return "id", true
	case "MailboxID", "mailbox_id":
		return "mailbox_id", true
	case "From", "from":
		return "from", true
	case "To", "to":
		return "to", true
	case "CC", "cc":
		return "cc", true
	case "BCC", "bcc":
		return "bcc", true
	case "Subject", "subject":
		return "subject", true
	case "IsRead", "is_read":
		return "is_read", true
	case "Timestamp", "timestamp":
		return "timestamp", true
	default:
		return "", false
	}
}

// MessageOrderingKey returns the storage key for sorting.
func MessageOrderingKey(field string) (string, bool) {
	switch field {
	case "ID", "id":
		return "id", true
	case "Timestamp", "timestamp":
		return "timestamp", true
	default:
		return "", false
	}
}

// Convenience filter functions

// MailboxIs returns a filter for messages owned by a specific mailbox.
func MailboxIs(mailboxID string) Filter {
	f, _ := MessageFilter("MailboxID").Equal(mailboxID)
	return f
}

// SenderIs returns a filter for messages from a specific sender email.
func SenderIs(email string) Filter {
	f, _ := MessageFilter("From").Equal(email)
	return f
}

// RecipientIs returns a filter for messages addressed to a specific email.
func RecipientIs(email string) Filter {
	f, _ := MessageFilter("To").Contains(email)
	return f
}

// IsReadFilter returns a filter for read/unread messages.
func IsReadFilter(isRead bool) Filter {
	f, _ := MessageFilter("IsRead").Equal(isRead)
	return f
}

// TimestampAfter returns a filter for messages strictly after t.
func TimestampAfter(t any) Filter {
	f, _ := MessageFilter("Timestamp").GreaterThan(t)
	return f
}

// TimestampBefore returns a filter for messages strictly before t.
func TimestampBefore(t any) Filter {
	f, _ := MessageFilter("Timestamp").LessThan(t)
	return f
}

package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/rbaliyan/webmail/store"
)

func matchesFilters(m *message, filters []store.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(m, f) {
			return false
		}
	}
	return true
}

func matchesFilter(m *message, f store.Filter) bool {
	key := f.Key()
	value := f.Value()
	op := f.Operator()

	// Address lists support contains.
	switch key {
	case "to":
		return matchesSliceFilter(m.to, op, value)
	case "cc":
		return matchesSliceFilter(m.cc, op, value)
	case "bcc":
		return matchesSliceFilter(m.bcc, op, value)
	}

	// Scalar fields.
	var fieldValue any
	switch key {
	case "id":
		fieldValue = m.id
	case "mailbox_id":
		fieldValue = m.mailboxID
	case "from":
		fieldValue = m.from
	case "subject":
		fieldValue = m.subject
	case "is_read":
		fieldValue = m.isRead
	case "timestamp":
		fieldValue = m.timestamp
	default:
		return true // Unknown field, skip filter
	}

	switch op {
	case "eq", "=", "":
		return fieldValue == value
	case "ne", "!=":
		return fieldValue != value
	case "lt", "<":
		return compareValues(fieldValue, value) < 0
	case "lte", "<=":
		return compareValues(fieldValue, value) <= 0
	case "gt", ">":
		return compareValues(fieldValue, value) > 0
	case "gte", ">=":
		return compareValues(fieldValue, value) >= 0
	case "in":
		return valueInSet(fieldValue, value)
	default:
		return true
	}
}

// matchesSliceFilter handles filter operations on address-list fields.
func matchesSliceFilter(slice []string, op string, value any) bool {
	switch op {
	case "contains":
		s, ok := value.(string)
		if !ok {
			return false
		}
		for _, item := range slice {
			if item == s {
				return true
			}
		}
		return false
	case "eq", "=", "":
		other, ok := value.([]string)
		if !ok {
			return false
		}
		if len(slice) != len(other) {
			return false
		}
		for i := range slice {
			if slice[i] != other[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// valueInSet checks if a scalar value is in a set (slice) of values.
func valueInSet(fieldValue any, set any) bool {
	switch s := set.(type) {
	case []string:
		fv, ok := fieldValue.(string)
		if !ok {
			return false
		}
		for _, v := range s {
			if v == fv {
				return true
			}
		}
	case []any:
		for _, v := range s {
			if v == fieldValue {
				return true
			}
		}
	}
	return false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	}
	return 0
}

// sortMessages orders msgs by the sort field with id as the tie-breaker, so
// equal timestamps always produce the same total order.
func sortMessages(msgs []*message, sortBy string, order store.SortOrder) {
	if sortBy == "" {
		sortBy = "timestamp"
	}
	if order == 0 {
		order = store.SortDesc
	}

	sort.Slice(msgs, func(i, j int) bool {
		return messageBefore(msgs[i], msgs[j], sortBy, order)
	})
}

// messageBefore reports whether a precedes b in the (sort field, id)
// total order for the given direction.
func messageBefore(a, b *message, sortBy string, order store.SortOrder) bool {
	var cmp int
	switch sortBy {
	case "timestamp":
		cmp = compareValues(a.timestamp, b.timestamp)
	case "id":
		cmp = strings.Compare(a.id, b.id)
	}
	if cmp == 0 {
		cmp = strings.Compare(a.id, b.id)
	}
	if order == store.SortAsc {
		return cmp < 0
	}
	return cmp > 0
}

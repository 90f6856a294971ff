package store

import (
	"errors"
	"testing"
)

func TestFilterBuilder(t *testing.T) {
	t.Run("builds comparison filters", func(t *testing.T) {
		f, err := MessageFilter("Subject").Equal("hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Key() != "subject" || f.Operator() != "eq" || f.Value() != "hello" {
			t.Errorf("unexpected filter: key=%q op=%q value=%v", f.Key(), f.Operator(), f.Value())
		}
	})

	t.Run("maps field names to storage keys", func(t *testing.T) {
		f, err := MessageFilter("MailboxID").Equal("mb1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Key() != "mailbox_id" {
			t.Errorf("expected storage key 'mailbox_id', got %q", f.Key())
		}
	})

	t.Run("accepts storage keys directly", func(t *testing.T) {
		f, err := MessageFilter("is_read").Equal(true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Key() != "is_read" {
			t.Errorf("expected key 'is_read', got %q", f.Key())
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := MessageFilter("Nope").Equal("x")
		if err == nil {
			t.Fatal("expected error for unknown field")
		}
		var fe *FilterError
		if !errors.As(err, &fe) {
			t.Errorf("expected FilterError, got %T", err)
		}
	})

	t.Run("operators", func(t *testing.T) {
		b := MessageFilter("Timestamp")
		cases := []struct {
			op string
			f  func() (Filter, error)
		}{
			{"ne", func() (Filter, error) { return b.NotEqual(1) }},
			{"gt", func() (Filter, error) { return b.GreaterThan(1) }},
			{"gte", func() (Filter, error) { return b.GreaterThanEqual(1) }},
			{"lt", func() (Filter, error) { return b.LessThan(1) }},
			{"lte", func() (Filter, error) { return b.LessThanEqual(1) }},
			{"in", func() (Filter, error) { return b.In(1, 2) }},
			{"contains", func() (Filter, error) { return b.Contains(1) }},
		}
		for _, tc := range cases {
			f, err := tc.f()
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.op, err)
			}
			if f.Operator() != tc.op {
				t.Errorf("expected operator %q, got %q", tc.op, f.Operator())
			}
		}
	})
}

func TestNewFilter(t *testing.T) {
	f, err := NewFilter("From", "eq", "a@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Key() != "from" {
		t.Errorf("expected key 'from', got %q", f.Key())
	}

	if _, err := NewFilter("From", "between", "x"); !errors.Is(err, ErrFilterInvalid) {
		t.Errorf("expected ErrFilterInvalid for bad operator, got %v", err)
	}
	if _, err := NewFilter("Bogus", "eq", "x"); !errors.Is(err, ErrFilterInvalid) {
		t.Errorf("expected ErrFilterInvalid for bad field, got %v", err)
	}
}

func TestConvenienceFilters(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		key  string
		op   string
	}{
		{"MailboxIs", MailboxIs("mb1"), "mailbox_id", "eq"},
		{"SenderIs", SenderIs("a@example.com"), "from", "eq"},
		{"RecipientIs", RecipientIs("b@example.com"), "to", "contains"},
		{"IsReadFilter", IsReadFilter(false), "is_read", "eq"},
		{"TimestampAfter", TimestampAfter(42), "timestamp", "gt"},
		{"TimestampBefore", TimestampBefore(42), "timestamp", "lt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.f.Key() != tc.key {
				t.Errorf("expected key %q, got %q", tc.key, tc.f.Key())
			}
			if tc.f.Operator() != tc.op {
				t.Errorf("expected operator %q, got %q", tc.op, tc.f.Operator())
			}
		})
	}
}

func TestMessageOrderingKey(t *testing.T) {
	if key, ok := MessageOrderingKey("Timestamp"); !ok || key != "timestamp" {
		t.Errorf("expected timestamp ordering key, got %q %v", key, ok)
	}
	if _, ok := MessageOrderingKey("Subject"); ok {
		t.Error("expected Subject rejected as ordering key")
	}
}

package webmail

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rbaliyan/webmail/store/memory"
)

// setupClockService creates a connected service whose message timestamps
// advance one second per store write, giving tests a deterministic timeline.
func setupClockService(t *testing.T) (Service, *memory.Store) {
	t.Helper()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	st := memory.NewWithClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	seedUsers(st)

	svc, err := NewService(WithStore(st))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { svc.Close(context.Background()) })

	return svc, st
}

// sendN sends n messages from alice to bob with numbered subjects.
func sendN(t *testing.T, svc Service, n int) {
	t.Helper()
	alice := svc.Client("alice")
	for i := 1; i <= n; i++ {
		mustSend(t, alice, SendRequest{
			To:      []string{"bob@example.com"},
			Subject: fmt.Sprintf("message %02d", i),
			Body:    "body",
		})
	}
}

func TestInboxPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupClockService(t)
	sendN(t, svc, 15)
	bob := svc.Client("bob")

	t.Run("first page", func(t *testing.T) {
		page, err := bob.Inbox(ctx, PageRequest{Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(page.Messages) != 10 {
			t.Errorf("expected 10 messages, got %d", len(page.Messages))
		}
		if page.Total != 15 {
			t.Errorf("expected total 15, got %d", page.Total)
		}
		if page.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", page.TotalPages)
		}
		if page.StartIndex != 1 || page.EndIndex != 10 {
			t.Errorf("expected indexes 1..10, got %d..%d", page.StartIndex, page.EndIndex)
		}
		if !page.HasMore {
			t.Error("expected HasMore on first page")
		}
		// Newest first.
		if page.Messages[0].GetSubject() != "message 15" {
			t.Errorf("expected newest message first, got %q", page.Messages[0].GetSubject())
		}
	})

	t.Run("last partial page", func(t *testing.T) {
		page, err := bob.Inbox(ctx, PageRequest{Page: 2, PageSize: 10})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(page.Messages) != 5 {
			t.Errorf("expected 5 messages, got %d", len(page.Messages))
		}
		if page.StartIndex != 11 || page.EndIndex != 15 {
			t.Errorf("expected indexes 11..15, got %d..%d", page.StartIndex, page.EndIndex)
		}
		if page.HasMore {
			t.Error("expected no more pages")
		}
		if page.Messages[4].GetSubject() != "message 01" {
			t.Errorf("expected oldest message last, got %q", page.Messages[4].GetSubject())
		}
	})

	t.Run("default page size is 10", func(t *testing.T) {
		page, err := bob.Inbox(ctx, PageRequest{})
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(page.Messages) != DefaultPageSize {
			t.Errorf("expected %d messages with default page size, got %d", DefaultPageSize, len(page.Messages))
		}
		if page.TotalPages != 2 {
			t.Errorf("expected 2 pages of 15 messages, got %d", page.TotalPages)
		}
	})

	t.Run("page beyond last", func(t *testing.T) {
		_, err := bob.Inbox(ctx, PageRequest{Page: 3, PageSize: 10})
		if !errors.Is(err, ErrPageNotFound) {
			t.Errorf("expected ErrPageNotFound, got %v", err)
		}
	})

	t.Run("pages cover every message exactly once", func(t *testing.T) {
		seen := make(map[string]bool)
		for p := 1; p <= 4; p++ {
			page, err := bob.Inbox(ctx, PageRequest{Page: p, PageSize: 4})
			if err != nil {
				t.Fatalf("page %d failed: %v", p, err)
			}
			for _, msg := range page.Messages {
				if seen[msg.GetID()] {
					t.Errorf("message %s appeared twice", msg.GetID())
				}
				seen[msg.GetID()] = true
			}
		}
		if len(seen) != 15 {
			t.Errorf("expected 15 distinct messages across pages, got %d", len(seen))
		}
	})

	t.Run("invalid requests", func(t *testing.T) {
		if _, err := bob.Inbox(ctx, PageRequest{Page: -1}); err == nil {
			t.Error("expected error for negative page")
		}
		if _, err := bob.Inbox(ctx, PageRequest{PageSize: -5}); err == nil {
			t.Error("expected error for negative page size")
		}
	})
}

func TestEmptyMailboxPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	carol := svc.Client("carol")

	// Page 1 of an empty mailbox is an empty success with sentinel indexes.
	page, err := carol.Inbox(ctx, PageRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(page.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(page.Messages))
	}
	if page.Total != 0 {
		t.Errorf("expected total 0, got %d", page.Total)
	}
	if page.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", page.TotalPages)
	}
	if page.StartIndex != -1 || page.EndIndex != -1 {
		t.Errorf("expected sentinel indexes, got %d..%d", page.StartIndex, page.EndIndex)
	}
	if page.HasMore {
		t.Error("expected no more pages")
	}

	// Page 2 of an empty mailbox does not exist.
	if _, err := carol.Inbox(ctx, PageRequest{Page: 2, PageSize: 10}); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestInboxSentSeparation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupClockService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "from alice"})
	mustSend(t, bob, SendRequest{To: []string{"alice@example.com"}, Subject: "from bob"})

	inbox, err := alice.Inbox(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(inbox.Messages) != 1 || inbox.Messages[0].GetSubject() != "from bob" {
		t.Errorf("expected alice inbox to hold bob's message, got %d messages", len(inbox.Messages))
	}

	sent, err := alice.Sent(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("sent failed: %v", err)
	}
	if len(sent.Messages) != 1 || sent.Messages[0].GetSubject() != "from alice" {
		t.Errorf("expected alice sent to hold her message, got %d messages", len(sent.Messages))
	}
	if !sent.Messages[0].GetIsRead() {
		t.Error("expected sent copy marked read")
	}

	all, err := alice.Messages(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(all.Messages) != 2 {
		t.Errorf("expected 2 mailbox messages, got %d", len(all.Messages))
	}
}

func TestUnreadListing(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupClockService(t)
	sendN(t, svc, 5)
	bob := svc.Client("bob")

	t.Run("zero offset returns every unread message", func(t *testing.T) {
		all, err := bob.Unread(ctx, 10, 0)
		if err != nil {
			t.Fatalf("unread failed: %v", err)
		}
		if len(all) != 5 {
			t.Fatalf("expected 5 unread messages, got %d", len(all))
		}
		if all[0].GetSubject() != "message 05" || all[4].GetSubject() != "message 01" {
			t.Errorf("expected newest first, got %q .. %q",
				all[0].GetSubject(), all[4].GetSubject())
		}
	})

	t.Run("offset walks newest to oldest", func(t *testing.T) {
		first, err := bob.Unread(ctx, 2, 0)
		if err != nil {
			t.Fatalf("unread failed: %v", err)
		}
		if len(first) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(first))
		}
		if first[0].GetSubject() != "message 05" || first[1].GetSubject() != "message 04" {
			t.Errorf("expected newest unread first, got %q, %q",
				first[0].GetSubject(), first[1].GetSubject())
		}

		second, err := bob.Unread(ctx, 2, 2)
		if err != nil {
			t.Fatalf("unread with offset failed: %v", err)
		}
		if len(second) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(second))
		}
		if second[0].GetSubject() != "message 03" {
			t.Errorf("expected continuation at offset 2, got %q", second[0].GetSubject())
		}

		third, err := bob.Unread(ctx, 2, 4)
		if err != nil {
			t.Fatalf("unread final window failed: %v", err)
		}
		if len(third) != 1 || third[0].GetSubject() != "message 01" {
			t.Errorf("expected single oldest message, got %d", len(third))
		}
	})

	t.Run("offset past the end is empty", func(t *testing.T) {
		past, err := bob.Unread(ctx, 2, 50)
		if err != nil {
			t.Fatalf("unread failed: %v", err)
		}
		if len(past) != 0 {
			t.Errorf("expected no messages past the end, got %d", len(past))
		}
	})

	t.Run("read messages drop out", func(t *testing.T) {
		all, err := bob.Unread(ctx, 10, 0)
		if err != nil {
			t.Fatalf("unread failed: %v", err)
		}
		if _, err := bob.MarkRead(ctx, all[0].GetID()); err != nil {
			t.Fatalf("mark read failed: %v", err)
		}

		remaining, err := bob.Unread(ctx, 10, 0)
		if err != nil {
			t.Fatalf("unread failed: %v", err)
		}
		if len(remaining) != len(all)-1 {
			t.Errorf("expected %d unread, got %d", len(all)-1, len(remaining))
		}
		if len(remaining) > 0 && remaining[0].GetID() == all[0].GetID() {
			t.Error("expected read message to drop out of unread listing")
		}
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := bob.Unread(ctx, 2, -1)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

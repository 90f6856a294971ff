package webmail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbaliyan/webmail/store"
	"github.com/rbaliyan/webmail/store/memory"
)

func TestNeighborTraversal(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupClockService(t)
	sendN(t, svc, 5)
	bob := svc.Client("bob")

	page, err := bob.Messages(ctx, PageRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(page.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(page.Messages))
	}

	t.Run("prev walks toward older", func(t *testing.T) {
		// The listing is newest first, so Prev follows listing order.
		cur := page.Messages[0]
		for i := 1; i < len(page.Messages); i++ {
			prev, err := bob.Prev(ctx, cur.GetID())
			if err != nil {
				t.Fatalf("prev from %q failed: %v", cur.GetSubject(), err)
			}
			if prev.GetID() != page.Messages[i].GetID() {
				t.Fatalf("expected %q before %q, got %q",
					page.Messages[i].GetSubject(), cur.GetSubject(), prev.GetSubject())
			}
			cur = prev
		}

		// The oldest message has no predecessor.
		if _, err := bob.Prev(ctx, cur.GetID()); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("expected ErrMessageNotFound past the oldest message, got %v", err)
		}
	})

	t.Run("next walks toward newer", func(t *testing.T) {
		cur := page.Messages[len(page.Messages)-1]
		for i := len(page.Messages) - 2; i >= 0; i-- {
			next, err := bob.Next(ctx, cur.GetID())
			if err != nil {
				t.Fatalf("next from %q failed: %v", cur.GetSubject(), err)
			}
			if next.GetID() != page.Messages[i].GetID() {
				t.Fatalf("expected %q after %q, got %q",
					page.Messages[i].GetSubject(), cur.GetSubject(), next.GetSubject())
			}
			cur = next
		}

		// The newest message has no successor.
		if _, err := bob.Next(ctx, cur.GetID()); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("expected ErrMessageNotFound past the newest message, got %v", err)
		}
	})

	t.Run("next and prev are inverses", func(t *testing.T) {
		anchor := page.Messages[2]
		next, err := bob.Next(ctx, anchor.GetID())
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		back, err := bob.Prev(ctx, next.GetID())
		if err != nil {
			t.Fatalf("prev failed: %v", err)
		}
		if back.GetID() != anchor.GetID() {
			t.Errorf("expected prev(next(x)) == x, got %q", back.GetSubject())
		}
	})
}

func TestNeighborMailboxScoped(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupClockService(t)
	alice := svc.Client("alice")
	carol := svc.Client("carol")

	// Interleave deliveries so other mailboxes hold messages with
	// timestamps between bob's.
	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "bob 1"})
	mustSend(t, carol, SendRequest{To: []string{"alice@example.com"}, Subject: "alice only"})
	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "bob 2"})

	bob := svc.Client("bob")
	page, err := bob.Messages(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("expected 2 messages for bob, got %d", len(page.Messages))
	}

	// Prev from bob's newest skips straight to his older message even
	// though another mailbox holds a record between the two.
	prev, err := bob.Prev(ctx, page.Messages[0].GetID())
	if err != nil {
		t.Fatalf("prev failed: %v", err)
	}
	if prev.GetSubject() != "bob 1" {
		t.Errorf("expected neighbor within bob's mailbox, got %q", prev.GetSubject())
	}
}

func TestNeighborErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "anchor"})

	inbox, err := bob.Inbox(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	msgID := inbox.Messages[0].GetID()

	t.Run("missing anchor", func(t *testing.T) {
		if _, err := bob.Next(ctx, "no-such-message"); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("expected ErrMessageNotFound, got %v", err)
		}
		if _, err := bob.Prev(ctx, "no-such-message"); !errors.Is(err, ErrMessageNotFound) {
			t.Errorf("expected ErrMessageNotFound, got %v", err)
		}
	})

	t.Run("anchor in another mailbox", func(t *testing.T) {
		if _, err := svc.Client("carol").Next(ctx, msgID); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.Client("carol").Prev(ctx, msgID); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestNeighborTimestampTieBreak(t *testing.T) {
	ctx := context.Background()

	// A frozen clock gives every message the same timestamp, so ordering
	// falls back to the record ID.
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	st := memory.NewWithClock(func() time.Time { return fixed })
	st.AddUser(store.UserData{ID: "alice", Email: "alice@example.com", Name: "Alice Anders"})
	st.AddUser(store.UserData{ID: "bob", Email: "bob@example.com", Name: "Bob Baker"})

	svc, err := NewService(WithStore(st))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer svc.Close(ctx)

	alice := svc.Client("alice")
	for i := 0; i < 3; i++ {
		mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "tied"})
	}

	bob := svc.Client("bob")
	page, err := bob.Messages(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(page.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page.Messages))
	}

	// Walking Prev from the listing head visits each message exactly once,
	// in listing order, despite identical timestamps.
	seen := map[string]bool{page.Messages[0].GetID(): true}
	cur := page.Messages[0]
	for i := 1; i < 3; i++ {
		prev, err := bob.Prev(ctx, cur.GetID())
		if err != nil {
			t.Fatalf("prev failed at step %d: %v", i, err)
		}
		if seen[prev.GetID()] {
			t.Fatalf("message %s visited twice", prev.GetID())
		}
		if prev.GetID() != page.Messages[i].GetID() {
			t.Fatalf("traversal order diverged from listing at step %d", i)
		}
		seen[prev.GetID()] = true
		cur = prev
	}
	if _, err := bob.Prev(ctx, cur.GetID()); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound at the end, got %v", err)
	}

	// Next inverts the walk back to the newest record.
	next, err := bob.Next(ctx, cur.GetID())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if next.GetID() != page.Messages[1].GetID() {
		t.Error("expected Next to invert the Prev step")
	}
}

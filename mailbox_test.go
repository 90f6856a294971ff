package webmail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestResolveIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	mb := svc.Client("alice")

	first, err := mb.Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if first.GetID() == "" {
		t.Fatal("expected non-empty mailbox ID")
	}
	if first.GetUserID() != "alice" {
		t.Errorf("expected owner 'alice', got %q", first.GetUserID())
	}

	second, err := mb.Resolve(ctx)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if second.GetID() != first.GetID() {
		t.Errorf("resolve not idempotent: %q != %q", second.GetID(), first.GetID())
	}
}

func TestResolveConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	const goroutines = 32
	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			mbox, err := svc.Client("bob").Resolve(ctx)
			if err != nil {
				t.Errorf("concurrent resolve failed: %v", err)
				return
			}
			ids[i] = mbox.GetID()
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("concurrent resolves produced different mailboxes: %q != %q", ids[i], ids[0])
		}
	}
}

func TestResolveConcurrentFreshUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	// Each iteration races first resolution for a user no one has touched.
	const (
		users      = 100
		goroutines = 4
	)
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("fresh-%04d", i)
		ids := make([]string, goroutines)
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for g := 0; g < goroutines; g++ {
			go func(g int) {
				defer wg.Done()
				mbox, err := svc.Client(userID).Resolve(ctx)
				if err != nil {
					t.Errorf("resolve %s: %v", userID, err)
					return
				}
				ids[g] = mbox.GetID()
			}(g)
		}
		wg.Wait()
		for g := 1; g < goroutines; g++ {
			if ids[g] != ids[0] {
				t.Fatalf("user %s resolved mailboxes %q and %q", userID, ids[0], ids[g])
			}
		}
	}
}

func TestResolveDistinctUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	a, err := svc.Client("alice").Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve alice: %v", err)
	}
	b, err := svc.Client("bob").Resolve(ctx)
	if err != nil {
		t.Fatalf("resolve bob: %v", err)
	}
	if a.GetID() == b.GetID() {
		t.Error("expected distinct mailboxes for distinct users")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	stats, err := bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 0 || stats.UnreadCount != 0 {
		t.Errorf("expected empty stats, got total=%d unread=%d", stats.TotalMessages, stats.UnreadCount)
	}

	mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "first",
		Body:    "body",
	})
	mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "second",
		Body:    "body",
	})

	stats, err = bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 2 {
		t.Errorf("expected 2 messages, got %d", stats.TotalMessages)
	}
	if stats.UnreadCount != 2 {
		t.Errorf("expected 2 unread, got %d", stats.UnreadCount)
	}

	// Sender copies are created read, so the sender's unread count stays 0.
	senderStats, err := alice.Stats(ctx)
	if err != nil {
		t.Fatalf("sender stats failed: %v", err)
	}
	if senderStats.TotalMessages != 2 {
		t.Errorf("expected 2 sender copies, got %d", senderStats.TotalMessages)
	}
	if senderStats.UnreadCount != 0 {
		t.Errorf("expected 0 unread for sender, got %d", senderStats.UnreadCount)
	}
}

func TestStatsReflectReadState(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com"},
		Subject: "hello",
	})

	inbox, err := bob.Inbox(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	msgID := inbox.Messages[0].GetID()

	if _, err := bob.MarkRead(ctx, msgID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	// Counts are never cached; the change is visible immediately.
	stats, err := bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.UnreadCount != 0 {
		t.Errorf("expected 0 unread after mark read, got %d", stats.UnreadCount)
	}

	if _, err := bob.MarkUnread(ctx, msgID); err != nil {
		t.Fatalf("mark unread failed: %v", err)
	}
	stats, err = bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.UnreadCount != 1 {
		t.Errorf("expected 1 unread after mark unread, got %d", stats.UnreadCount)
	}
}

func TestGetUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	// "dave" passes ID validation but has no user record, so sending
	// from that client cannot resolve a sender address.
	_, err := svc.Client("dave").Send(ctx, SendRequest{
		To:      []string{"alice@example.com"},
		Subject: "hi",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

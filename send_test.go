package webmail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSendFanOut(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")

	result := mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com", "carol@example.com"},
		Subject: "team update",
		Body:    "status",
	})

	if len(result.DeliveredTo) != 2 {
		t.Fatalf("expected 2 delivered, got %d", len(result.DeliveredTo))
	}

	// Sender copy carries the full recipient list and is created read.
	sender := result.Message
	if !sender.GetIsRead() {
		t.Error("expected sender copy marked read")
	}
	if sender.GetReadAt() == nil {
		t.Error("expected sender copy read timestamp")
	}
	if len(sender.GetTo()) != 2 {
		t.Errorf("expected sender copy to list 2 recipients, got %d", len(sender.GetTo()))
	}
	if sender.GetFrom() != "alice@example.com" {
		t.Errorf("expected sender copy from alice, got %q", sender.GetFrom())
	}

	// Each recipient gets an unread copy addressed to them alone.
	for _, userID := range []string{"bob", "carol"} {
		inbox, err := svc.Client(userID).Inbox(ctx, PageRequest{})
		if err != nil {
			t.Fatalf("inbox %s failed: %v", userID, err)
		}
		if len(inbox.Messages) != 1 {
			t.Fatalf("expected 1 message for %s, got %d", userID, len(inbox.Messages))
		}
		msg := inbox.Messages[0]
		if msg.GetIsRead() {
			t.Errorf("expected unread copy for %s", userID)
		}
		if msg.GetID() == sender.GetID() {
			t.Errorf("recipient copy for %s shares the sender record", userID)
		}
		wantTo := userID + "@example.com"
		if len(msg.GetTo()) != 1 || msg.GetTo()[0] != wantTo {
			t.Errorf("expected copy addressed to [%s], got %v", wantTo, msg.GetTo())
		}
		if msg.GetSubject() != "team update" {
			t.Errorf("expected subject preserved, got %q", msg.GetSubject())
		}
	}
}

func TestSendRecipientCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	// Two sends to one recipient: 2 recipient copies + 2 sender copies.
	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "one"})
	mustSend(t, alice, SendRequest{To: []string{"bob@example.com"}, Subject: "two"})

	bobStats, err := bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if bobStats.TotalMessages != 2 {
		t.Errorf("expected 2 recipient copies, got %d", bobStats.TotalMessages)
	}

	aliceStats, err := alice.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if aliceStats.TotalMessages != 2 {
		t.Errorf("expected 2 sender copies, got %d", aliceStats.TotalMessages)
	}
}

func TestSendDeduplicatesRecipients(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	// Bob appears in To twice and in CC; he must receive exactly one copy.
	result := mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com", "bob@example.com"},
		CC:      []string{"BOB@example.com"},
		Subject: "deduped",
	})

	if len(result.DeliveredTo) != 1 {
		t.Errorf("expected 1 unique recipient, got %d", len(result.DeliveredTo))
	}

	stats, err := bob.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMessages != 1 {
		t.Errorf("expected 1 copy for deduplicated recipient, got %d", stats.TotalMessages)
	}
}

func TestSendRecipientCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")
	bob := svc.Client("bob")

	// Recipient resolution ignores address case; the delivered copy is
	// addressed with the directory's canonical email.
	mustSend(t, alice, SendRequest{
		To:      []string{"Bob@Example.COM"},
		Subject: "mixed case",
	})

	inbox, err := bob.Inbox(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("inbox failed: %v", err)
	}
	if len(inbox.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(inbox.Messages))
	}
	msg := inbox.Messages[0]
	if len(msg.GetTo()) != 1 || msg.GetTo()[0] != "bob@example.com" {
		t.Errorf("expected canonical recipient address, got %v", msg.GetTo())
	}
}

func TestSendCCAndBCC(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")

	result := mustSend(t, alice, SendRequest{
		To:      []string{"bob@example.com"},
		CC:      []string{"carol@example.com"},
		Subject: "cc test",
	})

	if len(result.DeliveredTo) != 2 {
		t.Fatalf("expected 2 delivered (to + cc), got %d", len(result.DeliveredTo))
	}
	if len(result.Message.GetCC()) != 1 || result.Message.GetCC()[0] != "carol@example.com" {
		t.Errorf("expected sender copy CC preserved, got %v", result.Message.GetCC())
	}

	// The CC recipient's copy is addressed to them alone.
	inbox, err := svc.Client("carol").Inbox(ctx, PageRequest{})
	if err != nil {
		t.Fatalf("carol inbox failed: %v", err)
	}
	if len(inbox.Messages) != 1 {
		t.Fatalf("expected 1 message for carol, got %d", len(inbox.Messages))
	}
	if got := inbox.Messages[0].GetTo(); len(got) != 1 || got[0] != "carol@example.com" {
		t.Errorf("expected carol copy addressed to her, got %v", got)
	}
}

func TestSendUnknownRecipient(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")

	t.Run("partial failure delivers the rest", func(t *testing.T) {
		result, err := alice.Send(ctx, SendRequest{
			To:      []string{"bob@example.com", "ghost@example.com"},
			Subject: "partial",
		})

		de, ok := IsDeliveryError(err)
		if !ok {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if !errors.Is(de.Failed["ghost@example.com"], ErrUnknownRecipient) {
			t.Errorf("expected ErrUnknownRecipient for ghost, got %v", de.Failed["ghost@example.com"])
		}
		if de.AllFailed() {
			t.Error("expected partial, not total, failure")
		}

		// The delivered recipient and sender copy still exist.
		if result == nil {
			t.Fatal("expected result for partial delivery")
		}
		if len(result.DeliveredTo) != 1 || result.DeliveredTo[0] != "bob@example.com" {
			t.Errorf("expected delivery to bob, got %v", result.DeliveredTo)
		}
		if de.MessageID != result.Message.GetID() {
			t.Errorf("expected error to reference sender copy %q, got %q",
				result.Message.GetID(), de.MessageID)
		}

		inbox, err := svc.Client("bob").Inbox(ctx, PageRequest{})
		if err != nil {
			t.Fatalf("bob inbox failed: %v", err)
		}
		if len(inbox.Messages) != 1 {
			t.Errorf("expected bob to receive the message, got %d", len(inbox.Messages))
		}
	})

	t.Run("total failure writes nothing", func(t *testing.T) {
		before, err := alice.Stats(ctx)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}

		result, err := alice.Send(ctx, SendRequest{
			To:      []string{"ghost@example.com", "phantom@example.com"},
			Subject: "nobody home",
		})
		de, ok := IsDeliveryError(err)
		if !ok {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if !de.AllFailed() {
			t.Error("expected AllFailed")
		}
		if de.MessageID != "" {
			t.Errorf("expected no sender copy reference, got %q", de.MessageID)
		}
		if result != nil {
			t.Error("expected nil result on total failure")
		}

		// No sender copy was created.
		after, err := alice.Stats(ctx)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if after.TotalMessages != before.TotalMessages {
			t.Errorf("expected no new sender copies, got %d -> %d",
				before.TotalMessages, after.TotalMessages)
		}
	})
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)
	alice := svc.Client("alice")

	cases := []struct {
		name  string
		req   SendRequest
		field string
	}{
		{"no recipients", SendRequest{Subject: "x"}, "to"},
		{"empty subject", SendRequest{To: []string{"bob@example.com"}}, "subject"},
		{"blank subject", SendRequest{To: []string{"bob@example.com"}, Subject: "   "}, "subject"},
		{"malformed address", SendRequest{To: []string{"not-an-address"}, Subject: "x"}, "to"},
		{"oversized subject", SendRequest{
			To:      []string{"bob@example.com"},
			Subject: strings.Repeat("s", DefaultMaxSubjectLength+1),
		}, "subject"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := alice.Send(ctx, tc.req)
			ve, ok := IsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, ve.Field)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Error("expected error to wrap ErrInvalidRequest")
			}
		})
	}

	t.Run("too many recipients", func(t *testing.T) {
		st := memoryStoreWithUsers(t)
		svc, err := NewService(WithStore(st), WithMaxRecipients(2))
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
		defer svc.Close(ctx)

		_, err = svc.Client("alice").Send(ctx, SendRequest{
			To:      []string{"a@example.com", "b@example.com", "c@example.com"},
			Subject: "x",
		})
		if _, ok := IsValidationError(err); !ok {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

package webmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/webmail/store"
)

// SendRequest contains the data needed to send a message.
// The recipient set is the deduplicated union of To, CC, and BCC.
type SendRequest struct {
	To      []string
	CC      []string
	BCC     []string
	Subject string
	Body    string
}

// SendResult reports a completed (possibly partial) send.
type SendResult struct {
	// Message is the sender's copy, created read with the full
	// recipient list.
	Message Message
	// DeliveredTo contains recipient addresses that received a copy.
	DeliveredTo []string
}

// Send delivers a message to every unique recipient in the request.
//
// For k recipients, a successful send creates k+1 message records: one
// unread copy per recipient mailbox addressed to that recipient alone,
// plus one read copy in the sender's mailbox carrying the full recipient
// list. Recipient failures are independent: an unknown address fails that
// recipient with ErrUnknownRecipient while the rest proceed.
//
// When some recipients fail, Send returns the result for the delivered
// recipients together with a *DeliveryError describing the failures.
// When every recipient fails, no sender copy is created and Send returns
// a nil result with the *DeliveryError.
func (m *userMailbox) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}

	// Deduplicate before validation so the recipient count check reflects
	// the actual number of unique recipients.
	recipients := uniqueRecipients(req.To, req.CC, req.BCC)
	if err := ValidateSendRequest(req, recipients, m.service.opts.getLimits()); err != nil {
		return nil, err
	}

	ctx, endSpan := m.service.otel.startSpan(ctx, "webmail.send",
		attribute.String("user_id", m.userID),
		attribute.Int("recipient_count", len(recipients)),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		m.service.otel.recordSend(ctx, time.Since(start), len(recipients), sendErr)
	}()

	if err := m.service.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return nil, sendErr
	}
	defer m.service.sendSem.Release(1)

	sender, err := m.user(ctx)
	if err != nil {
		sendErr = err
		return nil, sendErr
	}

	delivered, failed := m.deliverToRecipients(ctx, sender.GetEmail(), recipients, req)

	// Total failure: no sender copy is written.
	if len(delivered) == 0 {
		sendErr = &DeliveryError{Failed: failed}
		return nil, sendErr
	}

	senderCopy, err := m.createSenderCopy(ctx, sender.GetEmail(), req)
	if err != nil {
		sendErr = err
		return nil, sendErr
	}

	result := &SendResult{
		Message:     senderCopy,
		DeliveredTo: delivered,
	}

	if len(failed) > 0 {
		sendErr = &DeliveryError{
			MessageID: senderCopy.GetID(),
			Delivered: delivered,
			Failed:    failed,
		}
		return result, sendErr
	}

	m.service.logger.Debug("message sent",
		"user_id", m.userID,
		"message_id", senderCopy.GetID(),
		"recipients", len(delivered))
	return result, nil
}

// deliverToRecipients resolves each recipient and creates their unread
// copy. Each copy is addressed to that recipient alone. Returns the
// delivered addresses and a map of failed addresses to their errors.
func (m *userMailbox) deliverToRecipients(ctx context.Context, senderEmail string, recipients []string, req SendRequest) ([]string, map[string]error) {
	var delivered []string
	failed := make(map[string]error)

	for _, addr := range recipients {
		user, err := m.service.store.GetUserByEmail(ctx, addr)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				failed[addr] = ErrUnknownRecipient
			} else {
				failed[addr] = fmt.Errorf("resolve recipient: %w", err)
			}
			continue
		}

		mbox, err := m.service.store.EnsureMailbox(ctx, user.GetID())
		if err != nil {
			failed[addr] = fmt.Errorf("ensure recipient mailbox: %w", err)
			continue
		}

		// Address the copy with the directory's canonical email so the
		// inbox predicate matches regardless of how the sender typed it.
		_, err = m.service.store.CreateMessage(ctx, store.MessageData{
			MailboxID: mbox.GetID(),
			From:      senderEmail,
			To:        []string{user.GetEmail()},
			Subject:   req.Subject,
			Body:      req.Body,
			IsRead:    false,
		})
		if err != nil {
			failed[addr] = fmt.Errorf("create recipient copy: %w", err)
			continue
		}

		delivered = append(delivered, addr)
	}

	return delivered, failed
}

// createSenderCopy writes the sender's read copy carrying the full
// recipient list from the request.
func (m *userMailbox) createSenderCopy(ctx context.Context, senderEmail string, req SendRequest) (store.Message, error) {
	mbox, err := m.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	senderCopy, err := m.service.store.CreateMessage(ctx, store.MessageData{
		MailboxID: mbox.GetID(),
		From:      senderEmail,
		To:        req.To,
		CC:        req.CC,
		BCC:       req.BCC,
		Subject:   req.Subject,
		Body:      req.Body,
		IsRead:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("create sender copy: %w", err)
	}
	return senderCopy, nil
}

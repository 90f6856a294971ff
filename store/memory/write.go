package memory

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// CreateMessage creates a new message record from the given data.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (store.Message, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if data.MailboxID == "" {
		return nil, store.ErrInvalidID
	}

	m := &message{
		id:        uuid.New().String(),
		mailboxID: data.MailboxID,
		from:      data.From,
		subject:   data.Subject,
		body:      data.Body,
		isRead:    data.IsRead,
		timestamp: s.now().UTC(),
	}
	if data.To != nil {
		m.to = make([]string, len(data.To))
		copy(m.to, data.To)
	}
	if data.CC != nil {
		m.cc = make([]string, len(data.CC))
		copy(m.cc, data.CC)
	}
	if data.BCC != nil {
		m.bcc = make([]string, len(data.BCC))
		copy(m.bcc, data.BCC)
	}
	if data.IsRead {
		now := m.timestamp
		m.readAt = &now
	}

	s.messages.Store(m.id, m)
	return m.clone(), nil
}

// CreateMessages creates multiple message records in order.
// Each sync.Map store is atomic per-key; there is no cross-record
// transaction, matching the fan-out engine's per-recipient delivery policy.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	messages := make([]store.Message, len(data))
	for i, d := range data {
		msg, err := s.CreateMessage(ctx, d)
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}
	return messages, nil
}

// SetRead sets the read state of a message. Idempotent.
// Uses per-message locking to prevent concurrent mutation races.
func (s *Store) SetRead(ctx context.Context, id string, read bool) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	if id == "" {
		return store.ErrInvalidID
	}

	lock := s.getMsgLock(id)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.messages.Load(id)
	if !ok {
		return store.ErrNotFound
	}

	// Copy-on-write: clone, modify, store (atomic within the lock).
	m := v.(*message).clone()
	m.isRead = read
	if read {
		now := s.now().UTC()
		m.readAt = &now
	} else {
		m.readAt = nil
	}
	s.messages.Store(id, m)
	return nil
}

// DeleteMessage permanently removes exactly one message record.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	if id == "" {
		return store.ErrInvalidID
	}

	if _, loaded := s.messages.LoadAndDelete(id); !loaded {
		return store.ErrNotFound
	}
	s.msgLocks.Delete(id)
	return nil
}

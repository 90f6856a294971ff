// Package cached provides a Redis caching wrapper for message stores.
//
// Only single-message reads are cached. List queries, message counts and
// mailbox stats always hit the backend so that unread counts and totals
// reflect the current store state. Mutations invalidate the cache entry
// before reaching the backend.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rbaliyan/webmail/store"
)

// Store wraps a message store with Redis caching for GetMessage.
type Store struct {
	backend store.Store
	client  redis.UniversalClient
	opts    *options
	logger  *slog.Logger
}

// Ensure Store implements the store interfaces.
var _ store.Store = (*Store)(nil)
var _ store.FindWithCounter = (*Store)(nil)

// New creates a cached store wrapping the given backend.
// Compatible with *redis.Client, *redis.ClusterClient, and redis.UniversalClient.
func New(backend store.Store, client redis.UniversalClient, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		backend: backend,
		client:  client,
		opts:    o,
		logger:  o.logger,
	}
}

// Connect connects the backend store.
func (s *Store) Connect(ctx context.Context) error {
	return s.backend.Connect(ctx)
}

// Close closes the backend store. Cached entries are left to expire.
func (s *Store) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

// cachedMessage is the JSON cache representation of a message.
type cachedMessage struct {
	ID        string     `json:"id"`
	MailboxID string     `json:"mailbox_id"`
	From      string     `json:"from"`
	To        []string   `json:"to"`
	CC        []string   `json:"cc,omitempty"`
	BCC       []string   `json:"bcc,omitempty"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (m *cachedMessage) GetID() string           { return m.ID }
func (m *cachedMessage) GetMailboxID() string    { return m.MailboxID }
func (m *cachedMessage) GetFrom() string         { return m.From }
func (m *cachedMessage) GetTo() []string         { return m.To }
func (m *cachedMessage) GetCC() []string         { return m.CC }
func (m *cachedMessage) GetBCC() []string        { return m.BCC }
func (m *cachedMessage) GetSubject() string      { return m.Subject }
func (m *cachedMessage) GetBody() string         { return m.Body }
func (m *cachedMessage) GetIsRead() bool         { return m.IsRead }
func (m *cachedMessage) GetReadAt() *time.Time   { return m.ReadAt }
func (m *cachedMessage) GetTimestamp() time.Time { return m.Timestamp }

var _ store.Message = (*cachedMessage)(nil)

func toCached(msg store.Message) *cachedMessage {
	return &cachedMessage{
		ID:        msg.GetID(),
		MailboxID: msg.GetMailboxID(),
		From:      msg.GetFrom(),
		To:        msg.GetTo(),
		CC:        msg.GetCC(),
		BCC:       msg.GetBCC(),
		Subject:   msg.GetSubject(),
		Body:      msg.GetBody(),
		IsRead:    msg.GetIsRead(),
		ReadAt:    msg.GetReadAt(),
		Timestamp: msg.GetTimestamp(),
	}
}

func (s *Store) key(id string) string {
	return s.opts.keyPrefix + id
}

// GetMessage retrieves a message, using the cache when available.
// Cache failures fall through to the backend.
func (s *Store) GetMessage(ctx context.Context, id string) (store.Message, error) {
	key := s.key(id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var msg cachedMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			s.logger.Debug("cache hit", "message_id", id)
			return &msg, nil
		}
		// Corrupt entry, drop it and fall through.
		s.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("cache read failed", "message_id", id, "error", err)
	}

	msg, err := s.backend.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, msg)
	return msg, nil
}

// cache stores a message in Redis. Failures are logged, never returned.
func (s *Store) cache(ctx context.Context, msg store.Message) {
	data, err := json.Marshal(toCached(msg))
	if err != nil {
		s.logger.Warn("cache encode failed", "message_id", msg.GetID(), "error", err)
		return
	}
	if err := s.client.Set(ctx, s.key(msg.GetID()), data, s.opts.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "message_id", msg.GetID(), "error", err)
	}
}

// invalidate removes a message from the cache.
func (s *Store) invalidate(ctx context.Context, id string) {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", "message_id", id, "error", err)
	}
}

// CreateMessage creates a message in the backend and caches it.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (store.Message, error) {
	msg, err := s.backend.CreateMessage(ctx, data)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, msg)
	return msg, nil
}

// CreateMessages creates multiple messages in the backend.
func (s *Store) CreateMessages(ctx context.Context, data []store.MessageData) ([]store.Message, error) {
	messages, err := s.backend.CreateMessages(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		s.cache(ctx, msg)
	}
	return messages, nil
}

// SetRead updates the read state in the backend and invalidates the cache.
func (s *Store) SetRead(ctx context.Context, id string, read bool) error {
	s.invalidate(ctx, id)
	return s.backend.SetRead(ctx, id, read)
}

// DeleteMessage deletes the message in the backend and invalidates the cache.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	s.invalidate(ctx, id)
	return s.backend.DeleteMessage(ctx, id)
}

// Find always queries the backend. List results are not cached.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, error) {
	return s.backend.Find(ctx, filters, opts)
}

// FindWithCount always queries the backend.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, int64, error) {
	if fc, ok := s.backend.(store.FindWithCounter); ok {
		return fc.FindWithCount(ctx, filters, opts)
	}
	page, err := s.backend.Find(ctx, filters, opts)
	if err != nil {
		return nil, 0, err
	}
	return page, page.Total, nil
}

// Count always queries the backend. Counts are never cached.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	return s.backend.Count(ctx, filters)
}

// MailboxStats always queries the backend. Stats are never cached.
func (s *Store) MailboxStats(ctx context.Context, mailboxID string) (*store.MailboxStats, error) {
	return s.backend.MailboxStats(ctx, mailboxID)
}

// GetUser retrieves a user from the backend.
func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	return s.backend.GetUser(ctx, id)
}

// GetUserByEmail retrieves a user by email from the backend.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	return s.backend.GetUserByEmail(ctx, email)
}

// SearchUsers searches users in the backend.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]store.User, error) {
	return s.backend.SearchUsers(ctx, query, limit)
}

// EnsureMailbox delegates to the backend.
func (s *Store) EnsureMailbox(ctx context.Context, userID string) (store.Mailbox, error) {
	return s.backend.EnsureMailbox(ctx, userID)
}

// GetMailbox delegates to the backend.
func (s *Store) GetMailbox(ctx context.Context, id string) (store.Mailbox, error) {
	return s.backend.GetMailbox(ctx, id)
}

// GetMailboxByUser delegates to the backend.
func (s *Store) GetMailboxByUser(ctx context.Context, userID string) (store.Mailbox, error) {
	return s.backend.GetMailboxByUser(ctx, userID)
}

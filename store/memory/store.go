// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/webmail/store"
)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	users         sync.Map // map[string]*user (by id)
	usersByEmail  sync.Map // map[string]string (email -> user id)
	mailboxes     sync.Map // map[string]*mailbox (by id)
	mailboxByUser sync.Map // map[string]string (user id -> mailbox id)
	messages      sync.Map // map[string]*message
	msgLocks      sync.Map // map[string]*sync.Mutex (per-message locks for mutations)
	connected     int32

	now func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock creates a store whose message timestamps come from now.
// Lets tests construct timelines with controlled (including equal) timestamps.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// getMsgLock returns the mutex for a message ID, creating one if needed.
// Uses LoadOrStore for atomic get-or-create.
func (s *Store) getMsgLock(id string) *sync.Mutex {
	lock, _ := s.msgLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// AddUser seeds a user record. Production backends read the authentication
// layer's user data instead; this exists so tests can register senders and
// recipients. Safe to call before Connect.
func (s *Store) AddUser(data store.UserData) store.User {
	u := &user{
		id:        data.ID,
		email:     data.Email,
		name:      data.Name,
		createdAt: s.now().UTC(),
	}
	if u.id == "" {
		u.id = uuid.New().String()
	}
	s.users.Store(u.id, u)
	s.usersByEmail.Store(strings.ToLower(u.email), u.id)
	return u.clone()
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.users.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*user).clone(), nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	v, ok := s.usersByEmail.Load(strings.ToLower(email))
	if !ok {
		return nil, store.ErrNotFound
	}
	u, ok := s.users.Load(v.(string))
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.(*user).clone(), nil
}

// SearchUsers returns users whose email or name contains the query.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	q := strings.ToLower(query)
	var matched []*user
	s.users.Range(func(_, v any) bool {
		u := v.(*user)
		if strings.Contains(strings.ToLower(u.email), q) ||
			strings.Contains(strings.ToLower(u.name), q) {
			matched = append(matched, u)
		}
		return true
	})

	// Deterministic order for tests.
	sort.Slice(matched, func(i, j int) bool { return matched[i].email < matched[j].email })

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	users := make([]store.User, len(matched))
	for i, u := range matched {
		users[i] = u.clone()
	}
	return users, nil
}

// EnsureMailbox atomically gets or creates the mailbox for a user.
//
// Uses sync.Map.LoadOrStore on the user-id index for atomic check-and-create.
// This provides the same semantics as MongoDB's findOneAndUpdate with upsert
// or PostgreSQL's INSERT ON CONFLICT, but in memory: under concurrent first
// resolution exactly one mailbox wins.
func (s *Store) EnsureMailbox(ctx context.Context, userID string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if userID == "" {
		return nil, store.ErrInvalidID
	}

	// Store the record before publishing the user-id index: a concurrent
	// loser loads the winner's id and must always find the record behind it.
	mb := &mailbox{
		id:        uuid.New().String(),
		userID:    userID,
		createdAt: s.now().UTC(),
	}
	s.mailboxes.Store(mb.id, mb)

	mbID, loaded := s.mailboxByUser.LoadOrStore(userID, mb.id)
	if loaded {
		s.mailboxes.Delete(mb.id)
		v, ok := s.mailboxes.Load(mbID.(string))
		if !ok {
			return nil, store.ErrNotFound
		}
		return v.(*mailbox).clone(), nil
	}
	return mb.clone(), nil
}

// GetMailbox retrieves a mailbox by ID.
func (s *Store) GetMailbox(ctx context.Context, id string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.mailboxes.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*mailbox).clone(), nil
}

// GetMailboxByUser retrieves the mailbox owned by a user without creating it.
func (s *Store) GetMailboxByUser(ctx context.Context, userID string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	v, ok := s.mailboxByUser.Load(userID)
	if !ok {
		return nil, store.ErrNotFound
	}
	mb, ok := s.mailboxes.Load(v.(string))
	if !ok {
		return nil, store.ErrNotFound
	}
	return mb.(*mailbox).clone(), nil
}

// MailboxStats returns current counts for a mailbox in a single pass.
func (s *Store) MailboxStats(ctx context.Context, mailboxID string) (*store.MailboxStats, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	stats := &store.MailboxStats{}
	s.messages.Range(func(_, v any) bool {
		m := v.(*message)
		if m.mailboxID != mailboxID {
			return true
		}
		stats.TotalMessages++
		if !m.isRead {
			stats.UnreadCount++
		}
		return true
	})
	return stats, nil
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
var _ store.FindWithCounter = (*Store)(nil)

package webmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/rbaliyan/webmail/store"
)

// Type aliases for commonly used store types.
// These allow users to work with the webmail package without importing store directly.
type (
	User        = store.User
	Message     = store.Message
	Stats       = store.MailboxStats
	ListOptions = store.ListOptions
	SortOrder   = store.SortOrder
)

// Re-exported sort order constants.
const (
	SortAsc  = store.SortAsc
	SortDesc = store.SortDesc
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// Directory provides read access to the user directory. Users are owned
// by the authentication layer; this service only resolves and searches them.
type Directory interface {
	// LookupUser resolves a user by email address.
	// Returns ErrUserNotFound if no user has that address.
	LookupUser(ctx context.Context, email string) (User, error)
	// SearchUsers returns up to limit users whose email or name matches
	// the query (case-insensitive substring match).
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}

// Service manages the webmail message store (server-side).
// It handles connections to storage and creates per-user mailbox clients.
//
// Composed of:
//   - ServiceHealth: Health and state queries (IsConnected)
//   - Directory: User directory lookups (LookupUser, SearchUsers)
type Service interface {
	ServiceHealth
	Directory

	// Connect establishes connections to storage backends.
	Connect(ctx context.Context) error
	// Close closes all connections after draining in-flight sends.
	Close(ctx context.Context) error
	// Client returns a mailbox client for the given user.
	// The returned client shares the service's connections.
	Client(userID string) Mailbox
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store   store.Store
	logger  *slog.Logger
	opts    *options
	state   int32 // stateDisconnected, stateConnecting, or stateConnected
	otel    *otelInstrumentation
	sendSem *semaphore.Weighted // Limits concurrent sends to prevent resource exhaustion
}

// NewService creates a new webmail service.
// Call Connect() to establish connections to backends.
//
// Caching is NOT included in this layer. If you need caching, wrap your
// store with a caching decorator (see store/cached). Mailbox counts are
// always computed from current store state and are never cached.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:   o.store,
		logger:  o.logger,
		opts:    o,
		otel:    otelInstr,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Connect establishes connections to storage backends.
func (s *service) Connect(ctx context.Context) error {
	// Three-state transition prevents Client() operations from seeing
	// partial initialization: disconnected -> connecting -> connected.
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	success = true
	s.logger.Info("webmail service connected")
	return nil
}

// Close closes connections to storage backends.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight send operations to complete. After the state flip
	// no new sends can start because checkAccess fails, so acquiring every
	// semaphore slot means existing sends have finished.
	shutdownCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight sends, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// Client returns a mailbox client for the given user.
func (s *service) Client(userID string) Mailbox {
	return &userMailbox{
		userID:      userID,
		service:     s,
		validUserID: isValidUserID(userID),
	}
}

// isValidUserID checks if a user ID is valid.
// Valid user IDs are non-empty and contain only safe characters.
func isValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	// Allow alphanumeric, hyphen, underscore, period, at-sign.
	// Disallow: *, :, /, \, spaces, and control characters.
	for _, c := range userID {
		if c == '*' || c == ':' || c == '/' || c == '\\' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
			c < 32 || c == 127 {
			return false
		}
	}
	return true
}

// findWithCount runs a Find and returns the total count, using the store's
// combined query when available to avoid a second round-trip.
func (s *service) findWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, int64, error) {
	if fc, ok := s.store.(store.FindWithCounter); ok {
		return fc.FindWithCount(ctx, filters, opts)
	}
	page, err := s.store.Find(ctx, filters, opts)
	if err != nil {
		return nil, 0, err
	}
	return page, page.Total, nil
}

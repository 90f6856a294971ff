package postgres

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultUsersTable     = "users"
	DefaultMailboxesTable = "mailboxes"
	DefaultMessagesTable  = "messages"
	DefaultTimeout        = 10 * time.Second
)

// options holds PostgreSQL store configuration.
type options struct {
	usersTable     string
	mailboxesTable string
	messagesTable  string
	timeout        time.Duration
	logger         *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		usersTable:     DefaultUsersTable,
		mailboxesTable: DefaultMailboxesTable,
		messagesTable:  DefaultMessagesTable,
		timeout:        DefaultTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithUsersTable sets the users table name.
func WithUsersTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.usersTable = name
		}
	}
}

// WithMailboxesTable sets the mailboxes table name.
func WithMailboxesTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.mailboxesTable = name
		}
	}
}

// WithMessagesTable sets the messages table name.
func WithMessagesTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.messagesTable = name
		}
	}
}

// WithTimeout sets the operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

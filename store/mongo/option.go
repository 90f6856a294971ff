package mongo

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultDatabase            = "webmail"
	DefaultUsersCollection     = "users"
	DefaultMailboxesCollection = "mailboxes"
	DefaultMessagesCollection  = "messages"
	DefaultTimeout             = 10 * time.Second
)

// options holds MongoDB store configuration.
type options struct {
	database            string
	usersCollection     string
	mailboxesCollection string
	messagesCollection  string
	timeout             time.Duration
	logger              *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		database:            DefaultDatabase,
		usersCollection:     DefaultUsersCollection,
		mailboxesCollection: DefaultMailboxesCollection,
		messagesCollection:  DefaultMessagesCollection,
		timeout:             DefaultTimeout,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a MongoDB store.
type Option func(*options)

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithUsersCollection sets the users collection name.
func WithUsersCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.usersCollection = name
		}
	}
}

// WithMailboxesCollection sets the mailboxes collection name.
func WithMailboxesCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.mailboxesCollection = name
		}
	}
}

// WithMessagesCollection sets the messages collection name.
func WithMessagesCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.messagesCollection = name
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

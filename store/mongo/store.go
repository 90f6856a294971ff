// Package mongo provides a MongoDB implementation of store.Store.
//
// Users live in the "users" collection and are owned by the authentication
// layer; this store only reads them. Mailboxes and messages live in their own
// collections, with a unique index on mailboxes.user_id backing the atomic
// EnsureMailbox upsert.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store implements store.Store using MongoDB.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	users     *mongo.Collection
	mailboxes *mongo.Collection
	messages  *mongo.Collection
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new MongoDB store with the provided client.
// Call Connect() to initialize the collections and indexes.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Connect initializes the database, collections, and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 1 {
		return store.ErrAlreadyConnected
	}

	if s.client == nil {
		return fmt.Errorf("mongo: client is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", store.ErrUnavailable)
	}

	s.db = s.client.Database(s.opts.database)
	s.users = s.db.Collection(s.opts.usersCollection)
	s.mailboxes = s.db.Collection(s.opts.mailboxesCollection)
	s.messages = s.db.Collection(s.opts.messagesCollection)

	if err := s.ensureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	atomic.StoreInt32(&s.connected, 1)
	s.logger.Info("connected to MongoDB", "database", s.opts.database)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureIndexes creates required indexes.
func (s *Store) ensureIndexes(ctx context.Context) error {
	// Unique index on the owning user id backs the EnsureMailbox upsert:
	// two concurrent first-resolutions can never create two mailboxes.
	mailboxIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}},
			Options: mongoopts.Index().SetUnique(true),
		},
	}
	if _, err := s.mailboxes.Indexes().CreateMany(ctx, mailboxIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "mailbox_id", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "from", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "to", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "is_read", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "timestamp", Value: -1}}},
		// Compound index for mailbox timeline queries
		{Keys: bson.D{
			bson.E{Key: "mailbox_id", Value: 1},
			bson.E{Key: "timestamp", Value: -1},
			bson.E{Key: "_id", Value: -1},
		}},
		// Unread listing index
		{Keys: bson.D{
			bson.E{Key: "mailbox_id", Value: 1},
			bson.E{Key: "is_read", Value: 1},
			bson.E{Key: "timestamp", Value: -1},
		}},
	}
	_, err := s.messages.Indexes().CreateMany(ctx, messageIndexes)
	return err
}

// Compile-time checks
var _ store.Store = (*Store)(nil)
var _ store.FindWithCounter = (*Store)(nil)

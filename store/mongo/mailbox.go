package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// regexMetaChars matches regex metacharacters that need escaping.
var regexMetaChars = regexp.MustCompile(`[\\^$.|?*+()[\]{}]`)

// escapeRegex escapes regex metacharacters in a string to prevent regex injection.
func escapeRegex(s string) string {
	return regexMetaChars.ReplaceAllString(s, `\$0`)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", store.ErrUnavailable)
	}

	return docToUser(&doc), nil
}

// GetUserByEmail retrieves a user by email address. Lookup is
// case-insensitive so that alice@example.com and Alice@Example.com
// resolve to the same user.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{"email": bson.M{
		"$regex":   "^" + escapeRegex(email) + "$",
		"$options": "i",
	}}

	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", store.ErrUnavailable)
	}

	return docToUser(&doc), nil
}

// SearchUsers returns users whose email or name matches the query.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]store.User, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	escaped := escapeRegex(query)
	filter := bson.M{
		"$or": []bson.M{
			{"email": bson.M{"$regex": escaped, "$options": "i"}},
			{"name": bson.M{"$regex": escaped, "$options": "i"}},
		},
	}

	findOpts := mongoopts.Find().SetSort(bson.D{bson.E{Key: "email", Value: 1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.users.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", store.ErrUnavailable)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", store.ErrUnavailable)
	}

	users := make([]store.User, len(docs))
	for i := range docs {
		users[i] = docToUser(&docs[i])
	}
	return users, nil
}

// EnsureMailbox atomically gets or creates the mailbox for a user.
//
// Uses findOneAndUpdate with upsert and $setOnInsert: the unique index on
// user_id guarantees at most one mailbox per user even under concurrent
// first resolution. No lookup-then-insert, no locks.
func (s *Store) EnsureMailbox(ctx context.Context, userID string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}
	if userID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"created_at": time.Now().UTC(),
		},
	}
	opts := mongoopts.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(mongoopts.After)

	var doc mailboxDoc
	err := s.mailboxes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the upsert race; the winner's document exists now.
			err = s.mailboxes.FindOne(ctx, filter).Decode(&doc)
			if err != nil {
				return nil, fmt.Errorf("ensure mailbox: %w", store.ErrUnavailable)
			}
			return docToMailbox(&doc), nil
		}
		return nil, fmt.Errorf("ensure mailbox: %w", store.ErrUnavailable)
	}

	return docToMailbox(&doc), nil
}

// GetMailbox retrieves a mailbox by ID.
func (s *Store) GetMailbox(ctx context.Context, id string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc mailboxDoc
	err = s.mailboxes.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find mailbox: %w", store.ErrUnavailable)
	}

	return docToMailbox(&doc), nil
}

// GetMailboxByUser retrieves the mailbox owned by a user without creating it.
func (s *Store) GetMailboxByUser(ctx context.Context, userID string) (store.Mailbox, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc mailboxDoc
	err := s.mailboxes.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find mailbox by user: %w", store.ErrUnavailable)
	}

	return docToMailbox(&doc), nil
}

// MailboxStats returns current counts for a mailbox in a single $facet query.
func (s *Store) MailboxStats(ctx context.Context, mailboxID string) (*store.MailboxStats, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{bson.E{Key: "$match", Value: bson.M{"mailbox_id": mailboxID}}},
		bson.D{bson.E{Key: "$facet", Value: bson.M{
			"total":  []bson.M{{"$count": "n"}},
			"unread": []bson.M{{"$match": bson.M{"is_read": false}}, {"$count": "n"}},
		}}},
	}

	cursor, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mailbox stats: %w", store.ErrUnavailable)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total  []struct{ N int64 `bson:"n"` } `bson:"total"`
		Unread []struct{ N int64 `bson:"n"` } `bson:"unread"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode stats: %w", store.ErrUnavailable)
	}

	stats := &store.MailboxStats{}
	if len(results) > 0 {
		if len(results[0].Total) > 0 {
			stats.TotalMessages = results[0].Total[0].N
		}
		if len(results[0].Unread) > 0 {
			stats.UnreadCount = results[0].Unread[0].N
		}
	}
	return stats, nil
}

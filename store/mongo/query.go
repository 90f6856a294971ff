package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rbaliyan/webmail/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (store.Message, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc messageDoc
	err = s.messages.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", store.ErrUnavailable)
	}

	return docToMessage(&doc), nil
}

// Find retrieves messages matching the filters.
//
// Sorting is always (sort field, _id) so timestamp ties resolve
// deterministically. When StartAfter is set, a keyset condition replaces
// offset skipping: (field cmp cursorValue) OR (field == cursorValue AND
// _id cmp cursorID), with cmp following the sort direction.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter, err := buildFilter(filters)
	if err != nil {
		return nil, err
	}

	sortKey := "timestamp"
	sortDir := -1 // DESC
	if opts.SortBy != "" {
		if key, ok := store.MessageOrderingKey(opts.SortBy); ok {
			sortKey = mapKey(key)
		}
	}
	if opts.SortOrder == store.SortAsc {
		sortDir = 1
	}

	if opts.StartAfter != "" {
		cursorOID, cursorErr := bson.ObjectIDFromHex(opts.StartAfter)
		if cursorErr != nil {
			return nil, store.ErrInvalidID
		}
		var cursorDoc messageDoc
		cursorErr = s.messages.FindOne(ctx, bson.M{"_id": cursorOID}).Decode(&cursorDoc)
		if cursorErr != nil {
			if errors.Is(cursorErr, mongo.ErrNoDocuments) {
				return nil, store.ErrNotFound
			}
			return nil, fmt.Errorf("fetch cursor document: %w", store.ErrUnavailable)
		}
		var cursorSortValue any
		switch sortKey {
		case "_id":
			cursorSortValue = cursorDoc.ID
		default:
			cursorSortValue = cursorDoc.Timestamp
		}
		comp := "$lt"
		if sortDir == 1 {
			comp = "$gt"
		}
		filter["$or"] = []bson.M{
			{sortKey: bson.M{comp: cursorSortValue}},
			{sortKey: cursorSortValue, "_id": bson.M{comp: cursorOID}},
		}
	}

	findOpts := mongoopts.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.StartAfter == "" && opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	findOpts.SetSort(bson.D{
		bson.E{Key: sortKey, Value: sortDir},
		bson.E{Key: "_id", Value: sortDir},
	})

	// Total reflects the filter without the cursor condition.
	countFilter := bson.M{}
	for k, v := range filter {
		if k != "$or" {
			countFilter[k] = v
		}
	}
	total, err := s.messages.CountDocuments(ctx, countFilter)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", store.ErrUnavailable)
	}

	cursor, err := s.messages.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", store.ErrUnavailable)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", store.ErrUnavailable)
	}

	messages := make([]store.Message, len(docs))
	for i := range docs {
		messages[i] = docToMessage(&docs[i])
	}

	return &store.MessagePage{
		Messages: messages,
		Total:    total,
		HasMore:  opts.Limit > 0 && len(messages) >= opts.Limit,
	}, nil
}

// Count counts messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if atomic.LoadInt32(&s.connected) == 0 {
		return 0, store.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}

	count, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", store.ErrUnavailable)
	}

	return count, nil
}

// FindWithCount retrieves messages and total count in one store call.
// Find already computes the total, so this simply forwards it.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessagePage, int64, error) {
	page, err := s.Find(ctx, filters, opts)
	if err != nil {
		return nil, 0, err
	}
	return page, page.Total, nil
}

// mapKey translates shared filter keys to MongoDB field names.
func mapKey(key string) string {
	if key == "id" {
		return "_id"
	}
	return key
}

// buildFilter converts a slice of store.Filter to a MongoDB filter document.
func buildFilter(filters []store.Filter) (bson.M, error) {
	result := bson.M{}
	for _, f := range filters {
		key := mapKey(f.Key())
		value := f.Value()
		op := f.Operator()

		if key == "_id" {
			hex, ok := value.(string)
			if !ok {
				return nil, store.ErrInvalidID
			}
			oid, err := bson.ObjectIDFromHex(hex)
			if err != nil {
				return nil, store.ErrInvalidID
			}
			value = oid
		}

		switch op {
		case "eq":
			result[key] = value
		case "ne":
			result[key] = bson.M{"$ne": value}
		case "gt":
			result[key] = bson.M{"$gt": value}
		case "gte":
			result[key] = bson.M{"$gte": value}
		case "lt":
			result[key] = bson.M{"$lt": value}
		case "lte":
			result[key] = bson.M{"$lte": value}
		case "in":
			result[key] = bson.M{"$in": value}
		case "contains":
			result[key] = value // MongoDB arrays automatically check contains
		default:
			return nil, fmt.Errorf("%w: operator %s", store.ErrFilterInvalid, op)
		}
	}

	return result, nil
}

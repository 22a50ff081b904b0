// Package mongostore implements repository.BlogRepository on a MongoDB collection.
//
// Unlike the SQLite store, MongoDB can update elements of nested arrays
// in place and atomically ($push, $addToSet, $pull with the positional
// "$" operator). Every mutation here is a single UpdateOne; no document
// is read back into the application to be modified.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BlogCollection is the collection holding blog documents.
const BlogCollection = "blogs"

// Store owns the client connection and the blogs collection handle.
type Store struct {
	client *mongo.Client
	blogs  *mongo.Collection
}

// New connects to uri, verifies the connection and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	s := &Store{
		client: client,
		blogs:  client.Database(database).Collection(BlogCollection),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ensureIndexes is idempotent; CreateMany is a no-op for existing indexes.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.blogs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("blogs_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("blogs_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating indexes: %w", err)
	}
	return nil
}

// Package mongo stores conversation history as one document per session.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/event-assistant/internal/config"
	"github.com/Rrens/event-assistant/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionDoc struct {
	Key       string               `bson:"_id"`
	Messages  []domain.ChatMessage `bson:"messages"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

// HistoryStore keeps each session in a single document. Appends use
// $push with $slice, which MongoDB applies atomically per document.
type HistoryStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	capacity int
}

// Connect opens a client and returns a history store on the configured collection
func Connect(ctx context.Context, cfg config.MongoConfig, capacity int) (*HistoryStore, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return NewHistoryStore(client, client.Database(cfg.Database).Collection(cfg.Collection), capacity), nil
}

// NewHistoryStore creates a history store over an existing collection
func NewHistoryStore(client *mongo.Client, coll *mongo.Collection, capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryStore{client: client, coll: coll, capacity: capacity}
}

// Close disconnects the underlying client
func (s *HistoryStore) Close() error {
	if s.client != nil {
		return s.client.Disconnect(context.Background())
	}
	return nil
}

// Ping verifies connectivity
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Get returns the messages of a session, oldest first
func (s *HistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	var doc sessionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.ChatMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if doc.Messages == nil {
		return []domain.ChatMessage{}, nil
	}
	return doc.Messages, nil
}

// Set replaces the session log with the most recent capacity messages
func (s *HistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	messages = append([]domain.ChatMessage{}, domain.Tail(messages, s.capacity)...)
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		sessionDoc{Key: key, Messages: messages, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// Append adds one message and evicts the oldest once over capacity
func (s *HistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	return s.AppendMany(ctx, key, []domain.ChatMessage{{Role: role, Content: content}})
}

// AppendMany pushes messages in order with a single document update
func (s *HistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{
				"$each":  messages,
				"$slice": -s.capacity,
			},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

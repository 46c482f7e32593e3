package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/authgate/internal/models"
)

// EventStore keeps the auth audit trail in MongoDB.
type EventStore struct {
	col *mongo.Collection
}

func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{col: db.Collection("auth_events")}
}

// EnsureIndexes creates the lookup index used by ListByEmail.
func (s *EventStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *EventStore) Record(ctx context.Context, ev *models.AuthEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// ListByEmail returns the newest events for an address first.
func (s *EventStore) ListByEmail(ctx context.Context, email string, limit int64) ([]models.AuthEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.col.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.AuthEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

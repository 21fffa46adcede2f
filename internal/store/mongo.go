// Package store holds the MongoDB repositories, one per collection.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

const (
	usersCollection         = "users"
	consultationsCollection = "consultations"
	withdrawalsCollection   = "withdrawals"
	transactionsCollection  = "transactions"
	notificationsCollection = "notifications"
	ticketsCollection       = "tickets"
)

const connectTimeout = 10 * time.Second

// Store owns the MongoDB client. Reset swaps the client under a lock so
// repositories always read the current database handle.
type Store struct {
	uri    string
	dbName string

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	s := &Store{uri: uri, dbName: dbName}
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.db = client.Database(dbName)
	return s, nil
}

func (s *Store) dial(ctx context.Context) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Reset drops the current connection and dials a fresh one.
func (s *Store) Reset(ctx context.Context) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.client
	s.client = client
	s.db = client.Database(s.dbName)
	s.mu.Unlock()
	if old != nil {
		_ = old.Disconnect(ctx)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	return client.Ping(ctx, nil)
}

func (s *Store) collection(name string) *mongo.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Collection(name)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "professionalId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		withdrawalsCollection: {
			{Keys: bson.D{{Key: "professionalId", Value: 1}, {Key: "status", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		consultationsCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "scheduledAt", Value: -1}}},
			{Keys: bson.D{{Key: "professionalId", Value: 1}, {Key: "scheduledAt", Value: -1}}},
		},
		ticketsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := s.collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

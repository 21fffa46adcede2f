package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

type TicketRepository struct {
	store *Store
}

func NewTicketRepository(s *Store) *TicketRepository {
	return &TicketRepository{store: s}
}

func (r *TicketRepository) Insert(ctx context.Context, t *models.Ticket) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Replies == nil {
		t.Replies = []models.TicketReply{}
	}
	_, err := r.store.collection(ticketsCollection).InsertOne(ctx, t)
	return translate(err)
}

func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.store.collection(ticketsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// List returns every ticket when userID is nil.
func (r *TicketRepository) List(ctx context.Context, userID *primitive.ObjectID, status models.TicketStatus) ([]models.Ticket, error) {
	filter := bson.M{}
	if userID != nil {
		filter["userId"] = *userID
	}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.store.collection(ticketsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.Ticket, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddReply appends to a ticket that is not closed. It reports false when
// the ticket is closed or missing.
func (r *TicketRepository) AddReply(ctx context.Context, id primitive.ObjectID, reply models.TicketReply) (bool, error) {
	res, err := r.store.collection(ticketsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": models.TicketClosed}},
		bson.M{
			"$push": bson.M{"replies": reply},
			"$set":  bson.M{"updatedAt": reply.CreatedAt},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *TicketRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.TicketStatus, at time.Time) error {
	res, err := r.store.collection(ticketsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

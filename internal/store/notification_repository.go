package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

type NotificationRepository struct {
	store *Store
}

func NewNotificationRepository(s *Store) *NotificationRepository {
	return &NotificationRepository{store: s}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.store.collection(notificationsCollection).InsertOne(ctx, n)
	return translate(err)
}

func (r *NotificationRepository) ListForRecipients(ctx context.Context, recipients []string, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.store.collection(notificationsCollection).Find(ctx, bson.M{"recipientId": bson.M{"$in": recipients}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.Notification, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipients []string) (int64, error) {
	return r.store.collection(notificationsCollection).CountDocuments(ctx, bson.M{
		"recipientId": bson.M{"$in": recipients},
		"status":      models.NotificationUnread,
	})
}

// MarkRead flips one unread notification to read. It reports whether the
// notification exists for these recipients, read or not.
func (r *NotificationRepository) MarkRead(ctx context.Context, id primitive.ObjectID, recipients []string, at time.Time) (bool, error) {
	owned := bson.M{"_id": id, "recipientId": bson.M{"$in": recipients}}
	res, err := r.store.collection(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "recipientId": bson.M{"$in": recipients}, "status": models.NotificationUnread},
		bson.M{"$set": bson.M{"status": models.NotificationRead, "readAt": at}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	count, err := r.store.collection(notificationsCollection).CountDocuments(ctx, owned)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipients []string, at time.Time) (int64, error) {
	res, err := r.store.collection(notificationsCollection).UpdateMany(ctx,
		bson.M{"recipientId": bson.M{"$in": recipients}, "status": models.NotificationUnread},
		bson.M{"$set": bson.M{"status": models.NotificationRead, "readAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

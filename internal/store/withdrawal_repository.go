package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

type WithdrawalRepository struct {
	store *Store
}

func NewWithdrawalRepository(s *Store) *WithdrawalRepository {
	return &WithdrawalRepository{store: s}
}

func (r *WithdrawalRepository) Insert(ctx context.Context, w *models.Withdrawal) error {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	_, err := r.store.collection(withdrawalsCollection).InsertOne(ctx, w)
	return translate(err)
}

func (r *WithdrawalRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := r.store.collection(withdrawalsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

// List returns withdrawals newest first.
func (r *WithdrawalRepository) List(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error) {
	filter := bson.M{}
	if f.ProfessionalID != nil {
		filter["professionalId"] = *f.ProfessionalID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.store.collection(withdrawalsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.Withdrawal, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompareAndSetStatus writes the update only while the stored status still
// equals expected. It reports false when another writer got there first.
func (r *WithdrawalRepository) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, expected models.WithdrawalStatus, upd models.WithdrawalStatusUpdate) (bool, error) {
	set := bson.M{
		"status":      upd.Status,
		"processedAt": upd.ProcessedAt,
		"processedBy": upd.ProcessedBy,
		"updatedAt":   upd.ProcessedAt,
	}
	if upd.Note != "" {
		set["note"] = upd.Note
	}
	if upd.TransactionID != "" {
		set["transactionId"] = upd.TransactionID
	}
	res, err := r.store.collection(withdrawalsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SumOpen totals the amounts still reserved by pending or approved requests.
func (r *WithdrawalRepository) SumOpen(ctx context.Context, professionalID primitive.ObjectID) (int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"professionalId": professionalID,
			"status":         bson.M{"$in": bson.A{models.WithdrawalPending, models.WithdrawalApproved}},
		}},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}},
	}
	cursor, err := r.store.collection(withdrawalsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

// TransactionRepository is append-only: there is no update or delete.
type TransactionRepository struct {
	store *Store
}

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{store: s}
}

// Insert fails with ErrDuplicate when the reference was already recorded.
func (r *TransactionRepository) Insert(ctx context.Context, tx *models.RevenueTransaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.store.collection(transactionsCollection).InsertOne(ctx, tx)
	return translate(err)
}

func (r *TransactionRepository) Totals(ctx context.Context, professionalID primitive.ObjectID) (models.RevenueTotals, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"professionalId": professionalID}},
		bson.M{"$group": bson.M{
			"_id":          "$kind",
			"professional": bson.M{"$sum": "$professionalAmount"},
			"amount":       bson.M{"$sum": "$amount"},
		}},
	}
	var totals models.RevenueTotals
	cursor, err := r.store.collection(transactionsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return totals, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Kind         models.TransactionKind `bson:"_id"`
		Professional int64                  `bson:"professional"`
		Amount       int64                  `bson:"amount"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return totals, err
	}
	for _, row := range rows {
		switch row.Kind {
		case models.TransactionConsultationFee:
			totals.Earned += row.Professional
		case models.TransactionWithdrawal:
			totals.Withdrawn += row.Amount
		}
	}
	return totals, nil
}

func (r *TransactionRepository) ListForProfessional(ctx context.Context, professionalID primitive.ObjectID, limit int64) ([]models.RevenueTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.store.collection(transactionsCollection).Find(ctx, bson.M{"professionalId": professionalID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.RevenueTransaction, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

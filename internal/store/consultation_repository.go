package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

type ConsultationRepository struct {
	store *Store
}

func NewConsultationRepository(s *Store) *ConsultationRepository {
	return &ConsultationRepository{store: s}
}

func (r *ConsultationRepository) Insert(ctx context.Context, c *models.Consultation) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.store.collection(consultationsCollection).InsertOne(ctx, c)
	return translate(err)
}

func (r *ConsultationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	var c models.Consultation
	if err := r.store.collection(consultationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// List sorts by scheduled time, newest first.
func (r *ConsultationRepository) List(ctx context.Context, f models.ConsultationFilter) ([]models.Consultation, error) {
	filter := bson.M{}
	if f.PatientID != nil {
		filter["patientId"] = *f.PatientID
	}
	if f.ProfessionalID != nil {
		filter["professionalId"] = *f.ProfessionalID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		window := bson.M{}
		if f.From != nil {
			window["$gte"] = *f.From
		}
		if f.To != nil {
			window["$lte"] = *f.To
		}
		filter["scheduledAt"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: -1}})
	cursor, err := r.store.collection(consultationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.Consultation, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaid confirms a consultation still awaiting payment.
func (r *ConsultationRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef string, at time.Time) (bool, error) {
	res, err := r.store.collection(consultationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.ConsultationPendingPayment},
		bson.M{"$set": bson.M{
			"status":     models.ConsultationConfirmed,
			"paymentRef": paymentRef,
			"paidAt":     at,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ConsultationStatus) error {
	res, err := r.store.collection(consultationsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

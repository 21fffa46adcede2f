package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthe/healthe-api/internal/models"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{store: s}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.store.collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.store.collection(usersCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := r.store.collection(usersCollection).InsertOne(ctx, user)
	return translate(err)
}

// UpdateProfile applies the non-nil fields and returns the updated document.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Specialty != nil {
		set["specialty"] = *upd.Specialty
	}
	if upd.ServiceType != nil {
		set["serviceType"] = *upd.ServiceType
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.store.collection(usersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).
		Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListProfessionals returns professionals, optionally filtered by specialty.
func (r *UserRepository) ListProfessionals(ctx context.Context, specialty string) ([]models.User, error) {
	filter := bson.M{"type": models.UserTypeProfessional}
	if specialty != "" {
		filter["specialty"] = specialty
	}
	opts := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})
	cursor, err := r.store.collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Type models.UserType
	Name string
}

func (a Actor) IsAdmin() bool { return a.Type == models.UserTypeAdmin }

func (a Actor) ObjectID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(a.ID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidIdentifier
	}
	return id, nil
}

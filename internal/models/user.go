package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserType string

const (
	UserTypePatient      UserType = "patient"
	UserTypeProfessional UserType = "professional"
	UserTypeAdmin        UserType = "admin"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypePatient, UserTypeProfessional, UserTypeAdmin:
		return true
	}
	return false
}

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName    string             `bson:"fullName" json:"fullName"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"` // bcrypt hash, never serialised
	Type        UserType           `bson:"type" json:"type"`
	Phone       string             `bson:"phone" json:"phone"`
	Specialty   string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	ServiceType string             `bson:"serviceType,omitempty" json:"serviceType,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries the profile fields a user may edit. Nil means unchanged.
type ProfileUpdate struct {
	FullName    *string
	Phone       *string
	Specialty   *string
	ServiceType *string
}

func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Phone == nil && p.Specialty == nil && p.ServiceType == nil
}

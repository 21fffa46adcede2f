package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConsultationStatus string

const (
	ConsultationPendingPayment ConsultationStatus = "pending_payment"
	ConsultationConfirmed      ConsultationStatus = "confirmed"
	ConsultationCompleted      ConsultationStatus = "completed"
	ConsultationCancelled      ConsultationStatus = "cancelled"
)

func (s ConsultationStatus) Valid() bool {
	switch s {
	case ConsultationPendingPayment, ConsultationConfirmed, ConsultationCompleted, ConsultationCancelled:
		return true
	}
	return false
}

type ConsultationMode string

const (
	ModeVideo    ConsultationMode = "video"
	ModePhone    ConsultationMode = "phone"
	ModeInPerson ConsultationMode = "in_person"
)

func (m ConsultationMode) Valid() bool {
	return m == ModeVideo || m == ModePhone || m == ModeInPerson
}

type Consultation struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID        primitive.ObjectID `bson:"patientId" json:"patientId"`
	PatientName      string             `bson:"patientName" json:"patientName"`
	PatientPhone     string             `bson:"patientPhone,omitempty" json:"patientPhone,omitempty"`
	ProfessionalID   primitive.ObjectID `bson:"professionalId" json:"professionalId"`
	ProfessionalName string             `bson:"professionalName" json:"professionalName"`
	Specialty        string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	ScheduledAt      time.Time          `bson:"scheduledAt" json:"scheduledAt"`
	DurationMinutes  int                `bson:"durationMinutes" json:"durationMinutes"`
	Mode             ConsultationMode   `bson:"mode" json:"mode"`
	Reason           string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Amount           int64              `bson:"amount" json:"amount"`
	Status           ConsultationStatus `bson:"status" json:"status"`
	PaymentRef       string             `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	PaidAt           *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

type ConsultationFilter struct {
	PatientID      *primitive.ObjectID
	ProfessionalID *primitive.ObjectID
	Status         ConsultationStatus
	From           *time.Time
	To             *time.Time
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalPaid      WithdrawalStatus = "paid"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected, WithdrawalCancelled},
	WithdrawalApproved: {WithdrawalPaid, WithdrawalCancelled},
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected, WithdrawalPaid, WithdrawalCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalRejected || s == WithdrawalPaid || s == WithdrawalCancelled
}

func (s WithdrawalStatus) CanTransitionTo(target WithdrawalStatus) bool {
	for _, next := range withdrawalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Label is the French wording shown to professionals.
func (s WithdrawalStatus) Label() string {
	switch s {
	case WithdrawalPending:
		return "en attente"
	case WithdrawalApproved:
		return "approuvée"
	case WithdrawalRejected:
		return "rejetée"
	case WithdrawalPaid:
		return "payée"
	case WithdrawalCancelled:
		return "annulée"
	}
	return string(s)
}

type PayoutMethod string

const (
	PayoutOrangeMoney  PayoutMethod = "orange_money"
	PayoutWave         PayoutMethod = "wave"
	PayoutFreeMoney    PayoutMethod = "free_money"
	PayoutBankTransfer PayoutMethod = "bank_transfer"
)

func (m PayoutMethod) Valid() bool {
	switch m {
	case PayoutOrangeMoney, PayoutWave, PayoutFreeMoney, PayoutBankTransfer:
		return true
	}
	return false
}

type Withdrawal struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProfessionalID    primitive.ObjectID `bson:"professionalId" json:"professionalId"`
	ProfessionalName  string             `bson:"professionalName" json:"professionalName"`
	Amount            int64              `bson:"amount" json:"amount"`
	Method            PayoutMethod       `bson:"method" json:"method"`
	AccountIdentifier string             `bson:"accountIdentifier" json:"accountIdentifier"`
	Status            WithdrawalStatus   `bson:"status" json:"status"`
	Note              string             `bson:"note,omitempty" json:"note,omitempty"`
	TransactionID     string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	ProcessedAt       *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	ProcessedBy       string             `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WithdrawalStatusUpdate is the audit payload written with a status change.
type WithdrawalStatusUpdate struct {
	Status        WithdrawalStatus
	ProcessedAt   time.Time
	ProcessedBy   string
	Note          string
	TransactionID string
}

type WithdrawalFilter struct {
	ProfessionalID *primitive.ObjectID
	Status         WithdrawalStatus
}

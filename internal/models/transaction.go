package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionKind string

const (
	TransactionConsultationFee TransactionKind = "consultation_fee"
	TransactionWithdrawal      TransactionKind = "withdrawal"
)

// RevenueTransaction is an append-only ledger entry.
type RevenueTransaction struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Kind               TransactionKind     `bson:"kind" json:"kind"`
	ProfessionalID     primitive.ObjectID  `bson:"professionalId" json:"professionalId"`
	ConsultationID     *primitive.ObjectID `bson:"consultationId,omitempty" json:"consultationId,omitempty"`
	WithdrawalID       *primitive.ObjectID `bson:"withdrawalId,omitempty" json:"withdrawalId,omitempty"`
	Gateway            string              `bson:"gateway,omitempty" json:"gateway,omitempty"`
	PaymentMethod      string              `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Reference          string              `bson:"reference" json:"reference"`
	Amount             int64               `bson:"amount" json:"amount"`
	PlatformFee        int64               `bson:"platformFee" json:"platformFee"`
	ProfessionalAmount int64               `bson:"professionalAmount" json:"professionalAmount"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
}

// RevenueTotals aggregates a professional's ledger.
type RevenueTotals struct {
	Earned    int64
	Withdrawn int64
}

type Balance struct {
	Earned    int64 `json:"earned"`
	Withdrawn int64 `json:"withdrawn"`
	Pending   int64 `json:"pending"`
	Available int64 `json:"available"`
}

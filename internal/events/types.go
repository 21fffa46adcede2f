package events

import "time"

type WithdrawalStatusChanged struct {
	WithdrawalID   string    `json:"withdrawalId"`
	ProfessionalID string    `json:"professionalId"`
	Amount         int64     `json:"amount"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ActorID        string    `json:"actorId"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type WithdrawalRequested struct {
	WithdrawalID   string    `json:"withdrawalId"`
	ProfessionalID string    `json:"professionalId"`
	Amount         int64     `json:"amount"`
	Method         string    `json:"method"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type PaymentReceived struct {
	Gateway            string    `json:"gateway"`
	Reference          string    `json:"reference"`
	ConsultationID     string    `json:"consultationId"`
	ProfessionalID     string    `json:"professionalId"`
	Amount             int64     `json:"amount"`
	PlatformFee        int64     `json:"platformFee"`
	ProfessionalAmount int64     `json:"professionalAmount"`
	OccurredAt         time.Time `json:"occurredAt"`
}

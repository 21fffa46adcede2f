package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
)

// PlatformFeePercent is the platform's share of every consultation fee.
const PlatformFeePercent = 15

type Split struct {
	Amount             int64 `json:"amount"`
	PlatformFee        int64 `json:"platformFee"`
	ProfessionalAmount int64 `json:"professionalAmount"`
}

// SplitConsultationFee computes platformFee = round(amount * 0.15) with
// half-up rounding, and gives the remainder to the professional.
func SplitConsultationFee(amount int64) (Split, error) {
	if amount <= 0 {
		return Split{}, ErrInvalidAmount
	}
	// Dividing first keeps the product in range for every int64 amount.
	q, r := amount/100, amount%100
	fee := q*PlatformFeePercent + (r*PlatformFeePercent+50)/100
	return Split{
		Amount:             amount,
		PlatformFee:        fee,
		ProfessionalAmount: amount - fee,
	}, nil
}

type TransactionStore interface {
	Insert(ctx context.Context, tx *models.RevenueTransaction) error
	Totals(ctx context.Context, professionalID primitive.ObjectID) (models.RevenueTotals, error)
	ListForProfessional(ctx context.Context, professionalID primitive.ObjectID, limit int64) ([]models.RevenueTransaction, error)
}

type openWithdrawals interface {
	SumOpen(ctx context.Context, professionalID primitive.ObjectID) (int64, error)
}

type RevenueService struct {
	transactions TransactionStore
	withdrawals  openWithdrawals
}

func NewRevenueService(transactions TransactionStore, withdrawals openWithdrawals) *RevenueService {
	return &RevenueService{transactions: transactions, withdrawals: withdrawals}
}

// Balance reports what a professional has earned, withdrawn, reserved in
// open requests, and can still withdraw.
func (s *RevenueService) Balance(ctx context.Context, professionalID primitive.ObjectID) (models.Balance, error) {
	totals, err := s.transactions.Totals(ctx, professionalID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("revenue totals: %w", err)
	}
	pending, err := s.withdrawals.SumOpen(ctx, professionalID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("open withdrawals: %w", err)
	}
	available := totals.Earned - totals.Withdrawn - pending
	if available < 0 {
		available = 0
	}
	return models.Balance{
		Earned:    totals.Earned,
		Withdrawn: totals.Withdrawn,
		Pending:   pending,
		Available: available,
	}, nil
}

func (s *RevenueService) Transactions(ctx context.Context, professionalID primitive.ObjectID, limit int64) ([]models.RevenueTransaction, error) {
	return s.transactions.ListForProfessional(ctx, professionalID, limit)
}

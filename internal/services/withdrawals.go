package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/events"
	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/store"
	"github.com/healthe/healthe-api/pkg/logging"
)

type WithdrawalStore interface {
	Insert(ctx context.Context, w *models.Withdrawal) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error)
	List(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error)
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, expected models.WithdrawalStatus, upd models.WithdrawalStatusUpdate) (bool, error)
	SumOpen(ctx context.Context, professionalID primitive.ObjectID) (int64, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, professionalID primitive.ObjectID) (models.Balance, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

type withdrawalMetrics interface {
	ObserveWithdrawalTransition(from, to string)
}

type WithdrawalRequest struct {
	ProfessionalID    primitive.ObjectID
	ProfessionalName  string
	Amount            int64
	Method            models.PayoutMethod
	AccountIdentifier string
}

// StatusChange is the input of the single withdrawal mutator.
type StatusChange struct {
	WithdrawalID  string
	Target        models.WithdrawalStatus
	ActorID       string
	Note          string
	TransactionID string
}

type WithdrawalService struct {
	withdrawals  WithdrawalStore
	transactions TransactionStore
	balances     BalanceReader
	notifier     Notifier
	publisher    EventPublisher
	metrics      withdrawalMetrics
	exchange     string
	logger       *logging.Logger
	now          func() time.Time
}

type WithdrawalDeps struct {
	Withdrawals  WithdrawalStore
	Transactions TransactionStore
	Balances     BalanceReader
	Notifier     Notifier
	Publisher    EventPublisher
	Metrics      withdrawalMetrics
	Exchange     string
	Logger       *logging.Logger
}

func NewWithdrawalService(d WithdrawalDeps) *WithdrawalService {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &WithdrawalService{
		withdrawals:  d.Withdrawals,
		transactions: d.Transactions,
		balances:     d.Balances,
		notifier:     d.Notifier,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		exchange:     d.Exchange,
		logger:       d.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a pending withdrawal for a professional, bounded by the
// available balance.
func (s *WithdrawalService) Request(ctx context.Context, in WithdrawalRequest) (*models.Withdrawal, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !in.Method.Valid() {
		return nil, ErrInvalidPayoutMethod
	}
	account := strings.TrimSpace(in.AccountIdentifier)
	if account == "" {
		return nil, ErrAccountRequired
	}

	balance, err := s.balances.Balance(ctx, in.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if in.Amount > balance.Available {
		return nil, ErrInsufficientBalance
	}

	now := s.now()
	w := &models.Withdrawal{
		ID:                primitive.NewObjectID(),
		ProfessionalID:    in.ProfessionalID,
		ProfessionalName:  in.ProfessionalName,
		Amount:            in.Amount,
		Method:            in.Method,
		AccountIdentifier: account,
		Status:            models.WithdrawalPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.withdrawals.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("insert withdrawal: %w", err)
	}

	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: models.AdminInbox,
		Type:        NotificationWithdrawalRequested,
		Title:       "Nouvelle demande de retrait",
		Message:     fmt.Sprintf("%s demande un retrait de %s FCFA via %s.", displayName(in.ProfessionalName), formatXOF(in.Amount), in.Method),
		Link:        "/admin/withdrawals/" + w.ID.Hex(),
	})
	s.publish(ctx, events.RoutingWithdrawalRequested, events.WithdrawalRequested{
		WithdrawalID:   w.ID.Hex(),
		ProfessionalID: w.ProfessionalID.Hex(),
		Amount:         w.Amount,
		Method:         string(w.Method),
		OccurredAt:     now,
	})
	return w, nil
}

// UpdateStatus is the only way a withdrawal changes state. The write is a
// compare-and-swap on the status read here, so a concurrent admin action
// yields ErrConflict instead of a silent overwrite.
func (s *WithdrawalService) UpdateStatus(ctx context.Context, change StatusChange) (*models.Withdrawal, error) {
	if !change.Target.Valid() || change.Target == models.WithdrawalPending {
		return nil, ErrInvalidStatus
	}
	note := strings.TrimSpace(change.Note)
	txID := strings.TrimSpace(change.TransactionID)
	if change.Target == models.WithdrawalRejected && note == "" {
		return nil, ErrNoteRequired
	}
	if change.Target == models.WithdrawalPaid && txID == "" {
		return nil, ErrTransactionIDRequired
	}

	w, err := s.find(ctx, change.WithdrawalID)
	if err != nil {
		return nil, err
	}
	if w.Status.Terminal() {
		return nil, ErrWithdrawalFinalized
	}
	if !w.Status.CanTransitionTo(change.Target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, change.Target)
	}

	now := s.now()
	upd := models.WithdrawalStatusUpdate{
		Status:        change.Target,
		ProcessedAt:   now,
		ProcessedBy:   change.ActorID,
		Note:          note,
		TransactionID: txID,
	}
	swapped, err := s.withdrawals.CompareAndSetStatus(ctx, w.ID, w.Status, upd)
	if err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}
	if !swapped {
		return nil, ErrConflict
	}

	previous := w.Status
	w.Status = change.Target
	w.ProcessedAt = &now
	w.ProcessedBy = change.ActorID
	w.UpdatedAt = now
	if note != "" {
		w.Note = note
	}
	if txID != "" {
		w.TransactionID = txID
	}

	if w.Status == models.WithdrawalPaid {
		s.recordDebit(ctx, w, now)
	}
	if s.metrics != nil {
		s.metrics.ObserveWithdrawalTransition(string(previous), string(w.Status))
	}
	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: w.ProfessionalID.Hex(),
		Type:        NotificationWithdrawalStatus,
		Title:       "Mise à jour de votre retrait",
		Message:     statusChangeMessage(w, previous),
		Link:        "/professional/withdrawals/" + w.ID.Hex(),
	})
	s.publish(ctx, events.RoutingWithdrawalStatusChanged, events.WithdrawalStatusChanged{
		WithdrawalID:   w.ID.Hex(),
		ProfessionalID: w.ProfessionalID.Hex(),
		Amount:         w.Amount,
		From:           string(previous),
		To:             string(w.Status),
		ActorID:        change.ActorID,
		OccurredAt:     now,
	})
	return w, nil
}

// Cancel lets a professional withdraw their own open request.
func (s *WithdrawalService) Cancel(ctx context.Context, withdrawalID string, professionalID primitive.ObjectID) (*models.Withdrawal, error) {
	w, err := s.find(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if w.ProfessionalID != professionalID {
		return nil, ErrForbidden
	}
	return s.UpdateStatus(ctx, StatusChange{
		WithdrawalID: withdrawalID,
		Target:       models.WithdrawalCancelled,
		ActorID:      professionalID.Hex(),
	})
}

func (s *WithdrawalService) Get(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	return s.find(ctx, withdrawalID)
}

func (s *WithdrawalService) List(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.withdrawals.List(ctx, models.WithdrawalFilter{Status: status})
}

func (s *WithdrawalService) ListForProfessional(ctx context.Context, professionalID primitive.ObjectID) ([]models.Withdrawal, error) {
	return s.withdrawals.List(ctx, models.WithdrawalFilter{ProfessionalID: &professionalID})
}

func (s *WithdrawalService) find(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	id, err := primitive.ObjectIDFromHex(withdrawalID)
	if err != nil {
		return nil, ErrWithdrawalNotFound
	}
	w, err := s.withdrawals.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load withdrawal: %w", err)
	}
	return w, nil
}

// recordDebit appends the ledger entry for a paid withdrawal. The status
// change is already committed, so a failure here is logged for reconciliation.
func (s *WithdrawalService) recordDebit(ctx context.Context, w *models.Withdrawal, at time.Time) {
	if s.transactions == nil {
		return
	}
	wid := w.ID
	tx := &models.RevenueTransaction{
		Kind:           models.TransactionWithdrawal,
		ProfessionalID: w.ProfessionalID,
		WithdrawalID:   &wid,
		Reference:      "withdrawal:" + w.ID.Hex(),
		PaymentMethod:  string(w.Method),
		Amount:         w.Amount,
		CreatedAt:      at,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil && !errors.Is(err, store.ErrDuplicate) {
		s.logger.Error("withdrawal debit not recorded", "withdrawal_id", w.ID.Hex(), "error", err)
	}
}

func (s *WithdrawalService) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Warn("event publish failed", "routing_key", routingKey, "error", err)
	}
}

func statusChangeMessage(w *models.Withdrawal, previous models.WithdrawalStatus) string {
	msg := fmt.Sprintf("Votre demande de retrait de %s FCFA est passée de « %s » à « %s ».",
		formatXOF(w.Amount), previous.Label(), w.Status.Label())
	switch w.Status {
	case models.WithdrawalRejected:
		msg += " Motif : " + w.Note
	case models.WithdrawalPaid:
		msg += " Référence : " + w.TransactionID
	}
	return msg
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Un professionnel"
	}
	return name
}

// formatXOF groups thousands with spaces, e.g. 150000 -> "150 000".
func formatXOF(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

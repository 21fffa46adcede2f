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

const (
	GatewayPayTech  = "paytech"
	GatewayPayDunya = "paydunya"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
)

// PaymentOutcome tells the webhook what happened to a notification.
type PaymentOutcome string

const (
	OutcomeRecorded    PaymentOutcome = "recorded"
	OutcomeDuplicate   PaymentOutcome = "duplicate"
	OutcomeIgnored     PaymentOutcome = "ignored"
	OutcomeUnderpaid   PaymentOutcome = "underpaid"
	OutcomeNeedsReview PaymentOutcome = "needs_review"
)

// PaymentEvent is a gateway notification normalised by the webhook handler.
type PaymentEvent struct {
	Gateway        string
	Reference      string
	Status         PaymentStatus
	Amount         int64
	Method         string
	ConsultationID string
}

type ConsultationStore interface {
	Insert(ctx context.Context, c *models.Consultation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error)
	List(ctx context.Context, f models.ConsultationFilter) ([]models.Consultation, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ConsultationStatus) error
}

type confirmationSender interface {
	SendConsultationConfirmation(c *models.Consultation)
}

type PaymentService struct {
	consultations ConsultationStore
	transactions  TransactionStore
	notifier      Notifier
	sms           confirmationSender
	publisher     EventPublisher
	exchange      string
	logger        *logging.Logger
	now           func() time.Time
}

type PaymentDeps struct {
	Consultations ConsultationStore
	Transactions  TransactionStore
	Notifier      Notifier
	SMS           confirmationSender
	Publisher     EventPublisher
	Exchange      string
	Logger        *logging.Logger
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &PaymentService{
		consultations: d.Consultations,
		transactions:  d.Transactions,
		notifier:      d.Notifier,
		sms:           d.SMS,
		publisher:     d.Publisher,
		exchange:      d.Exchange,
		logger:        d.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ProcessPayment applies a gateway notification. A completed payment writes
// one consultation-fee transaction with the 85/15 split and confirms the
// consultation; the gateway reference makes replays harmless, and a replay
// retries a confirmation that failed earlier.
func (s *PaymentService) ProcessPayment(ctx context.Context, evt PaymentEvent) (PaymentOutcome, error) {
	evt.Reference = strings.TrimSpace(evt.Reference)
	if evt.Reference == "" {
		return "", fmt.Errorf("%w: missing reference", ErrInvalidPayload)
	}
	if evt.Status != PaymentCompleted {
		s.logger.Info("payment notification ignored", "gateway", evt.Gateway, "reference", evt.Reference, "status", evt.Status)
		return OutcomeIgnored, nil
	}

	consultationID, err := primitive.ObjectIDFromHex(strings.TrimSpace(evt.ConsultationID))
	if err != nil {
		return "", fmt.Errorf("%w: bad consultation id", ErrInvalidPayload)
	}
	c, err := s.consultations.FindByID(ctx, consultationID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrConsultationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load consultation: %w", err)
	}

	if evt.Amount > 0 && evt.Amount < c.Amount {
		s.logger.Warn("payment below consultation price",
			"gateway", evt.Gateway, "reference", evt.Reference,
			"consultation_id", c.ID.Hex(), "paid", evt.Amount, "price", c.Amount)
		s.flagForReview(ctx, c, fmt.Sprintf("Paiement insuffisant pour la consultation de %s : %s FCFA reçus sur %s FCFA (réf. %s).",
			c.PatientName, formatXOF(evt.Amount), formatXOF(c.Amount), evt.Reference))
		return OutcomeUnderpaid, nil
	}
	if c.Status == models.ConsultationCancelled {
		s.logger.Warn("payment for cancelled consultation",
			"gateway", evt.Gateway, "reference", evt.Reference, "consultation_id", c.ID.Hex())
		s.flagForReview(ctx, c, fmt.Sprintf("Paiement reçu pour la consultation annulée de %s (réf. %s). Remboursement à prévoir.",
			c.PatientName, evt.Reference))
		return OutcomeNeedsReview, nil
	}

	amount := evt.Amount
	if amount <= 0 {
		amount = c.Amount
	}
	split, err := SplitConsultationFee(amount)
	if err != nil {
		return "", fmt.Errorf("%w: amount %d", ErrInvalidPayload, amount)
	}

	now := s.now()
	cid := c.ID
	tx := &models.RevenueTransaction{
		Kind:               models.TransactionConsultationFee,
		ProfessionalID:     c.ProfessionalID,
		ConsultationID:     &cid,
		Gateway:            evt.Gateway,
		PaymentMethod:      evt.Method,
		Reference:          evt.Gateway + ":" + evt.Reference,
		Amount:             split.Amount,
		PlatformFee:        split.PlatformFee,
		ProfessionalAmount: split.ProfessionalAmount,
		CreatedAt:          now,
	}
	recorded := true
	if err := s.transactions.Insert(ctx, tx); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return "", fmt.Errorf("insert transaction: %w", err)
		}
		recorded = false
	}

	// MarkPaid only moves pending_payment consultations, so it is safe on replays.
	confirmed, err := s.consultations.MarkPaid(ctx, c.ID, tx.Reference, now)
	if err != nil {
		return "", fmt.Errorf("confirm consultation: %w", err)
	}
	if confirmed {
		c.Status = models.ConsultationConfirmed
		c.PaymentRef = tx.Reference
		c.PaidAt = &now
		if s.sms != nil {
			s.sms.SendConsultationConfirmation(c)
		}
		notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
			RecipientID: c.PatientID.Hex(),
			Type:        NotificationConsultation,
			Title:       "Consultation confirmée",
			Message:     fmt.Sprintf("Votre paiement de %s FCFA a été reçu. Votre consultation avec %s est confirmée.", formatXOF(split.Amount), c.ProfessionalName),
			Link:        "/patient/consultations/" + c.ID.Hex(),
		})
	} else if recorded && c.Status != models.ConsultationConfirmed {
		s.logger.Warn("payment recorded but consultation not confirmed",
			"consultation_id", c.ID.Hex(), "status", c.Status, "reference", tx.Reference)
	}

	if !recorded {
		s.logger.Info("payment already recorded", "gateway", evt.Gateway, "reference", evt.Reference, "confirmed_now", confirmed)
		return OutcomeDuplicate, nil
	}

	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: c.ProfessionalID.Hex(),
		Type:        NotificationPaymentReceived,
		Title:       "Paiement reçu",
		Message: fmt.Sprintf("Consultation de %s payée : %s FCFA (votre part : %s FCFA).",
			c.PatientName, formatXOF(split.Amount), formatXOF(split.ProfessionalAmount)),
		Link: "/professional/consultations/" + c.ID.Hex(),
	})
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, s.exchange, events.RoutingPaymentReceived, events.PaymentReceived{
			Gateway:            evt.Gateway,
			Reference:          tx.Reference,
			ConsultationID:     c.ID.Hex(),
			ProfessionalID:     c.ProfessionalID.Hex(),
			Amount:             split.Amount,
			PlatformFee:        split.PlatformFee,
			ProfessionalAmount: split.ProfessionalAmount,
			OccurredAt:         now,
		})
		if err != nil {
			s.logger.Warn("event publish failed", "routing_key", events.RoutingPaymentReceived, "error", err)
		}
	}
	return OutcomeRecorded, nil
}

// flagForReview leaves a payment for the admins to settle by hand.
func (s *PaymentService) flagForReview(ctx context.Context, c *models.Consultation, message string) {
	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: models.AdminInbox,
		Type:        NotificationPaymentReview,
		Title:       "Paiement à vérifier",
		Message:     message,
		Link:        "/admin/consultations/" + c.ID.Hex(),
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/pkg/logging"
)

// Notification type tags, used by the front end for icon and routing only.
const (
	NotificationWithdrawalRequested = "withdrawal_request"
	NotificationWithdrawalStatus    = "withdrawal_status"
	NotificationPaymentReceived     = "payment_received"
	NotificationPaymentReview       = "payment_review"
	NotificationConsultation        = "consultation"
	NotificationTicket              = "support_ticket"
)

const defaultNotificationLimit = 50

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListForRecipients(ctx context.Context, recipients []string, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipients []string) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, recipients []string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipients []string, at time.Time) (int64, error)
}

type NotificationInput struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
	Link        string
}

type NotificationService struct {
	repo   NotificationStore
	sms    SMSSender
	logger *logging.Logger
	now    func() time.Time
}

func NewNotificationService(repo NotificationStore, sms SMSSender, logger *logging.Logger) *NotificationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationService{
		repo:   repo,
		sms:    sms,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Recipients lists the inboxes a user reads: their own, plus the shared
// admin inbox for admins.
func Recipients(userID string, userType models.UserType) []string {
	if userType == models.UserTypeAdmin {
		return []string{userID, models.AdminInbox}
	}
	return []string{userID}
}

func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) error {
	if strings.TrimSpace(in.RecipientID) == "" {
		return fmt.Errorf("notification recipient required")
	}
	n := &models.Notification{
		RecipientID: in.RecipientID,
		Type:        in.Type,
		Title:       in.Title,
		Message:     in.Message,
		Link:        in.Link,
		Status:      models.NotificationUnread,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID string, userType models.UserType, limit int64) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	return s.repo.ListForRecipients(ctx, Recipients(userID, userType), limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string, userType models.UserType) (int64, error) {
	return s.repo.CountUnread(ctx, Recipients(userID, userType))
}

// MarkRead is idempotent: a notification already read stays read and keeps
// its original readAt.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, userType models.UserType, notificationID string) error {
	id, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return ErrInvalidIdentifier
	}
	found, err := s.repo.MarkRead(ctx, id, Recipients(userID, userType), s.now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string, userType models.UserType) (int64, error) {
	return s.repo.MarkAllRead(ctx, Recipients(userID, userType), s.now())
}

// SendConsultationConfirmation texts the patient in the background so the
// caller never waits on the SMS provider.
func (s *NotificationService) SendConsultationConfirmation(c *models.Consultation) {
	if s.sms == nil {
		return
	}
	if c.PatientPhone == "" {
		s.logger.Info("sms not sent, patient has no phone number", "consultation_id", c.ID.Hex())
		return
	}
	body := fmt.Sprintf(
		"Health-e: votre consultation avec %s le %s est confirmée.",
		c.ProfessionalName,
		c.ScheduledAt.Format("02/01/2006 à 15h04"),
	)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.sms.Send(ctx, c.PatientPhone, body); err != nil {
			s.logger.Warn("sms confirmation failed", "consultation_id", c.ID.Hex(), "error", err)
		}
	}()
}

// notifyQuietly logs instead of failing: a notification never aborts the
// operation that triggered it.
func notifyQuietly(ctx context.Context, n Notifier, logger *logging.Logger, in NotificationInput) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("notification failed", "recipient", in.RecipientID, "type", in.Type, "error", err)
	}
}

type Notifier interface {
	Notify(ctx context.Context, in NotificationInput) error
}

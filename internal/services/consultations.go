package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/store"
	"github.com/healthe/healthe-api/pkg/logging"
)

const defaultConsultationMinutes = 30

type ProfessionalDirectory interface {
	ListProfessionals(ctx context.Context, specialty string) ([]models.User, error)
}

type BookingInput struct {
	ProfessionalID  string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            models.ConsultationMode
	Reason          string
	Amount          int64
}

type ConsultationService struct {
	consultations ConsultationStore
	users         UserStore
	directory     ProfessionalDirectory
	notifier      Notifier
	logger        *logging.Logger
	now           func() time.Time
}

func NewConsultationService(consultations ConsultationStore, users UserStore, directory ProfessionalDirectory, notifier Notifier, logger *logging.Logger) *ConsultationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsultationService{
		consultations: consultations,
		users:         users,
		directory:     directory,
		notifier:      notifier,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Book creates a consultation awaiting payment. It is confirmed by the
// payment webhook.
func (s *ConsultationService) Book(ctx context.Context, patient Actor, in BookingInput) (*models.Consultation, error) {
	if patient.Type != models.UserTypePatient {
		return nil, ErrForbidden
	}
	patientID, err := patient.ObjectID()
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Mode == "" {
		in.Mode = models.ModeVideo
	}
	if !in.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	if !in.ScheduledAt.After(s.now()) {
		return nil, ErrInvalidSchedule
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultConsultationMinutes
	}

	proID, err := primitive.ObjectIDFromHex(in.ProfessionalID)
	if err != nil {
		return nil, ErrProfessionalNotFound
	}
	pro, err := s.users.FindByID(ctx, proID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && pro.Type != models.UserTypeProfessional) {
		return nil, ErrProfessionalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load professional: %w", err)
	}

	c := &models.Consultation{
		ID:               primitive.NewObjectID(),
		PatientID:        patientID,
		PatientName:      patient.Name,
		ProfessionalID:   pro.ID,
		ProfessionalName: pro.FullName,
		Specialty:        pro.Specialty,
		ScheduledAt:      in.ScheduledAt.UTC(),
		DurationMinutes:  in.DurationMinutes,
		Mode:             in.Mode,
		Reason:           strings.TrimSpace(in.Reason),
		Amount:           in.Amount,
		Status:           models.ConsultationPendingPayment,
		CreatedAt:        s.now(),
	}
	if user, err := s.users.FindByID(ctx, patientID); err == nil {
		c.PatientName = user.FullName
		c.PatientPhone = user.Phone
	}
	if err := s.consultations.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("insert consultation: %w", err)
	}

	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: pro.ID.Hex(),
		Type:        NotificationConsultation,
		Title:       "Nouvelle demande de consultation",
		Message:     fmt.Sprintf("%s a réservé une consultation le %s.", displayPatient(c.PatientName), c.ScheduledAt.Format("02/01/2006 à 15h04")),
		Link:        "/professional/consultations/" + c.ID.Hex(),
	})
	return c, nil
}

// List scopes the filter to the caller: patients and professionals only see
// their own consultations.
func (s *ConsultationService) List(ctx context.Context, viewer Actor, f models.ConsultationFilter) ([]models.Consultation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidConsultationTransition
	}
	switch viewer.Type {
	case models.UserTypeAdmin:
	case models.UserTypePatient:
		id, err := viewer.ObjectID()
		if err != nil {
			return nil, err
		}
		f.PatientID = &id
		f.ProfessionalID = nil
	case models.UserTypeProfessional:
		id, err := viewer.ObjectID()
		if err != nil {
			return nil, err
		}
		f.ProfessionalID = &id
	default:
		return nil, ErrForbidden
	}
	return s.consultations.List(ctx, f)
}

func (s *ConsultationService) Get(ctx context.Context, viewer Actor, consultationID string) (*models.Consultation, error) {
	c, err := s.find(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if !canSee(viewer, c) {
		return nil, ErrForbidden
	}
	return c, nil
}

// UpdateStatus completes or cancels a consultation. Professionals act on
// their own consultations, patients may only cancel one still awaiting
// payment, admins act on any.
func (s *ConsultationService) UpdateStatus(ctx context.Context, actor Actor, consultationID string, target models.ConsultationStatus) (*models.Consultation, error) {
	if target != models.ConsultationCompleted && target != models.ConsultationCancelled {
		return nil, ErrInvalidConsultationTransition
	}
	c, err := s.find(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, c) {
		return nil, ErrForbidden
	}
	if actor.Type == models.UserTypePatient && (target != models.ConsultationCancelled || c.Status != models.ConsultationPendingPayment) {
		return nil, ErrForbidden
	}
	if !consultationTransitionAllowed(c.Status, target) {
		return nil, ErrInvalidConsultationTransition
	}
	if err := s.consultations.UpdateStatus(ctx, c.ID, target); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("update consultation: %w", err)
	}
	c.Status = target

	recipient := c.PatientID.Hex()
	if actor.Type == models.UserTypePatient {
		recipient = c.ProfessionalID.Hex()
	}
	title := "Consultation terminée"
	if target == models.ConsultationCancelled {
		title = "Consultation annulée"
	}
	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: recipient,
		Type:        NotificationConsultation,
		Title:       title,
		Message:     fmt.Sprintf("La consultation du %s est désormais %s.", c.ScheduledAt.Format("02/01/2006 à 15h04"), consultationLabel(target)),
		Link:        "/consultations/" + c.ID.Hex(),
	})
	return c, nil
}

func (s *ConsultationService) Professionals(ctx context.Context, specialty string) ([]models.User, error) {
	return s.directory.ListProfessionals(ctx, strings.TrimSpace(specialty))
}

func (s *ConsultationService) find(ctx context.Context, consultationID string) (*models.Consultation, error) {
	id, err := primitive.ObjectIDFromHex(consultationID)
	if err != nil {
		return nil, ErrConsultationNotFound
	}
	c, err := s.consultations.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConsultationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}
	return c, nil
}

func canSee(viewer Actor, c *models.Consultation) bool {
	switch viewer.Type {
	case models.UserTypeAdmin:
		return true
	case models.UserTypePatient:
		return c.PatientID.Hex() == viewer.ID
	case models.UserTypeProfessional:
		return c.ProfessionalID.Hex() == viewer.ID
	}
	return false
}

func consultationTransitionAllowed(from, to models.ConsultationStatus) bool {
	switch from {
	case models.ConsultationPendingPayment:
		return to == models.ConsultationCancelled
	case models.ConsultationConfirmed:
		return to == models.ConsultationCompleted || to == models.ConsultationCancelled
	}
	return false
}

func consultationLabel(s models.ConsultationStatus) string {
	switch s {
	case models.ConsultationCompleted:
		return "terminée"
	case models.ConsultationCancelled:
		return "annulée"
	case models.ConsultationConfirmed:
		return "confirmée"
	}
	return "en attente de paiement"
}

func displayPatient(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Un patient"
	}
	return name
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/pkg/logging"
)

type consultationFixture struct {
	svc           *ConsultationService
	users         *memUsers
	consultations *memConsultations
	notifications *memNotifications
	patient       models.User
	pro           models.User
}

func newConsultationFixture(t *testing.T) *consultationFixture {
	t.Helper()
	f := &consultationFixture{
		users:         newMemUsers(),
		consultations: newMemConsultations(),
		notifications: &memNotifications{},
	}
	f.patient = models.User{ID: primitive.NewObjectID(), FullName: "Khady Sarr", Email: "khady@example.sn", Type: models.UserTypePatient, Phone: "+221770001122"}
	f.pro = models.User{ID: primitive.NewObjectID(), FullName: "Dr Faye", Email: "faye@example.sn", Type: models.UserTypeProfessional, Specialty: "Cardiologie"}
	f.users.byID[f.patient.ID] = f.patient
	f.users.byID[f.pro.ID] = f.pro
	f.svc = NewConsultationService(f.consultations, f.users, memDirectory{f.users},
		NewNotificationService(f.notifications, nil, logging.Discard()), logging.Discard())
	return f
}

func (f *consultationFixture) patientActor() Actor {
	return Actor{ID: f.patient.ID.Hex(), Type: models.UserTypePatient, Name: f.patient.FullName}
}

func (f *consultationFixture) proActor() Actor {
	return Actor{ID: f.pro.ID.Hex(), Type: models.UserTypeProfessional, Name: f.pro.FullName}
}

func (f *consultationFixture) book(t *testing.T) *models.Consultation {
	t.Helper()
	c, err := f.svc.Book(context.Background(), f.patientActor(), BookingInput{
		ProfessionalID: f.pro.ID.Hex(),
		ScheduledAt:    time.Now().Add(48 * time.Hour),
		Amount:         15000,
		Reason:         "Palpitations",
	})
	require.NoError(t, err)
	return c
}

func TestBook(t *testing.T) {
	f := newConsultationFixture(t)
	c := f.book(t)

	assert.Equal(t, models.ConsultationPendingPayment, c.Status)
	assert.Equal(t, models.ModeVideo, c.Mode)
	assert.Equal(t, 30, c.DurationMinutes)
	assert.Equal(t, "+221770001122", c.PatientPhone)
	assert.Equal(t, "Dr Faye", c.ProfessionalName)
	assert.Equal(t, "Cardiologie", c.Specialty)
	assert.Len(t, f.notifications.forRecipient(f.pro.ID.Hex()), 1)
}

func TestBook_Validation(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	_, err := f.svc.Book(ctx, f.proActor(), BookingInput{ProfessionalID: f.pro.ID.Hex(), ScheduledAt: future, Amount: 100})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Book(ctx, f.patientActor(), BookingInput{ProfessionalID: f.pro.ID.Hex(), ScheduledAt: time.Now().Add(-time.Hour), Amount: 100})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = f.svc.Book(ctx, f.patientActor(), BookingInput{ProfessionalID: f.patient.ID.Hex(), ScheduledAt: future, Amount: 100})
	assert.ErrorIs(t, err, ErrProfessionalNotFound)

	_, err = f.svc.Book(ctx, f.patientActor(), BookingInput{ProfessionalID: f.pro.ID.Hex(), ScheduledAt: future, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Book(ctx, f.patientActor(), BookingInput{ProfessionalID: f.pro.ID.Hex(), ScheduledAt: future, Amount: 100, Mode: "telepathy"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestListConsultations_ScopedToViewer(t *testing.T) {
	f := newConsultationFixture(t)
	f.book(t)
	other := models.Consultation{PatientID: primitive.NewObjectID(), ProfessionalID: primitive.NewObjectID(), Status: models.ConsultationConfirmed}
	require.NoError(t, f.consultations.Insert(context.Background(), &other))
	ctx := context.Background()

	mine, err := f.svc.List(ctx, f.patientActor(), models.ConsultationFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	// A patient cannot widen the filter to someone else.
	stranger := other.PatientID
	mine, err = f.svc.List(ctx, f.patientActor(), models.ConsultationFilter{PatientID: &stranger})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	proView, err := f.svc.List(ctx, f.proActor(), models.ConsultationFilter{})
	require.NoError(t, err)
	assert.Len(t, proView, 1)

	all, err := f.svc.List(ctx, Actor{ID: "admin", Type: models.UserTypeAdmin}, models.ConsultationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateConsultationStatus(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	c := f.book(t)

	_, err := f.svc.UpdateStatus(ctx, f.proActor(), c.ID.Hex(), models.ConsultationCompleted)
	assert.ErrorIs(t, err, ErrInvalidConsultationTransition, "unpaid consultations cannot be completed")

	_, err = f.consultations.MarkPaid(ctx, c.ID, "paytech:x", time.Now())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.patientActor(), c.ID.Hex(), models.ConsultationCancelled)
	assert.ErrorIs(t, err, ErrForbidden, "patients only cancel unpaid consultations")

	_, err = f.svc.UpdateStatus(ctx, Actor{ID: primitive.NewObjectID().Hex(), Type: models.UserTypeProfessional}, c.ID.Hex(), models.ConsultationCompleted)
	assert.ErrorIs(t, err, ErrForbidden)

	done, err := f.svc.UpdateStatus(ctx, f.proActor(), c.ID.Hex(), models.ConsultationCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationCompleted, done.Status)
	assert.Len(t, f.notifications.forRecipient(f.patient.ID.Hex()), 1)

	_, err = f.svc.UpdateStatus(ctx, f.proActor(), c.ID.Hex(), models.ConsultationCancelled)
	assert.ErrorIs(t, err, ErrInvalidConsultationTransition)
}

func TestPatientCancelsUnpaidConsultation(t *testing.T) {
	f := newConsultationFixture(t)
	c := f.book(t)

	cancelled, err := f.svc.UpdateStatus(context.Background(), f.patientActor(), c.ID.Hex(), models.ConsultationCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ConsultationCancelled, cancelled.Status)
	assert.Len(t, f.notifications.forRecipient(f.pro.ID.Hex()), 2)
}

func TestProfessionals(t *testing.T) {
	f := newConsultationFixture(t)
	pros, err := f.svc.Professionals(context.Background(), "Cardiologie")
	require.NoError(t, err)
	require.Len(t, pros, 1)
	assert.Equal(t, f.pro.ID, pros[0].ID)

	pros, err = f.svc.Professionals(context.Background(), "Dermatologie")
	require.NoError(t, err)
	assert.Empty(t, pros)
}

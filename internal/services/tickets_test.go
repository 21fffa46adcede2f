package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/pkg/logging"
)

func newTicketFixture(t *testing.T) (*TicketService, *memNotifications, Actor, Actor) {
	t.Helper()
	notes := &memNotifications{}
	svc := NewTicketService(newMemTickets(), NewNotificationService(notes, nil, logging.Discard()), logging.Discard())
	user := Actor{ID: primitive.NewObjectID().Hex(), Type: models.UserTypePatient, Name: "Ousmane"}
	admin := Actor{ID: "650000000000000000000003", Type: models.UserTypeAdmin, Name: "Admin"}
	return svc, notes, user, admin
}

func TestTicketLifecycle(t *testing.T) {
	svc, notes, user, admin := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := svc.Open(ctx, user, "Paiement bloqué", "Mon paiement Wave n'apparaît pas.")
	require.NoError(t, err)
	assert.Equal(t, models.TicketOpen, ticket.Status)
	assert.Len(t, notes.forRecipient(models.AdminInbox), 1)

	replied, err := svc.Reply(ctx, admin, ticket.ID.Hex(), "Nous vérifions.")
	require.NoError(t, err)
	assert.Equal(t, models.TicketInProgress, replied.Status)
	assert.Len(t, replied.Replies, 1)
	assert.Len(t, notes.forRecipient(user.ID), 1)

	_, err = svc.Reply(ctx, user, ticket.ID.Hex(), "Merci")
	require.NoError(t, err)
	assert.Len(t, notes.forRecipient(models.AdminInbox), 2)

	closed, err := svc.SetStatus(ctx, admin, ticket.ID.Hex(), models.TicketClosed)
	require.NoError(t, err)
	assert.Equal(t, models.TicketClosed, closed.Status)

	_, err = svc.Reply(ctx, user, ticket.ID.Hex(), "Encore moi")
	assert.ErrorIs(t, err, ErrTicketClosed)

	_, err = svc.SetStatus(ctx, admin, ticket.ID.Hex(), models.TicketInProgress)
	assert.ErrorIs(t, err, ErrTicketClosed)
}

func TestTicketAccess(t *testing.T) {
	svc, _, user, admin := newTicketFixture(t)
	ctx := context.Background()
	ticket, err := svc.Open(ctx, user, "Sujet", "Message")
	require.NoError(t, err)

	stranger := Actor{ID: primitive.NewObjectID().Hex(), Type: models.UserTypePatient}
	_, err = svc.Get(ctx, stranger, ticket.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SetStatus(ctx, user, ticket.ID.Hex(), models.TicketClosed)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, user, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrTicketNotFound)

	own, err := svc.List(ctx, stranger, "")
	require.NoError(t, err)
	assert.Empty(t, own)

	all, err := svc.List(ctx, admin, models.TicketOpen)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTicketValidation(t *testing.T) {
	svc, _, user, admin := newTicketFixture(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, user, " ", "Message")
	assert.ErrorIs(t, err, ErrMessageRequired)

	ticket, err := svc.Open(ctx, user, "Sujet", "Message")
	require.NoError(t, err)
	_, err = svc.Reply(ctx, user, ticket.ID.Hex(), "  ")
	assert.ErrorIs(t, err, ErrMessageRequired)

	_, err = svc.SetStatus(ctx, admin, ticket.ID.Hex(), models.TicketOpen)
	assert.ErrorIs(t, err, ErrInvalidTicketStatus)
}

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

type TicketStore interface {
	Insert(ctx context.Context, t *models.Ticket) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error)
	List(ctx context.Context, userID *primitive.ObjectID, status models.TicketStatus) ([]models.Ticket, error)
	AddReply(ctx context.Context, id primitive.ObjectID, reply models.TicketReply) (bool, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.TicketStatus, at time.Time) error
}

type TicketService struct {
	tickets  TicketStore
	notifier Notifier
	logger   *logging.Logger
	now      func() time.Time
}

func NewTicketService(tickets TicketStore, notifier Notifier, logger *logging.Logger) *TicketService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TicketService{
		tickets:  tickets,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TicketService) Open(ctx context.Context, author Actor, subject, message string) (*models.Ticket, error) {
	userID, err := author.ObjectID()
	if err != nil {
		return nil, err
	}
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	if subject == "" || message == "" {
		return nil, ErrMessageRequired
	}
	now := s.now()
	t := &models.Ticket{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		UserName:  author.Name,
		Subject:   subject,
		Message:   message,
		Status:    models.TicketOpen,
		Replies:   []models.TicketReply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tickets.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
		RecipientID: models.AdminInbox,
		Type:        NotificationTicket,
		Title:       "Nouveau ticket de support",
		Message:     fmt.Sprintf("%s : %s", displayName(author.Name), subject),
		Link:        "/admin/support/" + t.ID.Hex(),
	})
	return t, nil
}

// List returns every ticket for admins and the caller's own otherwise.
func (s *TicketService) List(ctx context.Context, viewer Actor, status models.TicketStatus) ([]models.Ticket, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidTicketStatus
	}
	if viewer.IsAdmin() {
		return s.tickets.List(ctx, nil, status)
	}
	id, err := viewer.ObjectID()
	if err != nil {
		return nil, err
	}
	return s.tickets.List(ctx, &id, status)
}

func (s *TicketService) Get(ctx context.Context, viewer Actor, ticketID string) (*models.Ticket, error) {
	t, err := s.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && t.UserID.Hex() != viewer.ID {
		return nil, ErrForbidden
	}
	return t, nil
}

// Reply appends a message. An admin reply on an open ticket moves it to
// in_progress; closed tickets accept no replies.
func (s *TicketService) Reply(ctx context.Context, author Actor, ticketID, message string) (*models.Ticket, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMessageRequired
	}
	t, err := s.Get(ctx, author, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TicketClosed {
		return nil, ErrTicketClosed
	}
	reply := models.TicketReply{
		AuthorID:   author.ID,
		AuthorType: author.Type,
		Message:    message,
		CreatedAt:  s.now(),
	}
	ok, err := s.tickets.AddReply(ctx, t.ID, reply)
	if err != nil {
		return nil, fmt.Errorf("add reply: %w", err)
	}
	if !ok {
		return nil, ErrTicketClosed
	}
	t.Replies = append(t.Replies, reply)
	t.UpdatedAt = reply.CreatedAt

	if author.IsAdmin() {
		if t.Status == models.TicketOpen {
			if err := s.tickets.SetStatus(ctx, t.ID, models.TicketInProgress, reply.CreatedAt); err != nil {
				s.logger.Warn("ticket status not advanced", "ticket_id", t.ID.Hex(), "error", err)
			} else {
				t.Status = models.TicketInProgress
			}
		}
		notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
			RecipientID: t.UserID.Hex(),
			Type:        NotificationTicket,
			Title:       "Réponse du support",
			Message:     fmt.Sprintf("Le support a répondu à votre ticket « %s ».", t.Subject),
			Link:        "/support/" + t.ID.Hex(),
		})
	} else {
		notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
			RecipientID: models.AdminInbox,
			Type:        NotificationTicket,
			Title:       "Nouvelle réponse sur un ticket",
			Message:     fmt.Sprintf("%s a répondu au ticket « %s ».", displayName(t.UserName), t.Subject),
			Link:        "/admin/support/" + t.ID.Hex(),
		})
	}
	return t, nil
}

// SetStatus is admin-only and moves forward: open -> in_progress -> closed.
func (s *TicketService) SetStatus(ctx context.Context, admin Actor, ticketID string, status models.TicketStatus) (*models.Ticket, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	if !status.Valid() || status == models.TicketOpen {
		return nil, ErrInvalidTicketStatus
	}
	t, err := s.find(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TicketClosed {
		return nil, ErrTicketClosed
	}
	if t.Status == status {
		return t, nil
	}
	now := s.now()
	if err := s.tickets.SetStatus(ctx, t.ID, status, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("set ticket status: %w", err)
	}
	t.Status = status
	t.UpdatedAt = now
	if status == models.TicketClosed {
		notifyQuietly(ctx, s.notifier, s.logger, NotificationInput{
			RecipientID: t.UserID.Hex(),
			Type:        NotificationTicket,
			Title:       "Ticket fermé",
			Message:     fmt.Sprintf("Votre ticket « %s » a été fermé.", t.Subject),
			Link:        "/support/" + t.ID.Hex(),
		})
	}
	return t, nil
}

func (s *TicketService) find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	id, err := primitive.ObjectIDFromHex(ticketID)
	if err != nil {
		return nil, ErrTicketNotFound
	}
	t, err := s.tickets.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}
	return t, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/middleware"
	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
	"github.com/healthe/healthe-api/pkg/logging"
)

type authService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
}

type sessionService interface {
	Resolve(ctx context.Context, id services.Identity) *models.Session
	Cached(ctx context.Context, userID string) (*models.Session, bool)
	Invalidate(ctx context.Context, userID string)
}

type withdrawalService interface {
	Request(ctx context.Context, in services.WithdrawalRequest) (*models.Withdrawal, error)
	UpdateStatus(ctx context.Context, change services.StatusChange) (*models.Withdrawal, error)
	Cancel(ctx context.Context, withdrawalID string, professionalID primitive.ObjectID) (*models.Withdrawal, error)
	Get(ctx context.Context, withdrawalID string) (*models.Withdrawal, error)
	List(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error)
	ListForProfessional(ctx context.Context, professionalID primitive.ObjectID) ([]models.Withdrawal, error)
}

type revenueService interface {
	Balance(ctx context.Context, professionalID primitive.ObjectID) (models.Balance, error)
	Transactions(ctx context.Context, professionalID primitive.ObjectID, limit int64) ([]models.RevenueTransaction, error)
}

type paymentService interface {
	ProcessPayment(ctx context.Context, evt services.PaymentEvent) (services.PaymentOutcome, error)
}

type notificationService interface {
	List(ctx context.Context, userID string, userType models.UserType, limit int64) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string, userType models.UserType) (int64, error)
	MarkRead(ctx context.Context, userID string, userType models.UserType, notificationID string) error
	MarkAllRead(ctx context.Context, userID string, userType models.UserType) (int64, error)
}

type consultationService interface {
	Book(ctx context.Context, patient services.Actor, in services.BookingInput) (*models.Consultation, error)
	List(ctx context.Context, viewer services.Actor, f models.ConsultationFilter) ([]models.Consultation, error)
	Get(ctx context.Context, viewer services.Actor, consultationID string) (*models.Consultation, error)
	UpdateStatus(ctx context.Context, actor services.Actor, consultationID string, target models.ConsultationStatus) (*models.Consultation, error)
	Professionals(ctx context.Context, specialty string) ([]models.User, error)
}

type ticketService interface {
	Open(ctx context.Context, author services.Actor, subject, message string) (*models.Ticket, error)
	List(ctx context.Context, viewer services.Actor, status models.TicketStatus) ([]models.Ticket, error)
	Get(ctx context.Context, viewer services.Actor, ticketID string) (*models.Ticket, error)
	Reply(ctx context.Context, author services.Actor, ticketID, message string) (*models.Ticket, error)
	SetStatus(ctx context.Context, admin services.Actor, ticketID string, status models.TicketStatus) (*models.Ticket, error)
}

type webhookMetrics interface {
	ObserveWebhook(gateway, outcome string, seconds float64)
}

type healthChecker interface {
	Ping(ctx context.Context) error
}

// WebhookSecrets are the gateway credentials IPN calls are checked against.
type WebhookSecrets struct {
	PayTechAPIKey     string
	PayTechAPISecret  string
	PayDunyaMasterKey string
}

// Deps lists everything the HTTP layer talks to. Nil optional fields
// (Metrics, Health, MetricsHandler) disable the matching feature.
type Deps struct {
	Auth           authService
	Sessions       sessionService
	Withdrawals    withdrawalService
	Revenue        revenueService
	Payments       paymentService
	Notifications  notificationService
	Consultations  consultationService
	Tickets        ticketService
	Metrics        webhookMetrics
	Health         healthChecker
	MetricsHandler http.Handler
	Webhooks       WebhookSecrets
	Logger         *logging.Logger
}

type Handler struct {
	auth           authService
	sessions       sessionService
	withdrawals    withdrawalService
	revenue        revenueService
	payments       paymentService
	notifications  notificationService
	consultations  consultationService
	tickets        ticketService
	metrics        webhookMetrics
	health         healthChecker
	metricsHandler http.Handler
	webhooks       WebhookSecrets
	logger         *logging.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &Handler{
		auth:           d.Auth,
		sessions:       d.Sessions,
		withdrawals:    d.Withdrawals,
		revenue:        d.Revenue,
		payments:       d.Payments,
		notifications:  d.Notifications,
		consultations:  d.Consultations,
		tickets:        d.Tickets,
		metrics:        d.Metrics,
		health:         d.Health,
		metricsHandler: d.MetricsHandler,
		webhooks:       d.Webhooks,
		logger:         d.Logger,
	}
}

// fail writes the user-facing message for err. Unknown errors are logged
// and reported with the generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func currentUserType(c *gin.Context) models.UserType {
	v, _ := c.Get(middleware.UserTypeKey)
	t, _ := v.(models.UserType)
	return t
}

func currentIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UserID: currentUserID(c),
		Email:  c.GetString(middleware.UserEmailKey),
	}
}

// currentSession prefers the mirrored session and resolves on a miss.
func (h *Handler) currentSession(c *gin.Context) *models.Session {
	ctx := c.Request.Context()
	if sess, ok := h.sessions.Cached(ctx, currentUserID(c)); ok {
		return sess
	}
	return h.sessions.Resolve(ctx, currentIdentity(c))
}

// actor builds the service-level caller. The display name is only looked
// up when withName is set.
func (h *Handler) actor(c *gin.Context, withName bool) services.Actor {
	a := services.Actor{ID: currentUserID(c), Type: currentUserType(c)}
	if withName {
		a.Name = h.currentSession(c).FullName
	}
	return a
}

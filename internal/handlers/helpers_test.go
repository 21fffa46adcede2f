package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/services"
	"github.com/healthe/healthe-api/internal/utils"
	"github.com/healthe/healthe-api/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testPayTechKey    = "pk_live_health-e"
	testPayTechSecret = "sk_live_health-e"
	testPayDunyaKey   = "paydunya-master-key"
)

type stubPayments struct {
	events  []services.PaymentEvent
	outcome services.PaymentOutcome
	err     error
}

func (s *stubPayments) ProcessPayment(ctx context.Context, evt services.PaymentEvent) (services.PaymentOutcome, error) {
	s.events = append(s.events, evt)
	if s.err != nil {
		return "", s.err
	}
	if s.outcome == "" {
		return services.OutcomeRecorded, nil
	}
	return s.outcome, nil
}

type stubWebhookMetrics struct {
	outcomes []string
}

func (m *stubWebhookMetrics) ObserveWebhook(gateway, outcome string, seconds float64) {
	m.outcomes = append(m.outcomes, gateway+"/"+outcome)
}

type stubSessions struct {
	cached   map[string]*models.Session
	resolved []services.Identity
	dropped  []string
}

func (s *stubSessions) Resolve(ctx context.Context, id services.Identity) *models.Session {
	s.resolved = append(s.resolved, id)
	t := models.UserTypePatient
	return &models.Session{ID: id.UserID, Email: id.Email, FullName: "Résolu", Type: &t}
}

func (s *stubSessions) Cached(ctx context.Context, userID string) (*models.Session, bool) {
	sess, ok := s.cached[userID]
	return sess, ok
}

func (s *stubSessions) Invalidate(ctx context.Context, userID string) {
	s.dropped = append(s.dropped, userID)
}

type stubAuth struct {
	loginErr error
}

func (a *stubAuth) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return &models.User{ID: primitive.NewObjectID(), Email: in.Email, Type: in.Type}, nil
}

func (a *stubAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return &services.LoginResult{Token: "tok", Identity: services.Identity{UserID: "650000000000000000000001", Email: email}}, nil
}

func (a *stubAuth) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	return &models.User{}, nil
}

type stubWithdrawals struct {
	changes   []services.StatusChange
	updateErr error
}

func (s *stubWithdrawals) Request(ctx context.Context, in services.WithdrawalRequest) (*models.Withdrawal, error) {
	return &models.Withdrawal{ID: primitive.NewObjectID(), ProfessionalID: in.ProfessionalID, ProfessionalName: in.ProfessionalName, Amount: in.Amount, Status: models.WithdrawalPending}, nil
}

func (s *stubWithdrawals) UpdateStatus(ctx context.Context, change services.StatusChange) (*models.Withdrawal, error) {
	s.changes = append(s.changes, change)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Withdrawal{Status: change.Target, Note: change.Note}, nil
}

func (s *stubWithdrawals) Cancel(ctx context.Context, withdrawalID string, professionalID primitive.ObjectID) (*models.Withdrawal, error) {
	return nil, services.ErrForbidden
}

func (s *stubWithdrawals) Get(ctx context.Context, withdrawalID string) (*models.Withdrawal, error) {
	return nil, services.ErrWithdrawalNotFound
}

func (s *stubWithdrawals) List(ctx context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	return []models.Withdrawal{}, nil
}

func (s *stubWithdrawals) ListForProfessional(ctx context.Context, professionalID primitive.ObjectID) ([]models.Withdrawal, error) {
	return []models.Withdrawal{}, nil
}

type testEnv struct {
	router      *gin.Engine
	tokens      *utils.JWTManager
	payments    *stubPayments
	metrics     *stubWebhookMetrics
	sessions    *stubSessions
	auth        *stubAuth
	withdrawals *stubWithdrawals
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tokens:      utils.NewJWTManager("handler-secret", time.Hour),
		payments:    &stubPayments{},
		metrics:     &stubWebhookMetrics{},
		sessions:    &stubSessions{cached: map[string]*models.Session{}},
		auth:        &stubAuth{},
		withdrawals: &stubWithdrawals{},
	}
	h := NewHandler(Deps{
		Auth:        env.auth,
		Sessions:    env.sessions,
		Withdrawals: env.withdrawals,
		Payments:    env.payments,
		Metrics:     env.metrics,
		Webhooks: WebhookSecrets{
			PayTechAPIKey:     testPayTechKey,
			PayTechAPISecret:  testPayTechSecret,
			PayDunyaMasterKey: testPayDunyaKey,
		},
		Logger: logging.Discard(),
	})
	env.router = gin.New()
	h.RegisterRoutes(env.router, env.tokens)
	return env
}

func (e *testEnv) token(t *testing.T, userID string, userType models.UserType) string {
	t.Helper()
	tok, err := e.tokens.Generate(userID, userID+"@example.sn", userType)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

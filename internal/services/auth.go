package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/store"
	"github.com/healthe/healthe-api/internal/utils"
	"github.com/healthe/healthe-api/pkg/logging"
)

const (
	minPasswordLength = 8
	loginScope        = "login"
)

type TokenIssuer interface {
	Generate(userID, email string, userType models.UserType) (string, error)
}

type RateLimiter interface {
	Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
	Reset(ctx context.Context, scope, subject string) error
}

type sessionInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	Phone       string
	Type        models.UserType
	Specialty   string
	ServiceType string
}

type LoginResult struct {
	Token    string
	Identity Identity
}

type AuthService struct {
	users       UserStore
	tokens      TokenIssuer
	limiter     RateLimiter
	sessions    sessionInvalidator
	demo        *DemoAccounts
	loginLimit  int
	loginWindow time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

type AuthDeps struct {
	Users       UserStore
	Tokens      TokenIssuer
	Limiter     RateLimiter
	Sessions    sessionInvalidator
	Demo        *DemoAccounts
	LoginLimit  int
	LoginWindow time.Duration
	Logger      *logging.Logger
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return &AuthService{
		users:       d.Users,
		tokens:      d.Tokens,
		limiter:     d.Limiter,
		sessions:    d.Sessions,
		demo:        d.Demo,
		loginLimit:  d.LoginLimit,
		loginWindow: d.LoginWindow,
		logger:      d.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a patient or professional account. Admin accounts are
// never self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	userType := in.Type
	if userType == "" {
		userType = models.UserTypePatient
	}
	if userType != models.UserTypePatient && userType != models.UserTypeProfessional {
		return nil, ErrInvalidUserType
	}
	if IsDemoEmail(email) {
		return nil, ErrEmailInUse
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		FullName:  strings.TrimSpace(in.FullName),
		Email:     email,
		Password:  hash,
		Type:      userType,
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userType == models.UserTypeProfessional {
		user.Specialty = strings.TrimSpace(in.Specialty)
		user.ServiceType = strings.TrimSpace(in.ServiceType)
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID.Hex(), "type", user.Type)
	return user, nil
}

// Login checks credentials and issues a token. When the demo table is
// enabled, demo accounts log in with the demo password even before their
// profile exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if s.limiter != nil {
		count, retryAfter, err := s.limiter.Consume(ctx, loginScope, email, s.loginLimit, s.loginWindow)
		if err != nil {
			s.logger.Warn("login limiter unavailable", "error", err)
		} else if s.loginLimit > 0 && count > s.loginLimit {
			s.logger.Warn("login throttled", "email", email, "retry_after_s", retryAfter)
			return nil, ErrTooManyRequests
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !utils.CheckPasswordHash(password, user.Password) {
			// Demo profiles stored without a hash still accept the demo password.
			if user.Password != "" {
				return nil, ErrWrongPassword
			}
			if _, ok := s.demo.Authenticate(email, password); !ok {
				return nil, ErrWrongPassword
			}
		}
		return s.issue(ctx, user.ID.Hex(), user.Email, user.Type)
	case errors.Is(err, store.ErrNotFound):
		if _, ok := s.demo.Lookup(email); !ok {
			return nil, ErrUserNotFound
		}
		demo, ok := s.demo.Authenticate(email, password)
		if !ok {
			return nil, ErrWrongPassword
		}
		return s.issue(ctx, demo.ID, demo.Email, demo.Type)
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (s *AuthService) issue(ctx context.Context, userID, email string, userType models.UserType) (*LoginResult, error) {
	token, err := s.tokens.Generate(userID, email, userType)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, loginScope, email); err != nil {
			s.logger.Warn("login limiter reset failed", "error", err)
		}
	}
	return &LoginResult{Token: token, Identity: Identity{UserID: userID, Email: email}}, nil
}

// UpdateProfile edits the caller's own profile and drops the session mirror.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Empty() {
		return nil, ErrNothingToUpdate
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	user, err := s.users.UpdateProfile(ctx, id, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if s.sessions != nil {
		s.sessions.Invalidate(ctx, userID)
	}
	return user, nil
}

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

// Session resolution tiers, reported to metrics.
const (
	TierProfile  = "profile"
	TierDemo     = "demo"
	TierFallback = "fallback"
)

const sessionKeyPrefix = "session:"

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error)
}

// StoreResetter reconnects the data layer.
type StoreResetter interface {
	Reset(ctx context.Context) error
}

type SessionCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type sessionMetrics interface {
	ObserveSession(tier string)
}

// Identity is the authenticated signal a session is resolved from.
type Identity struct {
	UserID string
	Email  string
}

type SessionService struct {
	users    UserStore
	resetter StoreResetter
	demo     *DemoAccounts
	cache    SessionCache
	metrics  sessionMetrics
	ttl      time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

type SessionOption func(*SessionService)

func WithStoreResetter(r StoreResetter) SessionOption {
	return func(s *SessionService) { s.resetter = r }
}

// WithDemoAccounts enables the demo tier.
func WithDemoAccounts(d *DemoAccounts) SessionOption {
	return func(s *SessionService) { s.demo = d }
}

func WithSessionMetrics(m sessionMetrics) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

func NewSessionService(users UserStore, cache SessionCache, ttl time.Duration, logger *logging.Logger, opts ...SessionOption) *SessionService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &SessionService{
		users:  users,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve turns an identity into a session. It never fails: when no typed
// profile can be resolved it returns the bare identity with a nil type.
// The result is mirrored into the session cache.
func (s *SessionService) Resolve(ctx context.Context, id Identity) *models.Session {
	sess, tier := s.resolve(ctx, id)
	if s.metrics != nil {
		s.metrics.ObserveSession(tier)
	}
	s.mirror(ctx, sess)
	return sess
}

func (s *SessionService) resolve(ctx context.Context, id Identity) (sess *models.Session, tier string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session resolution panicked", "user_id", id.UserID, "panic", fmt.Sprint(r))
			sess, tier = bareSession(id), TierFallback
		}
	}()

	oid, err := primitive.ObjectIDFromHex(id.UserID)
	if err != nil {
		s.logger.Warn("identity is not a profile id", "user_id", id.UserID)
		return bareSession(id), TierFallback
	}

	user, err := s.lookup(ctx, oid)
	switch {
	case err == nil:
		return models.SessionFromUser(user), TierProfile
	case errors.Is(err, store.ErrNotFound):
		if demo, ok := s.demo.Lookup(id.Email); ok {
			return s.materializeDemo(ctx, id, oid, demo)
		}
		s.logger.Info("no profile for identity", "user_id", id.UserID)
		return bareSession(id), TierFallback
	default:
		s.logger.Warn("profile lookup failed, using bare identity", "user_id", id.UserID, "error", err)
		return bareSession(id), TierFallback
	}
}

// lookup retries once after a connection reset, and only for the narrow
// internal-assertion failure.
func (s *SessionService) lookup(ctx context.Context, oid primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, oid)
	if err == nil || !isInternalAssertion(err) || s.resetter == nil {
		return user, err
	}
	s.logger.Warn("internal data layer error, resetting connection", "user_id", oid.Hex(), "error", err)
	if rerr := s.resetter.Reset(ctx); rerr != nil {
		return nil, fmt.Errorf("reset store: %w", rerr)
	}
	return s.users.FindByID(ctx, oid)
}

func (s *SessionService) materializeDemo(ctx context.Context, id Identity, oid primitive.ObjectID, demo DemoAccount) (*models.Session, string) {
	profile := s.demo.Profile(demo, oid, s.now())
	if err := s.users.Insert(ctx, profile); err != nil && !errors.Is(err, store.ErrDuplicate) {
		s.logger.Warn("demo profile insert failed, using bare identity", "user_id", id.UserID, "error", err)
		return bareSession(id), TierFallback
	}
	sess := models.SessionFromUser(profile)
	sess.Demo = true
	return sess, TierDemo
}

func isInternalAssertion(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "internal assertion failed")
}

func bareSession(id Identity) *models.Session {
	return &models.Session{ID: id.UserID, Email: id.Email, Degraded: true}
}

func (s *SessionService) mirror(ctx context.Context, sess *models.Session) {
	if s.cache == nil || sess == nil || sess.ID == "" {
		return
	}
	if err := s.cache.SetJSON(ctx, sessionKeyPrefix+sess.ID, sess, s.ttl); err != nil {
		s.logger.Warn("session mirror failed", "user_id", sess.ID, "error", err)
	}
}

// Cached returns the mirrored session, if any.
func (s *SessionService) Cached(ctx context.Context, userID string) (*models.Session, bool) {
	if s.cache == nil {
		return nil, false
	}
	var sess models.Session
	found, err := s.cache.GetJSON(ctx, sessionKeyPrefix+userID, &sess)
	if err != nil {
		s.logger.Warn("session cache read failed", "user_id", userID, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &sess, true
}

// Invalidate drops the mirrored session.
func (s *SessionService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, sessionKeyPrefix+userID); err != nil {
		s.logger.Warn("session cache delete failed", "user_id", userID, "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/kv"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/repository"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

const sessionStoreLabel = "session"

// SessionStore owns the authenticated user and token of one namespace.
type SessionStore struct {
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	tickets     repository.TicketRepository
	verifier    auth.CredentialVerifier
	tokens      auth.TokenManager
	latency     time.Duration
	now         func() time.Time
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	mu    sync.RWMutex
	user  *domain.User
	token string
}

// SessionDependencies bundles what a SessionStore needs.
type SessionDependencies struct {
	CredentialRepo repository.CredentialRepository
	SessionRepo    repository.SessionRepository
	TicketRepo     repository.TicketRepository
	Verifier       auth.CredentialVerifier
	Tokens         auth.TokenManager
	// Latency is the simulated delay applied to Login and Signup.
	Latency    time.Duration
	Clock      func() time.Time
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewSessionStore constructs an unauthenticated store. Call CheckAuth to
// restore a persisted session.
func NewSessionStore(deps SessionDependencies) *SessionStore {
	s := &SessionStore{
		credentials: deps.CredentialRepo,
		sessions:    deps.SessionRepo,
		tickets:     deps.TicketRepo,
		verifier:    deps.Verifier,
		tokens:      deps.Tokens,
		latency:     deps.Latency,
		now:         deps.Clock,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
	if s.verifier == nil {
		s.verifier = auth.PlaintextVerifier{}
	}
	if s.tokens == nil {
		s.tokens = auth.OpaqueTokens{}
	}
	if s.now == nil {
		s.now = utcNow
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CheckAuth restores the persisted session, if any, and reports whether the
// store is authenticated afterwards. A session whose user cannot be decoded
// or whose token is rejected is removed from storage.
func (s *SessionStore) CheckAuth(ctx context.Context) bool {
	session, err := s.sessions.Load(ctx)
	switch {
	case err == nil:
		if verr := s.tokens.Validate(session.Token, session.User); verr != nil {
			s.purge(ctx, verr)
			return false
		}
		user := session.User
		s.setState(&user, session.Token)
		return true
	case errors.Is(err, repository.ErrCorrupt):
		s.purge(ctx, err)
	case errors.Is(err, kv.ErrNotFound):
		s.setState(nil, "")
	default:
		s.logger.Error("session restore failed", zap.Error(err))
		s.metrics.RecordStoreOp(sessionStoreLabel, "check_auth", observability.OutcomeError)
		s.setState(nil, "")
	}
	return false
}

func (s *SessionStore) purge(ctx context.Context, cause error) {
	s.logger.Warn("discarding unusable session", zap.Error(cause))
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.Error("session purge failed", zap.Error(err))
	}
	s.metrics.RecordStoreOp(sessionStoreLabel, "check_auth", "purged")
	s.setState(nil, "")
}

// Login authenticates against the credential record of email. It returns
// apperrors.ErrInvalidCredentials for an unknown email or a wrong password.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.simulateLatency()

	cred, err := s.credentials.GetByEmail(ctx, email)
	if errors.Is(err, kv.ErrNotFound) {
		s.metrics.RecordStoreOp(sessionStoreLabel, "login", "rejected")
		return apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return s.unexpected("login", err)
	}
	if !s.verifier.Verify(cred.Password, password) {
		s.metrics.RecordStoreOp(sessionStoreLabel, "login", "rejected")
		return apperrors.ErrInvalidCredentials
	}

	user := cred.User()
	if err := s.establish(ctx, user); err != nil {
		return s.unexpected("login", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	s.metrics.RecordStoreOp(sessionStoreLabel, "login", observability.OutcomeOK)
	s.publish(ctx, events.EventUserLoggedIn, user)
	return nil
}

// Signup creates the account, signs it in and seeds the demo tickets. It
// returns apperrors.ErrEmailAlreadyExists when email is taken.
func (s *SessionStore) Signup(ctx context.Context, email, password, name string) error {
	s.simulateLatency()

	stored, err := s.verifier.Encode(password)
	if err != nil {
		return s.unexpected("signup", err)
	}
	user := domain.User{ID: newID("user_"), Email: email, Name: name}
	cred := &domain.Credential{ID: user.ID, Email: email, Name: name, Password: stored}
	if err := s.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.metrics.RecordStoreOp(sessionStoreLabel, "signup", "rejected")
			return apperrors.ErrEmailAlreadyExists
		}
		return s.unexpected("signup", err)
	}

	if err := s.establish(ctx, user); err != nil {
		return s.unexpected("signup", err)
	}

	if err := s.tickets.Append(ctx, seedTickets(user.ID, s.now())...); err != nil {
		s.logger.Warn("seeding demo tickets failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	s.metrics.RecordStoreOp(sessionStoreLabel, "signup", observability.OutcomeOK)
	s.publish(ctx, events.EventUserSignedUp, user)
	return nil
}

// Logout removes the persisted session and clears the state. Storage errors
// are logged; the store ends up unauthenticated regardless.
func (s *SessionStore) Logout(ctx context.Context) {
	user := s.CurrentUser()
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.Error("session clear failed", zap.Error(err))
		s.metrics.RecordStoreOp(sessionStoreLabel, "logout", observability.OutcomeError)
	} else {
		s.metrics.RecordStoreOp(sessionStoreLabel, "logout", observability.OutcomeOK)
	}
	s.setState(nil, "")
	if user != nil {
		s.logger.Info("user logged out", zap.String("user_id", user.ID))
		s.publish(ctx, events.EventUserLoggedOut, *user)
	}
}

// IsAuthenticated reports whether both a user and a token are held.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *SessionStore) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the session token, or "".
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// establish issues a token, persists the session and only then updates the
// in-memory state.
func (s *SessionStore) establish(ctx context.Context, user domain.User) error {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, domain.Session{Token: token, User: user}); err != nil {
		return err
	}
	s.setState(&user, token)
	return nil
}

func (s *SessionStore) setState(user *domain.User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
}

// simulateLatency ignores cancellation; a started login or signup always
// settles.
func (s *SessionStore) simulateLatency() {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
}

func (s *SessionStore) unexpected(op string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err))
	s.metrics.RecordStoreOp(sessionStoreLabel, op, observability.OutcomeError)
	return apperrors.NewUnexpected(err)
}

func (s *SessionStore) publish(ctx context.Context, typ events.EventType, user domain.User) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		Type:    typ,
		UserID:  user.ID,
		Payload: events.UserPayload{Email: user.Email, Name: user.Name},
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(typ)), zap.Error(err))
	}
}

// seedTickets returns the demo tickets every new account starts with.
func seedTickets(userID string, now time.Time) []domain.Ticket {
	return []domain.Ticket{
		{
			ID:          newID("ticket_"),
			Title:       "Fix login page responsive design",
			Description: "The login page doesn't display correctly on mobile devices.",
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityHigh,
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          newID("ticket_"),
			Title:       "Update dashboard statistics",
			Description: "Add more detailed analytics to the dashboard.",
			Status:      domain.TicketStatusInProgress,
			Priority:    domain.TicketPriorityMedium,
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func utcNow() time.Time {
	return time.Now().UTC()
}

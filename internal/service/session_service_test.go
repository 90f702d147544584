package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/kv"
	"github.com/spec-kit/ticketapp/internal/repository"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

func newSessionStore(store kv.Store, opts ...func(*SessionDependencies)) *SessionStore {
	deps := SessionDependencies{
		CredentialRepo: repository.NewCredentialRepository(store),
		SessionRepo:    repository.NewSessionRepository(store),
		TicketRepo:     repository.NewTicketRepository(store),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewSessionStore(deps)
}

func TestSignupCreatesAccountAndSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := newSessionStore(store)

	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))
	require.True(t, s.IsAuthenticated())

	user := s.CurrentUser()
	require.NotNil(t, user)
	assert.True(t, strings.HasPrefix(user.ID, "user_"))
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "Ann", user.Name)
	assert.True(t, strings.HasPrefix(s.Token(), "token_"))

	token, err := store.Get(ctx, repository.SessionTokenKey)
	require.NoError(t, err)
	assert.Equal(t, s.Token(), token)

	cred, err := repository.NewCredentialRepository(store).GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, cred.ID)
	assert.Equal(t, "secret1", cred.Password)
}

func TestSignupRejectsExistingEmail(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	first := newSessionStore(store)
	require.NoError(t, first.Signup(ctx, "ann@example.com", "secret1", "Ann"))
	before, err := store.Get(ctx, repository.CredentialKey("ann@example.com"))
	require.NoError(t, err)

	second := newSessionStore(store)
	err = second.Signup(ctx, "ann@example.com", "other-pass", "Impostor")
	require.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
	assert.Equal(t, "An account with this email already exists", apperrors.ToDomainError(err).Message)
	assert.False(t, second.IsAuthenticated())

	after, err := store.Get(ctx, repository.CredentialKey("ann@example.com"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	all, err := repository.NewTicketRepository(store).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "a rejected signup seeds nothing")
}

func TestSignupSeedsDemoTickets(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	clock := newFakeClock()
	s := newSessionStore(store, func(d *SessionDependencies) { d.Clock = clock.Now })

	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))

	mine, err := repository.NewTicketRepository(store).ListByUser(ctx, s.CurrentUser().ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	assert.Equal(t, "Fix login page responsive design", mine[0].Title)
	assert.Equal(t, "The login page doesn't display correctly on mobile devices.", mine[0].Description)
	assert.Equal(t, domain.TicketStatusOpen, mine[0].Status)
	assert.Equal(t, domain.TicketPriorityHigh, mine[0].Priority)

	assert.Equal(t, "Update dashboard statistics", mine[1].Title)
	assert.Equal(t, "Add more detailed analytics to the dashboard.", mine[1].Description)
	assert.Equal(t, domain.TicketStatusInProgress, mine[1].Status)
	assert.Equal(t, domain.TicketPriorityMedium, mine[1].Priority)

	for _, tk := range mine {
		assert.True(t, strings.HasPrefix(tk.ID, "ticket_"))
		assert.Equal(t, clock.Now(), tk.CreatedAt)
		assert.Equal(t, tk.CreatedAt, tk.UpdatedAt)
	}
	assert.NotEqual(t, mine[0].ID, mine[1].ID)
}

func TestSignupSucceedsWhenSeedingFails(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	store.fail(repository.TicketsKey, true)
	s := newSessionStore(store)

	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))
	assert.True(t, s.IsAuthenticated())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, newSessionStore(store).Signup(ctx, "ann@example.com", "secret1", "Ann"))

	cases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"unknown email", "bob@example.com", "secret1", apperrors.ErrInvalidCredentials},
		{"wrong password", "ann@example.com", "secret2", apperrors.ErrInvalidCredentials},
		{"case sensitive", "ann@example.com", "SECRET1", apperrors.ErrInvalidCredentials},
		{"match", "ann@example.com", "secret1", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSessionStore(store)
			err := s.Login(ctx, tc.email, tc.password)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, "Invalid credentials", apperrors.ToDomainError(err).Message)
				assert.False(t, s.IsAuthenticated())
				return
			}
			require.NoError(t, err)
			assert.True(t, s.IsAuthenticated())
			assert.Equal(t, "Ann", s.CurrentUser().Name)
		})
	}
}

func TestLoginIssuesFreshToken(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := newSessionStore(store)
	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))
	first := s.Token()

	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	assert.NotEqual(t, first, s.Token())
}

func TestLoginCorruptCredentialIsUnexpected(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, repository.CredentialKey("ann@example.com"), "{oops"))

	s := newSessionStore(store)
	err := s.Login(ctx, "ann@example.com", "secret1")
	require.ErrorIs(t, err, apperrors.ErrUnexpected)
	assert.Equal(t, "An unexpected error occurred.", apperrors.ToDomainError(err).Message)
	assert.False(t, s.IsAuthenticated())
}

func TestLoginStorageFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := newSessionStore(store)
	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))
	token := s.Token()

	store.fail(repository.SessionUserKey, true)
	err := s.Login(ctx, "ann@example.com", "secret1")
	require.ErrorIs(t, err, apperrors.ErrUnexpected)
	assert.Equal(t, token, s.Token())
}

func TestFailedLoginKeepsStoredSessionConsistent(t *testing.T) {
	for _, key := range []string{repository.SessionUserKey, repository.SessionTokenKey} {
		t.Run(key, func(t *testing.T) {
			ctx := context.Background()
			store := newFlakyStore()
			s := newSessionStore(store)
			require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))
			s.Logout(ctx)
			require.NoError(t, s.Signup(ctx, "bob@example.com", "secret2", "Bob"))
			bobToken := s.Token()

			store.fail(key, true)
			err := s.Login(ctx, "ann@example.com", "secret1")
			require.ErrorIs(t, err, apperrors.ErrUnexpected)
			assert.Equal(t, bobToken, s.Token())
			assert.Equal(t, "Bob", s.CurrentUser().Name)

			store.fail(key, false)
			restored := newSessionStore(store)
			require.True(t, restored.CheckAuth(ctx))
			assert.Equal(t, "Bob", restored.CurrentUser().Name)
			assert.Equal(t, bobToken, restored.Token())
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := newSessionStore(store)
	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))

	restored := newSessionStore(store)
	require.False(t, restored.IsAuthenticated())
	require.True(t, restored.CheckAuth(ctx))
	assert.Equal(t, s.CurrentUser(), restored.CurrentUser())
	assert.Equal(t, s.Token(), restored.Token())

	// Idempotent.
	require.True(t, restored.CheckAuth(ctx))
	assert.Equal(t, s.Token(), restored.Token())
}

func TestCheckAuthHealsCorruptSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, repository.SessionTokenKey, "token_x"))
	require.NoError(t, store.Set(ctx, repository.SessionUserKey, "not json"))

	s := newSessionStore(store)
	assert.False(t, s.CheckAuth(ctx))
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, s.Token())

	_, err := store.Get(ctx, repository.SessionTokenKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.Get(ctx, repository.SessionUserKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestCheckAuthWithMissingKeyLeavesStorageAlone(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, repository.SessionTokenKey, "token_x"))

	s := newSessionStore(store)
	assert.False(t, s.CheckAuth(ctx))

	token, err := store.Get(ctx, repository.SessionTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token_x", token)
}

func TestCheckAuthPurgesRejectedToken(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	issuer := newSessionStore(store, func(d *SessionDependencies) {
		d.Tokens = auth.NewJWTTokens("secret-a", 60)
	})
	require.NoError(t, issuer.Signup(ctx, "ann@example.com", "secret1", "Ann"))

	same := newSessionStore(store, func(d *SessionDependencies) {
		d.Tokens = auth.NewJWTTokens("secret-a", 60)
	})
	require.True(t, same.CheckAuth(ctx))

	rotated := newSessionStore(store, func(d *SessionDependencies) {
		d.Tokens = auth.NewJWTTokens("secret-b", 60)
	})
	assert.False(t, rotated.CheckAuth(ctx))
	_, err := store.Get(ctx, repository.SessionTokenKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	d := events.NewInMemoryDispatcher()
	rec := &recorder{}
	rec.subscribe(d, events.EventUserSignedUp, events.EventUserLoggedOut)

	s := newSessionStore(store, func(deps *SessionDependencies) { deps.Dispatcher = d })
	require.NoError(t, s.Signup(ctx, "ann@example.com", "secret1", "Ann"))

	s.Logout(ctx)
	assert.False(t, s.IsAuthenticated())
	_, err := store.Get(ctx, repository.SessionUserKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// A second logout is harmless and publishes nothing.
	s.Logout(ctx)
	assert.Equal(t, []events.EventType{events.EventUserSignedUp, events.EventUserLoggedOut}, rec.types())

	restored := newSessionStore(store)
	assert.False(t, restored.CheckAuth(ctx))
}

func TestBcryptVerifierStoresHash(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	withBcrypt := func(d *SessionDependencies) { d.Verifier = auth.BcryptVerifier{Cost: 4} }

	require.NoError(t, newSessionStore(store, withBcrypt).Signup(ctx, "ann@example.com", "secret1", "Ann"))
	cred, err := repository.NewCredentialRepository(store).GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", cred.Password)

	require.NoError(t, newSessionStore(store, withBcrypt).Login(ctx, "ann@example.com", "secret1"))
	require.ErrorIs(t, newSessionStore(store, withBcrypt).Login(ctx, "ann@example.com", "secret2"), apperrors.ErrInvalidCredentials)
}

func TestBcryptSignupAcceptsLongPassword(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	withBcrypt := func(d *SessionDependencies) { d.Verifier = auth.BcryptVerifier{Cost: 4} }
	password := strings.Repeat("p", 80)

	require.NoError(t, newSessionStore(store, withBcrypt).Signup(ctx, "ann@example.com", password, "Ann"))
	require.NoError(t, newSessionStore(store, withBcrypt).Login(ctx, "ann@example.com", password))
	require.ErrorIs(t, newSessionStore(store, withBcrypt).Login(ctx, "ann@example.com", password[:72]), apperrors.ErrInvalidCredentials)
}

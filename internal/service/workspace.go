package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/kv"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/repository"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

// DefaultWorkspace is used when a caller names no workspace.
const DefaultWorkspace = "default"

var workspaceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// WorkspaceOptions carries the collaborators shared by every workspace.
type WorkspaceOptions struct {
	Verifier   auth.CredentialVerifier
	Tokens     auth.TokenManager
	Latency    time.Duration
	Clock      func() time.Time
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Workspace pairs a SessionStore and a TicketStore over one namespace and
// serializes calls into them, like a single UI thread would.
type Workspace struct {
	mu      sync.Mutex
	Session *SessionStore
	Tickets *TicketStore
}

// NewWorkspace wires both stores over store.
func NewWorkspace(store kv.Store, opts WorkspaceOptions) *Workspace {
	ticketRepo := repository.NewTicketRepository(store)
	return &Workspace{
		Session: NewSessionStore(SessionDependencies{
			CredentialRepo: repository.NewCredentialRepository(store),
			SessionRepo:    repository.NewSessionRepository(store),
			TicketRepo:     ticketRepo,
			Verifier:       opts.Verifier,
			Tokens:         opts.Tokens,
			Latency:        opts.Latency,
			Clock:          opts.Clock,
			Dispatcher:     opts.Dispatcher,
			Metrics:        opts.Metrics,
			Logger:         opts.Logger,
		}),
		Tickets: NewTicketStore(TicketDependencies{
			TicketRepo: ticketRepo,
			Clock:      opts.Clock,
			Dispatcher: opts.Dispatcher,
			Metrics:    opts.Metrics,
			Logger:     opts.Logger,
		}),
	}
}

// CheckAuth restores the persisted session and returns the signed-in user,
// or nil. The ticket view follows the session.
func (w *Workspace) CheckAuth(ctx context.Context) (*domain.User, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Session.CheckAuth(ctx)
	user := w.Session.CurrentUser()
	return user, w.Tickets.LoadTickets(ctx, user)
}

// Login signs in and loads the user's tickets.
func (w *Workspace) Login(ctx context.Context, email, password string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.Session.Login(ctx, email, password); err != nil {
		return err
	}
	return w.Tickets.LoadTickets(ctx, w.Session.CurrentUser())
}

// Signup creates the account, signs in and loads the seeded tickets.
func (w *Workspace) Signup(ctx context.Context, email, password, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.Session.Signup(ctx, email, password, name); err != nil {
		return err
	}
	return w.Tickets.LoadTickets(ctx, w.Session.CurrentUser())
}

// Logout ends the session and empties the ticket view.
func (w *Workspace) Logout(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Session.Logout(ctx)
	_ = w.Tickets.LoadTickets(ctx, nil)
}

// AddTicket creates a ticket for the signed-in user.
func (w *Workspace) AddTicket(ctx context.Context, input domain.TicketInput) (*domain.Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.AddTicket(ctx, w.Session.CurrentUser(), input)
}

// UpdateTicket updates a ticket of the signed-in user.
func (w *Workspace) UpdateTicket(ctx context.Context, id string, update domain.TicketUpdate) (*domain.Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.UpdateTicket(ctx, w.Session.CurrentUser(), id, update)
}

// DeleteTicket deletes a ticket of the signed-in user.
func (w *Workspace) DeleteTicket(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.DeleteTicket(ctx, w.Session.CurrentUser(), id)
}

// Ticket looks id up in the signed-in user's ticket view.
func (w *Workspace) Ticket(id string) (domain.Ticket, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.GetTicketByID(id)
}

// Filter returns the matching tickets of the signed-in user.
func (w *Workspace) Filter(f TicketFilter) []domain.Ticket {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.Filter(f)
}

// Stats summarizes the signed-in user's tickets.
func (w *Workspace) Stats() domain.TicketStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Tickets.Stats()
}

// Workspaces lazily creates one Workspace per id, each over its own key
// prefix of a shared store.
type Workspaces struct {
	store kv.Store
	opts  WorkspaceOptions

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces builds an empty registry over store.
func NewWorkspaces(store kv.Store, opts WorkspaceOptions) *Workspaces {
	return &Workspaces{store: store, opts: opts, items: map[string]*Workspace{}}
}

// Get returns the workspace for id, creating it on first use. A blank id
// selects DefaultWorkspace. Other ids must match workspaceIDPattern.
func (r *Workspaces) Get(id string) (*Workspace, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultWorkspace
	}
	if !workspaceIDPattern.MatchString(id) {
		return nil, apperrors.NewValidationError("invalid workspace id", map[string]any{"workspace": id})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.items[id]; ok {
		return ws, nil
	}
	ws := NewWorkspace(kv.WithPrefix(r.store, id+":"), r.opts)
	r.items[id] = ws
	return ws, nil
}

// Ping checks the underlying store.
func (r *Workspaces) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/repository"
	"github.com/spec-kit/ticketapp/internal/validation"
)

const ticketStoreLabel = "tickets"

// StatusAll matches every status in a TicketFilter.
const StatusAll = "all"

// TicketStore keeps the signed-in user's view of the shared ticket
// collection. Callers pass the active user explicitly; a nil user means
// nobody is signed in and every mutation is a no-op.
type TicketStore struct {
	repo       repository.TicketRepository
	now        func() time.Time
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger

	mu      sync.RWMutex
	owner   string
	tickets []domain.Ticket
}

// TicketDependencies bundles what a TicketStore needs.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Clock      func() time.Time
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketFilter narrows the view. Search matches title or description
// case-insensitively; Status "" or StatusAll matches any status.
type TicketFilter struct {
	Search string
	Status string
}

// NewTicketStore constructs a store with an empty view.
func NewTicketStore(deps TicketDependencies) *TicketStore {
	s := &TicketStore{
		repo:       deps.TicketRepo,
		now:        deps.Clock,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		tickets:    []domain.Ticket{},
	}
	if s.now == nil {
		s.now = utcNow
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// LoadTickets replaces the view with user's persisted tickets in stored
// order. A nil user empties the view.
func (s *TicketStore) LoadTickets(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, user)
}

func (s *TicketStore) loadLocked(ctx context.Context, user *domain.User) error {
	if user == nil {
		s.owner = ""
		s.tickets = []domain.Ticket{}
		return nil
	}
	mine, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		s.logger.Error("loading tickets failed", zap.String("user_id", user.ID), zap.Error(err))
		s.metrics.RecordStoreOp(ticketStoreLabel, "load", observability.OutcomeError)
		return err
	}
	s.owner = user.ID
	s.tickets = mine
	s.metrics.RecordStoreOp(ticketStoreLabel, "load", observability.OutcomeOK)
	return nil
}

// ensureViewLocked reloads the view when it belongs to someone else.
func (s *TicketStore) ensureViewLocked(ctx context.Context, user *domain.User) error {
	if s.owner == user.ID {
		return nil
	}
	return s.loadLocked(ctx, user)
}

// AddTicket validates input and appends a new ticket owned by user to both
// the view and the persisted collection. It returns nil, nil when user is nil.
func (s *TicketStore) AddTicket(ctx context.Context, user *domain.User, input domain.TicketInput) (*domain.Ticket, error) {
	if user == nil {
		s.metrics.RecordStoreOp(ticketStoreLabel, "add", observability.OutcomeNoop)
		return nil, nil
	}
	if err := validation.TicketInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureViewLocked(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := domain.Ticket{
		ID:          newID("ticket_"),
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		UserID:      user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Append(ctx, ticket); err != nil {
		s.logger.Error("adding ticket failed", zap.String("user_id", user.ID), zap.Error(err))
		s.metrics.RecordStoreOp(ticketStoreLabel, "add", observability.OutcomeError)
		return nil, err
	}
	s.tickets = append(s.tickets, ticket)

	s.metrics.RecordStoreOp(ticketStoreLabel, "add", observability.OutcomeOK)
	s.publish(ctx, events.EventTicketCreated, ticket)
	return &ticket, nil
}

// UpdateTicket merges update into the ticket with id and stamps updatedAt.
// Unknown ids and a nil user are silent no-ops reported as nil, nil.
func (s *TicketStore) UpdateTicket(ctx context.Context, user *domain.User, id string, update domain.TicketUpdate) (*domain.Ticket, error) {
	if user == nil {
		s.metrics.RecordStoreOp(ticketStoreLabel, "update", observability.OutcomeNoop)
		return nil, nil
	}
	if err := validation.TicketUpdate(update); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureViewLocked(ctx, user); err != nil {
		return nil, err
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		s.metrics.RecordStoreOp(ticketStoreLabel, "update", observability.OutcomeNoop)
		return nil, nil
	}

	updated := s.tickets[idx]
	update.Apply(&updated)
	updated.UpdatedAt = laterOf(s.now(), updated.UpdatedAt)

	found, err := s.repo.Update(ctx, id, user.ID, func(t *domain.Ticket) {
		update.Apply(t)
		t.UpdatedAt = laterOf(updated.UpdatedAt, t.UpdatedAt)
	})
	if err != nil {
		s.logger.Error("updating ticket failed", zap.String("ticket_id", id), zap.Error(err))
		s.metrics.RecordStoreOp(ticketStoreLabel, "update", observability.OutcomeError)
		return nil, err
	}
	if !found {
		// Removed from the shared collection by another client.
		s.removeLocked(idx)
		s.metrics.RecordStoreOp(ticketStoreLabel, "update", observability.OutcomeNoop)
		return nil, nil
	}
	s.tickets[idx] = updated

	s.metrics.RecordStoreOp(ticketStoreLabel, "update", observability.OutcomeOK)
	s.publish(ctx, events.EventTicketUpdated, updated)
	return &updated, nil
}

// DeleteTicket removes the ticket with id from the view and the persisted
// collection. Unknown ids are not an error.
func (s *TicketStore) DeleteTicket(ctx context.Context, user *domain.User, id string) error {
	if user == nil {
		s.metrics.RecordStoreOp(ticketStoreLabel, "delete", observability.OutcomeNoop)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureViewLocked(ctx, user); err != nil {
		return err
	}

	found, err := s.repo.Delete(ctx, id, user.ID)
	if err != nil {
		s.logger.Error("deleting ticket failed", zap.String("ticket_id", id), zap.Error(err))
		s.metrics.RecordStoreOp(ticketStoreLabel, "delete", observability.OutcomeError)
		return err
	}
	if idx := s.indexLocked(id); idx >= 0 {
		s.removeLocked(idx)
		found = true
	}
	if !found {
		s.metrics.RecordStoreOp(ticketStoreLabel, "delete", observability.OutcomeNoop)
		return nil
	}

	s.metrics.RecordStoreOp(ticketStoreLabel, "delete", observability.OutcomeOK)
	s.publishDeleted(ctx, user.ID, id)
	return nil
}

// GetTicketByID looks id up in the view.
func (s *TicketStore) GetTicketByID(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.tickets[idx], true
	}
	return domain.Ticket{}, false
}

// Tickets returns a copy of the view.
func (s *TicketStore) Tickets() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Ticket{}, s.tickets...)
}

// Filter returns the tickets of the view matching f, in view order.
func (s *TicketStore) Filter(f TicketFilter) []domain.Ticket {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.TrimSpace(f.Status)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Ticket{}
	for _, t := range s.tickets {
		if status != "" && status != StatusAll && string(t.Status) != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats counts the view per status.
func (s *TicketStore) Stats() domain.TicketStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.TicketStats{Total: len(s.tickets)}
	for _, t := range s.tickets {
		switch t.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusInProgress:
			stats.InProgress++
		case domain.TicketStatusClosed:
			stats.Closed++
		}
	}
	return stats
}

func (s *TicketStore) indexLocked(id string) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TicketStore) removeLocked(idx int) {
	s.tickets = append(s.tickets[:idx:idx], s.tickets[idx+1:]...)
}

func (s *TicketStore) publish(ctx context.Context, typ events.EventType, t domain.Ticket) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		Type:     typ,
		UserID:   t.UserID,
		TicketID: t.ID,
		Payload:  events.TicketPayload{Title: t.Title, Status: t.Status, Priority: t.Priority},
	})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(typ)), zap.Error(err))
	}
}

func (s *TicketStore) publishDeleted(ctx context.Context, userID, id string) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{Type: events.EventTicketDeleted, UserID: userID, TicketID: id})
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(events.EventTicketDeleted)), zap.Error(err))
	}
}

// laterOf keeps updatedAt monotonic when the clock steps backwards.
func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

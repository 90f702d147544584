package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/kv"
)

// TicketRepository encapsulates the shared ticket collection. Every write is
// one read-modify-write inside kv.Store.Update.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
	Append(ctx context.Context, tickets ...domain.Ticket) error
	// Update applies fn to the ticket with id owned by userID. It reports
	// whether such a ticket existed.
	Update(ctx context.Context, id, userID string, fn func(*domain.Ticket)) (bool, error)
	// Delete removes the ticket with id owned by userID. It reports whether
	// such a ticket existed.
	Delete(ctx context.Context, id, userID string) (bool, error)
}

type ticketRepository struct {
	store kv.Store
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(store kv.Store) TicketRepository {
	return &ticketRepository{store: store}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	raw, err := r.store.Get(ctx, TicketsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []domain.Ticket{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTickets(raw, true)
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *ticketRepository) Append(ctx context.Context, tickets ...domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.mutate(ctx, func(all []domain.Ticket) ([]domain.Ticket, bool) {
		return append(all, tickets...), true
	})
}

func (r *ticketRepository) Update(ctx context.Context, id, userID string, fn func(*domain.Ticket)) (bool, error) {
	found := false
	err := r.mutate(ctx, func(all []domain.Ticket) ([]domain.Ticket, bool) {
		found = false
		for i := range all {
			if all[i].ID == id && all[i].UserID == userID {
				fn(&all[i])
				found = true
				break
			}
		}
		return all, found
	})
	return found, err
}

func (r *ticketRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	found := false
	err := r.mutate(ctx, func(all []domain.Ticket) ([]domain.Ticket, bool) {
		found = false
		kept := all[:0]
		for _, t := range all {
			if t.ID == id && t.UserID == userID {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		return kept, found
	})
	return found, err
}

var errUnchanged = errors.New("collection unchanged")

// mutate runs fn over the decoded collection inside one critical section.
// fn may run more than once when the backend retries. When fn reports no
// change the write is skipped.
func (r *ticketRepository) mutate(ctx context.Context, fn func([]domain.Ticket) ([]domain.Ticket, bool)) error {
	err := r.store.Update(ctx, TicketsKey, func(cur string, exists bool) (string, error) {
		all, err := decodeTickets(cur, exists)
		if err != nil {
			return "", err
		}
		next, changed := fn(all)
		if !changed {
			return "", errUnchanged
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return "", err
		}
		return string(payload), nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func decodeTickets(raw string, exists bool) ([]domain.Ticket, error) {
	if !exists || raw == "" {
		return []domain.Ticket{}, nil
	}
	var all []domain.Ticket
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, fmt.Errorf("%w: ticket collection: %v", ErrCorrupt, err)
	}
	if all == nil {
		all = []domain.Ticket{}
	}
	return all, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/kv"
)

// SessionRepository persists the active session of the namespace.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Clear(ctx context.Context) error
}

type sessionRepository struct {
	store kv.Store
}

// NewSessionRepository returns a namespace-backed implementation.
func NewSessionRepository(store kv.Store) SessionRepository {
	return &sessionRepository{store: store}
}

// Load returns kv.ErrNotFound when either key is missing and ErrCorrupt when
// the user value is not a JSON user.
func (r *sessionRepository) Load(ctx context.Context) (*domain.Session, error) {
	token, err := r.store.Get(ctx, SessionTokenKey)
	if err != nil {
		return nil, err
	}
	raw, err := r.store.Get(ctx, SessionUserKey)
	if err != nil {
		return nil, err
	}
	if token == "" || raw == "" {
		return nil, kv.ErrNotFound
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: session user: %v", ErrCorrupt, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: session user has no id", ErrCorrupt)
	}
	return &domain.Session{Token: token, User: user}, nil
}

// Save writes the user before the token. When the token write fails the
// previous user value is put back, so a failed save never pairs one login's
// token with another login's user. If that restore fails too, both keys are
// removed.
func (r *sessionRepository) Save(ctx context.Context, session domain.Session) error {
	payload, err := json.Marshal(session.User)
	if err != nil {
		return err
	}
	previous, err := r.store.Get(ctx, SessionUserKey)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	if err := r.store.Set(ctx, SessionUserKey, string(payload)); err != nil {
		return err
	}
	if err := r.store.Set(ctx, SessionTokenKey, session.Token); err != nil {
		var restoreErr error
		if hadPrevious {
			restoreErr = r.store.Set(ctx, SessionUserKey, previous)
		} else {
			restoreErr = r.store.Remove(ctx, SessionUserKey)
		}
		if restoreErr != nil {
			return errors.Join(err, restoreErr, r.Clear(ctx))
		}
		return err
	}
	return nil
}

// Clear removes both keys, attempting the second even if the first fails.
func (r *sessionRepository) Clear(ctx context.Context) error {
	return errors.Join(
		r.store.Remove(ctx, SessionTokenKey),
		r.store.Remove(ctx, SessionUserKey),
	)
}

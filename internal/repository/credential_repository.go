package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/ticketapp/internal/domain"
	"github.com/spec-kit/ticketapp/internal/kv"
)

// CredentialRepository defines persistence access for account records.
type CredentialRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	Create(ctx context.Context, cred *domain.Credential) error
}

type credentialRepository struct {
	store kv.Store
}

// NewCredentialRepository returns a namespace-backed implementation.
func NewCredentialRepository(store kv.Store) CredentialRepository {
	return &credentialRepository{store: store}
}

// GetByEmail returns kv.ErrNotFound for unknown emails and ErrCorrupt when
// the record does not decode.
func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	raw, err := r.store.Get(ctx, CredentialKey(email))
	if err != nil {
		return nil, err
	}
	var cred domain.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, fmt.Errorf("%w: credential %q: %v", ErrCorrupt, email, err)
	}
	return &cred, nil
}

// Create writes the record only if no record exists for its email.
func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return r.store.Update(ctx, CredentialKey(cred.Email), func(_ string, exists bool) (string, error) {
		if exists {
			return "", ErrAlreadyExists
		}
		return string(payload), nil
	})
}

package signaturerequest

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("signature request not found")
	ErrVersionConflict = errors.New("signature request modified concurrently")
)

type FindParams struct {
	ContractID uuid.UUID
	Status     Status
	Limit      int
	Offset     int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (SignatureRequest, error)
	// GetByProviderRequestID resolves the local request for a provider
	// envelope id; webhook processing depends on it.
	GetByProviderRequestID(ctx context.Context, provider Provider, providerRequestID string) (SignatureRequest, error)
	List(ctx context.Context, params *FindParams) ([]SignatureRequest, error)
	Create(ctx context.Context, req SignatureRequest) (SignatureRequest, error)
	// Save persists the aggregate with an optimistic version check and
	// returns ErrVersionConflict when the stored version moved on.
	Save(ctx context.Context, req SignatureRequest) (SignatureRequest, error)
}

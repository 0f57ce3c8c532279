package webhookevent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
)

var ErrNotFound = errors.New("webhook event not found")

// Event is a raw provider notification, stored verbatim before any
// interpretation so no delivery is ever lost.
type Event struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Provider          signaturerequest.Provider
	ProviderRequestID string
	Payload           json.RawMessage
	Processed         bool
	ProcessingError   string
	Attempts          int
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}

type Repository interface {
	Create(ctx context.Context, event *Event) (*Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// ListUnprocessed returns pending events oldest first, capped at limit.
	ListUnprocessed(ctx context.Context, limit int) ([]*Event, error)
	// MarkProcessed and MarkFailed record the processing outcome; the
	// payload itself is never rewritten.
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, processingError string) error
}

package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
)

var ErrInvalidEventKind = errors.New("invalid audit event kind")

type EventKind string

const (
	EventCreated            EventKind = "created"
	EventView               EventKind = "view"
	EventSignatureInitiated EventKind = "signature_initiated"
	EventSignatureCompleted EventKind = "signature_completed"
	EventSignatureFailed    EventKind = "signature_failed"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventView, EventSignatureInitiated, EventSignatureCompleted, EventSignatureFailed:
		return true
	}
	return false
}

// Entry is one immutable lifecycle record. Once created it is never
// updated or deleted; the repository surface has no mutation methods
// and the storage layer rejects them too.
type Entry struct {
	ID               uint
	TenantID         uuid.UUID
	ContractID       uuid.UUID
	EventKind        EventKind
	SignatureChannel string
	ContentHash      contenthash.ContentHash
	SignerID         *uuid.UUID
	IP               string
	UserAgent        string
	Metadata         json.RawMessage
	CreatedAt        time.Time
}

type FindParams struct {
	EventKind EventKind
	Limit     int
	Offset    int
}

// Repository is append-only: entries can be written and read, never
// changed. Listing orders newest first, ties broken by insertion order.
type Repository interface {
	Append(ctx context.Context, entry *Entry) (*Entry, error)
	ListForContract(ctx context.Context, contractID uuid.UUID, params *FindParams) ([]*Entry, error)
	LatestForContract(ctx context.Context, contractID uuid.UUID) (*Entry, error)
	HashExists(ctx context.Context, contractID uuid.UUID, hash contenthash.ContentHash) (bool, error)
}

var ErrNotFound = errors.New("audit log entry not found")

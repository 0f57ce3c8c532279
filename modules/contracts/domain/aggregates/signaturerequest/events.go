package signaturerequest

import (
	"time"

	"github.com/google/uuid"
)

type SentEvent struct {
	RequestID         uuid.UUID
	ContractID        uuid.UUID
	Provider          Provider
	ProviderRequestID string
	At                time.Time
}

type CompletedEvent struct {
	RequestID  uuid.UUID
	ContractID uuid.UUID
	At         time.Time
}

type DeclinedEvent struct {
	RequestID  uuid.UUID
	ContractID uuid.UUID
	SignerID   uuid.UUID
	At         time.Time
}

type CancelledEvent struct {
	RequestID  uuid.UUID
	ContractID uuid.UUID
	At         time.Time
}

type ExpiredEvent struct {
	RequestID  uuid.UUID
	ContractID uuid.UUID
	At         time.Time
}

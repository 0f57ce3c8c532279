package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Contract struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Number      string
	Status      string
	Content     json.RawMessage
	ContentHash string
	SignedHash  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AuditLog struct {
	ID               uint
	TenantID         uuid.UUID
	ContractID       uuid.UUID
	EventKind        string
	SignatureChannel *string
	ContentHash      string
	SignerID         *uuid.UUID
	IP               *string
	UserAgent        *string
	Metadata         json.RawMessage
	CreatedAt        time.Time
}

type SignatureRequest struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ContractID         uuid.UUID
	Provider           string
	ProviderRequestID  *string
	DocumentHash       string
	Subject            *string
	Message            *string
	Status             string
	Sequential         bool
	ExpiresAt          *time.Time
	RemindEverySeconds int64
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	SentAt             *time.Time
	CompletedAt        *time.Time
}

type Signer struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	OrderIndex int
	Name       string
	Email      string
	Phone      *string
	Auth       string
	Status     string
	Fields     json.RawMessage
	SentAt     *time.Time
	ViewedAt   *time.Time
	SignedAt   *time.Time
	DeclinedAt *time.Time
}

// SignerField is the JSONB shape stored in signature_signers.fields.
type SignerField struct {
	Kind     string  `json:"kind"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Required bool    `json:"required"`
}

type WebhookEvent struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Provider          string
	ProviderRequestID *string
	Payload           json.RawMessage
	Processed         bool
	ProcessingError   *string
	Attempts          int
	ReceivedAt        time.Time
	ProcessedAt       *time.Time
}

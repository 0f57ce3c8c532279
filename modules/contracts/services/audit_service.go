package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// RecordEventDTO carries everything the caller knows about a lifecycle
// event. IP and user agent are filled from the request context when
// left empty.
type RecordEventDTO struct {
	ContractID       uuid.UUID
	EventKind        auditlog.EventKind
	SignatureChannel string
	ContentHash      contenthash.ContentHash
	SignerID         *uuid.UUID
	Metadata         json.RawMessage
}

type AuditService struct {
	repo auditlog.Repository
}

func NewAuditService(repo auditlog.Repository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) RecordEvent(ctx context.Context, dto RecordEventDTO) (*auditlog.Entry, error) {
	if dto.ContractID == uuid.Nil {
		return nil, serrors.NewValidationError("contract id is required")
	}
	if !dto.EventKind.IsValid() {
		return nil, serrors.NewValidationError("unknown audit event kind")
	}
	if !dto.ContentHash.IsValid() {
		return nil, serrors.NewValidationError("content hash is malformed")
	}

	entry := &auditlog.Entry{
		ContractID:       dto.ContractID,
		EventKind:        dto.EventKind,
		SignatureChannel: dto.SignatureChannel,
		ContentHash:      dto.ContentHash,
		SignerID:         dto.SignerID,
		Metadata:         dto.Metadata,
	}
	if ip, ok := composables.UseIP(ctx); ok {
		entry.IP = ip
	}
	if ua, ok := composables.UseUserAgent(ctx); ok {
		entry.UserAgent = ua
	}

	created, err := s.repo.Append(ctx, entry)
	if err != nil {
		return nil, serrors.NewPersistenceError("appending audit entry", err)
	}
	return created, nil
}

func (s *AuditService) ListForContract(ctx context.Context, contractID uuid.UUID, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	return s.repo.ListForContract(ctx, contractID, params)
}

func (s *AuditService) LatestForContract(ctx context.Context, contractID uuid.UUID) (*auditlog.Entry, error) {
	return s.repo.LatestForContract(ctx, contractID)
}

func (s *AuditService) HashExists(ctx context.Context, contractID uuid.UUID, hash contenthash.ContentHash) (bool, error) {
	if !hash.IsValid() {
		return false, serrors.NewValidationError("content hash is malformed")
	}
	return s.repo.HashExists(ctx, contractID, hash)
}

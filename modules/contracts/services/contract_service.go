package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

type ContractService struct {
	repo  contract.Repository
	audit *AuditService
}

func NewContractService(repo contract.Repository, audit *AuditService) *ContractService {
	return &ContractService{repo: repo, audit: audit}
}

// Create hashes the content at creation time and writes the first
// ledger entry.
func (s *ContractService) Create(ctx context.Context, tenantID uuid.UUID, number string, content contractcontent.ContractContent) (contract.Contract, error) {
	if number == "" {
		return contract.Contract{}, serrors.NewValidationError("contract number is required")
	}
	c, err := s.repo.Create(ctx, contract.New(tenantID, number, content))
	if err != nil {
		return contract.Contract{}, err
	}
	if _, err := s.audit.RecordEvent(ctx, RecordEventDTO{
		ContractID:  c.ID(),
		EventKind:   auditlog.EventCreated,
		ContentHash: c.ContentHash(),
	}); err != nil {
		return contract.Contract{}, err
	}
	return c, nil
}

func (s *ContractService) GetByID(ctx context.Context, id uuid.UUID) (contract.Contract, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ContractService) GetByNumber(ctx context.Context, number string) (contract.Contract, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *ContractService) List(ctx context.Context, params *contract.FindParams) ([]contract.Contract, error) {
	return s.repo.List(ctx, params)
}

// UpdateContent replaces a draft's content and refreshes its hash.
// Anything past draft is frozen.
func (s *ContractService) UpdateContent(ctx context.Context, id uuid.UUID, content contractcontent.ContractContent) (contract.Contract, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return contract.Contract{}, err
	}
	if c.Status() != contract.StatusDraft {
		return contract.Contract{}, serrors.NewStateTransitionError(string(c.Status()), string(contract.StatusDraft))
	}
	return s.repo.Save(ctx, c.WithContent(content))
}

// RecordView writes a view entry against the contract's current hash.
func (s *ContractService) RecordView(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.audit.RecordEvent(ctx, RecordEventDTO{
		ContractID:  c.ID(),
		EventKind:   auditlog.EventView,
		ContentHash: c.ContentHash(),
	})
	return err
}

package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
)

// VerificationService is the read-side facade over hashing and the
// audit ledger. It never mutates anything.
type VerificationService struct {
	auditRepo auditlog.Repository
}

func NewVerificationService(auditRepo auditlog.Repository) *VerificationService {
	return &VerificationService{auditRepo: auditRepo}
}

func (s *VerificationService) GenerateHash(content contractcontent.ContractContent) contenthash.ContentHash {
	return contenthash.Generate(content)
}

// VerifyHash recomputes the content hash and compares it to candidate,
// ignoring hex case.
func (s *VerificationService) VerifyHash(content contractcontent.ContractContent, candidate contenthash.ContentHash) bool {
	return contenthash.Verify(content, candidate)
}

func (s *VerificationService) ListForContract(ctx context.Context, contractID uuid.UUID, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	return s.auditRepo.ListForContract(ctx, contractID, params)
}

func (s *VerificationService) HashExists(ctx context.Context, contractID uuid.UUID, hash contenthash.ContentHash) (bool, error) {
	return s.auditRepo.HashExists(ctx, contractID, hash)
}

package contract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
)

var (
	ErrNotFound    = errors.New("contract not found")
	ErrNumberTaken = errors.New("contract number already in use")
)

type Status string

const (
	StatusDraft             Status = "draft"
	StatusAwaitingSignature Status = "awaiting_signature"
	StatusSigned            Status = "signed"
	StatusCancelled         Status = "cancelled"
)

// Contract couples the hashable content with the bookkeeping the
// canonicalizer deliberately ignores.
type Contract struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	number      string
	status      Status
	content     contractcontent.ContractContent
	contentHash contenthash.ContentHash
	signedHash  contenthash.ContentHash
	createdAt   time.Time
	updatedAt   time.Time
}

func New(tenantID uuid.UUID, number string, content contractcontent.ContractContent) Contract {
	return Contract{
		id:          uuid.New(),
		tenantID:    tenantID,
		number:      strings.TrimSpace(number),
		status:      StatusDraft,
		content:     content,
		contentHash: contenthash.Generate(content),
	}
}

func Hydrate(
	id, tenantID uuid.UUID,
	number string,
	status Status,
	content contractcontent.ContractContent,
	contentHash, signedHash contenthash.ContentHash,
	createdAt, updatedAt time.Time,
) Contract {
	return Contract{
		id:          id,
		tenantID:    tenantID,
		number:      strings.TrimSpace(number),
		status:      status,
		content:     content,
		contentHash: contentHash,
		signedHash:  signedHash,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (c Contract) ID() uuid.UUID                         { return c.id }
func (c Contract) TenantID() uuid.UUID                   { return c.tenantID }
func (c Contract) Number() string                        { return c.number }
func (c Contract) Status() Status                        { return c.status }
func (c Contract) Content() contractcontent.ContractContent { return c.content }
func (c Contract) ContentHash() contenthash.ContentHash  { return c.contentHash }
func (c Contract) SignedHash() contenthash.ContentHash   { return c.signedHash }
func (c Contract) CreatedAt() time.Time                  { return c.createdAt }
func (c Contract) UpdatedAt() time.Time                  { return c.updatedAt }
func (c Contract) IsZero() bool                          { return c.id == uuid.Nil }

// WithContent replaces the substantive content and refreshes the
// creation-time hash. Only meaningful while the contract is a draft.
func (c Contract) WithContent(content contractcontent.ContractContent) Contract {
	c.content = content
	c.contentHash = contenthash.Generate(content)
	return c
}

// WithSignedHash records the hash of the content as it was presented
// for signature.
func (c Contract) WithSignedHash(hash contenthash.ContentHash) Contract {
	c.signedHash = hash
	return c
}

func (c Contract) WithStatus(status Status) Contract {
	c.status = status
	return c
}

type FindParams struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Contract, error)
	GetByNumber(ctx context.Context, number string) (Contract, error)
	List(ctx context.Context, params *FindParams) ([]Contract, error)
	Create(ctx context.Context, c Contract) (Contract, error)
	Save(ctx context.Context, c Contract) (Contract, error)
}

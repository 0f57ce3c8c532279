package signaturerequest

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

var (
	ErrNoSigners           = errors.New("signature request has no signers")
	ErrSignerWithoutFields = errors.New("signer has no signature fields")
	ErrAlreadySent         = errors.New("signature request already dispatched")
	ErrSignerNotFound      = errors.New("signer not found on request")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Provider identifies the external signing service bound to a request.
type Provider string

const (
	ProviderDocuSign  Provider = "docusign"
	ProviderClicksign Provider = "clicksign"
)

func (p Provider) IsValid() bool {
	return p == ProviderDocuSign || p == ProviderClicksign
}

type SignatureRequest interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	ContractID() uuid.UUID
	Provider() Provider
	ProviderRequestID() string
	DocumentHash() contenthash.ContentHash
	Subject() string
	Message() string
	Status() Status
	Sequential() bool
	ExpiresAt() *time.Time
	RemindEvery() time.Duration
	Signers() []Signer
	Version() int64
	CreatedAt() time.Time
	UpdatedAt() time.Time
	SentAt() *time.Time
	CompletedAt() *time.Time

	// MarkSent validates send preconditions, binds the provider
	// envelope id, and moves every signer to sent.
	MarkSent(providerRequestID string, at time.Time) (SignatureRequest, error)
	MarkCancelled(at time.Time) (SignatureRequest, error)
	MarkExpired(at time.Time) (SignatureRequest, error)
	// ApplySignerStatus advances one signer and derives the request
	// status. Regressions are rejected with a STATE_TRANSITION error.
	ApplySignerStatus(signerID uuid.UUID, next SignerStatus, at time.Time) (SignatureRequest, error)
	NextSigner() *Signer
	IsExpired(now time.Time) bool
}

type signatureRequest struct {
	id                uuid.UUID
	tenantID          uuid.UUID
	contractID        uuid.UUID
	provider          Provider
	providerRequestID string
	documentHash      contenthash.ContentHash
	subject           string
	message           string
	status            Status
	sequential        bool
	expiresAt         *time.Time
	remindEvery       time.Duration
	signers           []Signer
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
	sentAt            *time.Time
	completedAt       *time.Time
}

type Option func(*signatureRequest)

func WithID(id uuid.UUID) Option {
	return func(r *signatureRequest) {
		if id != uuid.Nil {
			r.id = id
		}
	}
}

func WithSubject(subject, message string) Option {
	return func(r *signatureRequest) {
		r.subject = subject
		r.message = message
	}
}

func WithSequential(sequential bool) Option {
	return func(r *signatureRequest) {
		r.sequential = sequential
	}
}

func WithExpiresAt(expiresAt *time.Time) Option {
	return func(r *signatureRequest) {
		r.expiresAt = expiresAt
	}
}

func WithRemindEvery(interval time.Duration) Option {
	return func(r *signatureRequest) {
		r.remindEvery = interval
	}
}

func WithSigners(signers []Signer) Option {
	return func(r *signatureRequest) {
		r.signers = signers
	}
}

func New(
	tenantID, contractID uuid.UUID,
	provider Provider,
	documentHash contenthash.ContentHash,
	opts ...Option,
) SignatureRequest {
	now := time.Now()
	r := &signatureRequest{
		id:           uuid.New(),
		tenantID:     tenantID,
		contractID:   contractID,
		provider:     provider,
		documentHash: documentHash,
		status:       StatusDraft,
		createdAt:    now,
		updatedAt:    now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Hydrate rebuilds a request from persistence without touching
// timestamps or status.
func Hydrate(
	id, tenantID, contractID uuid.UUID,
	provider Provider,
	providerRequestID string,
	documentHash contenthash.ContentHash,
	subject, message string,
	status Status,
	sequential bool,
	expiresAt *time.Time,
	remindEvery time.Duration,
	signers []Signer,
	version int64,
	createdAt, updatedAt time.Time,
	sentAt, completedAt *time.Time,
) SignatureRequest {
	return &signatureRequest{
		id:                id,
		tenantID:          tenantID,
		contractID:        contractID,
		provider:          provider,
		providerRequestID: providerRequestID,
		documentHash:      documentHash,
		subject:           subject,
		message:           message,
		status:            status,
		sequential:        sequential,
		expiresAt:         expiresAt,
		remindEvery:       remindEvery,
		signers:           signers,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
		sentAt:            sentAt,
		completedAt:       completedAt,
	}
}

func (r *signatureRequest) ID() uuid.UUID                        { return r.id }
func (r *signatureRequest) TenantID() uuid.UUID                  { return r.tenantID }
func (r *signatureRequest) ContractID() uuid.UUID                { return r.contractID }
func (r *signatureRequest) Provider() Provider                   { return r.provider }
func (r *signatureRequest) ProviderRequestID() string            { return r.providerRequestID }
func (r *signatureRequest) DocumentHash() contenthash.ContentHash { return r.documentHash }
func (r *signatureRequest) Subject() string                      { return r.subject }
func (r *signatureRequest) Message() string                      { return r.message }
func (r *signatureRequest) Status() Status                       { return r.status }
func (r *signatureRequest) Sequential() bool                     { return r.sequential }
func (r *signatureRequest) ExpiresAt() *time.Time                { return r.expiresAt }
func (r *signatureRequest) RemindEvery() time.Duration           { return r.remindEvery }
func (r *signatureRequest) Version() int64                       { return r.version }
func (r *signatureRequest) CreatedAt() time.Time                 { return r.createdAt }
func (r *signatureRequest) UpdatedAt() time.Time                 { return r.updatedAt }
func (r *signatureRequest) SentAt() *time.Time                   { return r.sentAt }
func (r *signatureRequest) CompletedAt() *time.Time              { return r.completedAt }

func (r *signatureRequest) Signers() []Signer {
	out := make([]Signer, len(r.signers))
	copy(out, r.signers)
	return out
}

func (r *signatureRequest) NextSigner() *Signer {
	return NextSignerInOrder(r.signers)
}

func (r *signatureRequest) IsExpired(now time.Time) bool {
	return r.status == StatusSent && r.expiresAt != nil && now.After(*r.expiresAt)
}

func (r *signatureRequest) clone() *signatureRequest {
	cp := *r
	cp.signers = make([]Signer, len(r.signers))
	copy(cp.signers, r.signers)
	return &cp
}

func (r *signatureRequest) MarkSent(providerRequestID string, at time.Time) (SignatureRequest, error) {
	if r.status == StatusSent {
		return nil, ErrAlreadySent
	}
	if r.status != StatusDraft {
		return nil, serrors.NewStateTransitionError(string(r.status), string(StatusSent))
	}
	if len(r.signers) == 0 {
		return nil, ErrNoSigners
	}
	for _, s := range r.signers {
		if len(s.Fields) == 0 {
			return nil, ErrSignerWithoutFields
		}
	}

	cp := r.clone()
	cp.status = StatusSent
	cp.providerRequestID = providerRequestID
	cp.sentAt = &at
	cp.updatedAt = at
	for i := range cp.signers {
		cp.signers[i].Status = SignerSent
		sentAt := at
		cp.signers[i].SentAt = &sentAt
	}
	return cp, nil
}

func (r *signatureRequest) MarkCancelled(at time.Time) (SignatureRequest, error) {
	if r.status.IsTerminal() {
		return nil, serrors.NewStateTransitionError(string(r.status), string(StatusCancelled))
	}
	cp := r.clone()
	cp.status = StatusCancelled
	cp.updatedAt = at
	return cp, nil
}

func (r *signatureRequest) MarkExpired(at time.Time) (SignatureRequest, error) {
	if r.status != StatusSent {
		return nil, serrors.NewStateTransitionError(string(r.status), string(StatusExpired))
	}
	cp := r.clone()
	cp.status = StatusExpired
	cp.updatedAt = at
	return cp, nil
}

func (r *signatureRequest) ApplySignerStatus(signerID uuid.UUID, next SignerStatus, at time.Time) (SignatureRequest, error) {
	if r.status != StatusSent {
		return nil, serrors.NewStateTransitionError(string(r.status), string(next))
	}

	idx := -1
	for i := range r.signers {
		if r.signers[i].ID == signerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrSignerNotFound
	}

	current := r.signers[idx].Status
	if !current.CanAdvanceTo(next) {
		return nil, serrors.NewStateTransitionError(string(current), string(next))
	}

	cp := r.clone()
	signer := &cp.signers[idx]
	signer.Status = next
	stamp := at
	switch next {
	case SignerSent:
		signer.SentAt = &stamp
	case SignerViewed:
		signer.ViewedAt = &stamp
	case SignerSigned:
		signer.SignedAt = &stamp
	case SignerDeclined:
		signer.DeclinedAt = &stamp
	}
	cp.updatedAt = at

	// Derive the request status: any decline is terminal for the whole
	// request, completion requires every signer signed.
	if next == SignerDeclined {
		cp.status = StatusDeclined
		return cp, nil
	}
	allSigned := true
	for _, s := range cp.signers {
		if s.Status != SignerSigned {
			allSigned = false
			break
		}
	}
	if allSigned {
		cp.status = StatusCompleted
		cp.completedAt = &stamp
	}
	return cp, nil
}

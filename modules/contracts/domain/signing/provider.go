package signing

import (
	"context"
	"errors"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
)

var (
	ErrUnknownProvider = errors.New("unknown signing provider")
	ErrUnknownEnvelope = errors.New("provider request id not found")
)

// SignerState is one signer's state as reported by a provider, already
// mapped to the local vocabulary by the adapter.
type SignerState struct {
	Email  string
	Status signaturerequest.SignerStatus
}

// StatusReport is a provider's view of an envelope, translated by the
// adapter's fixed mapping table. RawStatus keeps the native value for
// logging and anomaly reports.
type StatusReport struct {
	RequestStatus signaturerequest.Status
	RawStatus     string
	Signers       []SignerState
}

// Adapter is the entire surface a signing service exposes to the
// orchestrator. Implementations own the native-to-local status mapping
// and receive credentials at construction.
type Adapter interface {
	// Name reports which provider enumeration value this adapter serves.
	Name() signaturerequest.Provider
	// SupportsSequential tells the orchestrator whether the provider
	// routes signers in order; when false, all signers are notified at
	// once and no extra gating is applied locally.
	SupportsSequential() bool
	Create(ctx context.Context, req signaturerequest.SignatureRequest) (providerRequestID string, err error)
	GetStatus(ctx context.Context, providerRequestID string) (*StatusReport, error)
	SendReminder(ctx context.Context, providerRequestID, signerEmail string) error
	Cancel(ctx context.Context, providerRequestID string) error
	GetEmbeddedSigningURL(ctx context.Context, providerRequestID, signerEmail string) (string, error)
}

// Registry resolves the adapter bound to a request's stored provider
// identity.
type Registry struct {
	adapters map[signaturerequest.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[signaturerequest.Provider]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(provider signaturerequest.Provider) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return a, nil
}

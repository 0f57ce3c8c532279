package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/webhookevent"
	"github.com/solarium-dev/solarium/pkg/composables"
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := make([]V, 0, len(s.m))
	for _, v := range s.m {
		vals = append(vals, v)
	}
	return vals
}

type tenantKey struct {
	tenantID uuid.UUID
	id       uuid.UUID
}

// InmemContractRepository backs service tests without a database.
type InmemContractRepository struct {
	storage *SafeMap[tenantKey, contract.Contract]
}

func NewInmemContractRepository() *InmemContractRepository {
	return &InmemContractRepository{
		storage: NewSafeMap[tenantKey, contract.Contract](),
	}
}

func (r *InmemContractRepository) GetByID(ctx context.Context, id uuid.UUID) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	c, found := r.storage.Get(tenantKey{tenantID: tenantID, id: id})
	if !found {
		return contract.Contract{}, contract.ErrNotFound
	}
	return c, nil
}

func (r *InmemContractRepository) GetByNumber(ctx context.Context, number string) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	for _, c := range r.storage.Values() {
		if c.TenantID() == tenantID && c.Number() == number {
			return c, nil
		}
	}
	return contract.Contract{}, contract.ErrNotFound
}

func (r *InmemContractRepository) List(ctx context.Context, params *contract.FindParams) ([]contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	var results []contract.Contract
	for _, c := range r.storage.Values() {
		if c.TenantID() != tenantID {
			continue
		}
		if params != nil && params.Status != "" && c.Status() != params.Status {
			continue
		}
		results = append(results, c)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt().After(results[j].CreatedAt())
	})
	return results, nil
}

func (r *InmemContractRepository) Create(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	if _, err := r.GetByNumber(ctx, c.Number()); err == nil {
		return contract.Contract{}, contract.ErrNumberTaken
	}
	now := time.Now()
	c = contract.Hydrate(
		c.ID(), tenantID, c.Number(), c.Status(),
		c.Content(), c.ContentHash(), c.SignedHash(),
		now, now,
	)
	r.storage.Set(tenantKey{tenantID: tenantID, id: c.ID()}, c)
	return c, nil
}

func (r *InmemContractRepository) Save(ctx context.Context, c contract.Contract) (contract.Contract, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return contract.Contract{}, err
	}
	key := tenantKey{tenantID: tenantID, id: c.ID()}
	if _, found := r.storage.Get(key); !found {
		return contract.Contract{}, contract.ErrNotFound
	}
	c = contract.Hydrate(
		c.ID(), tenantID, c.Number(), c.Status(),
		c.Content(), c.ContentHash(), c.SignedHash(),
		c.CreatedAt(), time.Now(),
	)
	r.storage.Set(key, c)
	return c, nil
}

// InmemAuditLogRepository mirrors the append-only ledger: entries go
// into a slice that nothing ever rewrites.
type InmemAuditLogRepository struct {
	mu      sync.RWMutex
	entries []*auditlog.Entry
	nextID  uint
}

func NewInmemAuditLogRepository() *InmemAuditLogRepository {
	return &InmemAuditLogRepository{nextID: 1}
}

func (r *InmemAuditLogRepository) Append(ctx context.Context, entry *auditlog.Entry) (*auditlog.Entry, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if !entry.EventKind.IsValid() {
		return nil, auditlog.ErrInvalidEventKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	stored.ID = r.nextID
	r.nextID++
	if stored.TenantID == uuid.Nil {
		stored.TenantID = tenantID
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, &stored)

	out := stored
	return &out, nil
}

func (r *InmemAuditLogRepository) ListForContract(
	ctx context.Context,
	contractID uuid.UUID,
	params *auditlog.FindParams,
) ([]*auditlog.Entry, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*auditlog.Entry
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ContractID != contractID {
			continue
		}
		if params != nil && params.EventKind != "" && e.EventKind != params.EventKind {
			continue
		}
		cp := *e
		results = append(results, &cp)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if params != nil && params.Offset > 0 {
		if params.Offset >= len(results) {
			return nil, nil
		}
		results = results[params.Offset:]
	}
	if params != nil && params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

func (r *InmemAuditLogRepository) LatestForContract(ctx context.Context, contractID uuid.UUID) (*auditlog.Entry, error) {
	entries, err := r.ListForContract(ctx, contractID, &auditlog.FindParams{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, auditlog.ErrNotFound
	}
	return entries[0], nil
}

func (r *InmemAuditLogRepository) HashExists(ctx context.Context, contractID uuid.UUID, hash contenthash.ContentHash) (bool, error) {
	entries, err := r.ListForContract(ctx, contractID, nil)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if strings.EqualFold(e.ContentHash.String(), hash.String()) {
			return true, nil
		}
	}
	return false, nil
}

type InmemSignatureRequestRepository struct {
	storage *SafeMap[uuid.UUID, signaturerequest.SignatureRequest]
}

func NewInmemSignatureRequestRepository() *InmemSignatureRequestRepository {
	return &InmemSignatureRequestRepository{
		storage: NewSafeMap[uuid.UUID, signaturerequest.SignatureRequest](),
	}
}

func (r *InmemSignatureRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (signaturerequest.SignatureRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	req, found := r.storage.Get(id)
	if !found || req.TenantID() != tenantID {
		return nil, signaturerequest.ErrNotFound
	}
	return req, nil
}

func (r *InmemSignatureRequestRepository) GetByProviderRequestID(
	ctx context.Context,
	provider signaturerequest.Provider,
	providerRequestID string,
) (signaturerequest.SignatureRequest, error) {
	for _, req := range r.storage.Values() {
		if req.Provider() == provider && req.ProviderRequestID() == providerRequestID && providerRequestID != "" {
			return req, nil
		}
	}
	return nil, signaturerequest.ErrNotFound
}

func (r *InmemSignatureRequestRepository) List(ctx context.Context, params *signaturerequest.FindParams) ([]signaturerequest.SignatureRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	var results []signaturerequest.SignatureRequest
	for _, req := range r.storage.Values() {
		if req.TenantID() != tenantID {
			continue
		}
		if params != nil && params.ContractID != uuid.Nil && req.ContractID() != params.ContractID {
			continue
		}
		if params != nil && params.Status != "" && req.Status() != params.Status {
			continue
		}
		results = append(results, req)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt().After(results[j].CreatedAt())
	})
	return results, nil
}

func (r *InmemSignatureRequestRepository) Create(ctx context.Context, req signaturerequest.SignatureRequest) (signaturerequest.SignatureRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	stored := signaturerequest.Hydrate(
		req.ID(), tenantID, req.ContractID(),
		req.Provider(), req.ProviderRequestID(), req.DocumentHash(),
		req.Subject(), req.Message(), req.Status(), req.Sequential(),
		req.ExpiresAt(), req.RemindEvery(), req.Signers(),
		1,
		req.CreatedAt(), time.Now(), req.SentAt(), req.CompletedAt(),
	)
	r.storage.Set(stored.ID(), stored)
	return stored, nil
}

func (r *InmemSignatureRequestRepository) Save(ctx context.Context, req signaturerequest.SignatureRequest) (signaturerequest.SignatureRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	current, found := r.storage.Get(req.ID())
	if !found || current.TenantID() != tenantID {
		return nil, signaturerequest.ErrNotFound
	}
	if current.Version() != req.Version() {
		return nil, signaturerequest.ErrVersionConflict
	}
	stored := signaturerequest.Hydrate(
		req.ID(), tenantID, req.ContractID(),
		req.Provider(), req.ProviderRequestID(), req.DocumentHash(),
		req.Subject(), req.Message(), req.Status(), req.Sequential(),
		req.ExpiresAt(), req.RemindEvery(), req.Signers(),
		req.Version()+1,
		req.CreatedAt(), time.Now(), req.SentAt(), req.CompletedAt(),
	)
	r.storage.Set(stored.ID(), stored)
	return stored, nil
}

type InmemWebhookEventRepository struct {
	storage *SafeMap[uuid.UUID, *webhookevent.Event]
}

func NewInmemWebhookEventRepository() *InmemWebhookEventRepository {
	return &InmemWebhookEventRepository{
		storage: NewSafeMap[uuid.UUID, *webhookevent.Event](),
	}
}

func (r *InmemWebhookEventRepository) Create(ctx context.Context, event *webhookevent.Event) (*webhookevent.Event, error) {
	stored := *event
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = time.Now()
	}
	r.storage.Set(stored.ID, &stored)
	out := stored
	return &out, nil
}

func (r *InmemWebhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhookevent.Event, error) {
	event, found := r.storage.Get(id)
	if !found {
		return nil, webhookevent.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (r *InmemWebhookEventRepository) ListUnprocessed(ctx context.Context, limit int) ([]*webhookevent.Event, error) {
	var results []*webhookevent.Event
	for _, event := range r.storage.Values() {
		if event.Processed {
			continue
		}
		cp := *event
		results = append(results, &cp)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ReceivedAt.Before(results[j].ReceivedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *InmemWebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	event, found := r.storage.Get(id)
	if !found {
		return webhookevent.ErrNotFound
	}
	cp := *event
	cp.Processed = true
	cp.ProcessingError = ""
	cp.ProcessedAt = &at
	cp.Attempts++
	r.storage.Set(id, &cp)
	return nil
}

func (r *InmemWebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, processingError string) error {
	event, found := r.storage.Get(id)
	if !found {
		return webhookevent.ErrNotFound
	}
	cp := *event
	cp.ProcessingError = processingError
	cp.Attempts++
	r.storage.Set(id, &cp)
	return nil
}

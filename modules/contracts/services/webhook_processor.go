package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/webhookevent"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// providerEnvelope is the minimal shape shared by provider payloads:
// enough to find the envelope id wherever a provider puts it.
type providerEnvelope struct {
	EnvelopeID string `json:"envelopeId"`
	Document   struct {
		Key string `json:"key"`
	} `json:"document"`
	Data struct {
		EnvelopeID string `json:"envelope_id"`
	} `json:"data"`
}

func extractProviderRequestID(payload json.RawMessage) string {
	var env providerEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ""
	}
	if env.EnvelopeID != "" {
		return env.EnvelopeID
	}
	if env.Document.Key != "" {
		return env.Document.Key
	}
	return env.Data.EnvelopeID
}

type WebhookProcessor struct {
	events       webhookevent.Repository
	requests     signaturerequest.Repository
	orchestrator *SignatureOrchestrator
	maxBackoff   time.Duration
}

func NewWebhookProcessor(
	events webhookevent.Repository,
	requests signaturerequest.Repository,
	orchestrator *SignatureOrchestrator,
) *WebhookProcessor {
	return &WebhookProcessor{
		events:       events,
		requests:     requests,
		orchestrator: orchestrator,
		maxBackoff:   10 * time.Minute,
	}
}

// Ingest persists the raw delivery before any interpretation, then
// attempts processing once. A processing failure is recorded on the
// stored event and surfaces to nobody: the delivery is acked either
// way and retried by the sweep.
func (p *WebhookProcessor) Ingest(ctx context.Context, provider signaturerequest.Provider, payload json.RawMessage) (*webhookevent.Event, error) {
	if !provider.IsValid() {
		return nil, serrors.NewValidationError("unknown signing provider")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, serrors.NewValidationError("payload is not valid json")
	}

	event := &webhookevent.Event{
		Provider:          provider,
		ProviderRequestID: extractProviderRequestID(payload),
		Payload:           payload,
	}
	event, err := p.events.Create(ctx, event)
	if err != nil {
		return nil, serrors.NewPersistenceError("storing webhook event", err)
	}
	metricsSingleton().webhookIngestTotal.WithLabelValues(string(provider)).Inc()

	if err := p.process(ctx, event); err != nil {
		if markErr := p.events.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			return nil, serrors.NewPersistenceError("recording webhook failure", markErr)
		}
		metricsSingleton().webhookProcessTotal.WithLabelValues(string(provider), "error").Inc()
		return p.events.GetByID(ctx, event.ID)
	}

	if err := p.events.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
		return nil, serrors.NewPersistenceError("recording webhook success", err)
	}
	metricsSingleton().webhookProcessTotal.WithLabelValues(string(provider), "ok").Inc()
	return p.events.GetByID(ctx, event.ID)
}

// process resolves the local request and syncs. An unknown envelope id
// is not an error: the request may be created by a concurrent flow and
// the sweep will retry.
func (p *WebhookProcessor) process(ctx context.Context, event *webhookevent.Event) error {
	if event.ProviderRequestID == "" {
		return errors.New("payload carries no envelope id")
	}
	req, err := p.requests.GetByProviderRequestID(ctx, event.Provider, event.ProviderRequestID)
	if err != nil {
		if errors.Is(err, signaturerequest.ErrNotFound) {
			return errors.New("no request for envelope " + event.ProviderRequestID)
		}
		return err
	}

	// Webhooks carry no tenant; scope the sync to the owning request.
	ctx = composables.WithTenantID(ctx, req.TenantID())
	_, err = p.orchestrator.SyncStatus(ctx, req.ID())
	return err
}

// Reprocess retries one stored event regardless of backoff.
func (p *WebhookProcessor) Reprocess(ctx context.Context, eventID uuid.UUID) (*webhookevent.Event, error) {
	event, err := p.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Processed {
		return event, nil
	}

	if err := p.process(ctx, event); err != nil {
		if markErr := p.events.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			return nil, serrors.NewPersistenceError("recording webhook failure", markErr)
		}
		metricsSingleton().webhookProcessTotal.WithLabelValues(string(event.Provider), "error").Inc()
		return p.events.GetByID(ctx, event.ID)
	}
	if err := p.events.MarkProcessed(ctx, event.ID, time.Now()); err != nil {
		return nil, serrors.NewPersistenceError("recording webhook success", err)
	}
	metricsSingleton().webhookProcessTotal.WithLabelValues(string(event.Provider), "ok").Inc()
	return p.events.GetByID(ctx, event.ID)
}

// ReprocessPending sweeps unprocessed events oldest first, skipping
// those still inside their backoff window. Returns how many events
// were processed successfully.
func (p *WebhookProcessor) ReprocessPending(ctx context.Context, limit int) (int, error) {
	events, err := p.events.ListUnprocessed(ctx, limit)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	processed := 0
	for _, event := range events {
		if now.Before(event.ReceivedAt.Add(backoff(event.Attempts, p.maxBackoff))) {
			continue
		}
		result, err := p.Reprocess(ctx, event.ID)
		if err != nil {
			return processed, err
		}
		if result.Processed {
			processed++
		}
	}
	return processed, nil
}

// backoff is 1s * 2^(attempts-1), capped.
func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

package services_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence"
	"github.com/solarium-dev/solarium/modules/contracts/services"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

type processorFixture struct {
	*orchestratorFixture
	events    *persistence.InmemWebhookEventRepository
	processor *services.WebhookProcessor
}

func setupProcessor(t *testing.T) *processorFixture {
	t.Helper()

	base := setupOrchestrator(t)
	events := persistence.NewInmemWebhookEventRepository()
	return &processorFixture{
		orchestratorFixture: base,
		events:              events,
		processor:           services.NewWebhookProcessor(events, base.requests, base.orchestrator),
	}
}

func docusignPayload(envelopeID, status string) json.RawMessage {
	payload, _ := json.Marshal(map[string]string{
		"envelopeId": envelopeID,
		"status":     status,
	})
	return payload
}

func TestIngest_ProcessesKnownEnvelope(t *testing.T) {
	t.Parallel()

	f := setupProcessor(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	f.adapter.report = signedReport()

	event, err := f.processor.Ingest(f.ctx, signaturerequest.ProviderDocuSign, docusignPayload("env-42", "completed"))
	require.NoError(t, err)
	assert.True(t, event.Processed)
	assert.Empty(t, event.ProcessingError)
	require.NotNil(t, event.ProcessedAt)

	synced, err := f.requests.GetByID(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, synced.Status())
}

func TestIngest_UnknownEnvelopeStoredUnprocessed(t *testing.T) {
	t.Parallel()

	f := setupProcessor(t)

	event, err := f.processor.Ingest(f.ctx, signaturerequest.ProviderDocuSign, docusignPayload("no-such-envelope", "completed"))
	require.NoError(t, err)
	assert.False(t, event.Processed)
	assert.NotEmpty(t, event.ProcessingError)
	assert.Equal(t, 1, event.Attempts)
}

func TestIngest_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := setupProcessor(t)

	_, err := f.processor.Ingest(f.ctx, "pencil", docusignPayload("env-42", "completed"))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeValidation))

	_, err = f.processor.Ingest(f.ctx, signaturerequest.ProviderDocuSign, json.RawMessage("not json"))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeValidation))
}

func TestReprocess_RecoversOnceRequestExists(t *testing.T) {
	t.Parallel()

	f := setupProcessor(t)

	// Delivery arrives before any request references the envelope.
	event, err := f.processor.Ingest(f.ctx, signaturerequest.ProviderDocuSign, docusignPayload("env-42", "completed"))
	require.NoError(t, err)
	require.False(t, event.Processed)

	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)
	f.adapter.report = signedReport()

	recovered, err := f.processor.Reprocess(f.ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, recovered.Processed)

	synced, err := f.requests.GetByID(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, synced.Status())
}

func TestReprocessPending_SkipsBackoffWindow(t *testing.T) {
	t.Parallel()

	f := setupProcessor(t)

	// Two failed attempts put the event inside its backoff window, so
	// an immediate sweep leaves it alone.
	event, err := f.processor.Ingest(f.ctx, signaturerequest.ProviderDocuSign, docusignPayload("env-42", "completed"))
	require.NoError(t, err)
	_, err = f.processor.Reprocess(f.ctx, event.ID)
	require.NoError(t, err)

	processed, err := f.processor.ReprocessPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

// signedReport is the provider view once the fixture's single signer
// has signed.
func signedReport() *signing.StatusReport {
	return &signing.StatusReport{
		RequestStatus: signaturerequest.StatusCompleted,
		RawStatus:     "completed",
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerSigned},
		},
	}
}

package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence"
	"github.com/solarium-dev/solarium/modules/contracts/services"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/eventbus"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// fakeAdapter scripts provider behavior for orchestrator tests.
type fakeAdapter struct {
	name        signaturerequest.Provider
	sequential  bool
	createErr   error
	cancelErr   error
	report      *signing.StatusReport
	createCalls int
	cancelCalls int
}

func (a *fakeAdapter) Name() signaturerequest.Provider { return a.name }
func (a *fakeAdapter) SupportsSequential() bool        { return a.sequential }

func (a *fakeAdapter) Create(_ context.Context, _ signaturerequest.SignatureRequest) (string, error) {
	a.createCalls++
	if a.createErr != nil {
		return "", a.createErr
	}
	return "env-42", nil
}

func (a *fakeAdapter) GetStatus(_ context.Context, _ string) (*signing.StatusReport, error) {
	if a.report == nil {
		return nil, signing.ErrUnknownEnvelope
	}
	return a.report, nil
}

func (a *fakeAdapter) SendReminder(_ context.Context, _, _ string) error { return nil }

func (a *fakeAdapter) Cancel(_ context.Context, _ string) error {
	a.cancelCalls++
	return a.cancelErr
}

func (a *fakeAdapter) GetEmbeddedSigningURL(_ context.Context, _, email string) (string, error) {
	return "https://sign.example.com/" + email, nil
}

type orchestratorFixture struct {
	ctx          context.Context
	contracts    *persistence.InmemContractRepository
	requests     *persistence.InmemSignatureRequestRepository
	auditRepo    *persistence.InmemAuditLogRepository
	adapter      *fakeAdapter
	orchestrator *services.SignatureOrchestrator
	contract     contract.Contract
}

func setupOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()

	tenantID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)

	contracts := persistence.NewInmemContractRepository()
	requests := persistence.NewInmemSignatureRequestRepository()
	auditRepo := persistence.NewInmemAuditLogRepository()
	adapter := &fakeAdapter{name: signaturerequest.ProviderDocuSign, sequential: true}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	orchestrator := services.NewSignatureOrchestrator(
		requests,
		contracts,
		services.NewAuditService(auditRepo),
		signing.NewRegistry(adapter),
		eventbus.NewEventPublisher(logger),
	)

	c, err := contracts.Create(ctx, contract.New(tenantID, "CT-2026-001", contractcontent.ContractContent{
		CustomerName: "Maria Silva",
		CapacityKWp:  decimal.RequireFromString("5.94"),
		Amount:       decimal.RequireFromString("24890.50"),
	}))
	require.NoError(t, err)

	return &orchestratorFixture{
		ctx:          ctx,
		contracts:    contracts,
		requests:     requests,
		auditRepo:    auditRepo,
		adapter:      adapter,
		orchestrator: orchestrator,
		contract:     c,
	}
}

func validSendDTO(contractID uuid.UUID) services.SendRequestDTO {
	return services.SendRequestDTO{
		ContractID: contractID,
		Provider:   signaturerequest.ProviderDocuSign,
		Subject:    "Please sign",
		Sequential: true,
		Signers: []signaturerequest.Signer{
			{
				OrderIndex: 0,
				Name:       "Maria Silva",
				Email:      "maria@example.com",
				Auth:       signaturerequest.AuthEmail,
				Fields: []signaturerequest.Field{
					{Kind: signaturerequest.FieldSignature, Page: 1, X: 0.1, Y: 0.8, Width: 0.2, Height: 0.05, Required: true},
				},
			},
		},
	}
}

func TestOrchestratorSend(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)

	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	assert.Equal(t, signaturerequest.StatusSent, sent.Status())
	assert.Equal(t, "env-42", sent.ProviderRequestID())
	assert.Equal(t, f.contract.ContentHash(), sent.DocumentHash())
	assert.Equal(t, 1, f.adapter.createCalls)

	// The contract moves along and the ledger records the initiation.
	c, err := f.contracts.GetByID(f.ctx, f.contract.ID())
	require.NoError(t, err)
	assert.Equal(t, contract.StatusAwaitingSignature, c.Status())
	assert.Equal(t, c.ContentHash(), c.SignedHash())

	entries, err := f.auditRepo.ListForContract(f.ctx, f.contract.ID(), &auditlog.FindParams{
		EventKind: auditlog.EventSignatureInitiated,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "docusign", entries[0].SignatureChannel)
}

func TestOrchestratorSend_ValidationFailures(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)

	t.Run("no signers", func(t *testing.T) {
		dto := validSendDTO(f.contract.ID())
		dto.Signers = nil
		_, err := f.orchestrator.Send(f.ctx, dto)
		require.Error(t, err)
		assert.True(t, serrors.IsCode(err, serrors.CodeValidation))
	})

	t.Run("signer without fields", func(t *testing.T) {
		dto := validSendDTO(f.contract.ID())
		dto.Signers[0].Fields = nil
		_, err := f.orchestrator.Send(f.ctx, dto)
		require.Error(t, err)
		assert.True(t, serrors.IsCode(err, serrors.CodeValidation))
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := f.orchestrator.Send(f.ctx, validSendDTO(uuid.New()))
		require.ErrorIs(t, err, contract.ErrNotFound)
	})
}

func TestOrchestratorSend_DuplicateSendRejected(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	_, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	// A retried call must not dispatch a second envelope.
	_, err = f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeStateTransition))
	assert.Equal(t, 1, f.adapter.createCalls)

	stored, err := f.requests.List(f.ctx, &signaturerequest.FindParams{ContractID: f.contract.ID()})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestOrchestratorSend_TamperedContractRejected(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)

	tampered := contract.Hydrate(
		f.contract.ID(), f.contract.TenantID(), f.contract.Number(), f.contract.Status(),
		f.contract.Content(),
		contenthash.ContentHash(strings.Repeat("b", 64)), "",
		f.contract.CreatedAt(), f.contract.UpdatedAt(),
	)
	_, err := f.contracts.Save(f.ctx, tampered)
	require.NoError(t, err)

	_, err = f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeIntegrity))
	assert.Equal(t, 0, f.adapter.createCalls)
}

func TestOrchestratorSend_ProviderFailureCancelsRequest(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	f.adapter.createErr = serrors.NewProviderError("docusign", "rate limited", nil)

	_, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeProvider))

	// The stored draft must not linger as dispatchable.
	stored, err := f.requests.List(f.ctx, &signaturerequest.FindParams{ContractID: f.contract.ID()})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, signaturerequest.StatusCancelled, stored[0].Status())

	// The cancelled attempt does not block a retry.
	f.adapter.createErr = nil
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusSent, sent.Status())
}

func TestOrchestratorCancel(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	cancelled, err := f.orchestrator.Cancel(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCancelled, cancelled.Status())
	assert.Equal(t, 1, f.adapter.cancelCalls)
}

func TestOrchestratorCancel_ProviderFailureKeepsLocalCancel(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	f.adapter.cancelErr = errors.New("provider down")
	cancelled, err := f.orchestrator.Cancel(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCancelled, cancelled.Status())
	assert.Equal(t, 1, f.adapter.cancelCalls)
}

func TestOrchestratorSyncStatus_AppliesForwardTransitions(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusSent,
		RawStatus:     "delivered",
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerViewed},
		},
	}
	synced, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.SignerViewed, synced.Signers()[0].Status)
	assert.Equal(t, signaturerequest.StatusSent, synced.Status())
}

func TestOrchestratorSyncStatus_CompletionMarksContractSigned(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusCompleted,
		RawStatus:     "completed",
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerSigned},
		},
	}
	synced, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, synced.Status())

	c, err := f.contracts.GetByID(f.ctx, f.contract.ID())
	require.NoError(t, err)
	assert.Equal(t, contract.StatusSigned, c.Status())

	entries, err := f.auditRepo.ListForContract(f.ctx, f.contract.ID(), &auditlog.FindParams{
		EventKind: auditlog.EventSignatureCompleted,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOrchestratorSyncStatus_TerminalEnvelopeWithoutSignerDetail(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	// Some providers report only the envelope status.
	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusCompleted,
		RawStatus:     "completed",
	}
	synced, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, synced.Status())
	assert.Equal(t, signaturerequest.SignerSigned, synced.Signers()[0].Status)

	c, err := f.contracts.GetByID(f.ctx, f.contract.ID())
	require.NoError(t, err)
	assert.Equal(t, contract.StatusSigned, c.Status())
}

func TestOrchestratorSyncStatus_RegressionIsIgnored(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	sent, err := f.orchestrator.Send(f.ctx, validSendDTO(f.contract.ID()))
	require.NoError(t, err)

	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusSent,
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerViewed},
		},
	}
	viewed, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	require.Equal(t, signaturerequest.SignerViewed, viewed.Signers()[0].Status)

	// A later delivery reporting the older state changes nothing.
	f.adapter.report.Signers[0].Status = signaturerequest.SignerSent
	after, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.SignerViewed, after.Signers()[0].Status)
}

func TestOrchestratorSweepExpired(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	deadline := time.Now().Add(time.Millisecond)
	dto := validSendDTO(f.contract.ID())
	dto.ExpiresAt = &deadline

	sent, err := f.orchestrator.Send(f.ctx, dto)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	expired, err := f.orchestrator.SweepExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.requests.GetByID(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusExpired, stored.Status())
}

func TestOrchestratorTwoSignerSequentialFlow(t *testing.T) {
	t.Parallel()

	f := setupOrchestrator(t)
	dto := validSendDTO(f.contract.ID())
	dto.Signers = append(dto.Signers, signaturerequest.Signer{
		OrderIndex: 1,
		Name:       "Joao Souza",
		Email:      "joao@example.com",
		Auth:       signaturerequest.AuthEmail,
		Fields: []signaturerequest.Field{
			{Kind: signaturerequest.FieldSignature, Page: 2, X: 0.1, Y: 0.8, Width: 0.2, Height: 0.05, Required: true},
		},
	})

	sent, err := f.orchestrator.Send(f.ctx, dto)
	require.NoError(t, err)

	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusSent,
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerSigned},
			{Email: "joao@example.com", Status: signaturerequest.SignerSent},
		},
	}
	afterFirst, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	require.Equal(t, signaturerequest.StatusSent, afterFirst.Status())
	next := afterFirst.NextSigner()
	require.NotNil(t, next)
	assert.Equal(t, "joao@example.com", next.Email)

	f.adapter.report.Signers[1].Status = signaturerequest.SignerSigned
	done, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, done.Status())

	// A late report of the first signer declining must not alter the
	// completed request.
	f.adapter.report = &signing.StatusReport{
		RequestStatus: signaturerequest.StatusDeclined,
		Signers: []signing.SignerState{
			{Email: "maria@example.com", Status: signaturerequest.SignerDeclined},
		},
	}
	after, err := f.orchestrator.SyncStatus(f.ctx, sent.ID())
	require.NoError(t, err)
	assert.Equal(t, signaturerequest.StatusCompleted, after.Status())
	assert.Equal(t, signaturerequest.SignerSigned, after.Signers()[0].Status)
}

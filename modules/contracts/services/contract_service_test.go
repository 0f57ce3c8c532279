package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contractcontent"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence"
	"github.com/solarium-dev/solarium/modules/contracts/services"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

func contractFixture(t *testing.T) (context.Context, uuid.UUID, *services.ContractService, *persistence.InmemAuditLogRepository) {
	t.Helper()

	tenantID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)
	auditRepo := persistence.NewInmemAuditLogRepository()
	svc := services.NewContractService(
		persistence.NewInmemContractRepository(),
		services.NewAuditService(auditRepo),
	)
	return ctx, tenantID, svc, auditRepo
}

func sampleContent() contractcontent.ContractContent {
	return contractcontent.ContractContent{
		CustomerName: "Maria Silva",
		CapacityKWp:  decimal.RequireFromString("5.94"),
		Amount:       decimal.RequireFromString("24890.50"),
	}
}

func TestContractCreate_WritesFirstLedgerEntry(t *testing.T) {
	t.Parallel()

	ctx, tenantID, svc, auditRepo := contractFixture(t)

	c, err := svc.Create(ctx, tenantID, "CT-2026-001", sampleContent())
	require.NoError(t, err)
	assert.Equal(t, contract.StatusDraft, c.Status())
	assert.True(t, c.ContentHash().IsValid())

	entries, err := auditRepo.ListForContract(ctx, c.ID(), nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.EventCreated, entries[0].EventKind)
	assert.Equal(t, c.ContentHash(), entries[0].ContentHash)
}

func TestContractCreate_DuplicateNumber(t *testing.T) {
	t.Parallel()

	ctx, tenantID, svc, _ := contractFixture(t)

	_, err := svc.Create(ctx, tenantID, "CT-2026-001", sampleContent())
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, "CT-2026-001", sampleContent())
	require.ErrorIs(t, err, contract.ErrNumberTaken)
}

func TestContractUpdateContent_RehashesDraftOnly(t *testing.T) {
	t.Parallel()

	ctx, tenantID, svc, _ := contractFixture(t)

	c, err := svc.Create(ctx, tenantID, "CT-2026-001", sampleContent())
	require.NoError(t, err)
	originalHash := c.ContentHash()

	updated := sampleContent()
	updated.Amount = decimal.RequireFromString("25000.00")
	c, err = svc.UpdateContent(ctx, c.ID(), updated)
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, c.ContentHash())

	// Reverting the content restores the original hash.
	c, err = svc.UpdateContent(ctx, c.ID(), sampleContent())
	require.NoError(t, err)
	assert.Equal(t, originalHash, c.ContentHash())
}

func TestContractUpdateContent_FrozenPastDraft(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)
	repo := persistence.NewInmemContractRepository()
	svc := services.NewContractService(repo, services.NewAuditService(persistence.NewInmemAuditLogRepository()))

	c, err := repo.Create(ctx, contract.New(tenantID, "CT-2026-002", sampleContent()))
	require.NoError(t, err)
	_, err = repo.Save(ctx, c.WithStatus(contract.StatusAwaitingSignature))
	require.NoError(t, err)

	_, err = svc.UpdateContent(ctx, c.ID(), sampleContent())
	require.Error(t, err)
	assert.True(t, serrors.IsCode(err, serrors.CodeStateTransition))
}

func TestContractRecordView(t *testing.T) {
	t.Parallel()

	ctx, tenantID, svc, auditRepo := contractFixture(t)

	c, err := svc.Create(ctx, tenantID, "CT-2026-001", sampleContent())
	require.NoError(t, err)
	require.NoError(t, svc.RecordView(ctx, c.ID()))

	views, err := auditRepo.ListForContract(ctx, c.ID(), &auditlog.FindParams{EventKind: auditlog.EventView})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, c.ContentHash(), views[0].ContentHash)
}

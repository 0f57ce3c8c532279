package contracts

import (
	"embed"

	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/signing/clicksign"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/signing/docusign"
	"github.com/solarium-dev/solarium/modules/contracts/presentation/controllers"
	"github.com/solarium-dev/solarium/modules/contracts/services"
	"github.com/solarium-dev/solarium/pkg/application"
	"github.com/solarium-dev/solarium/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	contractRepo := persistence.NewContractRepository()
	auditRepo := persistence.NewAuditLogRepository()
	requestRepo := persistence.NewSignatureRequestRepository()
	eventRepo := persistence.NewWebhookEventRepository()

	registry := signing.NewRegistry(
		docusign.New(conf.DocuSign),
		clicksign.New(conf.Clicksign),
	)

	auditService := services.NewAuditService(auditRepo)
	orchestrator := services.NewSignatureOrchestrator(
		requestRepo,
		contractRepo,
		auditService,
		registry,
		app.EventPublisher(),
	)
	processor := services.NewWebhookProcessor(eventRepo, requestRepo, orchestrator)

	app.RegisterMigrationDirs(&migrationFiles)
	app.RegisterServices(
		auditService,
		services.NewContractService(contractRepo, auditService),
		services.NewVerificationService(auditRepo),
		orchestrator,
		processor,
	)
	app.RegisterControllers(
		controllers.NewWebhookController(processor),
	)
	return nil
}

func (m *Module) Name() string {
	return "contracts"
}

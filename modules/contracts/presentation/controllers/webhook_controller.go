package controllers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/services"
	"github.com/solarium-dev/solarium/pkg/composables"
	"github.com/solarium-dev/solarium/pkg/configuration"
	"github.com/solarium-dev/solarium/pkg/httpapi"
	"github.com/solarium-dev/solarium/pkg/webhooks"
)

// WebhookController receives provider callbacks. The signature and
// replay middleware runs before any handler; past that point the
// delivery is always acked, processing failures stay internal and are
// retried by the sweep.
type WebhookController struct {
	processor *services.WebhookProcessor
	basePath  string
}

func NewWebhookController(processor *services.WebhookProcessor) *WebhookController {
	return &WebhookController{
		processor: processor,
		basePath:  "/webhooks",
	}
}

func (c *WebhookController) Key() string {
	return c.basePath
}

func (c *WebhookController) Register(r *mux.Router) {
	conf := configuration.Use()
	verifier := webhooks.NewHMACVerifier(map[string]string{
		string(signaturerequest.ProviderDocuSign):  conf.DocuSign.WebhookSecret,
		string(signaturerequest.ProviderClicksign): conf.Clicksign.WebhookSecret,
	})
	protector := webhooks.NewInmemReplayProtector(conf.Webhook.ReplayWindow)

	sub := webhooks.Bind(r, c.basePath, verifier, protector, webhooks.WithMaxBodyBytes(conf.Webhook.MaxBodyBytes))
	sub.HandleFunc("/{provider}", c.receive).Methods(http.MethodPost)
}

func (c *WebhookController) receive(w http.ResponseWriter, r *http.Request) {
	provider := signaturerequest.Provider(mux.Vars(r)["provider"])
	if !provider.IsValid() {
		_ = httpapi.WriteError(w, http.StatusNotFound, "UNKNOWN_PROVIDER", "unknown signing provider", nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "WEBHOOK_BAD_REQUEST", "unreadable payload", nil)
		return
	}

	ctx := r.Context()
	if _, err := c.processor.Ingest(ctx, provider, body); err != nil {
		// Persisting the delivery failed outright; this is the one case
		// where the provider should retry.
		composables.UseLogger(ctx).WithError(err).Error("webhook ingest failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "WEBHOOK_STORE_FAILED", "could not store delivery", nil)
		return
	}
	_ = httpapi.WriteAccepted(w)
}

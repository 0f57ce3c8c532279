package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/contract"
	"github.com/solarium-dev/solarium/modules/contracts/domain/aggregates/signaturerequest"
	"github.com/solarium-dev/solarium/modules/contracts/domain/contenthash"
	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/auditlog"
	"github.com/solarium-dev/solarium/modules/contracts/domain/signing"
	"github.com/solarium-dev/solarium/pkg/constants"
	"github.com/solarium-dev/solarium/pkg/eventbus"
	"github.com/solarium-dev/solarium/pkg/serrors"
)

// SendRequestDTO describes a signature request to be created and
// dispatched in one step.
type SendRequestDTO struct {
	ContractID  uuid.UUID                 `validate:"required"`
	Provider    signaturerequest.Provider `validate:"required"`
	Subject     string
	Message     string
	Sequential  bool
	ExpiresAt   *time.Time
	RemindEvery time.Duration
	Signers     []signaturerequest.Signer `validate:"required,min=1"`
}

type SignatureOrchestrator struct {
	requests  signaturerequest.Repository
	contracts contract.Repository
	audit     *AuditService
	providers *signing.Registry
	publisher eventbus.EventBus
}

func NewSignatureOrchestrator(
	requests signaturerequest.Repository,
	contracts contract.Repository,
	audit *AuditService,
	providers *signing.Registry,
	publisher eventbus.EventBus,
) *SignatureOrchestrator {
	return &SignatureOrchestrator{
		requests:  requests,
		contracts: contracts,
		audit:     audit,
		providers: providers,
		publisher: publisher,
	}
}

// Send validates the request, registers it with the provider, and
// marks it sent. A provider failure leaves the stored request
// cancelled so no half-dispatched draft lingers.
func (s *SignatureOrchestrator) Send(ctx context.Context, dto SendRequestDTO) (signaturerequest.SignatureRequest, error) {
	if err := constants.Validate.Struct(dto); err != nil {
		return nil, serrors.NewValidationError(err.Error())
	}
	if !dto.Provider.IsValid() {
		return nil, serrors.NewValidationError("unknown signing provider")
	}
	for _, signer := range dto.Signers {
		if len(signer.Fields) == 0 {
			return nil, serrors.NewValidationError("every signer needs at least one signature field")
		}
		for _, f := range signer.Fields {
			if err := f.Validate(); err != nil {
				return nil, serrors.NewValidationError(err.Error())
			}
		}
	}

	adapter, err := s.providers.Get(dto.Provider)
	if err != nil {
		return nil, serrors.NewValidationError(err.Error())
	}
	if dto.Sequential && !adapter.SupportsSequential() {
		// The provider notifies everyone at once and no extra gating is
		// applied; reminders still target the next pending signer.
		s.logWarn(ctx, "provider does not route signers sequentially", nil)
	}

	c, err := s.contracts.GetByID(ctx, dto.ContractID)
	if err != nil {
		return nil, err
	}
	if !contenthash.Verify(c.Content(), c.ContentHash()) {
		return nil, serrors.NewIntegrityError("contract content does not match its stored hash")
	}

	// A retried Send must not create a second provider envelope.
	prior, err := s.requests.List(ctx, &signaturerequest.FindParams{ContractID: dto.ContractID})
	if err != nil {
		return nil, serrors.NewPersistenceError("listing signature requests", err)
	}
	for _, existing := range prior {
		if !existing.Status().IsTerminal() {
			return nil, serrors.NewError(
				serrors.CodeStateTransition,
				fmt.Sprintf("contract already has an active signature request in status %q", existing.Status()),
				"Errors.StateTransition",
			)
		}
	}

	signers := make([]signaturerequest.Signer, len(dto.Signers))
	copy(signers, dto.Signers)
	for i := range signers {
		if signers[i].ID == uuid.Nil {
			signers[i].ID = uuid.New()
		}
		signers[i].Status = signaturerequest.SignerUnsent
	}

	req := signaturerequest.New(
		c.TenantID(),
		c.ID(),
		dto.Provider,
		c.ContentHash(),
		signaturerequest.WithSubject(dto.Subject, dto.Message),
		signaturerequest.WithSequential(dto.Sequential),
		signaturerequest.WithExpiresAt(dto.ExpiresAt),
		signaturerequest.WithRemindEvery(dto.RemindEvery),
		signaturerequest.WithSigners(signers),
	)
	req, err = s.requests.Create(ctx, req)
	if err != nil {
		return nil, serrors.NewPersistenceError("creating signature request", err)
	}

	providerRequestID, err := adapter.Create(ctx, req)
	if err != nil {
		metricsSingleton().sendTotal.WithLabelValues(string(dto.Provider), "error").Inc()
		if cancelled, cancelErr := req.MarkCancelled(time.Now()); cancelErr == nil {
			if _, saveErr := s.requests.Save(ctx, cancelled); saveErr == nil {
				s.recordAudit(ctx, c, auditlog.EventSignatureFailed, req, nil)
			}
		}
		return nil, err
	}

	now := time.Now()
	sent, err := req.MarkSent(providerRequestID, now)
	if err != nil {
		return nil, err
	}
	sent, err = s.requests.Save(ctx, sent)
	if err != nil {
		return nil, serrors.NewPersistenceError("saving dispatched request", err)
	}

	c = c.WithStatus(contract.StatusAwaitingSignature).WithSignedHash(c.ContentHash())
	if _, err := s.contracts.Save(ctx, c); err != nil {
		return nil, serrors.NewPersistenceError("updating contract status", err)
	}

	metricsSingleton().sendTotal.WithLabelValues(string(dto.Provider), "ok").Inc()
	s.recordAudit(ctx, c, auditlog.EventSignatureInitiated, sent, nil)
	s.publisher.Publish(signaturerequest.SentEvent{
		RequestID:         sent.ID(),
		ContractID:        c.ID(),
		Provider:          sent.Provider(),
		ProviderRequestID: providerRequestID,
		At:                now,
	})
	return sent, nil
}

// Cancel voids the envelope at the provider first (best-effort, a
// provider failure is logged and never blocks the cancellation), then
// cancels the local request.
func (s *SignatureOrchestrator) Cancel(ctx context.Context, requestID uuid.UUID) (signaturerequest.SignatureRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cancelled, err := req.MarkCancelled(now)
	if err != nil {
		return nil, err
	}

	if req.ProviderRequestID() != "" {
		adapter, adapterErr := s.providers.Get(req.Provider())
		if adapterErr == nil {
			if cancelErr := adapter.Cancel(ctx, req.ProviderRequestID()); cancelErr != nil {
				s.logWarn(ctx, "provider cancel failed", cancelErr)
			}
		}
	}

	cancelled, err = s.requests.Save(ctx, cancelled)
	if err != nil {
		return nil, serrors.NewPersistenceError("saving cancelled request", err)
	}

	metricsSingleton().transitionTotal.WithLabelValues(string(req.Provider()), string(signaturerequest.StatusCancelled)).Inc()
	s.publisher.Publish(signaturerequest.CancelledEvent{
		RequestID:  cancelled.ID(),
		ContractID: cancelled.ContractID(),
		At:         now,
	})
	return cancelled, nil
}

// SyncStatus pulls the provider's view and applies at most one forward
// transition per signer. Reported regressions are counted and skipped,
// never applied.
func (s *SignatureOrchestrator) SyncStatus(ctx context.Context, requestID uuid.UUID) (signaturerequest.SignatureRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if req.IsExpired(now) {
		return s.expire(ctx, req, now)
	}
	if req.Status() != signaturerequest.StatusSent {
		return req, nil
	}

	adapter, err := s.providers.Get(req.Provider())
	if err != nil {
		return nil, err
	}
	report, err := adapter.GetStatus(ctx, req.ProviderRequestID())
	if err != nil {
		return nil, err
	}

	updated := req
	for _, state := range report.Signers {
		signer := findSignerByEmail(updated.Signers(), state.Email)
		if signer == nil {
			continue
		}
		if signer.Status == state.Status {
			continue
		}
		if !signer.Status.CanAdvanceTo(state.Status) {
			metricsSingleton().regressionTotal.WithLabelValues(string(req.Provider())).Inc()
			s.logWarn(ctx, "provider reported a backwards signer transition", serrors.NewStateTransitionError(string(signer.Status), string(state.Status)))
			continue
		}
		next, err := updated.ApplySignerStatus(signer.ID, state.Status, now)
		if err != nil {
			s.logWarn(ctx, "signer transition rejected", err)
			continue
		}
		updated = next
	}

	if updated.Status() == req.Status() && len(report.Signers) == 0 && report.RequestStatus.IsTerminal() {
		// Providers without per-signer detail still report terminal
		// envelope statuses.
		switch report.RequestStatus {
		case signaturerequest.StatusCancelled:
			return s.Cancel(ctx, requestID)
		case signaturerequest.StatusExpired:
			return s.expire(ctx, req, now)
		case signaturerequest.StatusCompleted:
			// Every pending signer signed; the aggregate completes once
			// the last one advances.
			for _, signer := range updated.Signers() {
				if signer.Status.IsTerminal() {
					continue
				}
				next, err := updated.ApplySignerStatus(signer.ID, signaturerequest.SignerSigned, now)
				if err != nil {
					s.logWarn(ctx, "signer transition rejected", err)
					continue
				}
				updated = next
			}
		}
	}

	if updated == req {
		return req, nil
	}

	saved, err := s.requests.Save(ctx, updated)
	if err != nil {
		if errors.Is(err, signaturerequest.ErrVersionConflict) {
			return nil, err
		}
		return nil, serrors.NewPersistenceError("saving synced request", err)
	}

	s.afterTransition(ctx, req, saved, now)
	return saved, nil
}

// SweepExpired expires every sent request whose deadline has passed.
func (s *SignatureOrchestrator) SweepExpired(ctx context.Context) (int, error) {
	requests, err := s.requests.List(ctx, &signaturerequest.FindParams{Status: signaturerequest.StatusSent})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	expired := 0
	for _, req := range requests {
		if !req.IsExpired(now) {
			continue
		}
		if _, err := s.expire(ctx, req, now); err != nil {
			s.logWarn(ctx, "expiry sweep failed for request", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// SendReminder nudges the next pending signer through the provider.
func (s *SignatureOrchestrator) SendReminder(ctx context.Context, requestID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status() != signaturerequest.StatusSent {
		return serrors.NewStateTransitionError(string(req.Status()), "reminder")
	}
	next := req.NextSigner()
	if next == nil {
		return nil
	}
	adapter, err := s.providers.Get(req.Provider())
	if err != nil {
		return err
	}
	return adapter.SendReminder(ctx, req.ProviderRequestID(), next.Email)
}

func (s *SignatureOrchestrator) GetEmbeddedSigningURL(ctx context.Context, requestID uuid.UUID, signerEmail string) (string, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Status() != signaturerequest.StatusSent {
		return "", serrors.NewStateTransitionError(string(req.Status()), "embedded_signing")
	}
	adapter, err := s.providers.Get(req.Provider())
	if err != nil {
		return "", err
	}
	return adapter.GetEmbeddedSigningURL(ctx, req.ProviderRequestID(), signerEmail)
}

func (s *SignatureOrchestrator) GetByID(ctx context.Context, requestID uuid.UUID) (signaturerequest.SignatureRequest, error) {
	return s.requests.GetByID(ctx, requestID)
}

func (s *SignatureOrchestrator) expire(ctx context.Context, req signaturerequest.SignatureRequest, now time.Time) (signaturerequest.SignatureRequest, error) {
	expired, err := req.MarkExpired(now)
	if err != nil {
		return nil, err
	}
	expired, err = s.requests.Save(ctx, expired)
	if err != nil {
		return nil, serrors.NewPersistenceError("saving expired request", err)
	}
	metricsSingleton().expiredTotal.Inc()
	metricsSingleton().transitionTotal.WithLabelValues(string(req.Provider()), string(signaturerequest.StatusExpired)).Inc()
	s.publisher.Publish(signaturerequest.ExpiredEvent{
		RequestID:  expired.ID(),
		ContractID: expired.ContractID(),
		At:         now,
	})
	return expired, nil
}

// afterTransition emits events, metrics, and audit entries once a sync
// moved the request to a new status.
func (s *SignatureOrchestrator) afterTransition(ctx context.Context, before, after signaturerequest.SignatureRequest, now time.Time) {
	if before.Status() == after.Status() {
		return
	}
	metricsSingleton().transitionTotal.WithLabelValues(string(after.Provider()), string(after.Status())).Inc()

	c, err := s.contracts.GetByID(ctx, after.ContractID())
	if err != nil {
		s.logWarn(ctx, "contract lookup after transition failed", err)
		c = contract.Contract{}
	}

	switch after.Status() {
	case signaturerequest.StatusCompleted:
		if !c.IsZero() {
			c = c.WithStatus(contract.StatusSigned)
			if _, err := s.contracts.Save(ctx, c); err != nil {
				s.logWarn(ctx, "marking contract signed failed", err)
			}
			s.recordAudit(ctx, c, auditlog.EventSignatureCompleted, after, nil)
		}
		s.publisher.Publish(signaturerequest.CompletedEvent{
			RequestID:  after.ID(),
			ContractID: after.ContractID(),
			At:         now,
		})
	case signaturerequest.StatusDeclined:
		var declinedBy uuid.UUID
		for _, signer := range after.Signers() {
			if signer.Status == signaturerequest.SignerDeclined {
				declinedBy = signer.ID
				break
			}
		}
		if !c.IsZero() {
			s.recordAudit(ctx, c, auditlog.EventSignatureFailed, after, &declinedBy)
		}
		s.publisher.Publish(signaturerequest.DeclinedEvent{
			RequestID:  after.ID(),
			ContractID: after.ContractID(),
			SignerID:   declinedBy,
			At:         now,
		})
	}
}

func (s *SignatureOrchestrator) recordAudit(
	ctx context.Context,
	c contract.Contract,
	kind auditlog.EventKind,
	req signaturerequest.SignatureRequest,
	signerID *uuid.UUID,
) {
	if s.audit == nil || c.IsZero() {
		return
	}
	_, err := s.audit.RecordEvent(ctx, RecordEventDTO{
		ContractID:       c.ID(),
		EventKind:        kind,
		SignatureChannel: string(req.Provider()),
		ContentHash:      req.DocumentHash(),
		SignerID:         signerID,
	})
	if err != nil {
		s.logWarn(ctx, "recording audit entry failed", err)
	}
}

func (s *SignatureOrchestrator) logWarn(ctx context.Context, msg string, err error) {
	if logger := ctx.Value(constants.LoggerKey); logger != nil {
		logger.(*logrus.Entry).WithError(err).Warn(msg)
	}
}

func findSignerByEmail(signers []signaturerequest.Signer, email string) *signaturerequest.Signer {
	for i := range signers {
		if signers[i].Email == email {
			return &signers[i]
		}
	}
	return nil
}

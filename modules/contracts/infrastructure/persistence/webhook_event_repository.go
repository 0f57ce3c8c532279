package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solarium-dev/solarium/modules/contracts/domain/entities/webhookevent"
	"github.com/solarium-dev/solarium/modules/contracts/infrastructure/persistence/models"
	"github.com/solarium-dev/solarium/pkg/composables"
)

type WebhookEventRepository struct{}

func NewWebhookEventRepository() webhookevent.Repository {
	return &WebhookEventRepository{}
}

const webhookEventColumns = `id, tenant_id, provider, provider_request_id, payload, processed, processing_error, attempts, received_at, processed_at`

func (r *WebhookEventRepository) Create(ctx context.Context, event *webhookevent.Event) (*webhookevent.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := toDBWebhookEvent(event)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.ReceivedAt.IsZero() {
		row.ReceivedAt = time.Now()
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO webhook_events (id, tenant_id, provider, provider_request_id, payload, processed, processing_error, attempts, received_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID,
		row.TenantID,
		row.Provider,
		row.ProviderRequestID,
		row.Payload,
		row.Processed,
		row.ProcessingError,
		row.Attempts,
		row.ReceivedAt,
		row.ProcessedAt,
	); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, row.ID)
}

func (r *WebhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhookevent.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WebhookEvent
	if err := tx.QueryRow(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE id = $1
	`, id).Scan(
		&row.ID,
		&row.TenantID,
		&row.Provider,
		&row.ProviderRequestID,
		&row.Payload,
		&row.Processed,
		&row.ProcessingError,
		&row.Attempts,
		&row.ReceivedAt,
		&row.ProcessedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, webhookevent.ErrNotFound
		}
		return nil, err
	}
	return toDomainWebhookEvent(&row), nil
}

func (r *WebhookEventRepository) ListUnprocessed(ctx context.Context, limit int) ([]*webhookevent.Event, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE NOT processed
		ORDER BY received_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*webhookevent.Event
	for rows.Next() {
		var row models.WebhookEvent
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.Provider,
			&row.ProviderRequestID,
			&row.Payload,
			&row.Processed,
			&row.ProcessingError,
			&row.Attempts,
			&row.ReceivedAt,
			&row.ProcessedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainWebhookEvent(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE webhook_events
		SET processed = TRUE, processing_error = NULL, processed_at = $2, attempts = attempts + 1
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return webhookevent.ErrNotFound
	}
	return nil
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, processingError string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE webhook_events
		SET processing_error = $2, attempts = attempts + 1
		WHERE id = $1
	`, id, processingError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return webhookevent.ErrNotFound
	}
	return nil
}
